package stream

import (
	"fmt"
	"os"

	"github.com/calvinalkan/sostream/pkg/fs"
)

// DefaultBufferSize is the buffer capacity used when [Options.BufferSize] is zero.
const DefaultBufferSize = 4096

// DefaultPerm is the permission used for files created by w, w+, a and a+
// when [Options.Perm] is zero (before umask).
const DefaultPerm os.FileMode = 0o644

// Options configures [OpenWith]. The zero value is valid and equals
// [DefaultOptions].
type Options struct {
	// BufferSize is the fixed capacity of the handle's buffer. It is used
	// for both the single-byte and the block paths and never changes for
	// the life of the handle. Zero means [DefaultBufferSize].
	BufferSize int

	// Perm is the permission for newly created files. Zero means [DefaultPerm].
	Perm os.FileMode

	// FS opens the underlying file. Nil means [fs.NewReal].
	FS fs.FS

	// Advise is passed to [fs.Advise] right after open. The hint is best
	// effort; a failure to apply it does not fail the open.
	Advise fs.Advice
}

// DefaultOptions returns the options used by [Open].
func DefaultOptions() Options {
	return Options{
		BufferSize: DefaultBufferSize,
		Perm:       DefaultPerm,
		FS:         fs.NewReal(),
	}
}

// withDefaults fills zero fields and validates the rest.
func (o Options) withDefaults() (Options, error) {
	if o.BufferSize < 0 {
		return Options{}, fmt.Errorf("%w: %d", ErrInvalidBufferSize, o.BufferSize)
	}

	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}

	if o.Perm == 0 {
		o.Perm = DefaultPerm
	}

	if o.FS == nil {
		o.FS = fs.NewReal()
	}

	return o, nil
}
