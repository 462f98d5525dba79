// Package fs provides the OS file interface consumed by the stream package.
//
// The main types are:
//   - [FS]: interface for opening and inspecting files
//   - [File]: interface for open file descriptors (satisfied by [os.File])
//   - [Real]: production implementation using [os] package
//   - [Chaos]: testing implementation that injects I/O failures and records
//     a trace of every descriptor-level call
//
// Example usage:
//
//	fsys := fs.NewReal()
//	f, err := fsys.OpenFile("data.bin", os.O_RDWR, 0)
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
package fs

import (
	"io"
	"os"
)

// File represents an OS-backed open file descriptor.
//
// This interface is satisfied by [os.File]. Buffering layers built on top
// of [File] rely on these os-like properties:
//   - Read returns (0, [io.EOF]) at end of file and n==0 on errors.
//   - Write returns a non-nil error whenever n < len(p).
//   - Seek reports the resulting absolute offset.
//   - Close releases the descriptor even when it reports an error.
//
// [File.Fd] must return the OS file descriptor until the file is closed.
type File interface {
	// Embedded interfaces from [io] package.
	// These provide Read, Write, Close, and Seek methods.
	io.ReadWriteCloser
	io.Seeker

	// Fd returns the file descriptor. See [os.File.Fd].
	Fd() uintptr

	// Stat returns the [os.FileInfo] for this file. See [os.File.Stat].
	Stat() (os.FileInfo, error)

	// Sync commits the file's contents to disk. See [os.File.Sync].
	Sync() error
}

// FS defines the filesystem operations needed to open and inspect files.
//
// Paths use OS semantics (like the os package and path/filepath), not the
// slash-separated paths used by the standard library io/fs package.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type FS interface {
	// OpenFile opens a file with specified flags and permissions. See [os.OpenFile].
	//
	// Common flags: [os.O_RDONLY], [os.O_WRONLY], [os.O_RDWR],
	// [os.O_APPEND], [os.O_CREATE], [os.O_TRUNC].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// Stat returns file info. See [os.Stat].
	// Returns [os.ErrNotExist] if file doesn't exist.
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether a file or directory exists.
	// Returns (false, nil) if not found, (false, err) on other errors.
	Exists(path string) (bool, error)

	// Remove deletes a file or empty directory. See [os.Remove].
	Remove(path string) error
}

// Compile-time interface checks.
var _ File = (*os.File)(nil)
