package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/sostream/pkg/stream"
)

// CopyCmd returns the copy command.
func CopyCmd(env *Env) *Command {
	flags := flag.NewFlagSet("copy", flag.ContinueOnError)
	atomicReplace := flags.Bool("atomic", false, "Replace dst via temp file and rename")

	return &Command{
		Flags: flags,
		Usage: "copy [--atomic] <src> <dst>",
		Short: "Copy a file through two streams",
		Long: `Copy src to dst. src is read through a buffered read-only handle.

Without --atomic, dst is written through a second handle (mode "w").
With --atomic, dst is replaced in one rename: readers see either the old
or the new content, never a partial file.`,
		Args:    2,
		MaxArgs: 2,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execCopy(ctx, o, env, args[0], args[1], *atomicReplace)
		},
	}
}

func execCopy(ctx context.Context, o *IO, env *Env, src, dst string, atomicReplace bool) (err error) {
	in, err := env.Open(src, "r")
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := in.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	r := contextReader{ctx: ctx, r: in}

	if atomicReplace {
		err = copyAtomic(env, r, dst)
	} else {
		err = copyStream(env, r, dst)
	}

	if err != nil {
		return err
	}

	// A read that delivers bytes together with an error records the error
	// on the handle without returning it.
	if in.HasError() {
		return fmt.Errorf("%w: %w", ErrPartialCopy, in.LastError())
	}

	o.Printf("copied %d bytes from %s to %s\n", in.Tell(), src, dst)

	return nil
}

func copyStream(env *Env, r io.Reader, dst string) error {
	out, err := env.Open(dst, "w")
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, r)
	closeErr := out.Close()

	if copyErr != nil {
		return copyErr
	}

	return closeErr
}

func copyAtomic(env *Env, r io.Reader, dst string) error {
	path := env.Path(dst)

	_, statErr := os.Stat(path)
	existed := statErr == nil

	if err := atomic.WriteFile(path, r); err != nil {
		return fmt.Errorf("%w: %s: %w", stream.ErrIO, dst, err)
	}

	// atomic.WriteFile keeps the mode of an existing file but creates new
	// ones with the temp file's 0600.
	if !existed {
		if err := os.Chmod(path, env.Config.PermMode); err != nil {
			return fmt.Errorf("failed to set file permissions: %w", err)
		}
	}

	return nil
}
