package cli

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"
)

// WriteCmd returns the write command.
func WriteCmd(env *Env) *Command {
	flags := flag.NewFlagSet("write", flag.ContinueOnError)
	appendMode := flags.BoolP("append", "a", false, "Append instead of truncating (mode \"a\")")

	return &Command{
		Flags: flags,
		Usage: "write [--append] <file>",
		Short: "Write stdin to a file",
		Long: `Stream stdin into file through a write-only handle.

The file is truncated (mode "w") unless --append is given (mode "a").`,
		Args:    1,
		MaxArgs: 1,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			mode := "w"
			if *appendMode {
				mode = "a"
			}

			return execWrite(ctx, o, env, args[0], mode)
		},
	}
}

func execWrite(ctx context.Context, o *IO, env *Env, path, mode string) error {
	if env.Stdin == nil {
		return ErrNoStdin
	}

	s, err := env.Open(path, mode)
	if err != nil {
		return err
	}

	n, copyErr := io.Copy(s, contextReader{ctx: ctx, r: env.Stdin})
	closeErr := s.Close()

	if copyErr != nil {
		return copyErr
	}

	if closeErr != nil {
		return closeErr
	}

	o.Printf("wrote %d bytes to %s\n", n, path)

	if mode == "a" {
		o.Printf("tell=%d\n", s.Tell())
	}

	return nil
}

// contextReader stops a copy once ctx is canceled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
