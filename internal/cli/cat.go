package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
)

// CatCmd returns the cat command.
func CatCmd(env *Env) *Command {
	return &Command{
		Flags: flag.NewFlagSet("cat", flag.ContinueOnError),
		Usage: "cat <file>...",
		Short: "Print files to stdout",
		Long: `Stream each file to stdout through a read-only handle.

Every file is read in blocks of the configured buffer size, so each block
costs exactly one OS read.`,
		Args: 1,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			for _, path := range args {
				if err := catFile(ctx, o, env, path); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func catFile(ctx context.Context, o *IO, env *Env, path string) (err error) {
	s, err := env.Open(path, "r")
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	buf := make([]byte, s.BufferSize())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := s.ReadBlock(buf, 1, len(buf))
		if n > 0 {
			if _, err := o.Write(buf[:n]); err != nil {
				return fmt.Errorf("writing stdout: %w", err)
			}
		}

		if n < len(buf) {
			break
		}
	}

	if s.HasError() {
		return s.LastError()
	}

	return nil
}
