package cli

import (
	"context"
	"errors"
	"io"

	flag "github.com/spf13/pflag"
)

// StatCmd returns the stat command.
func StatCmd(env *Env) *Command {
	return &Command{
		Flags: flag.NewFlagSet("stat", flag.ContinueOnError),
		Usage: "stat <file>",
		Short: "Read a file byte by byte and report the handle state",
		Long: `Open file read-only, read it to the end with single-byte reads and
print the byte count, the logical position and the sticky flags.

With --trace this shows that single-byte reads still cost one OS read per
buffer, not one per byte.`,
		Args:    1,
		MaxArgs: 1,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execStat(ctx, o, env, args[0])
		},
	}
}

func execStat(ctx context.Context, o *IO, env *Env, path string) error {
	s, err := env.Open(path, "r")
	if err != nil {
		return err
	}

	var count int64

	for {
		if count%4096 == 0 {
			if err := ctx.Err(); err != nil {
				_ = s.Close()

				return err
			}
		}

		_, err := s.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				o.Warn(err.Error(), "the byte count is a prefix of the file")
			}

			break
		}

		count++
	}

	o.Println("path=" + env.Path(path))
	o.Printf("bytes=%d\n", count)
	o.Printf("tell=%d\n", s.Tell())
	o.Printf("eof=%t\n", s.IsEOF())
	o.Printf("error=%t\n", s.HasError())
	o.Printf("buffer_size=%d\n", s.BufferSize())

	return s.Close()
}
