package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/sostream/pkg/stream"
)

var shellCommands = []string{
	"read", "getc", "write", "putc",
	"seek", "tell", "flush", "sync",
	"eof", "error", "fd",
	"help", "quit", "exit", "q",
}

// ShellCmd returns the shell command.
func ShellCmd(env *Env) *Command {
	flags := flag.NewFlagSet("shell", flag.ContinueOnError)
	mode := flags.StringP("mode", "m", "r+", "Open `mode`: r, r+, w, w+, a, a+")

	return &Command{
		Flags: flags,
		Usage: "shell [--mode m] <file>",
		Short: "Drive one stream interactively",
		Long: `Open file with the given mode and run commands against the handle,
one per line. Type "help" inside the shell for the command list.

On a terminal the shell has line editing and tab completion. Otherwise
commands are read from stdin, which makes it scriptable:

  printf 'write hello\nseek 0\nread 5\n' | sot shell -m w+ f.txt`,
		Args:    1,
		MaxArgs: 1,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execShell(ctx, o, env, args[0], *mode)
		},
	}
}

// lineSource is the part of *liner.State the shell needs.
type lineSource interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// scannerLines reads commands from a non-terminal stdin.
type scannerLines struct {
	sc *bufio.Scanner
}

func (s *scannerLines) Prompt(string) (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}

	if err := s.sc.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (s *scannerLines) AppendHistory(string) {}

func execShell(ctx context.Context, o *IO, env *Env, path, mode string) error {
	if env.Stdin == nil {
		return ErrNoStdin
	}

	s, err := env.Open(path, mode)
	if err != nil {
		return err
	}

	var src lineSource

	if f, ok := env.Stdin.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		l := liner.NewLiner()
		defer l.Close()

		l.SetCtrlCAborts(true)
		l.SetCompleter(completeShell)

		o.Printf("sot shell: %s (mode %s, buffer %d bytes)\n", path, s.Mode(), s.BufferSize())
		o.Println("Type 'help' for available commands.")

		src = l
	} else {
		src = &scannerLines{sc: bufio.NewScanner(env.Stdin)}
	}

	sh := &shell{s: s, o: o}

	for ctx.Err() == nil {
		line, err := src.Prompt("sot> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}

			_ = s.Close()

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		src.AppendHistory(line)

		quit, err := sh.exec(line)
		if err != nil {
			o.ErrPrintln("error:", err)
		}

		if quit {
			break
		}
	}

	if err := s.Close(); err != nil {
		return err
	}

	return ctx.Err()
}

func completeShell(line string) []string {
	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range shellCommands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

// shell runs single command lines against one open stream.
type shell struct {
	s *stream.Stream
	o *IO
}

// exec runs one line. quit reports whether the shell should stop.
func (sh *shell) exec(line string) (quit bool, err error) {
	name, rest, _ := strings.Cut(line, " ")
	args := strings.Fields(rest)

	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		sh.printHelp()
	case "read":
		return false, sh.read(args)
	case "getc":
		return false, sh.getc()
	case "write":
		return false, sh.write(rest)
	case "putc":
		return false, sh.putc(rest)
	case "seek":
		return false, sh.seek(args)
	case "tell":
		sh.o.Printf("tell=%d\n", sh.s.Tell())
	case "flush":
		return false, sh.s.Flush()
	case "sync":
		return false, sh.s.Sync()
	case "eof":
		sh.o.Printf("eof=%t\n", sh.s.IsEOF())
	case "error":
		sh.o.Printf("error=%t\n", sh.s.HasError())

		if err := sh.s.LastError(); err != nil {
			sh.o.Println("last_error=" + err.Error())
		}
	case "fd":
		sh.o.Printf("fd=%d\n", sh.s.Fd())
	default:
		return false, fmt.Errorf("%w: %s (type 'help' for commands)", ErrUnknownCommand, name)
	}

	return false, nil
}

func (sh *shell) read(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: read N", ErrMissingArgs)
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("read: invalid count %q", args[0])
	}

	buf := make([]byte, n)
	got := sh.s.ReadBlock(buf, 1, n)

	sh.o.Printf("%d %q\n", got, buf[:got])

	if got < n && sh.s.HasError() {
		return sh.s.LastError()
	}

	return nil
}

func (sh *shell) getc() error {
	c, err := sh.s.ReadByte()
	if errors.Is(err, io.EOF) {
		sh.o.Println("EOF")

		return nil
	}

	if err != nil {
		return err
	}

	sh.o.Printf("%q\n", c)

	return nil
}

func (sh *shell) write(text string) error {
	n := sh.s.WriteBlock([]byte(text), 1, len(text))

	sh.o.Printf("wrote %d\n", n)

	if n < len(text) {
		return sh.s.LastError()
	}

	return nil
}

func (sh *shell) putc(arg string) error {
	if len(arg) != 1 {
		return fmt.Errorf("%w: putc C (exactly one byte)", ErrMissingArgs)
	}

	return sh.s.WriteByte(arg[0])
}

func (sh *shell) seek(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: seek OFF [set|cur|end]", ErrMissingArgs)
	}

	off, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("seek: invalid offset %q", args[0])
	}

	whence := io.SeekStart

	if len(args) == 2 {
		switch args[1] {
		case "set":
		case "cur":
			whence = io.SeekCurrent
		case "end":
			whence = io.SeekEnd
		default:
			return fmt.Errorf("seek: whence must be set, cur or end, got %q", args[1])
		}
	}

	pos, err := sh.s.Seek(off, whence)
	if err != nil {
		return err
	}

	sh.o.Printf("pos=%d\n", pos)

	return nil
}

func (sh *shell) printHelp() {
	sh.o.Println("Commands:")
	sh.o.Println("  read N                 Read up to N bytes")
	sh.o.Println("  getc                   Read one byte")
	sh.o.Println("  write TEXT             Write the rest of the line")
	sh.o.Println("  putc C                 Write one byte")
	sh.o.Println("  seek OFF [set|cur|end] Reposition (default: set)")
	sh.o.Println("  tell                   Show the logical position")
	sh.o.Println("  flush                  Write buffered bytes")
	sh.o.Println("  sync                   Flush and fsync")
	sh.o.Println("  eof                    Show the end-of-file flag")
	sh.o.Println("  error                  Show the error flag")
	sh.o.Println("  fd                     Show the OS descriptor")
	sh.o.Println("  help                   Show this help")
	sh.o.Println("  quit / exit / q        Close the file and exit")
}
