package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/sostream/internal/config"
	"github.com/calvinalkan/sostream/pkg/fs"
	"github.com/calvinalkan/sostream/pkg/stream"
)

// traceCapacity bounds the --trace ring. Older calls are dropped.
const traceCapacity = 1 << 16

// Env is what every command gets besides its own flags: the resolved
// config, the filesystem streams are opened on, and stdin.
type Env struct {
	Config config.Config
	FS     fs.FS
	Stdin  io.Reader
}

// Path resolves p against the effective working directory.
func (e *Env) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(e.Config.EffectiveCwd, p)
}

// Open opens p with the configured stream options.
func (e *Env) Open(p, mode string) (*stream.Stream, error) {
	return stream.OpenWith(e.Path(p), mode, e.Config.StreamOptions(e.FS))
}

// commands returns every command in help order.
func commands(env *Env) []*Command {
	return []*Command{
		CatCmd(env),
		WriteCmd(env),
		CopyCmd(env),
		StatCmd(env),
		ShellCmd(env),
		PrintConfigCmd(env),
	}
}

// Run is the main entry point. Returns exit code.
//
// A value on sigCh cancels the context passed to the running command.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("sot", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{}) // discard pflag output

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	bufferSize := globals.Int("buffer-size", 0, "Override the stream buffer capacity in `bytes`")
	trace := globals.Bool("trace", false, "Print every OS call made by the streams to stderr")
	help := globals.BoolP("help", "h", false, "Show help")

	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}

	if err := globals.Parse(rest); err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals)

		return 1
	}

	if *help || globals.NArg() == 0 {
		printUsage(out, globals)

		return 0
	}

	cmdEnv := &Env{Stdin: stdin}

	var cmd *Command

	name := globals.Arg(0)
	for _, c := range commands(cmdEnv) {
		if c.Name() == name {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error:", fmt.Errorf("%w: %s", ErrUnknownCommand, name))
		fprintln(errOut)
		printUsage(errOut, globals)

		return 1
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride:    *workDir,
		ConfigPath:         *configPath,
		BufferSizeOverride: *bufferSize,
		Env:                env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	cmdEnv.Config = cfg
	cmdEnv.FS = fs.NewReal()

	var chaos *fs.Chaos
	if *trace {
		chaos = fs.NewChaos(cmdEnv.FS, 0, fs.ChaosConfig{TraceCapacity: traceCapacity})
		chaos.SetMode(fs.ChaosModeNoOp)
		cmdEnv.FS = chaos
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o := NewIO(out, errOut)
	code := cmd.Run(ctx, o, globals.Args()[1:])

	if chaos != nil {
		printTrace(errOut, chaos)
	}

	return max(code, o.Finish())
}

func printTrace(w io.Writer, chaos *fs.Chaos) {
	events := chaos.TraceEvents()

	reads, writes := 0, 0

	for _, e := range events {
		switch e.Op {
		case "file.read":
			reads++
		case "file.write":
			writes++
		}
	}

	fprintln(w, "# trace")

	if len(events) > 0 {
		fprintln(w, chaos.Trace())
	}

	_, _ = fmt.Fprintf(w, "# %d calls, %d reads, %d writes\n", len(events), reads, writes)
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet) {
	fprintln(w, `sot - buffered file stream toolkit

Usage: sot [global flags] <command> [args]

Global flags:`)

	var buf strings.Builder
	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(&strings.Builder{})

	_, _ = io.WriteString(w, buf.String())

	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands(&Env{}) {
		fprintln(w, c.HelpLine())
	}

	fprintln(w)
	fprintln(w, `Run "sot <command> --help" for command flags.`)
}
