package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	// The FlagSet name is not used - command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "sot" in help.
	// Includes the command name and arguments/flags.
	// Examples: "cat <file>...", "copy [--atomic] <src> <dst>"
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Args is the minimum number of positional arguments.
	Args int

	// MaxArgs caps the positional arguments. Zero means no limit.
	MaxArgs int

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-22s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "sot <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: sot", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags, checks the positional arity and executes the command.
// Returns the exit code. Errors are printed here so that they always come
// after any output of the command itself.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)
		return 1
	}

	if c.Args > 0 && c.Flags.NArg() < c.Args {
		o.ErrPrintln("error:", fmt.Errorf("%w: %s", ErrMissingArgs, c.Usage))
		return 1
	}

	if c.MaxArgs > 0 && c.Flags.NArg() > c.MaxArgs {
		o.ErrPrintln("error:", fmt.Errorf("%w: %s", ErrTooManyArgs, c.Usage))
		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	return 0
}
