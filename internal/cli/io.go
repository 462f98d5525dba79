package cli

import (
	"fmt"
	"io"
)

// IO handles command output with warning visibility.
//
// Stdout carries command results (file bytes for cat, key=value lines for
// the rest). Errors, warnings and the OS call trace go to stderr.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
	started  bool
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records a non-fatal issue together with what the user should do
// about it.
//
// Warnings are printed to stderr at both the START and END of output so
// they survive truncation by head or tail. Any warning makes the exit code 1.
func (o *IO) Warn(issue string, action string) {
	o.warnings = append(o.warnings, fmt.Sprintf("%s: %s", issue, action))
}

// Println writes to stdout. On first call, any collected warnings
// are printed to stderr first.
func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout. On first call, any collected
// warnings are printed to stderr first.
func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// Write copies raw bytes to stdout, so IO can be the destination of a
// stream copy.
func (o *IO) Write(p []byte) (int, error) {
	o.flushWarningsStart()

	return o.out.Write(p)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// ErrPrintf writes formatted output to stderr.
func (o *IO) ErrPrintf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.errOut, format, a...)
}

// Finish prints warnings to stderr and returns exit code.
// Returns 1 if any warnings, 0 otherwise.
func (o *IO) Finish() int {
	// If no output happened but we have warnings, print them at "start" position
	o.flushWarningsStart()

	// Always print at end
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	if len(o.warnings) > 0 {
		return 1
	}

	return 0
}

func (o *IO) flushWarningsStart() {
	if !o.started && len(o.warnings) > 0 {
		for _, w := range o.warnings {
			_, _ = fmt.Fprintln(o.errOut, "warning:", w)
		}

		o.started = true
	}
}
