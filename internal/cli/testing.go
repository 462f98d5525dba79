package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI provides a clean interface for running CLI commands in tests.
// It manages a temp directory and environment variables.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a new test CLI with a temp directory. The global config
// location points into the temp directory so the user's real config is
// never read.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	dir := t.TempDir()

	return &CLI{
		t:   t,
		Dir: dir,
		Env: map[string]string{"XDG_CONFIG_HOME": filepath.Join(dir, ".xdg")},
	}
}

// Run executes the CLI with the given args and returns stdout, stderr, and exit code.
// Args should not include "sot" or "--cwd" - those are added automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	return r.run(nil, args)
}

// RunWithInput executes the CLI with stdin and returns stdout, stderr, and exit code.
// stdin must be a string or io.Reader; panics otherwise.
func (r *CLI) RunWithInput(stdin any, args ...string) (string, string, int) {
	var inReader io.Reader

	switch v := stdin.(type) {
	case string:
		inReader = strings.NewReader(v)
	case io.Reader:
		inReader = v
	default:
		panic(fmt.Sprintf("stdin must be string or io.Reader, got %T", stdin))
	}

	return r.run(inReader, args)
}

func (r *CLI) run(stdin io.Reader, args []string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"sot", "--cwd", r.Dir}, args...)
	code := Run(stdin, &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test if the command returns non-zero.
// Returns trimmed stdout on success.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustRunWithInput is [CLI.MustRun] with stdin.
func (r *CLI) MustRunWithInput(stdin any, args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.RunWithInput(stdin, args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail executes the CLI and fails the test if the command succeeds.
// Also fails if stdout is not empty. Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	if stdout != "" {
		r.t.Fatalf("command %v failed but stdout should be empty\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// Path returns name joined to the test directory.
func (r *CLI) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// WriteFile writes content to name inside the test directory.
func (r *CLI) WriteFile(name, content string) {
	r.t.Helper()

	path := r.Path(name)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		r.t.Fatalf("failed to create dir for %s: %v", name, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		r.t.Fatalf("failed to write %s: %v", name, err)
	}
}

// ReadFile returns the content of name inside the test directory.
func (r *CLI) ReadFile(name string) string {
	r.t.Helper()

	content, err := os.ReadFile(r.Path(name))
	if err != nil {
		r.t.Fatalf("failed to read %s: %v", name, err)
	}

	return string(content)
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
