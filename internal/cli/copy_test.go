package cli_test

import (
	"os"
	"strings"
	"testing"

	"github.com/calvinalkan/sostream/internal/cli"
)

func Test_Copy_Duplicates_File_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	content := strings.Repeat("x", 10_000)
	c.WriteFile("src.bin", content)

	stdout := c.MustRun("--buffer-size=100", "copy", "src.bin", "dst.bin")

	cli.AssertContains(t, stdout, "copied 10000 bytes from src.bin to dst.bin")

	if got := c.ReadFile("dst.bin"); got != content {
		t.Fatalf("dst len=%d, want len=%d", len(got), len(content))
	}
}

func Test_Copy_Replaces_Destination_When_Atomic_Flag_Is_Set(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("src.txt", "fresh")
	c.WriteFile("dst.txt", "stale content")

	stdout := c.MustRun("copy", "--atomic", "src.txt", "dst.txt")

	cli.AssertContains(t, stdout, "copied 5 bytes")

	if got, want := c.ReadFile("dst.txt"), "fresh"; got != want {
		t.Fatalf("content=%q, want=%q", got, want)
	}
}

func Test_Copy_Applies_Configured_Perm_When_Atomic_Creates_Destination(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".sot.json", `{"perm": "0640"}`)
	c.WriteFile("src.txt", "data")

	c.MustRun("copy", "--atomic", "src.txt", "new.txt")

	info, err := os.Stat(c.Path("new.txt"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if got, want := info.Mode().Perm(), os.FileMode(0o640); got != want {
		t.Fatalf("perm=%v, want=%v", got, want)
	}
}

func Test_Copy_Fails_Without_Creating_Destination_When_Source_Is_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("copy", "nope.txt", "dst.txt")

	cli.AssertContains(t, stderr, "open failed")

	if _, err := os.Stat(c.Path("dst.txt")); !os.IsNotExist(err) {
		t.Fatalf("dst.txt should not exist: %v", err)
	}
}
