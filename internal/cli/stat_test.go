package cli_test

import (
	"testing"

	"github.com/calvinalkan/sostream/internal/cli"
)

func Test_Stat_Reports_Flags_When_File_Is_Read_To_End(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("in.txt", "hello")

	stdout := c.MustRun("stat", "in.txt")

	for _, line := range []string{
		"path=" + c.Path("in.txt"),
		"bytes=5",
		"tell=5",
		"eof=true",
		"error=false",
		"buffer_size=4096",
	} {
		cli.AssertContains(t, stdout, line)
	}
}

func Test_Stat_Reports_Zero_Bytes_When_File_Is_Empty(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("empty.txt", "")

	stdout := c.MustRun("--buffer-size=1", "stat", "empty.txt")

	cli.AssertContains(t, stdout, "bytes=0")
	cli.AssertContains(t, stdout, "eof=true")
	cli.AssertContains(t, stdout, "buffer_size=1")
	cli.AssertNotContains(t, stdout, "error=true")
}
