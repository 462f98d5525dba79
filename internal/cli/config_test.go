package cli_test

import (
	"testing"

	"github.com/calvinalkan/sostream/internal/cli"
)

// Tests for print-config command.

func Test_Print_Config_Defaults_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "effective_cwd="+c.Dir)
	cli.AssertContains(t, stdout, "buffer_size=4096")
	cli.AssertContains(t, stdout, "perm=0644")
	cli.AssertContains(t, stdout, "advise=none")
	cli.AssertContains(t, stdout, "(defaults only)")
}

func Test_Print_Config_From_Config_File_With_Comments_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".sot.json", `{
		// This is a comment
		"buffer_size": 512,
		"advise": "sequential",
	}`)

	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "buffer_size=512")
	cli.AssertContains(t, stdout, "advise=sequential")
	cli.AssertContains(t, stdout, "project_config="+c.Path(".sot.json"))
}

func Test_Print_Config_Explicit_Config_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("custom.json", `{"perm": "0600"}`)

	stdout := c.MustRun("-c", "custom.json", "print-config")
	cli.AssertContains(t, stdout, "perm=0600")

	stdout = c.MustRun("--config=custom.json", "print-config")
	cli.AssertContains(t, stdout, "perm=0600")
}

func Test_Print_Config_Global_Config_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".xdg/sot/config.json", `{"buffer_size": 64}`)

	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "buffer_size=64")
	cli.AssertContains(t, stdout, "global_config="+c.Path(".xdg/sot/config.json"))
}

func Test_Print_Config_Buffer_Size_Flag_Overrides_File_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".sot.json", `{"buffer_size": 512}`)

	stdout := c.MustRun("--buffer-size=16", "print-config")
	cli.AssertContains(t, stdout, "buffer_size=16")
}

func Test_Print_Config_Fails_When_Config_File_Is_Invalid(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".sot.json", `{"advise": "sometimes"}`)

	stderr := c.MustFail("print-config")

	cli.AssertContains(t, stderr, "invalid config file")
	cli.AssertContains(t, stderr, c.Path(".sot.json"))
}

func Test_Print_Config_Fails_When_Explicit_Config_Is_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("-c", "missing.json", "print-config")

	cli.AssertContains(t, stderr, "config file not found: missing.json")
}
