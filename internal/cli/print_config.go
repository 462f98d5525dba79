package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(env *Env) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execPrintConfig(o, env)
		},
	}
}

func execPrintConfig(o *IO, env *Env) error {
	cfg := env.Config

	o.Println("effective_cwd=" + cfg.EffectiveCwd)
	o.Printf("buffer_size=%d\n", cfg.BufferSize)
	o.Printf("perm=%04o\n", uint32(cfg.PermMode))
	o.Println("advise=" + cfg.Advice.String())

	o.Println("")
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			o.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			o.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}
