package cli

import (
	"context"
	"strings"

	"github.com/calvinalkan/flagskin/internal/skin"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *skin.Config) *Command {
	return &Command{
		Name:    "print-config",
		Summary: "Show resolved configuration",
		Help:    "Display the effective configuration and which files it was loaded from.",
		Flags:   flag.NewFlagSet("print-config", flag.ContinueOnError),
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, cfg)
		},
	}
}

func execPrintConfig(io *IO, cfg *skin.Config) error {
	formatted, err := skin.FormatConfig(*cfg)
	if err != nil {
		return err
	}

	io.Println(formatted)
	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" && len(cfg.Sources.Env) == 0 {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}

		if len(cfg.Sources.Env) > 0 {
			io.Println("env=" + strings.Join(cfg.Sources.Env, ","))
		}
	}

	return nil
}
