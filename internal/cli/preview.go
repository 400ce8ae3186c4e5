package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/calvinalkan/flagskin/internal/skin"

	flag "github.com/spf13/pflag"
)

var errSceneRequired = errors.New("--scene is required")

// PreviewCmd returns the preview command.
func PreviewCmd(cfg *skin.Config, logger *slog.Logger) *Command {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.String("scene", "", "Scene file (JSONC) describing the flags")

	return &Command{
		Name:    "preview",
		Args:    "--scene <file>",
		Summary: "Apply the configured palette to a scene",
		Flags:   fs,
		Help: "Build the flags described by the scene file, resolve every faction's material " +
			"from the configuration and print the palette and what each flag displays.",
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			scene, _ := fs.GetString("scene")
			if scene == "" {
				return errSceneRequired
			}

			s, err := openChecked(ctx, io, *cfg, scene, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			s.Report(io.Out())

			return nil
		},
	}
}

// openChecked opens a session and turns the problems a user can fix into
// warnings.
func openChecked(ctx context.Context, io *IO, cfg skin.Config, scene string, logger *slog.Logger) (*Session, error) {
	warnInvalidColors(io, cfg)

	s, err := OpenSession(ctx, cfg, scene, logger)
	if err != nil {
		return nil, err
	}

	if !s.Engine.Available() {
		io.Warn("host flag type unavailable", "the scene's flags lack a renderer, material array or team field; flags are left untouched")
	}

	return s, nil
}

func warnInvalidColors(io *IO, cfg skin.Config) {
	for _, f := range cfg.InvalidColors() {
		io.Warn(
			fmt.Sprintf("invalid color %q for %s", cfg.Faction(f).Color, f),
			"use #RGB, #RRGGBB or #RRGGBBAA; the default "+skin.FormatHexColor(f.DefaultColor())+" is used",
		)
	}
}
