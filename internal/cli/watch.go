package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/calvinalkan/flagskin/internal/skin"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"
)

// WatchCmd returns the watch command.
func WatchCmd(cfg *skin.Config, input skin.LoadConfigInput, logger *slog.Logger, level *slog.LevelVar) *Command {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.String("scene", "", "Scene file (JSONC) describing the flags")

	return &Command{
		Name:    "watch",
		Args:    "--scene <file>",
		Summary: "Re-apply the palette whenever the config changes",
		Flags:   fs,
		Help: "Like preview, but keeps the scene open and reloads the global and project " +
			"configuration files whenever they change, printing a fresh report each time. " +
			"Stops on interrupt.",
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			scene, _ := fs.GetString("scene")
			if scene == "" {
				return errSceneRequired
			}

			return execWatch(ctx, io, cfg, input, scene, logger, level)
		},
	}
}

func execWatch(
	ctx context.Context,
	io *IO,
	cfg *skin.Config,
	input skin.LoadConfigInput,
	scene string,
	logger *slog.Logger,
	level *slog.LevelVar,
) error {
	s, err := openChecked(ctx, io, *cfg, scene, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Report(io.Out())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	files := skin.ConfigFiles(input)

	var dirs []string

	for _, f := range files {
		dir := filepath.Dir(f)
		if slices.Contains(dirs, dir) {
			continue
		}

		if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
			logger.Debug("config dir missing, not watched", "dir", dir)

			continue
		}

		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		dirs = append(dirs, dir)
		io.Println("watching", dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !slices.Contains(files, ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
				continue
			}

			logger.Debug("config changed", "file", ev.Name, "op", ev.Op.String())

			next, err := skin.LoadConfig(input)
			if err != nil {
				logger.Warn("config reload failed, keeping previous config", "error", err)

				continue
			}

			*cfg = next
			setLevel(level, next.Debug)
			warnInvalidColors(io, next)
			s.Reconfigure(ctx, next)

			io.Println("reloaded", ev.Name)
			s.Report(io.Out())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("watcher error", "error", err)
		}
	}
}
