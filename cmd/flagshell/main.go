// flagshell is an interactive shell for trying palettes against a scene.
//
// Usage:
//
//	flagshell [-C dir] [-c config] [--debug] <scene-file>
//
// Commands (in REPL):
//
//	color <faction> <hex>     Set a faction's color and reload it
//	url <faction> <url>       Set a faction's image URL and reload it
//	path <faction> <file>     Set a faction's image file and reload it
//	clear <faction>           Drop a faction's image sources, keeping its color
//	apply                     Apply the palette to every flag
//	revert                    Put the scene's own materials back
//	reset                     Release everything and start over
//	enable / disable          Toggle flag skinning
//	show                      Print the palette and every flag
//	cache                     List cached downloads
//	help                      Show this help
//	exit / quit / q           Exit
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/flagskin/internal/cli"
	"github.com/calvinalkan/flagskin/internal/skin"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("flagshell", flag.ContinueOnError)

	workDir := fs.StringP("cwd", "C", "", "run as if started in `dir`")
	configPath := fs.StringP("config", "c", "", "use the specified config `file`")
	debug := fs.Bool("debug", false, "log at debug level")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: flagshell [options] <scene-file>\n\n")
		fmt.Fprintf(os.Stderr, "Open a scene and edit the palette interactively.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}

		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()

		return errors.New("missing scene file path")
	}

	if *workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot get working directory: %w", err)
		}

		*workDir = wd
	}

	cfg, err := skin.LoadConfig(skin.LoadConfigInput{WorkDir: *workDir, ConfigPath: *configPath, Env: environ()})
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	if cfg.Debug || *debug {
		level.Set(slog.LevelDebug)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	scene := fs.Arg(0)
	if !filepath.IsAbs(scene) {
		scene = filepath.Join(*workDir, scene)
	}

	ctx := context.Background()

	s, err := cli.OpenSession(ctx, cfg, scene, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	repl := &REPL{session: s, out: os.Stdout}

	return repl.Run(ctx)
}

func environ() map[string]string {
	env := make(map[string]string)

	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	return env
}

// REPL is the interactive command loop.
type REPL struct {
	session *cli.Session
	out     io.Writer
	liner   *liner.State
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".flagshell_history")
}

// Run starts the REPL loop.
func (r *REPL) Run(ctx context.Context) error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	r.printf("flagshell - %s\n", r.session.Status())
	r.printf("Type 'help' for available commands.\n\n")

	for {
		line, err := r.liner.Prompt("flagshell> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				r.printf("\nBye!\n")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		if r.exec(ctx, line) {
			break
		}
	}

	r.saveHistory()

	return nil
}

// exec runs one command line. It reports whether the shell should exit.
func (r *REPL) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "exit", "quit", "q":
		r.printf("Bye!\n")

		return true

	case "help", "?":
		r.printHelp()

	case "color", "url", "path", "clear":
		r.cmdSet(ctx, cmd, args)

	case "apply":
		r.printf("applied %d flags\n", r.session.Engine.Apply())

	case "revert":
		r.printf("reverted %d flags\n", r.session.Engine.Revert())

	case "reset":
		e := r.session.Engine
		e.Reset()

		if !e.Init() {
			r.printf("no base material in scene, nothing loaded\n")

			return false
		}

		e.UpdateAll(ctx)
		e.Wait()
		r.printf("reset\n")

	case "enable", "disable":
		cfg := r.session.Engine.Config()
		cfg.Enabled = cmd == "enable"
		r.session.Reconfigure(ctx, cfg)
		r.printf("%s\n", r.session.Status())

	case "show", "ls":
		r.session.Report(r.out)

	case "cache":
		r.cmdCache()

	default:
		r.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	return false
}

func (r *REPL) cmdSet(ctx context.Context, cmd string, args []string) {
	want := 2
	if cmd == "clear" {
		want = 1
	}

	if len(args) != want {
		r.printf("Usage: %s <faction>%s\n", cmd, map[string]string{
			"color": " <hex>", "url": " <url>", "path": " <file>", "clear": "",
		}[cmd])

		return
	}

	f, err := skin.ParseFaction(args[0])
	if err != nil {
		r.printf("Error: %v\n", err)

		return
	}

	cfg := r.session.Engine.Config()
	fc := *cfg.Faction(f)

	switch cmd {
	case "color":
		if _, err := skin.ParseHexColor(args[1]); err != nil {
			r.printf("Error: %v\n", err)

			return
		}

		fc.Color = args[1]
	case "url":
		fc.ImageURL = args[1]
	case "path":
		fc.ImagePath = args[1]
	case "clear":
		fc.ImageURL = ""
		fc.ImagePath = ""
	}

	if !r.session.Engine.SetFaction(ctx, f, fc) {
		r.printf("%s saved, engine is %s\n", f, r.session.Status())

		return
	}

	r.session.Engine.Wait()

	if mat := r.session.Engine.Palette()[f]; mat != nil {
		r.printf("%s -> %s\n", f, mat.Name())
	} else {
		r.printf("%s unresolved\n", f)
	}
}

func (r *REPL) cmdCache() {
	entries, err := r.session.Cache.Entries()
	if err != nil {
		r.printf("Error: %v\n", err)

		return
	}

	r.printf("%s (enabled=%v)\n", r.session.Cache.Dir(), r.session.Loader.CacheEnabled())

	if len(entries) == 0 {
		r.printf("  (empty)\n")

		return
	}

	for _, e := range entries {
		r.printf("  %s%s  %d bytes\n", e.Key, skin.CacheExt, e.Size)
	}
}

// saveHistory persists command history to disk.
func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = r.liner.WriteHistory(f)
			_ = f.Close()
		}
	}
}

// completer provides tab completion for commands.
func (r *REPL) completer(line string) []string {
	commands := []string{
		"color", "url", "path", "clear",
		"apply", "revert", "reset",
		"enable", "disable", "show", "ls", "cache",
		"help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	r.printf("Commands:\n")
	r.printf("  color <faction> <hex>     Set a faction's color and reload it\n")
	r.printf("  url <faction> <url>       Set a faction's image URL and reload it\n")
	r.printf("  path <faction> <file>     Set a faction's image file and reload it\n")
	r.printf("  clear <faction>           Drop a faction's image sources, keeping its color\n")
	r.printf("  apply                     Apply the palette to every flag\n")
	r.printf("  revert                    Put the scene's own materials back\n")
	r.printf("  reset                     Release everything and start over\n")
	r.printf("  enable / disable          Toggle flag skinning\n")
	r.printf("  show                      Print the palette and every flag\n")
	r.printf("  cache                     List cached downloads\n")
	r.printf("  help                      Show this help\n")
	r.printf("  exit / quit / q           Exit\n")
	r.printf("\nFactions: sorcerer, warlock, neutral.\n")
}

func (r *REPL) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}
