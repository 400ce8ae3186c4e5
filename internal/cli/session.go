package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/calvinalkan/flagskin/internal/fs"
	"github.com/calvinalkan/flagskin/internal/host"
	"github.com/calvinalkan/flagskin/internal/host/memhost"
	"github.com/calvinalkan/flagskin/internal/skin"
)

// Session is an engine driving an in-memory world built from a scene file.
type Session struct {
	Engine *skin.Engine
	World  *memhost.World
	Loader *skin.Loader
	Cache  *skin.Cache
}

// OpenSession builds the world described by scenePath and resolves every
// faction once. The caller must Close the session.
func OpenSession(ctx context.Context, cfg skin.Config, scenePath string, logger *slog.Logger) (*Session, error) {
	fsys := fs.NewReal()

	data, err := fsys.ReadFile(scenePath)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}

	scene, err := memhost.ParseScene(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scenePath, err)
	}

	world := scene.Build()
	cache := skin.NewCache(cfg.CacheDir, fsys)

	loader := skin.NewLoader(skin.LoaderOptions{FS: fsys, Cache: cache, Logger: logger})
	loader.SetCacheEnabled(cfg.UseCache)

	s := &Session{
		Engine: skin.New(skin.Options{World: world, Loader: loader, Config: cfg, Logger: logger}),
		World:  world,
		Loader: loader,
		Cache:  cache,
	}

	s.Engine.Init()
	s.Engine.UpdateAll(ctx)
	s.Engine.Wait()

	return s, nil
}

// Reconfigure applies cfg and waits for the loads it starts. A changed cache
// dir takes effect for those loads.
func (s *Session) Reconfigure(ctx context.Context, cfg skin.Config) {
	if cfg.CacheDir != s.Cache.Dir() {
		s.Cache = skin.NewCache(cfg.CacheDir, fs.NewReal())
		s.Loader.SetCache(s.Cache)
	}

	s.Loader.SetCacheEnabled(cfg.UseCache)
	s.Engine.Configure(ctx, cfg)
	s.Engine.Wait()
}

// Close restores the scene's materials and releases everything the engine
// created.
func (s *Session) Close() {
	s.Engine.Shutdown()
}

// Status describes the engine state in one word.
func (s *Session) Status() string {
	switch {
	case !s.Engine.Available():
		return "unavailable"
	case !s.Engine.Config().Enabled:
		return "disabled"
	default:
		return "active"
	}
}

// Report writes the palette and every flag's materials to w.
func (s *Session) Report(w io.Writer) {
	fprintf(w, "status: %s\n", s.Status())
	fprintln(w, "palette:")

	pal := s.Engine.Palette()
	for _, f := range skin.Factions {
		slot := "-"
		if i, ok := s.Engine.Slot(f); ok {
			slot = fmt.Sprint(i)
		}

		fprintf(w, "  %-8s slot=%s  %s\n", f, slot, describeMaterial(pal[f]))
	}

	fprintln(w, "flags:")

	for i, fc := range s.World.Flags() {
		state := "active"
		if !fc.Active {
			state = "inactive"
		}

		var shown host.Material
		if fc.FlagVisual != nil {
			shown = fc.FlagVisual.SharedMaterial()
		}

		fprintf(w, "  flag %d  team=%d  %s  displays %s  slots=[%s]\n",
			i, fc.ControlTeam, state, materialName(shown), strings.Join(materialNames(fc.FlagMats), ", "))
	}
}

func describeMaterial(m host.Material) string {
	if m == nil {
		return "(unresolved)"
	}

	mm, ok := m.(*memhost.Material)
	if !ok {
		return m.Name()
	}

	if tex := mm.Texture("_BaseColorMap"); tex != nil {
		return m.Name() + "  texture " + tex.Name()
	}

	if c, ok := mm.Color("_BaseColor"); ok {
		return m.Name() + "  color " + skin.FormatHexColor(c)
	}

	return m.Name()
}

func materialName(m host.Material) string {
	if m == nil {
		return "<none>"
	}

	return m.Name()
}

func materialNames(mats []host.Material) []string {
	names := make([]string, len(mats))
	for i, m := range mats {
		names[i] = materialName(m)
	}

	return names
}

func fprintf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...)
}
