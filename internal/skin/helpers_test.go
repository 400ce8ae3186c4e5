package skin_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/calvinalkan/flagskin/internal/host"
	"github.com/calvinalkan/flagskin/internal/host/memhost"
	"github.com/calvinalkan/flagskin/internal/skin"
)

var (
	red  = color.NRGBA{R: 0xFF, A: 0xFF}
	blue = color.NRGBA{B: 0xFF, A: 0xFF}
)

// pngBytes encodes a 2x2 image filled with c.
func pngBytes(t *testing.T, c color.NRGBA) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for x := range 2 {
		for y := range 2 {
			img.SetNRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	return buf.Bytes()
}

func writePNG(t *testing.T, dir, name string, c color.NRGBA) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, pngBytes(t, c), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	return path
}

func mats(names ...string) []host.Material {
	out := make([]host.Material, len(names))
	for i, n := range names {
		out[i] = memhost.NewMaterial(n)
	}

	return out
}

// flagWorld is a probed world whose flags share one three-slot material
// array, laid out positionally.
type flagWorld struct {
	*memhost.World

	Mats  []host.Material
	Flags []*memhost.FlagController
}

func newFlagWorld(t *testing.T, teams ...int) *flagWorld {
	t.Helper()

	w := &flagWorld{
		World: memhost.NewWorld(),
		Mats:  mats("Flag_Red", "Flag_Blue", "Flag_White"),
	}

	for _, team := range teams {
		flagMats := append([]host.Material(nil), w.Mats...)
		shown := flagMats[2]

		if team >= 0 && team < len(flagMats) {
			shown = flagMats[team]
		}

		fc := &memhost.FlagController{
			FlagVisual:  memhost.NewRenderer(shown),
			FlagMats:    flagMats,
			ControlTeam: team,
			Active:      true,
		}

		w.AddFlag(fc)
		w.Flags = append(w.Flags, fc)
	}

	return w
}

func testConfig() skin.Config {
	cfg := skin.DefaultConfig()
	cfg.UseCache = false

	return cfg
}

// stubLoader answers loads from a fixed table. A faction listed in block
// waits for its release channel or its context.
type stubLoader struct {
	mu      sync.Mutex
	images  map[skin.Faction]*skin.Image
	block   map[skin.Faction]chan struct{}
	calls   map[skin.Faction]int
	started chan skin.Faction
}

func newStubLoader() *stubLoader {
	return &stubLoader{
		images:  make(map[skin.Faction]*skin.Image),
		block:   make(map[skin.Faction]chan struct{}),
		calls:   make(map[skin.Faction]int),
		started: make(chan skin.Faction, 64),
	}
}

func (s *stubLoader) setImage(f skin.Faction, c color.NRGBA) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, c)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.images[f] = &skin.Image{Name: f.String() + ".png", Source: "stub:" + f.String(), Format: "png", Image: img}
}

func (s *stubLoader) hold(f skin.Faction) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	s.block[f] = ch

	return ch
}

// Load ignores its context so a late result reaches the engine.
func (s *stubLoader) Load(_ context.Context, f skin.Faction, _ skin.Source) (*skin.Image, error) {
	s.mu.Lock()
	s.calls[f]++
	ch := s.block[f]
	delete(s.block, f)
	img := s.images[f]
	s.mu.Unlock()

	s.started <- f

	if ch != nil {
		<-ch
	}

	if img == nil {
		return nil, skin.ErrNoImage
	}

	return img, nil
}

func (s *stubLoader) Calls(f skin.Faction) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[f]
}

func baseColor(t *testing.T, m host.Material) color.NRGBA {
	t.Helper()

	mm, ok := m.(*memhost.Material)
	if !ok {
		t.Fatalf("material %T is not a memhost material", m)
	}

	c, ok := mm.Color("_BaseColor")
	if !ok {
		t.Fatalf("material %q has no base color", m.Name())
	}

	return c
}
