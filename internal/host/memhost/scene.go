package memhost

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/calvinalkan/flagskin/internal/host"
	"github.com/tailscale/hujson"
)

// ErrSceneInvalid is returned for scene files that cannot be used.
var ErrSceneInvalid = errors.New("invalid scene")

// Scene is the JSONC description of a world used by the CLI and REPL.
//
// Materials with the same name are the same object across flags, as shared
// material assets are in the host.
type Scene struct {
	Flags []SceneFlag `json:"flags"`

	// Legacy builds the world from [LegacyFlag], which has no material array.
	Legacy bool `json:"legacy,omitempty"`
}

// SceneFlag describes one flag controller.
type SceneFlag struct {
	Materials []string `json:"materials"`
	Displayed string   `json:"displayed,omitempty"`
	Team      int      `json:"team"`
	Inactive  bool     `json:"inactive,omitempty"`
}

// ParseScene parses a JSONC scene.
func ParseScene(data []byte) (Scene, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Scene{}, fmt.Errorf("%w: invalid JSONC: %w", ErrSceneInvalid, err)
	}

	var scene Scene

	if err := json.Unmarshal(standardized, &scene); err != nil {
		return Scene{}, fmt.Errorf("%w: invalid JSON: %w", ErrSceneInvalid, err)
	}

	return scene, nil
}

// Build creates a world populated with the scene's flags.
func (s Scene) Build() *World {
	if s.Legacy {
		w := NewWorld(WithType(reflect.TypeFor[LegacyFlag]()))
		for _, f := range s.Flags {
			w.AddFlag(&LegacyFlag{FlagVisual: NewRenderer(nil), Team: f.Team})
		}

		return w
	}

	w := NewWorld()
	shared := make(map[string]*Material)

	material := func(name string) *Material {
		if name == "" {
			return nil
		}

		if m, ok := shared[name]; ok {
			return m
		}

		m := NewMaterial(name)
		shared[name] = m

		return m
	}

	for _, f := range s.Flags {
		fc := &FlagController{
			FlagMats:    make([]host.Material, len(f.Materials)),
			ControlTeam: f.Team,
			Active:      !f.Inactive,
		}

		for i, name := range f.Materials {
			if m := material(name); m != nil {
				fc.FlagMats[i] = m
			}
		}

		var displayed *Material
		if d := material(f.Displayed); d != nil {
			displayed = d
		}

		if displayed != nil {
			fc.FlagVisual = NewRenderer(displayed)
		} else {
			fc.FlagVisual = NewRenderer(nil)
		}

		w.AddFlag(fc)
	}

	return w
}
