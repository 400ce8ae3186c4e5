package skin

import (
	"image/color"
	"log/slog"
	"strings"

	"github.com/calvinalkan/flagskin/internal/host"
)

// Name prefixes that mark resources flagskin created. Only marked resources
// are ever destroyed.
const (
	MaterialMarker = "FlagSkin_"
	TextureMarker  = "FlagSkinTex_"
)

// Shader property and keyword names on the host's lit material.
var (
	colorProps       = []string{"_BaseColor", "_Color"}
	textureProps     = []string{"_BaseColorMap", "_BaseMap", "_MainTex"}
	normalProps      = []string{"_NormalMap", "_BumpMap"}
	emissiveKeywords = []string{"_EMISSIVE_COLOR_MAP", "_EmissiveColor"}
)

const (
	propMetallic   = "_Metallic"
	propSmoothness = "_Smoothness"
	propSpecular   = "_SpecularColor"

	matteSmoothness = 0.15
)

var (
	white         = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	matteSpecular = color.NRGBA{R: 0x0A, G: 0x0A, B: 0x0A, A: 0xFF} // 0.04 grey
)

// IsSelfOwned reports whether obj was created by flagskin.
func IsSelfOwned(obj host.Object) bool {
	if obj == nil {
		return false
	}

	name := obj.Name()

	return strings.HasPrefix(name, MaterialMarker) || strings.HasPrefix(name, TextureMarker)
}

// Palette is the current material of every faction, indexed by [Faction].
type Palette [factionCount]host.Material

// PaletteManager owns the one current material per faction.
//
// It is not safe for concurrent use; the [Engine] serializes access.
type PaletteManager struct {
	world   host.World
	base    host.Material
	current Palette
	log     *slog.Logger
}

// NewPaletteManager returns an empty palette for world.
func NewPaletteManager(world host.World, logger *slog.Logger) *PaletteManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &PaletteManager{world: world, log: logger}
}

// SetBase sets the template every derived material is cloned from.
func (p *PaletteManager) SetBase(base host.Material) {
	p.base = base
}

// Base returns the template, or nil before one was found.
func (p *PaletteManager) Base() host.Material {
	return p.base
}

// Current returns f's material, or nil before the first resolution.
func (p *PaletteManager) Current(f Faction) host.Material {
	return p.current[f]
}

// Palette returns a copy of the current palette.
func (p *PaletteManager) Palette() Palette {
	return p.current
}

// Derive clones the template into a matte material showing img, or c when
// img is nil. Returns nil when there is no template.
func (p *PaletteManager) Derive(f Faction, img *Image, c color.NRGBA) host.Material {
	if p.base == nil {
		return nil
	}

	mat := p.world.Instantiate(p.base)
	texProp, hasTexProp := firstProperty(mat, textureProps)

	if img != nil && !hasTexProp {
		p.log.Warn("base material has no texture property, using color",
			"faction", f.String(), "material", p.base.Name(), "image", img.Name)

		img = nil
	}

	var tex host.Texture

	if img != nil {
		mat.SetName(MaterialMarker + "Tex_" + f.String())
		tex = p.world.NewTexture(TextureMarker+img.Name, img.Image)
		c = white
	} else {
		mat.SetName(MaterialMarker + "Color_" + f.String())
	}

	if colorProp, ok := firstProperty(mat, colorProps); ok {
		mat.SetColor(colorProp, c)
	}

	if hasTexProp {
		mat.SetTexture(texProp, tex)
	}

	if mat.HasProperty(propMetallic) {
		mat.SetFloat(propMetallic, 0)
	}

	if mat.HasProperty(propSmoothness) {
		mat.SetFloat(propSmoothness, matteSmoothness)
	}

	if mat.HasProperty(propSpecular) {
		mat.SetColor(propSpecular, matteSpecular)
	}

	for _, kw := range emissiveKeywords {
		mat.DisableKeyword(kw)
	}

	// A normal map shimmers on a cloth mesh in wind.
	for _, prop := range normalProps {
		if mat.HasProperty(prop) {
			mat.SetTexture(prop, nil)
		}
	}

	mat.SetInstancing(false)

	return mat
}

// Replace makes m f's current material and releases the previous one if
// flagskin created it. Textures the previous material owns are released
// first. A nil m clears the entry.
func (p *PaletteManager) Replace(f Faction, m host.Material) {
	old := p.current[f]
	p.current[f] = m

	if old == nil || old == m {
		return
	}

	p.release(old)
}

// Reset clears every faction's material, releasing those flagskin created.
func (p *PaletteManager) Reset() {
	for _, f := range Factions {
		p.Replace(f, nil)
	}
}

func (p *PaletteManager) release(old host.Material) {
	if !IsSelfOwned(old) {
		p.log.Debug("keeping host material", "material", old.Name())

		return
	}

	for _, prop := range textureProps {
		if !old.HasProperty(prop) {
			continue
		}

		if tex := old.Texture(prop); tex != nil && strings.HasPrefix(tex.Name(), TextureMarker) {
			old.SetTexture(prop, nil)
			p.world.Destroy(tex)
		}
	}

	p.world.Destroy(old)
}

func firstProperty(mat host.Material, props []string) (string, bool) {
	for _, prop := range props {
		if mat.HasProperty(prop) {
			return prop, true
		}
	}

	return "", false
}
