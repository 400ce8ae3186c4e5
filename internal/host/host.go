// Package host describes the slice of the host application's object model
// that flagskin reads and writes: flag instances, their renderers, and the
// materials and textures shown on them.
//
// flagskin never creates or destroys host instances. It only replaces
// entries of an instance's material array and the renderer's displayed
// material, and it creates (and later destroys) the materials and textures
// it derives itself.
package host

import (
	"image"
	"image/color"
)

// Object is any host resource the [World] can destroy.
type Object interface {
	Name() string
}

// Texture is an image resource usable as a material map.
type Texture interface {
	Object
}

// Material is a surface description with named shader properties.
//
// Property setters on a property the material does not have are ignored,
// matching how the host treats unknown shader properties.
type Material interface {
	Object
	SetName(name string)

	HasProperty(prop string) bool
	SetColor(prop string, c color.NRGBA)
	SetFloat(prop string, v float32)
	SetTexture(prop string, tex Texture)
	Texture(prop string) Texture

	DisableKeyword(keyword string)
	SetInstancing(enabled bool)
}

// Renderer displays exactly one material at a time.
type Renderer interface {
	SharedMaterial() Material
	SetSharedMaterial(m Material)
}

// Instance is one live faction-bearing object in the host.
type Instance interface {
	// Renderer returns the instance's renderer, or nil if it has none.
	Renderer() Renderer

	// Materials returns the instance's material array. Writes to elements
	// of the returned slice are visible to the host.
	Materials() []Material

	// Discriminant returns the integer faction value the host stores on the
	// instance. ok is false when the value cannot be read.
	Discriminant() (value int, ok bool)
}

// World is the capability flagskin needs from the running host.
type World interface {
	// Probe checks that the host exposes the faction-bearing type and the
	// members flagskin needs. A non-nil error means flagskin must stay inert.
	Probe() error

	// Instances lists every live instance, inactive ones included.
	Instances() []Instance

	// Instantiate returns a copy of src that the caller owns.
	Instantiate(src Material) Material

	// NewTexture uploads img as a new texture named name.
	NewTexture(name string, img image.Image) Texture

	// Destroy releases a material or texture created through this World.
	Destroy(obj Object)
}
