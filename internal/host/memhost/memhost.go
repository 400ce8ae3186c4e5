// Package memhost is an in-memory [host.World]. It models flag controllers,
// renderers, property-bag materials and textures closely enough to drive the
// engine from the CLI preview, the REPL and tests, and it records every
// destroy so release bugs are observable.
package memhost

import (
	"fmt"
	"image"
	"image/color"
	"maps"
	"reflect"
	"sync"

	"github.com/calvinalkan/flagskin/internal/host"
)

// DefaultProperties is the property set of a material created by [NewMaterial]
// when no properties are given. It mirrors the host's lit shader.
var DefaultProperties = []string{
	"_BaseColor", "_BaseColorMap", "_Metallic", "_Smoothness", "_SpecularColor", "_NormalMap",
}

// Material is a host material with a property bag.
type Material struct {
	name       string
	props      map[string]any
	disabled   map[string]bool
	instancing bool
	destroyed  bool
}

// NewMaterial creates a material with the given shader properties, or
// [DefaultProperties] when none are given.
func NewMaterial(name string, props ...string) *Material {
	if len(props) == 0 {
		props = DefaultProperties
	}

	m := &Material{
		name:       name,
		props:      make(map[string]any, len(props)),
		disabled:   make(map[string]bool),
		instancing: true,
	}

	for _, p := range props {
		m.props[p] = nil
	}

	return m
}

func (m *Material) Name() string        { return m.name }
func (m *Material) SetName(name string) { m.name = name }

func (m *Material) HasProperty(prop string) bool {
	_, ok := m.props[prop]

	return ok
}

func (m *Material) SetColor(prop string, c color.NRGBA) {
	if m.HasProperty(prop) {
		m.props[prop] = c
	}
}

func (m *Material) SetFloat(prop string, v float32) {
	if m.HasProperty(prop) {
		m.props[prop] = v
	}
}

func (m *Material) SetTexture(prop string, tex host.Texture) {
	if m.HasProperty(prop) {
		m.props[prop] = tex
	}
}

func (m *Material) Texture(prop string) host.Texture {
	tex, _ := m.props[prop].(host.Texture)

	return tex
}

func (m *Material) DisableKeyword(keyword string) { m.disabled[keyword] = true }
func (m *Material) SetInstancing(enabled bool)    { m.instancing = enabled }

// Color returns the color stored in prop.
func (m *Material) Color(prop string) (color.NRGBA, bool) {
	c, ok := m.props[prop].(color.NRGBA)

	return c, ok
}

// Float returns the float stored in prop.
func (m *Material) Float(prop string) (float32, bool) {
	v, ok := m.props[prop].(float32)

	return v, ok
}

// KeywordDisabled reports whether keyword was disabled on the material.
func (m *Material) KeywordDisabled(keyword string) bool { return m.disabled[keyword] }

// Instancing reports whether GPU instancing is enabled.
func (m *Material) Instancing() bool { return m.instancing }

// Destroyed reports whether the world destroyed the material.
func (m *Material) Destroyed() bool { return m.destroyed }

func (m *Material) clone() *Material {
	return &Material{
		name:       m.name + " (Instance)",
		props:      maps.Clone(m.props),
		disabled:   maps.Clone(m.disabled),
		instancing: m.instancing,
	}
}

// Texture is an uploaded image.
type Texture struct {
	name      string
	img       image.Image
	destroyed bool
}

func (t *Texture) Name() string { return t.name }

// Image returns the image the texture was created from.
func (t *Texture) Image() image.Image { return t.img }

// Destroyed reports whether the world destroyed the texture.
func (t *Texture) Destroyed() bool { return t.destroyed }

// Renderer displays one material.
type Renderer struct {
	material host.Material
}

// NewRenderer returns a renderer displaying m.
func NewRenderer(m host.Material) *Renderer {
	return &Renderer{material: m}
}

func (r *Renderer) SharedMaterial() host.Material     { return r.material }
func (r *Renderer) SetSharedMaterial(m host.Material) { r.material = m }

// FlagController is the host's faction-bearing flag type.
type FlagController struct {
	FlagVisual  *Renderer
	FlagMats    []host.Material
	ControlTeam int
	Active      bool
}

// LegacyFlag is a flag type without a material array, used to model a host
// build whose schema flagskin cannot use.
type LegacyFlag struct {
	FlagVisual *Renderer
	Team       int
}

// World is an in-memory [host.World].
//
// It is safe for concurrent use; the engine still serializes its own writes.
type World struct {
	mu        sync.Mutex
	typ       reflect.Type
	names     host.FieldNames
	schema    *host.Schema
	flags     []any
	destroyed []host.Object
	doubles   []host.Object
}

// Option configures a [World].
type Option func(*World)

// WithType makes the world expose instances of typ instead of
// [FlagController]. Probe fails unless typ has the expected members.
func WithType(typ reflect.Type) Option {
	return func(w *World) { w.typ = typ }
}

// WithFieldNames overrides the member names the world probes for.
func WithFieldNames(names host.FieldNames) Option {
	return func(w *World) { w.names = names }
}

// NewWorld returns an empty world.
func NewWorld(opts ...Option) *World {
	w := &World{
		typ:   reflect.TypeFor[FlagController](),
		names: host.DefaultFieldNames(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// AddFlag registers a flag instance. flag must be a pointer to the world's type.
func (w *World) AddFlag(flag any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.flags = append(w.flags, flag)
}

// Flags returns the registered flag controllers.
func (w *World) Flags() []*FlagController {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*FlagController, 0, len(w.flags))
	for _, f := range w.flags {
		if fc, ok := f.(*FlagController); ok {
			out = append(out, fc)
		}
	}

	return out
}

func (w *World) Probe() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.schema != nil {
		return nil
	}

	schema, err := host.ProbeType(w.typ, w.names)
	if err != nil {
		return err
	}

	w.schema = schema

	return nil
}

func (w *World) Instances() []host.Instance {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.schema == nil {
		return nil
	}

	out := make([]host.Instance, 0, len(w.flags))
	for _, f := range w.flags {
		inst, err := w.schema.Bind(f)
		if err != nil {
			continue
		}

		out = append(out, inst)
	}

	return out
}

func (w *World) Instantiate(src host.Material) host.Material {
	if m, ok := src.(*Material); ok {
		return m.clone()
	}

	return NewMaterial(src.Name())
}

func (w *World) NewTexture(name string, img image.Image) host.Texture {
	return &Texture{name: name, img: img}
}

func (w *World) Destroy(obj host.Object) {
	w.mu.Lock()
	defer w.mu.Unlock()

	already := false

	switch o := obj.(type) {
	case *Material:
		already = o.destroyed
		o.destroyed = true
	case *Texture:
		already = o.destroyed
		o.destroyed = true
	default:
		panic(fmt.Sprintf("memhost: destroy of foreign object %T", obj))
	}

	if already {
		w.doubles = append(w.doubles, obj)

		return
	}

	w.destroyed = append(w.destroyed, obj)
}

// Destroyed returns every object destroyed so far, in order.
func (w *World) Destroyed() []host.Object {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]host.Object(nil), w.destroyed...)
}

// DoubleDestroys returns objects that were destroyed more than once.
func (w *World) DoubleDestroys() []host.Object {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]host.Object(nil), w.doubles...)
}

var _ host.World = (*World)(nil)
