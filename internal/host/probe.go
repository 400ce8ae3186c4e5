package host

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Probe errors.
var (
	ErrTypeNotFound  = errors.New("host type not found")
	ErrFieldNotFound = errors.New("host field not found")
	ErrWrongType     = errors.New("value does not match probed host type")
)

// FieldNames lists the candidate struct field names for each member of a
// faction-bearing host type. Matching is case-insensitive and the first
// candidate present on the type wins.
type FieldNames struct {
	Renderer     []string
	Materials    []string
	Discriminant []string
}

// DefaultFieldNames returns the field names used by the host's flag controller.
func DefaultFieldNames() FieldNames {
	return FieldNames{
		Renderer:     []string{"FlagVisual"},
		Materials:    []string{"FlagMats"},
		Discriminant: []string{"ControlTeam", "Faction", "Team", "Side", "Owner", "TeamIndex", "FactionIndex"},
	}
}

var (
	rendererType     = reflect.TypeFor[Renderer]()
	materialListType = reflect.TypeFor[[]Material]()
)

// Schema is the result of a successful [ProbeType]: where the renderer, the
// material array and the discriminant live on the host type.
type Schema struct {
	typ          reflect.Type
	renderer     []int
	materials    []int
	discriminant []int

	// Field names as found on the type, for diagnostics.
	RendererField     string
	MaterialsField    string
	DiscriminantField string
}

// ProbeType inspects t (a struct type or a pointer to one) for the members
// named in names. All three members must be present and exported.
func ProbeType(t reflect.Type, names FieldNames) (*Schema, error) {
	if t == nil {
		return nil, ErrTypeNotFound
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrTypeNotFound, t)
	}

	schema := &Schema{typ: t}

	renderer, ok := findField(t, names.Renderer, func(ft reflect.Type) bool {
		return ft.Implements(rendererType)
	})
	if !ok {
		return nil, fmt.Errorf("%w: renderer on %s (tried %s; available: %s)",
			ErrFieldNotFound, t, strings.Join(names.Renderer, ", "), fieldList(t))
	}

	materials, ok := findField(t, names.Materials, func(ft reflect.Type) bool {
		return ft == materialListType
	})
	if !ok {
		return nil, fmt.Errorf("%w: material array on %s (tried %s; available: %s)",
			ErrFieldNotFound, t, strings.Join(names.Materials, ", "), fieldList(t))
	}

	discriminant, ok := findField(t, names.Discriminant, isIntegerType)
	if !ok {
		return nil, fmt.Errorf("%w: discriminant on %s (tried %s; available: %s)",
			ErrFieldNotFound, t, strings.Join(names.Discriminant, ", "), fieldList(t))
	}

	schema.renderer, schema.RendererField = renderer.Index, renderer.Name
	schema.materials, schema.MaterialsField = materials.Index, materials.Name
	schema.discriminant, schema.DiscriminantField = discriminant.Index, discriminant.Name

	return schema, nil
}

// Type returns the probed struct type.
func (s *Schema) Type() reflect.Type {
	return s.typ
}

// Bind wraps obj, a value or pointer of the probed type, as an [Instance].
func (s *Schema) Bind(obj any) (Instance, error) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: nil %s", ErrWrongType, v.Type())
		}

		v = v.Elem()
	}

	if v.Type() != s.typ {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrWrongType, v.Type(), s.typ)
	}

	return &boundInstance{v: v, schema: s}, nil
}

type boundInstance struct {
	v      reflect.Value
	schema *Schema
}

func (b *boundInstance) Renderer() Renderer {
	f := b.v.FieldByIndex(b.schema.renderer)
	if (f.Kind() == reflect.Pointer || f.Kind() == reflect.Interface) && f.IsNil() {
		return nil
	}

	r, _ := f.Interface().(Renderer)

	return r
}

func (b *boundInstance) Materials() []Material {
	mats, _ := b.v.FieldByIndex(b.schema.materials).Interface().([]Material)

	return mats
}

func (b *boundInstance) Discriminant() (int, bool) {
	f := b.v.FieldByIndex(b.schema.discriminant)

	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(f.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(f.Uint()), true
	default:
		return 0, false
	}
}

func findField(t reflect.Type, candidates []string, accept func(reflect.Type) bool) (reflect.StructField, bool) {
	for _, name := range candidates {
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() || !strings.EqualFold(f.Name, name) {
				continue
			}

			if accept(f.Type) {
				return f, true
			}
		}
	}

	return reflect.StructField{}, false
}

func isIntegerType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func fieldList(t reflect.Type) string {
	names := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		names = append(names, t.Field(i).Name)
	}

	return strings.Join(names, ", ")
}
