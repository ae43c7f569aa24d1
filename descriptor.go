package docile

import (
	"regexp"
)

// FieldType is the type tag of a schema field.
type FieldType int

const (
	// Any stores values as-is; no cast is attempted.
	Any FieldType = iota
	// String coerces scalar input to a string.
	String
	// Number coerces numeric input to a float64.
	Number
	// Boolean coerces boolean-like input to a bool.
	Boolean
	// Date coerces time values, RFC3339 strings, and epoch numbers to time.Time.
	Date
	// Array coerces slice input element-wise through an element descriptor.
	Array
	// Object constructs a nested typed sub-document.
	Object
	// Alias proxies another field entirely; it has no storage of its own.
	Alias
)

func (t FieldType) String() string {
	switch t {
	case Any:
		return "any"
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case Array:
		return "array"
	case Object:
		return "object"
	case Alias:
		return "alias"
	}
	return "unknown"
}

// VirtualSpec declares a computed field. Get is required; a nil Set makes the
// virtual read-only.
type VirtualSpec struct {
	Get func(d *Document) any
	Set func(d *Document, v any)
}

// Field is the explicit-attribute form of a schema field definition. All
// attributes apart from Type are optional. In a field map a bare FieldType, a
// nested map[string]any, and a single-element []any are accepted as shorthand
// for Field{Type: ...}, an Object with ObjectOf, and an Array with ArrayOf.
type Field struct {
	Type FieldType

	// Key marks this field as the document key; Generate asks for a random
	// unique identifier when the key is absent at first need.
	Key      bool
	Generate bool

	// Prefix and Suffix are concatenated around the key value when computing
	// a storage key. Field-level values override schema-level and
	// process-wide defaults.
	Prefix string
	Suffix string

	// Default is a literal default value; DefaultFunc is evaluated against
	// the owning document (it may read sibling fields already populated) and
	// wins over Default when both are set.
	Default     any
	DefaultFunc func(d *Document) any

	// Transform replaces the raw value before anything else sees it.
	Transform func(v any) any
	// Validate aborts the write when it returns false.
	Validate func(v any) bool
	// Get is applied on read; it never mutates storage.
	Get func(v any) any

	// ReadOnly writes are silently ignored outside default population.
	ReadOnly bool
	// Invisible fields are excluded from serialization unless the field is a
	// virtual being explicitly requested.
	Invisible bool
	// Serializable defaults to true; set to a false pointer to let
	// ToMap(ExportOptions{Serializable: Bool(false)}) skip the field.
	Serializable *bool

	// Virtual declares a computed field with no backing storage slot.
	Virtual *VirtualSpec

	// String constraints.
	Regex           *regexp.Regexp
	Enum            []string
	MinLength       *int
	MaxLength       *int
	Clip            bool
	StringTransform func(s string) string

	// Number bounds; out-of-range writes reject. Bounds are exclusive.
	Min *float64
	Max *float64

	// Array element descriptor (Field, FieldType, map, or []any shorthand)
	// and identity-based de-duplication.
	ArrayOf any
	Unique  bool

	// Object nested field map.
	ObjectOf map[string]any

	// Alias target field name.
	Target string
}

// Bool returns a pointer to v, for optional Field attributes.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for optional Field attributes.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for optional Field attributes.
func Float(v float64) *float64 { return &v }

// Descriptor is the resolved, immutable specification of one schema field.
// It is shared read-only by every document of the model.
type Descriptor struct {
	name     string
	typ      FieldType
	key      bool
	generate bool
	prefix   string
	suffix   string

	defaultValue any
	defaultFunc  func(*Document) any

	transform    func(any) any
	validate     func(any) bool
	getTransform func(any) any

	readOnly     bool
	invisible    bool
	serializable bool

	virtual *VirtualSpec

	regex           *regexp.Regexp
	enum            []string
	minLength       int // -1 when unset
	maxLength       int // -1 when unset
	clip            bool
	stringTransform func(string) string

	min *float64
	max *float64

	elem      *Descriptor
	objSchema *Schema
	unique    bool

	target string
}

// Name returns the field name.
func (d *Descriptor) Name() string { return d.name }

// Type returns the field's type tag.
func (d *Descriptor) Type() FieldType { return d.typ }

// IsKey reports whether the field is the document key.
func (d *Descriptor) IsKey() bool { return d.key }

// Generate reports whether an absent key value is auto-generated.
func (d *Descriptor) Generate() bool { return d.generate }

// Prefix returns the resolved key prefix.
func (d *Descriptor) Prefix() string { return d.prefix }

// Suffix returns the resolved key suffix.
func (d *Descriptor) Suffix() string { return d.suffix }

// ReadOnly reports whether writes outside default population are ignored.
func (d *Descriptor) ReadOnly() bool { return d.readOnly }

// Invisible reports whether the field is excluded from serialization.
func (d *Descriptor) Invisible() bool { return d.invisible }

// IsVirtual reports whether the field is computed and has no storage slot.
func (d *Descriptor) IsVirtual() bool { return d.virtual != nil }

// Target returns the alias target, or "" for non-alias fields.
func (d *Descriptor) Target() string { return d.target }

// ObjectSchema returns the compiled nested schema for Object fields.
func (d *Descriptor) ObjectSchema() *Schema { return d.objSchema }

// Elem returns the element descriptor for Array fields.
func (d *Descriptor) Elem() *Descriptor { return d.elem }

// resolveSpec normalizes the shorthand forms of a field definition into an
// explicit Field.
func resolveSpec(name string, raw any) (Field, *SchemaDefinitionError) {
	switch s := raw.(type) {
	case Field:
		return s, nil
	case *Field:
		if s == nil {
			return Field{}, defErr(name, "nil field spec")
		}
		return *s, nil
	case FieldType:
		return Field{Type: s}, nil
	case *VirtualSpec:
		return Field{Virtual: s}, nil
	case VirtualSpec:
		return Field{Virtual: &s}, nil
	case map[string]any:
		return Field{Type: Object, ObjectOf: s}, nil
	case []any:
		if len(s) != 1 {
			return Field{}, defErr(name, "array shorthand wants exactly one element descriptor, got %d", len(s))
		}
		return Field{Type: Array, ArrayOf: s[0]}, nil
	default:
		return Field{}, defErr(name, "malformed type reference %T", raw)
	}
}

// compileField resolves a Field spec into an immutable Descriptor.
// affixes carry the schema-level key prefix/suffix for precedence resolution.
func compileField(name string, spec Field, schemaPrefix, schemaSuffix string) (*Descriptor, *SchemaDefinitionError) {
	d := &Descriptor{
		name:            name,
		typ:             spec.Type,
		key:             spec.Key,
		generate:        spec.Generate,
		defaultValue:    spec.Default,
		defaultFunc:     spec.DefaultFunc,
		transform:       spec.Transform,
		validate:        spec.Validate,
		getTransform:    spec.Get,
		readOnly:        spec.ReadOnly,
		invisible:       spec.Invisible,
		serializable:    true,
		virtual:         spec.Virtual,
		regex:           spec.Regex,
		enum:            spec.Enum,
		minLength:       -1,
		maxLength:       -1,
		clip:            spec.Clip,
		stringTransform: spec.StringTransform,
		min:             spec.Min,
		max:             spec.Max,
		unique:          spec.Unique,
		target:          spec.Target,
	}
	if spec.Serializable != nil {
		d.serializable = *spec.Serializable
	}
	if spec.MinLength != nil {
		d.minLength = *spec.MinLength
	}
	if spec.MaxLength != nil {
		d.maxLength = *spec.MaxLength
	}
	d.prefix, d.suffix = resolveAffixes(spec.Prefix, spec.Suffix, schemaPrefix, schemaSuffix)

	if d.virtual != nil {
		if d.virtual.Get == nil {
			return nil, defErr(name, "virtual field missing a getter")
		}
		return d, nil
	}

	switch spec.Type {
	case Alias:
		if spec.Target == "" {
			return nil, defErr(name, "alias without target")
		}
	case Array:
		elemSpec, err := resolveSpec(name, spec.ArrayOf)
		if err != nil {
			if spec.ArrayOf == nil {
				// untyped array: elements pass through as Any
				elemSpec = Field{Type: Any}
			} else {
				return nil, err
			}
		}
		elem, err := compileField(name, elemSpec, schemaPrefix, schemaSuffix)
		if err != nil {
			return nil, err
		}
		d.elem = elem
	case Object:
		if spec.ObjectOf == nil {
			return nil, defErr(name, "object field without a nested field map")
		}
		sub, serr := newNestedSchema(spec.ObjectOf)
		if serr != nil {
			return nil, serr
		}
		d.objSchema = sub
	case Any, String, Number, Boolean, Date:
		// nothing extra to resolve
	default:
		return nil, defErr(name, "malformed type reference %v", spec.Type)
	}
	return d, nil
}
