package docile

import (
	"sort"
	"sync"
)

// Process-wide key affix defaults; overridden by schema-level options, which
// are in turn overridden by field-level Prefix/Suffix.
var (
	affixMu          sync.RWMutex
	defaultKeyPrefix string
	defaultKeySuffix string
)

// SetDefaultKeyAffixes sets the process-wide key prefix and suffix applied to
// schemas compiled afterwards.
func SetDefaultKeyAffixes(prefix, suffix string) {
	affixMu.Lock()
	defaultKeyPrefix = prefix
	defaultKeySuffix = suffix
	affixMu.Unlock()
}

func resolveAffixes(fieldPrefix, fieldSuffix, schemaPrefix, schemaSuffix string) (string, string) {
	affixMu.RLock()
	p, s := defaultKeyPrefix, defaultKeySuffix
	affixMu.RUnlock()
	if schemaPrefix != "" {
		p = schemaPrefix
	}
	if schemaSuffix != "" {
		s = schemaSuffix
	}
	if fieldPrefix != "" {
		p = fieldPrefix
	}
	if fieldSuffix != "" {
		s = fieldSuffix
	}
	return p, s
}

// StaticFunc is a model-level function registered via Schema.Static.
type StaticFunc func(m *Model, args ...any) any

// MethodFunc is a document-level function registered via Schema.Method.
type MethodFunc func(d *Document, args ...any) any

// Options configures a schema. The zero value is a strict schema with
// dot-notation disabled.
type Options struct {
	// Extend opts in to dynamic schema extension: writes to undeclared
	// fields append an Any descriptor to the shared schema instead of being
	// rejected. The extension is visible to every later document of the same
	// model; that shared mutation is the point of the option, not an
	// accident.
	Extend bool
	// StrictErrors records a strict_mode entry in the error log when a
	// strict schema drops an undeclared write.
	StrictErrors bool
	// DotNotation enables "a.b.c" paths on Get/Set/Delete.
	DotNotation bool

	// KeyPrefix and KeySuffix are the schema-level key affixes.
	KeyPrefix string
	KeySuffix string

	// ToMap and ToJSON hold per-surface serialization overrides merged
	// between engine defaults and call-time options.
	ToMap  ExportOptions
	ToJSON ExportOptions
}

// Schema is an ordered mapping from field name to compiled Descriptor plus
// schema-level options. It is compiled once per model definition and shared
// read-only by all instances; dynamic extension is the single mutating
// exception and is guarded by the embedded lock.
type Schema struct {
	mu     sync.RWMutex
	names  []string // declaration order
	fields map[string]*Descriptor

	opts     Options
	keyField string
	compiled bool

	statics map[string]StaticFunc
	methods map[string]MethodFunc
}

// NewSchema compiles a raw field map (shorthand or explicit-attribute form)
// into a Schema. Field maps are compiled in sorted name order; use Add for
// order-sensitive definitions. An implicit "id" String key with Generate set
// is injected when no field is marked Key.
func NewSchema(fieldMap map[string]any, opts *Options) (*Schema, error) {
	s := &Schema{
		fields:  map[string]*Descriptor{},
		statics: map[string]StaticFunc{},
		methods: map[string]MethodFunc{},
	}
	if opts != nil {
		s.opts = *opts
	}

	names := make([]string, 0, len(fieldMap))
	for k := range fieldMap {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.Add(name, fieldMap[name]); err != nil {
			return nil, err
		}
	}
	if err := s.resolveKey(); err != nil {
		return nil, err
	}
	if derr := s.resolveAliases(); derr != nil {
		return nil, derr
	}
	s.compiled = true
	return s, nil
}

// MustSchema is like NewSchema but panics on a definition error.
func MustSchema(fieldMap map[string]any, opts *Options) *Schema {
	s, err := NewSchema(fieldMap, opts)
	if err != nil {
		panic(err)
	}
	return s
}

// newNestedSchema compiles an Object field's nested map. Nested schemas do
// not receive an implicit key field; only an explicit Key marker counts.
func newNestedSchema(fieldMap map[string]any) (*Schema, *SchemaDefinitionError) {
	s := &Schema{
		fields:  map[string]*Descriptor{},
		statics: map[string]StaticFunc{},
		methods: map[string]MethodFunc{},
	}
	names := make([]string, 0, len(fieldMap))
	for k := range fieldMap {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.Add(name, fieldMap[name]); err != nil {
			var derr *SchemaDefinitionError
			if de, ok := err.(*SchemaDefinitionError); ok {
				derr = de
			} else {
				derr = defErr(name, "%v", err)
			}
			return nil, derr
		}
	}
	if derr := s.resolveAliases(); derr != nil {
		return nil, derr
	}
	s.compiled = true
	return s, nil
}

// Add compiles and appends one field. It must not redefine an existing field.
func (s *Schema) Add(name string, spec any) error {
	if name == "" {
		return defErr(name, "empty field name")
	}
	fs, derr := resolveSpec(name, spec)
	if derr != nil {
		return derr
	}
	d, derr := compileField(name, fs, s.opts.KeyPrefix, s.opts.KeySuffix)
	if derr != nil {
		return derr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.fields[name]; exists {
		return defErr(name, "field already defined")
	}
	if d.key && s.keyField != "" && s.keyField != name {
		return defErr(name, "duplicate key field (already %q)", s.keyField)
	}
	s.fields[name] = d
	s.names = append(s.names, name)
	if d.key {
		s.keyField = name
	}
	// During initial compilation alias targets may still be pending; the
	// constructor runs resolveAliases once all fields are in. A post-compile
	// Add must stand on its own.
	if s.compiled && d.typ == Alias {
		if derr := s.checkAliasLocked(name, d); derr != nil {
			delete(s.fields, name)
			s.names = s.names[:len(s.names)-1]
			return derr
		}
	}
	return nil
}

// resolveAliases verifies every alias after all fields are in place: targets
// must exist and each redirect chain must terminate at a non-alias field.
// Accessors follow alias chains unconditionally, so a cycle or dangling
// target must never survive compilation.
func (s *Schema) resolveAliases() *SchemaDefinitionError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.names {
		d := s.fields[name]
		if d.typ != Alias {
			continue
		}
		if derr := s.checkAliasLocked(name, d); derr != nil {
			return derr
		}
	}
	return nil
}

// checkAliasLocked walks one alias chain. Caller holds at least a read lock.
func (s *Schema) checkAliasLocked(name string, d *Descriptor) *SchemaDefinitionError {
	seen := map[string]bool{name: true}
	for d.typ == Alias {
		t, ok := s.fields[d.target]
		if !ok {
			return defErr(name, "alias target %q not defined", d.target)
		}
		if seen[d.target] {
			return defErr(name, "alias cycle through %q", d.target)
		}
		seen[d.target] = true
		d = t
	}
	return nil
}

// resolveKey injects the implicit generated "id" key when no explicit key
// field was declared.
func (s *Schema) resolveKey() error {
	s.mu.RLock()
	has := s.keyField != ""
	_, idTaken := s.fields["id"]
	s.mu.RUnlock()
	if has {
		return nil
	}
	if idTaken {
		return defErr("id", "no key field and implicit id slot already defined")
	}
	return s.Add("id", Field{Type: String, Key: true, Generate: true})
}

// Set updates a schema-level option after compilation. Recognized names:
// "extend", "strictErrors", "dotNotation", "keyPrefix", "keySuffix".
func (s *Schema) Set(option string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch option {
	case "extend":
		b, ok := value.(bool)
		if !ok {
			return defErr("", "option %q wants bool, got %T", option, value)
		}
		s.opts.Extend = b
	case "strictErrors":
		b, ok := value.(bool)
		if !ok {
			return defErr("", "option %q wants bool, got %T", option, value)
		}
		s.opts.StrictErrors = b
	case "dotNotation":
		b, ok := value.(bool)
		if !ok {
			return defErr("", "option %q wants bool, got %T", option, value)
		}
		s.opts.DotNotation = b
	case "keyPrefix":
		sv, ok := value.(string)
		if !ok {
			return defErr("", "option %q wants string, got %T", option, value)
		}
		s.opts.KeyPrefix = sv
	case "keySuffix":
		sv, ok := value.(string)
		if !ok {
			return defErr("", "option %q wants string, got %T", option, value)
		}
		s.opts.KeySuffix = sv
	default:
		return defErr("", "unknown option %q", option)
	}
	return nil
}

// Virtual registers a computed field. The getter is required.
func (s *Schema) Virtual(name string, spec VirtualSpec) error {
	return s.Add(name, Field{Virtual: &spec})
}

// Static registers a model-level function.
func (s *Schema) Static(name string, fn StaticFunc) {
	s.mu.Lock()
	s.statics[name] = fn
	s.mu.Unlock()
}

// Method registers a document-level function.
func (s *Schema) Method(name string, fn MethodFunc) {
	s.mu.Lock()
	s.methods[name] = fn
	s.mu.Unlock()
}

// Strict reports whether undeclared writes are rejected (the inverse of the
// Extend option).
func (s *Schema) Strict() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.opts.Extend
}

// Options returns a copy of the schema options.
func (s *Schema) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Descriptor returns the compiled descriptor for name, or nil.
func (s *Schema) Descriptor(name string) *Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fields[name]
}

// FieldNames returns the field names in declaration order.
func (s *Schema) FieldNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// KeyInfo describes the key field for persistence collaborators.
type KeyInfo struct {
	Field    string
	Generate bool
	Prefix   string
	Suffix   string
}

// KeyInfo returns the key metadata a persistence collaborator needs to
// compute storage keys. The zero value is returned for nested schemas
// without an explicit key.
func (s *Schema) KeyInfo() KeyInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.fields[s.keyField]
	if d == nil {
		return KeyInfo{}
	}
	return KeyInfo{Field: d.name, Generate: d.generate, Prefix: d.prefix, Suffix: d.suffix}
}

// extend appends a dynamically discovered field with an Any descriptor. The
// mutation is shared: every later document of the same model sees the new
// slot. Returns the descriptor and whether extension happened now.
func (s *Schema) extend(name string) (*Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, exists := s.fields[name]; exists {
		return d, false
	}
	d := &Descriptor{name: name, typ: Any, serializable: true, minLength: -1, maxLength: -1}
	s.fields[name] = d
	s.names = append(s.names, name)
	return d, true
}

func (s *Schema) static(name string) StaticFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statics[name]
}

func (s *Schema) method(name string) MethodFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.methods[name]
}

func (s *Schema) keyDescriptor() *Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fields[s.keyField]
}

func (s *Schema) exportOverride(json bool) ExportOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if json {
		return s.opts.ToJSON
	}
	return s.opts.ToMap
}
