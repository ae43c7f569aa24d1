package docile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Document is a live instance of a model: a private value store, a shared
// read-only Schema reference, an ordered error log, and an opaque CAS token
// supplied by the persistence collaborator. Documents are not goroutine-safe;
// ownership of nested sub-documents is exclusive.
type Document struct {
	model  *Model
	schema *Schema
	values map[string]any
	errs   FieldErrors
	cas    any
	subs   []func(Event)
}

func newDocument(s *Schema, m *Model) *Document {
	return &Document{model: m, schema: s, values: map[string]any{}}
}

// NewDocument constructs a standalone document for the schema with defaults
// resolved. Prefer Model.New when a model name is wanted.
func NewDocument(s *Schema) *Document {
	d := newDocument(s, nil)
	d.populateDefaults()
	return d
}

// Schema returns the shared schema.
func (d *Document) Schema() *Schema { return d.schema }

// ModelName returns the owning model's name, or "" for standalone and nested
// documents.
func (d *Document) ModelName() string {
	if d.model == nil {
		return ""
	}
	return d.model.name
}

// populateDefaults applies descriptor defaults through the pipeline in
// declaration order, so producer functions can read siblings populated
// before them. Generated keys are not resolved here; they are evaluated
// lazily at first need.
func (d *Document) populateDefaults() {
	for _, name := range d.schema.FieldNames() {
		desc := d.schema.Descriptor(name)
		if desc == nil || desc.virtual != nil || desc.typ == Alias {
			continue
		}
		var raw any
		switch {
		case desc.defaultFunc != nil:
			raw = desc.defaultFunc(d)
		case desc.defaultValue != nil:
			raw = desc.defaultValue
		case desc.typ == Object && desc.objSchema != nil:
			// nested typed objects always get a live sub-document
			raw = map[string]any{}
		default:
			continue
		}
		d.setField(name, raw, true)
	}
}

// Get reads a field (or, with the DotNotation option, a "a.b.c" path)
// through the normal getter surface: aliases redirect, virtual getters
// compute, and Get transforms apply without mutating storage.
func (d *Document) Get(path string) any {
	if d.schema.Options().DotNotation {
		if head, rest, ok := strings.Cut(path, "."); ok {
			return d.getPath(head, rest)
		}
	}
	return d.getField(path)
}

func (d *Document) getPath(head, rest string) any {
	v := d.getField(head)
	for rest != "" {
		seg, tail, _ := strings.Cut(rest, ".")
		switch t := v.(type) {
		case *Document:
			// descend with the sub-document's own getter semantics
			if tail == "" {
				return t.Get(seg)
			}
			return t.getPath(seg, tail)
		case map[string]any:
			v = t[seg]
		default:
			return nil
		}
		rest = tail
	}
	return v
}

func (d *Document) getField(name string) any {
	desc := d.schema.Descriptor(name)
	if desc == nil {
		return nil
	}
	if desc.virtual != nil {
		return desc.virtual.Get(d)
	}
	if desc.typ == Alias {
		return d.getField(desc.target)
	}
	v := d.values[name]
	if desc.getTransform != nil {
		return desc.getTransform(v)
	}
	return v
}

// Set writes one field (or dot-notation path). It never returns an error:
// pipeline failures are collected and observable via Errors/HasErrors.
func (d *Document) Set(path string, value any) {
	if d.schema.Options().DotNotation {
		if head, rest, ok := strings.Cut(path, "."); ok {
			d.setPath(head, rest, value)
			return
		}
	}
	d.setField(path, value, false)
}

// SetAll applies a map of fields through the same pipeline, in sorted name
// order for determinism.
func (d *Document) SetAll(values map[string]any) {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		d.Set(k, values[k])
	}
}

func (d *Document) setPath(head, rest string, value any) {
	desc := d.schema.Descriptor(head)
	if desc == nil {
		d.setField(head, map[string]any{}, false)
		desc = d.schema.Descriptor(head)
		if desc == nil {
			return
		}
	}
	if desc.typ == Alias {
		d.setPath(desc.target, rest, value)
		return
	}
	switch t := d.values[head].(type) {
	case *Document:
		// descend explicitly; the sub-schema's own DotNotation option does
		// not govern path traversal started on the parent
		if h2, r2, ok := strings.Cut(rest, "."); ok {
			t.setPath(h2, r2, value)
		} else {
			t.setField(rest, value, false)
		}
	case map[string]any:
		setMapPath(t, rest, value)
	case nil:
		if desc.typ == Object {
			d.setField(head, map[string]any{}, false)
			if sub, ok := d.values[head].(*Document); ok {
				if h2, r2, ok2 := strings.Cut(rest, "."); ok2 {
					sub.setPath(h2, r2, value)
				} else {
					sub.setField(rest, value, false)
				}
			}
			return
		}
		if desc.typ == Any {
			m := map[string]any{}
			setMapPath(m, rest, value)
			d.setField(head, m, false)
		}
	}
}

func setMapPath(m map[string]any, path string, value any) {
	seg, tail, ok := strings.Cut(path, ".")
	if !ok {
		m[seg] = value
		return
	}
	sub, _ := m[seg].(map[string]any)
	if sub == nil {
		sub = map[string]any{}
		m[seg] = sub
	}
	setMapPath(sub, tail, value)
}

// setField is the per-field accessor behind Set. bootstrap lifts the
// readOnly gate during default population.
func (d *Document) setField(name string, value any, bootstrap bool) {
	desc := d.schema.Descriptor(name)
	if desc == nil {
		if d.schema.Strict() {
			if d.schema.Options().StrictErrors {
				d.errs = append(d.errs, FieldError{
					Field:     name,
					Kind:      KindStrictMode,
					Message:   "write to undeclared field on strict schema",
					Attempted: value,
				})
			}
			return
		}
		var extended bool
		desc, extended = d.schema.extend(name)
		if extended {
			d.emit(Event{Op: EventExtend, Field: name, Value: value})
		}
	}
	if desc.virtual != nil {
		if desc.virtual.Set != nil {
			desc.virtual.Set(d, value)
		}
		return
	}
	if desc.typ == Alias {
		d.setField(desc.target, value, bootstrap)
		return
	}
	current := d.values[name]
	res := applyPipeline(d, desc, value, current, bootstrap)
	d.errs = append(d.errs, res.errs...)
	if !res.store {
		return
	}
	d.values[name] = res.value
	d.emit(Event{Op: EventSet, Field: name, Value: res.value})
}

// Delete clears a field (or dot-notation path) back to its descriptor's
// default, or absent. The accessor itself remains.
func (d *Document) Delete(path string) {
	if d.schema.Options().DotNotation && strings.Contains(path, ".") {
		d.deletePath(path)
		return
	}
	d.deleteField(path)
}

func (d *Document) deletePath(path string) {
	head, rest, ok := strings.Cut(path, ".")
	if !ok {
		d.deleteField(head)
		return
	}
	if sub, k := d.values[head].(*Document); k {
		sub.deletePath(rest)
	}
}

func (d *Document) deleteField(name string) {
	desc := d.schema.Descriptor(name)
	if desc == nil || desc.virtual != nil {
		return
	}
	if desc.typ == Alias {
		d.deleteField(desc.target)
		return
	}
	delete(d.values, name)
	d.repopulateDefault(desc)
	d.emit(Event{Op: EventClear, Field: name})
}

func (d *Document) repopulateDefault(desc *Descriptor) {
	switch {
	case desc.defaultFunc != nil:
		d.setField(desc.name, desc.defaultFunc(d), true)
	case desc.defaultValue != nil:
		d.setField(desc.name, desc.defaultValue, true)
	}
}

// Clear resets every field to its descriptor's default (or absent). The
// error log survives; use ClearErrors separately.
func (d *Document) Clear() {
	d.values = map[string]any{}
	d.populateDefaults()
	d.emit(Event{Op: EventClear})
}

// Errors returns the ordered error log collected so far.
func (d *Document) Errors() FieldErrors {
	out := make(FieldErrors, len(d.errs))
	copy(out, d.errs)
	return out
}

// HasErrors reports whether any pipeline failure was collected.
func (d *Document) HasErrors() bool { return len(d.errs) > 0 }

// ClearErrors empties the error log.
func (d *Document) ClearErrors() { d.errs = nil }

// Call invokes a document method registered via Schema.Method. The second
// return reports whether the method exists.
func (d *Document) Call(name string, args ...any) (any, bool) {
	fn := d.schema.method(name)
	if fn == nil {
		return nil, false
	}
	return fn(d, args...), true
}

// SetCAS installs the opaque CAS token supplied by the persistence
// collaborator after a round-trip. The core never computes it.
func (d *Document) SetCAS(token any) { d.cas = token }

// RawCAS returns the opaque CAS token as supplied.
func (d *Document) RawCAS() any { return d.cas }

// CAS returns the CAS token in string form, or "" when unset.
func (d *Document) CAS() string {
	if d.cas == nil {
		return ""
	}
	if s, ok := d.cas.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", d.cas)
}

// Key computes the storage key: resolved prefix + key value + resolved
// suffix. A generated key is evaluated once, at first need, and is stable
// thereafter.
func (d *Document) Key() string {
	desc := d.schema.keyDescriptor()
	if desc == nil {
		return ""
	}
	v := d.values[desc.name]
	if v == nil && desc.generate {
		v = uuid.New().String()
		d.setField(desc.name, v, true)
		v = d.values[desc.name]
	}
	s, _ := castString(v)
	return desc.prefix + s + desc.suffix
}

// KeyValue returns the bare key field value without affixes, generating it
// first when the descriptor asks for generation.
func (d *Document) KeyValue() any {
	desc := d.schema.keyDescriptor()
	if desc == nil {
		return nil
	}
	if d.values[desc.name] == nil && desc.generate {
		d.Key()
	}
	return d.values[desc.name]
}
