package docile

import (
	"reflect"
	"time"
)

// TransformFunc post-processes a built result map. A non-nil return value
// replaces the result.
type TransformFunc func(d *Document, out map[string]any, opts ExportConfig) map[string]any

// ExportOptions is the caller-facing option set for ToMap/ToJSONMap. Nil
// fields inherit from the schema-level surface options, then from the engine
// defaults (transform on, minimize on, virtuals off, serializable on,
// dateToISO off).
type ExportOptions struct {
	Transform    *bool
	Minimize     *bool
	Virtuals     *bool
	Serializable *bool
	DateToISO    *bool
	// TransformFunc is the explicit transform; it wins over the schema-level
	// function for this call.
	TransformFunc TransformFunc
}

// ExportConfig is a fully resolved option set.
type ExportConfig struct {
	Transform    bool
	Minimize     bool
	Virtuals     bool
	Serializable bool
	DateToISO    bool
	JSON         bool

	transformFn TransformFunc
}

func defaultExportConfig() ExportConfig {
	return ExportConfig{Transform: true, Minimize: true, Virtuals: false, Serializable: true, DateToISO: false}
}

func (c *ExportConfig) overlay(o ExportOptions) {
	if o.Transform != nil {
		c.Transform = *o.Transform
	}
	if o.Minimize != nil {
		c.Minimize = *o.Minimize
	}
	if o.Virtuals != nil {
		c.Virtuals = *o.Virtuals
	}
	if o.Serializable != nil {
		c.Serializable = *o.Serializable
	}
	if o.DateToISO != nil {
		c.DateToISO = *o.DateToISO
	}
	if o.TransformFunc != nil {
		c.transformFn = o.TransformFunc
	}
}

// resolveExportConfig merges, in precedence order: call-time options >
// schema-level surface options > engine defaults. The last variadic option
// wins at call time.
func (d *Document) resolveExportConfig(json bool, opts []ExportOptions) ExportConfig {
	cfg := defaultExportConfig()
	cfg.JSON = json
	cfg.overlay(d.schema.exportOverride(json))
	for _, o := range opts {
		cfg.overlay(o)
	}
	return cfg
}

// ToMap converts the document's value store into a plain nested map per the
// resolved option set, recursing into nested documents and arrays thereof.
func (d *Document) ToMap(opts ...ExportOptions) map[string]any {
	return d.export(d.resolveExportConfig(false, opts))
}

// ToJSONMap is ToMap on the toJSON surface: schema-level ToJSON overrides
// apply and JSON is forced on.
func (d *Document) ToJSONMap(opts ...ExportOptions) map[string]any {
	return d.export(d.resolveExportConfig(true, opts))
}

func (d *Document) export(cfg ExportConfig) map[string]any {
	out := map[string]any{}
	for _, name := range d.schema.FieldNames() {
		desc := d.schema.Descriptor(name)
		if desc == nil {
			continue
		}
		if desc.virtual != nil {
			// virtuals only on request; the request also overrides invisible
			if !cfg.Virtuals {
				continue
			}
		} else {
			if desc.invisible {
				continue
			}
			if desc.typ == Alias {
				// pure name redirect; the target serializes itself
				continue
			}
		}
		if !desc.serializable && !cfg.Serializable {
			continue
		}
		v := d.getField(name)
		if v == nil {
			if !cfg.Minimize {
				out[name] = nil
			}
			continue
		}
		ev := exportValue(v, cfg)
		if cfg.Minimize && isEmptyAggregate(ev) {
			continue
		}
		out[name] = ev
	}
	if cfg.Transform {
		if fn := d.resolveTransform(cfg); fn != nil {
			if replaced := fn(d, out, cfg); replaced != nil {
				out = replaced
			}
		}
	}
	return out
}

// resolveTransform picks the explicit call-time transform when present,
// otherwise the schema-level one for the active surface.
func (d *Document) resolveTransform(cfg ExportConfig) TransformFunc {
	if cfg.transformFn != nil {
		return cfg.transformFn
	}
	return d.schema.exportOverride(cfg.JSON).TransformFunc
}

func exportValue(v any, cfg ExportConfig) any {
	switch t := v.(type) {
	case *Document:
		// the sub-schema's own transform takes precedence for the subtree
		sub := cfg
		if t.schema.exportOverride(cfg.JSON).TransformFunc != nil {
			sub.transformFn = nil
		}
		return t.export(sub)
	case time.Time:
		if cfg.DateToISO {
			return formatRFC3339Canonical(t)
		}
		return t
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			out = append(out, exportValue(e, cfg))
		}
		return out
	}
	return exportShallow(v)
}

// isEmptyAggregate reports whether a serialized value is an empty structure
// that minimize should omit. Dates and scalars (including falsy ones) are
// never empty.
func isEmptyAggregate(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return false
	case string:
		return false
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
