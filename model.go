package docile

// Model is a named binding of a compiled schema. Schemas are shared across
// every document the model constructs; the model itself holds no per-document
// state.
type Model struct {
	name   string
	schema *Schema
}

// NewModel binds a name to a compiled schema.
func NewModel(name string, s *Schema) *Model {
	return &Model{name: name, schema: s}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Schema returns the shared schema.
func (m *Model) Schema() *Schema { return m.schema }

// New constructs a document: schema defaults are resolved first, then the
// caller-supplied values are applied through the same pipeline as later Set
// calls. data may be nil.
func (m *Model) New(data map[string]any) *Document {
	d := newDocument(m.schema, m)
	d.populateDefaults()
	if len(data) > 0 {
		d.SetAll(data)
	}
	return d
}

// CallStatic invokes a model-level function registered via Schema.Static.
// The second return reports whether the static exists.
func (m *Model) CallStatic(name string, args ...any) (any, bool) {
	fn := m.schema.static(name)
	if fn == nil {
		return nil, false
	}
	return fn(m, args...), true
}
