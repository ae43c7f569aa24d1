package docile

// Package docile is a schema-driven document modeling engine:
//
// - Declarative field schemas compiled once and shared by every instance
// - A transform -> validate -> typecast -> constrain pipeline on every write
// - Non-throwing failure semantics via a per-document error log (FieldErrors)
// - Virtual (computed) fields, aliases, and dynamic schema extension
// - Structural serialization back to plain nested data (ToMap/ToJSON)
//
// Design policy:
// - Keep the public surface in the root package; schema file loading lives
//   under schemafile/ and the CLI under cmd/docile.
// - Writes never return errors; callers observe failures through
//   Document.Errors/HasErrors.
// - Persistence is an external collaborator. The core only exposes the key
//   metadata (Schema.KeyInfo) and the opaque CAS token it needs.
//
// Typical usage:
//
//	schema, err := docile.NewSchema(map[string]any{
//		"name":  docile.String,
//		"email": docile.Field{Type: docile.String, Regex: emailRe},
//	}, nil)
//	user := docile.NewModel("User", schema)
//
//	doc := user.New(map[string]any{"name": "Jim"})
//	doc.Set("email", "jim@example.com")
//	if doc.HasErrors() { ... }
//	out := doc.ToMap()
