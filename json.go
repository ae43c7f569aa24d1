package docile

import (
	"bytes"

	gojson "github.com/goccy/go-json"
)

// ToJSON renders the document through the toJSON surface into JSON bytes.
func (d *Document) ToJSON(opts ...ExportOptions) ([]byte, error) {
	return gojson.Marshal(d.ToJSONMap(opts...))
}

// MarshalJSON implements json.Marshaler over the toJSON surface with the
// schema's resolved options.
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.ToJSON()
}

// FromJSON constructs a document from raw JSON bytes, feeding every field
// through the write pipeline. Numbers are decoded with UseNumber so the
// Number cast sees the exact literal. Decode failures are returned; pipeline
// failures are collected on the document as usual.
func (m *Model) FromJSON(b []byte) (*Document, error) {
	data, err := decodeJSONMap(b)
	if err != nil {
		return nil, err
	}
	return m.New(data), nil
}

// FromJSON is the standalone-schema counterpart of Model.FromJSON.
func FromJSON(s *Schema, b []byte) (*Document, error) {
	data, err := decodeJSONMap(b)
	if err != nil {
		return nil, err
	}
	d := NewDocument(s)
	d.SetAll(data)
	return d, nil
}

func decodeJSONMap(b []byte) (map[string]any, error) {
	dec := gojson.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}
