package docile_test

import (
	"testing"

	gojson "github.com/goccy/go-json"

	"github.com/docile-dev/docile"
)

func TestFromJSON_PipelineApplies(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"name": docile.String,
		"age":  docile.Field{Type: docile.Number, Min: docile.Float(0)},
	}, nil)
	m := docile.NewModel("User", s)

	d, err := m.FromJSON([]byte(`{"name":"Jim","age":30}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got := d.Get("age"); got != float64(30) {
		t.Fatalf("age cast got %v", got)
	}

	bad, err := m.FromJSON([]byte(`{"age":-5}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !bad.HasErrors() {
		t.Fatalf("bound violation must collect")
	}
	if got := bad.Get("age"); got != nil {
		t.Fatalf("rejected value stored: %v", got)
	}

	if _, err := m.FromJSON([]byte(`{broken`)); err == nil {
		t.Fatalf("decode failure must return an error")
	}
}

func TestMarshalJSON_UsesJSONSurface(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"name":   docile.String,
		"secret": docile.Field{Type: docile.String, Invisible: true},
	}, &docile.Options{ToJSON: docile.ExportOptions{DateToISO: docile.Bool(true)}})
	m := docile.NewModel("User", s)
	d := m.New(map[string]any{"name": "Jim", "secret": "x"})

	b, err := gojson.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := gojson.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["name"] != "Jim" {
		t.Fatalf("marshal output: %v", out)
	}
	if _, ok := out["secret"]; ok {
		t.Fatalf("invisible field leaked into JSON: %s", b)
	}
}
