package docile_test

import (
	"testing"

	"github.com/docile-dev/docile"
)

func TestEvents_SetClearExtend(t *testing.T) {
	s := docile.MustSchema(map[string]any{"name": docile.String}, &docile.Options{Extend: true})
	d := docile.NewDocument(s)

	var got []docile.Event
	d.Subscribe(func(ev docile.Event) { got = append(got, ev) })

	d.Set("name", "Jim")
	d.Set("dynamic", 1)
	d.Delete("name")

	if len(got) != 4 {
		t.Fatalf("expected 4 events (set, extend, set, clear), got %d: %v", len(got), got)
	}
	if got[0].Op != docile.EventSet || got[0].Field != "name" || got[0].Value != "Jim" {
		t.Fatalf("first event: %+v", got[0])
	}
	if got[1].Op != docile.EventExtend || got[1].Field != "dynamic" {
		t.Fatalf("second event: %+v", got[1])
	}
	if got[2].Op != docile.EventSet || got[2].Field != "dynamic" {
		t.Fatalf("third event: %+v", got[2])
	}
	if got[3].Op != docile.EventClear || got[3].Field != "name" {
		t.Fatalf("fourth event: %+v", got[3])
	}
}

func TestEvents_RejectedWriteEmitsNothing(t *testing.T) {
	s := docile.MustSchema(map[string]any{"n": docile.Number}, nil)
	d := docile.NewDocument(s)
	fired := 0
	d.Subscribe(func(docile.Event) { fired++ })
	d.Set("n", "not a number")
	if fired != 0 {
		t.Fatalf("failed pipeline must not emit, fired %d", fired)
	}
}
