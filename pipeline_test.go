package docile_test

import (
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/docile-dev/docile"
)

func stringField(extra docile.Field) docile.Field {
	extra.Type = docile.String
	return extra
}

// TestPipeline_TypecastFailureLeavesStorage checks the central revert
// guarantee: a failed cast never partially stores, and the log grows by
// exactly one entry.
func TestPipeline_TypecastFailureLeavesStorage(t *testing.T) {
	s := docile.MustSchema(map[string]any{"name": docile.String}, nil)
	d := docile.NewDocument(s)

	d.Set("name", "before")
	if got := d.Get("name"); got != "before" {
		t.Fatalf("expected before, got %v", got)
	}
	d.Set("name", map[string]any{"not": "a string"})
	if got := d.Get("name"); got != "before" {
		t.Fatalf("stored value changed after failed cast: %v", got)
	}
	errs := d.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %d", len(errs))
	}
	fe := errs[0]
	if fe.Kind != docile.KindTypecast || fe.Field != "name" {
		t.Fatalf("unexpected error entry: %+v", fe)
	}
	if fe.Previous != "before" {
		t.Fatalf("expected previous value snapshot, got %v", fe.Previous)
	}
}

// TestPipeline_FalsyScalarsAreValid ensures "", 0, and false are stored, not
// treated as missing.
func TestPipeline_FalsyScalarsAreValid(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"s": docile.String,
		"n": docile.Number,
		"b": docile.Boolean,
	}, nil)
	d := docile.NewDocument(s)
	d.Set("s", "")
	d.Set("n", 0)
	d.Set("b", false)
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	if got := d.Get("s"); got != "" {
		t.Fatalf("empty string lost: %v", got)
	}
	if got := d.Get("n"); got != float64(0) {
		t.Fatalf("zero lost: %v", got)
	}
	if got := d.Get("b"); got != false {
		t.Fatalf("false lost: %v", got)
	}
}

func TestPipeline_TransformRunsBeforeValidate(t *testing.T) {
	var seen any
	s := docile.MustSchema(map[string]any{
		"code": stringField(docile.Field{
			Transform: func(v any) any { return strings.TrimSpace(v.(string)) },
			Validate:  func(v any) bool { seen = v; return v != "" },
		}),
	}, nil)
	d := docile.NewDocument(s)

	d.Set("code", "  x1  ")
	if got := d.Get("code"); got != "x1" {
		t.Fatalf("transform not applied before store: %v", got)
	}
	if seen != "x1" {
		t.Fatalf("validate saw pre-transform value: %v", seen)
	}

	d.Set("code", "   ")
	if got := d.Get("code"); got != "x1" {
		t.Fatalf("rejected write mutated storage: %v", got)
	}
	errs := d.Errors()
	if len(errs) != 1 || errs[0].Kind != docile.KindValidation {
		t.Fatalf("expected one validation error, got %v", errs)
	}
}

func TestPipeline_StringConstraints(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"re":   stringField(docile.Field{Regex: regexp.MustCompile(`^[a-z]+$`)}),
		"enum": stringField(docile.Field{Enum: []string{"red", "green"}}),
		"min":  stringField(docile.Field{MinLength: docile.Int(3)}),
		"max":  stringField(docile.Field{MaxLength: docile.Int(3)}),
	}, nil)
	d := docile.NewDocument(s)

	d.Set("re", "ok")
	d.Set("re", "NOPE")
	if got := d.Get("re"); got != "ok" {
		t.Fatalf("regex reject should keep prior, got %v", got)
	}
	d.Set("enum", "blue")
	if got := d.Get("enum"); got != nil {
		t.Fatalf("enum reject stored %v", got)
	}
	d.Set("min", "ab")
	if got := d.Get("min"); got != nil {
		t.Fatalf("minLength reject stored %v", got)
	}
	d.Set("max", "abcd")
	if got := d.Get("max"); got != nil {
		t.Fatalf("maxLength reject stored %v", got)
	}
	if n := len(d.Errors()); n != 4 {
		t.Fatalf("expected 4 constraint errors, got %d: %v", n, d.Errors())
	}
	for _, fe := range d.Errors() {
		if fe.Kind != docile.KindConstraint {
			t.Fatalf("expected constraint kind, got %+v", fe)
		}
	}
}

// TestPipeline_ClipTruncates verifies maxLength with clip stores the first N
// characters and records no error.
func TestPipeline_ClipTruncates(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"title": stringField(docile.Field{MaxLength: docile.Int(5), Clip: true}),
	}, nil)
	d := docile.NewDocument(s)
	d.Set("title", "hello world")
	if got := d.Get("title"); got != "hello" {
		t.Fatalf("clip stored %v", got)
	}
	if d.HasErrors() {
		t.Fatalf("clip must not record an error: %v", d.Errors())
	}
}

// TestPipeline_LengthConstraintsCountRunes pins length semantics to
// characters: a multi-byte string within the rune limit passes, and clip
// never cuts through the middle of a rune.
func TestPipeline_LengthConstraintsCountRunes(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"name":  stringField(docile.Field{MinLength: docile.Int(2), MaxLength: docile.Int(4)}),
		"title": stringField(docile.Field{MaxLength: docile.Int(3), Clip: true}),
	}, nil)
	d := docile.NewDocument(s)

	// 4 runes, 8 bytes
	d.Set("name", "æøåß")
	if got := d.Get("name"); got != "æøåß" {
		t.Fatalf("4-rune value rejected, got %v", got)
	}
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}

	d.Set("title", "日本語テスト")
	got, _ := d.Get("title").(string)
	if got != "日本語" {
		t.Fatalf("clip stored %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("clip produced invalid UTF-8: %q", got)
	}
	if d.HasErrors() {
		t.Fatalf("clip must not record an error: %v", d.Errors())
	}
}

func TestPipeline_StringTransformRunsOncePostCast(t *testing.T) {
	calls := 0
	s := docile.MustSchema(map[string]any{
		"tag": stringField(docile.Field{
			Enum: []string{"RED"},
			StringTransform: func(v string) string {
				calls++
				return strings.ToUpper(v)
			},
		}),
	}, nil)
	d := docile.NewDocument(s)
	d.Set("tag", "red")
	if got := d.Get("tag"); got != "RED" {
		t.Fatalf("stringTransform result not stored: %v", got)
	}
	if calls != 1 {
		t.Fatalf("stringTransform ran %d times", calls)
	}
	if d.HasErrors() {
		t.Fatalf("enum should match post-transform value: %v", d.Errors())
	}
}

// TestPipeline_NumberBoundsExclusive verifies min < v && v < max; boundary
// values never update storage.
func TestPipeline_NumberBoundsExclusive(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"pct": docile.Field{Type: docile.Number, Min: docile.Float(0), Max: docile.Float(100)},
	}, nil)
	d := docile.NewDocument(s)

	d.Set("pct", 50)
	if got := d.Get("pct"); got != float64(50) {
		t.Fatalf("in-range write lost: %v", got)
	}
	for _, bad := range []any{0, 100, -1, 101} {
		d.Set("pct", bad)
		if got := d.Get("pct"); got != float64(50) {
			t.Fatalf("bound-violating %v updated storage to %v", bad, got)
		}
	}
	if n := len(d.Errors()); n != 4 {
		t.Fatalf("expected 4 errors, got %d", n)
	}
}

func TestPipeline_NumberCasts(t *testing.T) {
	s := docile.MustSchema(map[string]any{"n": docile.Number}, nil)
	d := docile.NewDocument(s)
	d.Set("n", "3.5")
	if got := d.Get("n"); got != 3.5 {
		t.Fatalf("numeric string cast failed: %v", got)
	}
	d.Set("n", true)
	if got := d.Get("n"); got != 3.5 {
		t.Fatalf("bool to number must fail the cast, got %v", got)
	}
	if n := len(d.Errors()); n != 1 {
		t.Fatalf("expected 1 error, got %d", n)
	}
}

func TestPipeline_BooleanCasts(t *testing.T) {
	s := docile.MustSchema(map[string]any{"b": docile.Boolean}, nil)
	d := docile.NewDocument(s)
	for raw, want := range map[any]bool{"true": true, "0": false, 1: true} {
		d.Set("b", raw)
		if got := d.Get("b"); got != want {
			t.Fatalf("cast %v: got %v want %v", raw, got, want)
		}
	}
	d.Set("b", "maybe")
	if n := len(d.Errors()); n != 1 {
		t.Fatalf("expected 1 cast error, got %d", n)
	}
}

func TestPipeline_DateCasts(t *testing.T) {
	s := docile.MustSchema(map[string]any{"at": docile.Date}, nil)
	d := docile.NewDocument(s)

	d.Set("at", "2025-06-01T12:00:00Z")
	at, ok := d.Get("at").(time.Time)
	if !ok || !at.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("RFC3339 cast got %v", d.Get("at"))
	}

	d.Set("at", int64(1700000000000)) // epoch milliseconds
	at, ok = d.Get("at").(time.Time)
	if !ok || at.UnixMilli() != 1700000000000 {
		t.Fatalf("epoch cast got %v", d.Get("at"))
	}

	d.Set("at", "not a date")
	at2, _ := d.Get("at").(time.Time)
	if at2.UnixMilli() != 1700000000000 {
		t.Fatalf("failed cast mutated storage: %v", d.Get("at"))
	}
	if n := len(d.Errors()); n != 1 {
		t.Fatalf("expected 1 error, got %d", n)
	}
}

// TestPipeline_ArrayElementsDropOnFailure verifies failing elements are
// dropped (not nulled), one error per drop.
func TestPipeline_ArrayElementsDropOnFailure(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"nums": docile.Field{Type: docile.Array, ArrayOf: docile.Number},
	}, nil)
	d := docile.NewDocument(s)
	d.Set("nums", []any{1, "2", "x", map[string]any{}, 4})

	got, ok := d.Get("nums").([]any)
	if !ok {
		t.Fatalf("expected []any, got %T", d.Get("nums"))
	}
	want := []any{float64(1), float64(2), float64(4)}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d: got %v want %v", i, got[i], want[i])
		}
	}
	if n := len(d.Errors()); n != 2 {
		t.Fatalf("expected one error per dropped element, got %d: %v", n, d.Errors())
	}
}

func TestPipeline_ArrayUnique(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"tags": docile.Field{Type: docile.Array, ArrayOf: docile.String, Unique: true},
	}, nil)
	d := docile.NewDocument(s)
	d.Set("tags", []any{"a", "a", "b"})
	got, _ := d.Get("tags").([]any)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unique dedupe got %v", got)
	}
	if d.HasErrors() {
		t.Fatalf("dedupe is not an error: %v", d.Errors())
	}
}

// TestPipeline_NestedObject checks nested document construction and
// parent-level collection of nested failures.
func TestPipeline_NestedObject(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"profile": map[string]any{
			"city": docile.String,
			"zip":  docile.Field{Type: docile.Number, Min: docile.Float(0)},
		},
	}, nil)
	d := docile.NewDocument(s)

	d.Set("profile", map[string]any{"city": "Oslo", "zip": "abc"})
	sub, ok := d.Get("profile").(*docile.Document)
	if !ok {
		t.Fatalf("expected nested document, got %T", d.Get("profile"))
	}
	if got := sub.Get("city"); got != "Oslo" {
		t.Fatalf("nested city got %v", got)
	}
	errs := d.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected one parent-level error, got %v", errs)
	}
	if errs[0].Kind != docile.KindNested || errs[0].Field != "profile.zip" {
		t.Fatalf("unexpected nested error: %+v", errs[0])
	}

	// update in place: a second map write lands on the same sub-document
	d.Set("profile", map[string]any{"zip": 1234})
	if again, _ := d.Get("profile").(*docile.Document); again != sub {
		t.Fatalf("nested document was rebuilt instead of updated")
	}
	if got := sub.Get("zip"); got != float64(1234) {
		t.Fatalf("nested update got %v", got)
	}
}

func TestPipeline_AliasRedirects(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"name": docile.String,
		"nick": docile.Field{Type: docile.Alias, Target: "name"},
	}, nil)
	d := docile.NewDocument(s)
	d.Set("nick", "Ada")
	if got := d.Get("name"); got != "Ada" {
		t.Fatalf("alias write did not reach target: %v", got)
	}
	if got := d.Get("nick"); got != "Ada" {
		t.Fatalf("alias read did not redirect: %v", got)
	}
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
}

func TestPipeline_ReadOnly(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"kind": stringField(docile.Field{ReadOnly: true, Default: "user"}),
	}, nil)
	d := docile.NewDocument(s)
	if got := d.Get("kind"); got != "user" {
		t.Fatalf("default population must bypass readOnly, got %v", got)
	}
	d.Set("kind", "admin")
	if got := d.Get("kind"); got != "user" {
		t.Fatalf("readOnly write went through: %v", got)
	}
	if d.HasErrors() {
		t.Fatalf("readOnly writes are silent, got %v", d.Errors())
	}
}

func TestPipeline_GetTransformDoesNotMutate(t *testing.T) {
	s := docile.MustSchema(map[string]any{
		"name": stringField(docile.Field{Get: func(v any) any {
			if s, ok := v.(string); ok {
				return strings.ToUpper(s)
			}
			return v
		}}),
	}, nil)
	d := docile.NewDocument(s)
	d.Set("name", "ada")
	if got := d.Get("name"); got != "ADA" {
		t.Fatalf("get transform not applied: %v", got)
	}
	// storage keeps the casted value; serialization reads through the getter
	if out := d.ToMap(); out["name"] != "ADA" {
		t.Fatalf("ToMap reads through getter, got %v", out["name"])
	}
	if got := d.Get("name"); got != "ADA" {
		t.Fatalf("second read differs: %v", got)
	}
}
