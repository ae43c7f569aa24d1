package docile

import (
	"fmt"
	"reflect"
	"time"
	"unicode/utf8"
)

// pipeResult is the discriminated outcome of one pipeline application. The
// pipeline never signals failure through panics or returned errors to the
// caller of Set; everything lands in errs.
type pipeResult struct {
	value any
	store bool
	errs  []FieldError
}

func pipeOK(v any) pipeResult             { return pipeResult{value: v, store: true} }
func pipeSkip() pipeResult                { return pipeResult{} }
func pipeFail(e ...FieldError) pipeResult { return pipeResult{errs: e} }

// applyPipeline runs the uniform write pipeline for one field:
// readOnly gate -> Transform -> Validate -> typecast -> type-specific
// constraints. current is the stored value the pipeline reverts to on
// failure; bootstrap lifts the readOnly gate during default population and
// internal writes.
func applyPipeline(d *Document, desc *Descriptor, raw, current any, bootstrap bool) pipeResult {
	if desc.readOnly && !bootstrap {
		return pipeSkip()
	}
	if desc.transform != nil {
		raw = desc.transform(raw)
	}
	if desc.validate != nil && !desc.validate(raw) {
		return pipeFail(FieldError{
			Field:      desc.name,
			Kind:       KindValidation,
			Message:    "validate hook rejected value",
			Attempted:  raw,
			Previous:   current,
			Descriptor: desc,
		})
	}
	// Explicit null clears the slot; the cast never sees it.
	if raw == nil {
		return pipeOK(nil)
	}

	switch desc.typ {
	case Any:
		return pipeOK(raw)
	case String:
		return applyString(desc, raw, current)
	case Number:
		return applyNumber(desc, raw, current)
	case Boolean:
		if b, ok := castBool(raw); ok {
			return pipeOK(b)
		}
		return pipeFail(castFailure(desc, raw, current))
	case Date:
		if t, ok := castDate(raw); ok {
			return pipeOK(t)
		}
		return pipeFail(castFailure(desc, raw, current))
	case Array:
		return applyArray(d, desc, raw, current, bootstrap)
	case Object:
		return applyObject(d, desc, raw, current)
	}
	return pipeFail(castFailure(desc, raw, current))
}

func castFailure(desc *Descriptor, raw, current any) FieldError {
	return FieldError{
		Field:      desc.name,
		Kind:       KindTypecast,
		Message:    fmt.Sprintf("cannot cast %T to %s", raw, desc.typ),
		Attempted:  raw,
		Previous:   current,
		Descriptor: desc,
	}
}

func constraintFailure(desc *Descriptor, msg string, raw, current any) FieldError {
	return FieldError{
		Field:      desc.name,
		Kind:       KindConstraint,
		Message:    msg,
		Attempted:  raw,
		Previous:   current,
		Descriptor: desc,
	}
}

func applyString(desc *Descriptor, raw, current any) pipeResult {
	s, ok := castString(raw)
	if !ok {
		return pipeFail(castFailure(desc, raw, current))
	}
	// stringTransform runs exactly once per successful cast, before the
	// regex/length checks.
	if desc.stringTransform != nil {
		s = desc.stringTransform(s)
	}
	if desc.regex != nil && !desc.regex.MatchString(s) {
		return pipeFail(constraintFailure(desc, "regex mismatch", raw, current))
	}
	if len(desc.enum) > 0 {
		found := false
		for _, e := range desc.enum {
			if e == s {
				found = true
				break
			}
		}
		if !found {
			return pipeFail(constraintFailure(desc, "value not in enum", raw, current))
		}
	}
	// Length constraints count characters, not bytes.
	if desc.minLength >= 0 && utf8.RuneCountInString(s) < desc.minLength {
		return pipeFail(constraintFailure(desc, fmt.Sprintf("shorter than minLength %d", desc.minLength), raw, current))
	}
	if desc.maxLength >= 0 && utf8.RuneCountInString(s) > desc.maxLength {
		if !desc.clip {
			return pipeFail(constraintFailure(desc, fmt.Sprintf("longer than maxLength %d", desc.maxLength), raw, current))
		}
		s = clipRunes(s, desc.maxLength)
	}
	return pipeOK(s)
}

// clipRunes truncates s to at most n characters without splitting a rune.
func clipRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

func applyNumber(desc *Descriptor, raw, current any) pipeResult {
	f, ok := castNumber(raw)
	if !ok {
		return pipeFail(castFailure(desc, raw, current))
	}
	// Bounds are exclusive: min < f && f < max.
	if desc.min != nil && !(*desc.min < f) {
		return pipeFail(constraintFailure(desc, fmt.Sprintf("%v out of range (min %v)", f, *desc.min), raw, current))
	}
	if desc.max != nil && !(f < *desc.max) {
		return pipeFail(constraintFailure(desc, fmt.Sprintf("%v out of range (max %v)", f, *desc.max), raw, current))
	}
	return pipeOK(f)
}

// applyArray casts each element through the element descriptor; failed
// elements are dropped, each drop recorded as its own error.
func applyArray(d *Document, desc *Descriptor, raw, current any, bootstrap bool) pipeResult {
	elems, ok := sliceElems(raw)
	if !ok {
		return pipeFail(castFailure(desc, raw, current))
	}
	out := make([]any, 0, len(elems))
	var errs []FieldError
	for _, ev := range elems {
		r := applyPipeline(d, desc.elem, ev, nil, bootstrap)
		if !r.store {
			for i := range r.errs {
				r.errs[i].Field = desc.name
			}
			errs = append(errs, r.errs...)
			continue
		}
		out = append(out, r.value)
	}
	if desc.unique {
		out = dedupeIdentity(out)
	}
	res := pipeOK(out)
	res.errs = errs
	return res
}

func sliceElems(raw any) ([]any, bool) {
	if vs, ok := raw.([]any); ok {
		return vs, true
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// dedupeIdentity removes identity-equal elements, preserving first-seen
// order. Non-comparable elements (nested documents aside, these do not
// normally appear post-cast) are kept as-is.
func dedupeIdentity(in []any) []any {
	seen := make(map[any]struct{}, len(in))
	out := make([]any, 0, len(in))
	for _, v := range in {
		if v != nil && !reflect.TypeOf(v).Comparable() {
			out = append(out, v)
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// applyObject constructs (or updates in place) a nested document typed by
// the field's object schema. Construction failures collect on the parent.
func applyObject(d *Document, desc *Descriptor, raw, current any) pipeResult {
	switch t := raw.(type) {
	case *Document:
		if t.schema == desc.objSchema {
			return pipeOK(t)
		}
		return applyObject(d, desc, t.ToMap(ExportOptions{Minimize: Bool(false), Transform: Bool(false)}), current)
	case map[string]any:
		sub, isSub := current.(*Document)
		if !isSub || sub == nil {
			sub = newDocument(desc.objSchema, nil)
			sub.populateDefaults()
		}
		before := len(sub.errs)
		sub.SetAll(t)
		res := pipeOK(sub)
		for _, se := range sub.errs[before:] {
			res.errs = append(res.errs, FieldError{
				Field:      desc.name + "." + se.Field,
				Kind:       KindNested,
				Message:    se.Message,
				Attempted:  se.Attempted,
				Previous:   se.Previous,
				Descriptor: se.Descriptor,
			})
		}
		return res
	}
	return pipeFail(castFailure(desc, raw, current))
}

// exportShallow copies plain aggregates so serialized output cannot mutate
// stored state by reference. Dates are returned as-is (time.Time is a value).
func exportShallow(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	case []any:
		out := make([]any, len(t))
		copy(out, t)
		return out
	case time.Time:
		return t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	case reflect.Map:
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface()
	}
	return v
}
