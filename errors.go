package docile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a collected, non-fatal pipeline failure.
type ErrorKind string

const (
	// KindValidation marks a rejection by a field's Validate hook.
	KindValidation ErrorKind = "validation"
	// KindTypecast marks a raw value that could not be coerced to the
	// declared type. Storage is left unchanged.
	KindTypecast ErrorKind = "typecast"
	// KindConstraint marks a type-specific constraint violation
	// (regex/enum/length/min/max/uniqueness).
	KindConstraint ErrorKind = "constraint"
	// KindStrictMode marks a write to an undeclared field on a strict schema.
	KindStrictMode ErrorKind = "strict_mode"
	// KindNested marks a construction failure inside a nested typed document
	// surfaced as a field-level error on the parent.
	KindNested ErrorKind = "nested"
)

// FieldError is one entry in a document's ordered error log.
type FieldError struct {
	Field   string
	Kind    ErrorKind
	Message string
	// Attempted is the raw value the caller tried to write.
	Attempted any
	// Previous is the stored value at the time of the failed write; the
	// pipeline reverts to it.
	Previous any
	// Descriptor is a snapshot of the field descriptor the write was
	// evaluated against. Descriptors are immutable once compiled.
	Descriptor *Descriptor
}

// FieldErrors is an ordered collection of pipeline failures implementing error.
type FieldErrors []FieldError

// Error summarizes the first few entries.
func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(fe)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := fe[i]
		fmt.Fprintf(b, "%s at %s", it.Kind, it.Field)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AsFieldErrors extracts FieldErrors from an error using errors.As internally.
func AsFieldErrors(err error) (FieldErrors, bool) {
	if err == nil {
		return nil, false
	}
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// SchemaDefinitionError reports a fatal, compile-time schema problem:
// duplicate key fields, a malformed type reference, an alias without a
// target, or a virtual field missing its getter. Unlike FieldErrors it is
// returned, never collected.
type SchemaDefinitionError struct {
	Field  string
	Reason string
}

func (e *SchemaDefinitionError) Error() string {
	if e.Field == "" {
		return "schema definition: " + e.Reason
	}
	return fmt.Sprintf("schema definition: field %q: %s", e.Field, e.Reason)
}

func defErr(field, format string, args ...any) *SchemaDefinitionError {
	return &SchemaDefinitionError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
