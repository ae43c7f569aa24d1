// Package schemafile loads declarative schema definitions from YAML or JSON
// files and compiles them into docile schemas. Function-valued attributes
// (transforms, validators, virtuals, statics) are not expressible in files;
// attach those in code after loading.
package schemafile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/docile-dev/docile"
)

// File is the on-disk shape of a schema definition.
type File struct {
	Name    string                `yaml:"name" json:"name"`
	Options *FileOptions          `yaml:"options,omitempty" json:"options,omitempty"`
	Fields  map[string]*FileField `yaml:"fields" json:"fields"`
}

// FileOptions mirrors docile.Options for the file surface.
type FileOptions struct {
	Extend       *bool   `yaml:"extend,omitempty" json:"extend,omitempty"`
	StrictErrors *bool   `yaml:"strictErrors,omitempty" json:"strictErrors,omitempty"`
	DotNotation  *bool   `yaml:"dotNotation,omitempty" json:"dotNotation,omitempty"`
	KeyPrefix    *string `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
	KeySuffix    *string `yaml:"keySuffix,omitempty" json:"keySuffix,omitempty"`
}

// FileField is one field definition. Optional attributes are pointers so the
// zero value stays distinguishable from "not set".
type FileField struct {
	Type     string  `yaml:"type" json:"type"`
	Key      *bool   `yaml:"key,omitempty" json:"key,omitempty"`
	Generate *bool   `yaml:"generate,omitempty" json:"generate,omitempty"`
	Prefix   *string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Suffix   *string `yaml:"suffix,omitempty" json:"suffix,omitempty"`
	Default  any     `yaml:"default,omitempty" json:"default,omitempty"`

	ReadOnly  *bool `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	Invisible *bool `yaml:"invisible,omitempty" json:"invisible,omitempty"`

	Pattern   *string  `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Enum      []string `yaml:"enum,omitempty" json:"enum,omitempty"`
	MinLength *int     `yaml:"minLength,omitempty" json:"minLength,omitempty"`
	MaxLength *int     `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`
	Clip      *bool    `yaml:"clip,omitempty" json:"clip,omitempty"`

	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`

	Of     *FileField `yaml:"of,omitempty" json:"of,omitempty"`
	Unique *bool      `yaml:"unique,omitempty" json:"unique,omitempty"`

	Fields map[string]*FileField `yaml:"fields,omitempty" json:"fields,omitempty"`

	Target *string `yaml:"target,omitempty" json:"target,omitempty"`
}

// Load reads a YAML definition and compiles it into a model.
func Load(r io.Reader) (*docile.Model, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	return compile(&f)
}

// LoadJSON compiles a JSON definition.
func LoadJSON(b []byte) (*docile.Model, error) {
	var f File
	if err := gojson.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	return compile(&f)
}

// LoadFile loads a definition by path, selecting the decoder by extension
// (.json uses JSON, everything else YAML).
func LoadFile(path string) (*docile.Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(b)
	}
	return Load(strings.NewReader(string(b)))
}

func compile(f *File) (*docile.Model, error) {
	if len(f.Fields) == 0 {
		return nil, fmt.Errorf("schemafile: definition has no fields")
	}
	fieldMap := make(map[string]any, len(f.Fields))
	for name, ff := range f.Fields {
		spec, err := compileField(name, ff)
		if err != nil {
			return nil, err
		}
		fieldMap[name] = spec
	}
	opts := &docile.Options{}
	if o := f.Options; o != nil {
		if o.Extend != nil {
			opts.Extend = *o.Extend
		}
		if o.StrictErrors != nil {
			opts.StrictErrors = *o.StrictErrors
		}
		if o.DotNotation != nil {
			opts.DotNotation = *o.DotNotation
		}
		if o.KeyPrefix != nil {
			opts.KeyPrefix = *o.KeyPrefix
		}
		if o.KeySuffix != nil {
			opts.KeySuffix = *o.KeySuffix
		}
	}
	schema, err := docile.NewSchema(fieldMap, opts)
	if err != nil {
		return nil, err
	}
	name := f.Name
	if name == "" {
		name = "Document"
	}
	return docile.NewModel(name, schema), nil
}

func compileField(name string, ff *FileField) (docile.Field, error) {
	if ff == nil {
		return docile.Field{}, fmt.Errorf("schemafile: field %q: empty definition", name)
	}
	ft, err := parseType(name, ff.Type)
	if err != nil {
		return docile.Field{}, err
	}
	spec := docile.Field{
		Type:      ft,
		Default:   ff.Default,
		Enum:      ff.Enum,
		MinLength: ff.MinLength,
		MaxLength: ff.MaxLength,
		Min:       ff.Min,
		Max:       ff.Max,
	}
	if ff.Key != nil {
		spec.Key = *ff.Key
	}
	if ff.Generate != nil {
		spec.Generate = *ff.Generate
	}
	if ff.Prefix != nil {
		spec.Prefix = *ff.Prefix
	}
	if ff.Suffix != nil {
		spec.Suffix = *ff.Suffix
	}
	if ff.ReadOnly != nil {
		spec.ReadOnly = *ff.ReadOnly
	}
	if ff.Invisible != nil {
		spec.Invisible = *ff.Invisible
	}
	if ff.Clip != nil {
		spec.Clip = *ff.Clip
	}
	if ff.Unique != nil {
		spec.Unique = *ff.Unique
	}
	if ff.Pattern != nil {
		re, rerr := regexp.Compile(*ff.Pattern)
		if rerr != nil {
			return docile.Field{}, fmt.Errorf("schemafile: field %q: bad pattern: %w", name, rerr)
		}
		spec.Regex = re
	}
	switch ft {
	case docile.Array:
		if ff.Of != nil {
			elem, eerr := compileField(name, ff.Of)
			if eerr != nil {
				return docile.Field{}, eerr
			}
			spec.ArrayOf = elem
		}
	case docile.Object:
		if len(ff.Fields) == 0 {
			return docile.Field{}, fmt.Errorf("schemafile: field %q: object without fields", name)
		}
		sub := make(map[string]any, len(ff.Fields))
		for n, sf := range ff.Fields {
			sp, serr := compileField(name+"."+n, sf)
			if serr != nil {
				return docile.Field{}, serr
			}
			sub[n] = sp
		}
		spec.ObjectOf = sub
	case docile.Alias:
		if ff.Target == nil || *ff.Target == "" {
			return docile.Field{}, fmt.Errorf("schemafile: field %q: alias without target", name)
		}
		spec.Target = *ff.Target
	}
	return spec, nil
}

func parseType(name, t string) (docile.FieldType, error) {
	switch strings.ToLower(t) {
	case "string":
		return docile.String, nil
	case "number":
		return docile.Number, nil
	case "boolean", "bool":
		return docile.Boolean, nil
	case "date":
		return docile.Date, nil
	case "array":
		return docile.Array, nil
	case "object":
		return docile.Object, nil
	case "alias":
		return docile.Alias, nil
	case "any", "":
		return docile.Any, nil
	}
	return docile.Any, fmt.Errorf("schemafile: field %q: unknown type %q", name, t)
}
