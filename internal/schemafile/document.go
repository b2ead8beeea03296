// Package schemafile loads enumeration, struct and class definitions from
// YAML or CUE files and registers them with a type manager.
//
// Both formats share one document layout:
//
//	enumerations:
//	  - name: Mode
//	    values: [Idle, Run]
//	structs:
//	  - name: Range
//	    fields:
//	      - {name: low, type: float, default: 0.0}
//	      - {name: high, type: float, default: 10.0}
//	classes:
//	  - name: Channel
//	    properties:
//	      - {name: gain, type: float, default: 1.0, min: 0.0, max: 100.0, unit: dB}
//	      - {name: mode, type: enumeration, enumeration: Mode, default: Idle}
//	      - {name: range, type: struct, struct: Range}
//	  - name: Device
//	    properties:
//	      - {name: channel, type: object, class: Channel}
//	      - {name: alias, type: undefined, reference: "%channel"}
//
// CUE files are validated against a closed schema and must be concrete.
package schemafile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Errors returned by the loaders.
var (
	ErrUnsupportedFormat = errors.New("schemafile: unsupported file format")
	ErrInvalidDocument   = errors.New("schemafile: invalid document")
)

// Document is the parsed content of one or more schema files.
type Document struct {
	Enumerations []EnumerationDef `yaml:"enumerations"`
	Structs      []StructDef      `yaml:"structs"`
	Classes      []ClassDef       `yaml:"classes"`
}

// EnumerationDef declares an enumeration type. Values are numbered from 0
// in order.
type EnumerationDef struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

// StructDef declares a struct type.
type StructDef struct {
	Name   string     `yaml:"name"`
	Fields []FieldDef `yaml:"fields"`
}

// FieldDef declares one struct field.
type FieldDef struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Default any    `yaml:"default"`
}

// ClassDef declares a property object class.
type ClassDef struct {
	Name       string        `yaml:"name"`
	Parent     string        `yaml:"parent"`
	Properties []PropertyDef `yaml:"properties"`
}

// PropertyDef declares one property. Min and Max may be numbers or
// expressions such as "$limit".
type PropertyDef struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	ItemType    string `yaml:"item_type"`
	KeyType     string `yaml:"key_type"`
	Default     any    `yaml:"default"`
	Min         any    `yaml:"min"`
	Max         any    `yaml:"max"`
	Selection   any    `yaml:"selection"`
	Suggested   []any  `yaml:"suggested"`
	Reference   string `yaml:"reference"`
	ReadOnly    bool   `yaml:"read_only"`
	Visible     *bool  `yaml:"visible"`
	Description string `yaml:"description"`
	Unit        string `yaml:"unit"`
	Class       string `yaml:"class"`
	Struct      string `yaml:"struct"`
	Enumeration string `yaml:"enumeration"`
}

// Merge appends the definitions of other.
func (d *Document) Merge(other *Document) {
	if other == nil {
		return
	}
	d.Enumerations = append(d.Enumerations, other.Enumerations...)
	d.Structs = append(d.Structs, other.Structs...)
	d.Classes = append(d.Classes, other.Classes...)
}

// ParseYAML parses a YAML document.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// LoadFile parses a .yaml, .yml or .cue file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // schema paths come from config
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err := ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return doc, nil
	case ".cue":
		doc, err := ParseCUE(filepath.Base(path), data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// LoadDir parses every schema file in dir, in file name order, into one
// document. Other files are ignored.
func LoadDir(dir string) (*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schema directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".cue":
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	doc := &Document{}
	for _, name := range names {
		part, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		doc.Merge(part)
	}
	return doc, nil
}
