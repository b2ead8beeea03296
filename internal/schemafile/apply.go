package schemafile

import (
	"fmt"
	"strings"

	"github.com/openDAQ/openDAQ-sub004/internal/eval"
	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/propertyobject"
	"github.com/openDAQ/openDAQ-sub004/internal/schema"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// Apply registers the document's types with tm: enumerations first, then
// structs, then classes. Classes may appear in any order; a class is added
// once its parent and the classes of its object properties exist.
//
// Types registered before a failure stay registered.
func Apply(tm *schema.TypeManager, doc *Document) error {
	if tm == nil {
		return fmt.Errorf("%w: type manager", status.ErrArgumentNull)
	}
	if doc == nil {
		return nil
	}

	for _, e := range doc.Enumerations {
		if e.Name == "" {
			return fmt.Errorf("%w: enumeration name", status.ErrArgumentNull)
		}
		if err := tm.AddType(value.NewEnumerationType(e.Name, e.Values...)); err != nil {
			return fmt.Errorf("enumeration %s: %w", e.Name, err)
		}
	}

	for _, s := range doc.Structs {
		st, err := buildStruct(s)
		if err != nil {
			return err
		}
		if err := tm.AddType(st); err != nil {
			return fmt.Errorf("struct %s: %w", s.Name, err)
		}
	}

	return applyClasses(tm, doc.Classes)
}

func buildStruct(def StructDef) (*value.StructType, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: struct name", status.ErrArgumentNull)
	}
	fields := make([]value.StructField, 0, len(def.Fields))
	for _, f := range def.Fields {
		t, err := value.ParseCoreType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("struct %s field %q: %w", def.Name, f.Name, err)
		}
		d := value.Normalize(f.Default)
		if d != nil && t != value.CTUndefined {
			if d, err = value.Convert(d, t); err != nil {
				return nil, fmt.Errorf("struct %s field %q: %w", def.Name, f.Name, err)
			}
		}
		fields = append(fields, value.StructField{Name: f.Name, Type: t, Default: d})
	}
	return value.NewStructType(def.Name, fields...), nil
}

func applyClasses(tm *schema.TypeManager, defs []ClassDef) error {
	pending := append([]ClassDef(nil), defs...)
	for len(pending) > 0 {
		var next []ClassDef
		for _, def := range pending {
			if !classReady(tm, def) {
				next = append(next, def)
				continue
			}
			c, err := buildClass(tm, def)
			if err != nil {
				return err
			}
			if err := tm.AddType(c); err != nil {
				return fmt.Errorf("class %s: %w", def.Name, err)
			}
		}
		if len(next) == len(pending) {
			names := make([]string, len(next))
			for i, def := range next {
				names[i] = def.Name
			}
			return fmt.Errorf("%w: unresolved classes %s (missing or cyclic dependencies)",
				status.ErrNotFound, strings.Join(names, ", "))
		}
		pending = next
	}
	return nil
}

func classReady(tm *schema.TypeManager, def ClassDef) bool {
	if def.Parent != "" && !tm.HasType(def.Parent) {
		return false
	}
	for _, p := range def.Properties {
		if p.Class != "" && !tm.HasType(p.Class) {
			return false
		}
	}
	return true
}

func buildClass(tm *schema.TypeManager, def ClassDef) (*schema.Class, error) {
	props := make([]*property.Property, 0, len(def.Properties))
	for _, pd := range def.Properties {
		p, err := BuildProperty(tm, pd)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", def.Name, err)
		}
		props = append(props, p)
	}
	return schema.NewClass(def.Name, def.Parent, props...)
}

// BuildProperty turns a property definition into a descriptor. Named
// struct, enumeration and class types are looked up in tm.
func BuildProperty(tm *schema.TypeManager, def PropertyDef) (*property.Property, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: property name", status.ErrArgumentNull)
	}
	t, err := value.ParseCoreType(def.Type)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", def.Name, err)
	}

	opts := []property.Option{
		property.WithReadOnly(def.ReadOnly),
		property.WithDescription(def.Description),
		property.WithUnit(def.Unit),
	}
	if def.Visible != nil {
		opts = append(opts, property.WithVisible(*def.Visible))
	}
	if def.ItemType != "" {
		it, err := value.ParseCoreType(def.ItemType)
		if err != nil {
			return nil, fmt.Errorf("property %q item type: %w", def.Name, err)
		}
		opts = append(opts, property.WithItemType(it))
	}
	if def.KeyType != "" {
		kt, err := value.ParseCoreType(def.KeyType)
		if err != nil {
			return nil, fmt.Errorf("property %q key type: %w", def.Name, err)
		}
		opts = append(opts, property.WithKeyType(kt))
	}
	for _, bound := range []struct {
		raw  any
		with func(any) property.Option
	}{{def.Min, property.WithMin}, {def.Max, property.WithMax}} {
		if bound.raw == nil {
			continue
		}
		v, err := literalOrExpression(bound.raw)
		if err != nil {
			return nil, fmt.Errorf("property %q bound: %w", def.Name, err)
		}
		opts = append(opts, bound.with(v))
	}
	if def.Selection != nil {
		opts = append(opts, property.WithSelectionValues(def.Selection))
	}
	if len(def.Suggested) > 0 {
		opts = append(opts, property.WithSuggestedValues(def.Suggested...))
	}

	if def.Reference != "" {
		ref, err := eval.Parse(def.Reference)
		if err != nil {
			return nil, fmt.Errorf("property %q reference: %w", def.Name, err)
		}
		p, err := property.New(def.Name, value.CTUndefined, append(opts, property.WithReference(ref))...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	d, err := defaultValue(tm, t, def)
	if err != nil {
		return nil, fmt.Errorf("property %q default: %w", def.Name, err)
	}
	if d != nil {
		opts = append(opts, property.WithDefault(d))
	}
	return property.New(def.Name, t, opts...)
}

func literalOrExpression(raw any) (any, error) {
	if s, ok := raw.(string); ok {
		return eval.Parse(s)
	}
	return value.Normalize(raw), nil
}

func defaultValue(tm *schema.TypeManager, t value.CoreType, def PropertyDef) (any, error) {
	switch t {
	case value.CTEnumeration:
		et, err := tm.EnumerationType(def.Enumeration)
		if err != nil {
			return nil, err
		}
		if def.Default == nil {
			names := et.Names()
			if len(names) == 0 {
				return nil, fmt.Errorf("%w: enumeration %s has no values", status.ErrInvalidParameter, et.Name())
			}
			return et.Enumerate(names[0])
		}
		return et.Enumerate(def.Default)

	case value.CTStruct:
		st, err := tm.StructType(def.Struct)
		if err != nil {
			return nil, err
		}
		fields := map[string]any{}
		if def.Default != nil {
			m, ok := def.Default.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: struct default must be a mapping", status.ErrInvalidType)
			}
			fields = m
		}
		return st.New(fields)

	case value.CTObject:
		if def.Class == "" {
			return propertyobject.New(), nil
		}
		return propertyobject.NewWithClass(tm, def.Class)

	case value.CTList:
		if def.Default == nil {
			return value.List{}, nil
		}
	case value.CTDict:
		if def.Default == nil {
			return value.NewDict(), nil
		}
	case value.CTFunc, value.CTProc:
		return nil, nil
	}
	return value.Normalize(def.Default), nil
}
