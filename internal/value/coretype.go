// Package value defines the closed set of runtime values that flow through
// property objects, their core types, and the capability interfaces used to
// query them.
//
// Values are plain Go values:
//
//	bool, int64, float64, string  scalars
//	List                          ordered list
//	*Dict                         insertion-ordered dictionary
//	*Struct                       named record of a StructType
//	Enumeration                   named member of an EnumerationType
//	Ratio                         rational number
//	Function, Procedure           callables
//
// Anything else participates through the capability interfaces in
// capability.go (nested property objects, deferred values).
package value

import (
	"fmt"
	"strings"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// CoreType classifies a value. Numbering matches the serialized form.
type CoreType int

// Core types.
const (
	CTBool        CoreType = 0
	CTInt         CoreType = 1
	CTFloat       CoreType = 2
	CTString      CoreType = 3
	CTList        CoreType = 4
	CTDict        CoreType = 5
	CTRatio       CoreType = 6
	CTProc        CoreType = 7
	CTObject      CoreType = 8
	CTFunc        CoreType = 10
	CTStruct      CoreType = 12
	CTEnumeration CoreType = 13
	CTUndefined   CoreType = 0xFFFF
)

var coreTypeNames = map[CoreType]string{
	CTBool:        "bool",
	CTInt:         "int",
	CTFloat:       "float",
	CTString:      "string",
	CTList:        "list",
	CTDict:        "dict",
	CTRatio:       "ratio",
	CTProc:        "procedure",
	CTObject:      "object",
	CTFunc:        "function",
	CTStruct:      "struct",
	CTEnumeration: "enumeration",
	CTUndefined:   "undefined",
}

// String returns the lower-case name used in schema files.
func (t CoreType) String() string {
	if name, ok := coreTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("coretype(%d)", int(t))
}

// IsValid reports whether t is one of the declared core types.
func (t CoreType) IsValid() bool {
	_, ok := coreTypeNames[t]
	return ok
}

// IsNumeric reports whether values of t are ordered numbers.
func (t CoreType) IsNumeric() bool {
	return t == CTInt || t == CTFloat
}

// ParseCoreType parses a core type name as written in schema files.
func ParseCoreType(s string) (CoreType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "", "undefined", "any":
		return CTUndefined, nil
	case "boolean":
		return CTBool, nil
	case "integer":
		return CTInt, nil
	case "double", "number":
		return CTFloat, nil
	case "proc":
		return CTProc, nil
	case "func":
		return CTFunc, nil
	case "enum":
		return CTEnumeration, nil
	}
	for t, n := range coreTypeNames {
		if n == name {
			return t, nil
		}
	}
	return CTUndefined, fmt.Errorf("%w: unknown core type %q", status.ErrInvalidParameter, s)
}

// Typed is implemented by values that report their own core type.
type Typed interface {
	CoreType() CoreType
}

// CoreTypeOf returns the core type of v. Nil and unknown values are
// CTUndefined.
func CoreTypeOf(v any) CoreType {
	switch x := Normalize(v).(type) {
	case nil:
		return CTUndefined
	case bool:
		return CTBool
	case int64:
		return CTInt
	case float64:
		return CTFloat
	case string:
		return CTString
	case List:
		return CTList
	case *Dict:
		return CTDict
	case Ratio:
		return CTRatio
	case *Struct:
		return CTStruct
	case Enumeration:
		return CTEnumeration
	case Function:
		return CTFunc
	case Procedure:
		return CTProc
	case Typed:
		return x.CoreType()
	}
	return CTUndefined
}
