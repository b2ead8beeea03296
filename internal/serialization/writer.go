// Package serialization is the structured writer/reader boundary used by
// property objects to produce and consume their JSON-shaped snapshot form.
package serialization

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type tags written under the "__type" key.
const (
	TypeKey           = "__type"
	TagDict           = "Dict"
	TagStruct         = "Struct"
	TagEnumeration    = "Enumeration"
	TagRatio          = "Ratio"
	TagEvalValue      = "EvalValue"
	TagProperty       = "Property"
	TagPropertyObject = "PropertyObject"
)

// Writer is the structured output consumed by Serialize implementations.
// Keys are only valid directly inside an object.
type Writer interface {
	StartObject()
	EndObject()
	StartList()
	EndList()
	Key(name string)
	WriteString(s string)
	WriteInt(i int64)
	WriteFloat(f float64)
	WriteBool(b bool)
	WriteNull()

	// User is the identity whose read permissions filter the output. Nil
	// means unrestricted.
	User() any
}

// Serializable values write themselves to a Writer.
type Serializable interface {
	SerializeID() string
	Serialize(w Writer) error
}

// Errors reported by JSONWriter.
var (
	ErrUnbalanced   = errors.New("serialization: unbalanced object or list")
	ErrKeyExpected  = errors.New("serialization: value written inside object without key")
	ErrKeyOutside   = errors.New("serialization: key written outside object")
	ErrInvalidFloat = errors.New("serialization: NaN or infinite float")
)

type frame struct {
	list     bool
	count    int
	afterKey bool
}

// JSONWriter writes compact JSON. Floats always carry a fraction or an
// exponent so they read back as floats.
type JSONWriter struct {
	buf   bytes.Buffer
	stack []frame
	user  any
	err   error
	done  bool
}

// NewJSONWriter returns a writer filtering on user (may be nil).
func NewJSONWriter(user any) *JSONWriter {
	return &JSONWriter{user: user}
}

// User returns the identity set at construction.
func (w *JSONWriter) User() any { return w.user }

func (w *JSONWriter) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *JSONWriter) beforeValue() {
	if len(w.stack) == 0 {
		if w.done {
			w.fail(ErrUnbalanced)
		}
		w.done = true
		return
	}
	top := &w.stack[len(w.stack)-1]
	if top.list {
		if top.count > 0 {
			w.buf.WriteByte(',')
		}
		top.count++
		return
	}
	if !top.afterKey {
		w.fail(ErrKeyExpected)
	}
	top.afterKey = false
}

// StartObject opens an object.
func (w *JSONWriter) StartObject() {
	w.beforeValue()
	w.buf.WriteByte('{')
	w.stack = append(w.stack, frame{})
}

// EndObject closes the innermost object.
func (w *JSONWriter) EndObject() {
	if len(w.stack) == 0 || w.stack[len(w.stack)-1].list {
		w.fail(ErrUnbalanced)
		return
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.buf.WriteByte('}')
}

// StartList opens a list.
func (w *JSONWriter) StartList() {
	w.beforeValue()
	w.buf.WriteByte('[')
	w.stack = append(w.stack, frame{list: true})
}

// EndList closes the innermost list.
func (w *JSONWriter) EndList() {
	if len(w.stack) == 0 || !w.stack[len(w.stack)-1].list {
		w.fail(ErrUnbalanced)
		return
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.buf.WriteByte(']')
}

// Key writes an object member name.
func (w *JSONWriter) Key(name string) {
	if len(w.stack) == 0 || w.stack[len(w.stack)-1].list {
		w.fail(ErrKeyOutside)
		return
	}
	top := &w.stack[len(w.stack)-1]
	if top.count > 0 {
		w.buf.WriteByte(',')
	}
	top.count++
	top.afterKey = true
	w.writeQuoted(name)
	w.buf.WriteByte(':')
}

func (w *JSONWriter) writeQuoted(s string) {
	b, _ := json.Marshal(s)
	w.buf.Write(b)
}

// WriteString writes a string value.
func (w *JSONWriter) WriteString(s string) {
	w.beforeValue()
	w.writeQuoted(s)
}

// WriteInt writes an integer value.
func (w *JSONWriter) WriteInt(i int64) {
	w.beforeValue()
	w.buf.WriteString(strconv.FormatInt(i, 10))
}

// WriteFloat writes a float value.
func (w *JSONWriter) WriteFloat(f float64) {
	w.beforeValue()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		w.fail(ErrInvalidFloat)
		w.buf.WriteString("null")
		return
	}
	w.buf.WriteString(FormatFloat(f))
}

// WriteBool writes a boolean value.
func (w *JSONWriter) WriteBool(b bool) {
	w.beforeValue()
	w.buf.WriteString(strconv.FormatBool(b))
}

// WriteNull writes null.
func (w *JSONWriter) WriteNull() {
	w.beforeValue()
	w.buf.WriteString("null")
}

// Bytes returns the document. It fails if any container is still open or
// a write was malformed.
func (w *JSONWriter) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if len(w.stack) != 0 {
		return nil, fmt.Errorf("%w: %d open", ErrUnbalanced, len(w.stack))
	}
	return bytes.Clone(w.buf.Bytes()), nil
}

// FormatFloat renders f so that it reads back as a float.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
