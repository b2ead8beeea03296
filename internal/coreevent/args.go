// Package coreevent defines the structured change notifications property
// objects forward to a single relay callback, and the Relay that fans
// them out to sinks (MQTT, NATS, InfluxDB, websocket clients, metrics).
package coreevent

import (
	"time"

	"github.com/openDAQ/openDAQ-sub004/internal/serialization"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// ID identifies the kind of core event.
type ID int

// Core event kinds.
const (
	PropertyValueChanged ID = iota
	PropertyObjectUpdateEnd
	PropertyAdded
	PropertyRemoved
	PropertyOrderChanged
)

var idNames = map[ID]string{
	PropertyValueChanged:    "PropertyValueChanged",
	PropertyObjectUpdateEnd: "PropertyObjectUpdateEnd",
	PropertyAdded:           "PropertyAdded",
	PropertyRemoved:         "PropertyRemoved",
	PropertyOrderChanged:    "PropertyOrderChanged",
}

// String returns the event name.
func (id ID) String() string {
	if n, ok := idNames[id]; ok {
		return n
	}
	return "Unknown"
}

// Parameter names used in Args.Parameters.
const (
	ParamName              = "Name"
	ParamValue             = "Value"
	ParamUpdatedProperties = "UpdatedProperties"
	ParamProperty          = "Property"
	ParamOrder             = "Order"
)

// Args is one core event. Path is the dotted path of the object that
// raised it; Parameters carry event-specific values.
type Args struct {
	ID         ID
	Path       string
	Parameters *value.Dict
	Time       time.Time
}

// NewArgs builds event args from alternating parameter key/value pairs.
func NewArgs(id ID, path string, kv ...any) Args {
	params := value.NewDict()
	for i := 0; i+1 < len(kv); i += 2 {
		_ = params.Set(kv[i], value.Clone(kv[i+1]))
	}
	return Args{ID: id, Path: path, Parameters: params, Time: time.Now().UTC()}
}

// Name returns the event name.
func (a Args) Name() string { return a.ID.String() }

// Param returns a parameter value.
func (a Args) Param(name string) (any, bool) {
	return a.Parameters.Get(name)
}

// PropertyPath returns the fully qualified path of the property the event
// concerns, or the object path for object-level events.
func (a Args) PropertyPath() string {
	name, ok := a.Param(ParamName)
	s, isString := name.(string)
	if !ok || !isString || s == "" {
		return a.Path
	}
	if a.Path == "" {
		return s
	}
	return a.Path + "." + s
}

// MarshalJSON renders the event with the same value encoding as object
// snapshots. Values that cannot be serialized are written as null.
func (a Args) MarshalJSON() ([]byte, error) {
	w := serialization.NewJSONWriter(nil)
	w.StartObject()
	w.Key("event")
	w.WriteString(a.Name())
	w.Key("id")
	w.WriteInt(int64(a.ID))
	w.Key("path")
	w.WriteString(a.Path)
	w.Key("time")
	w.WriteString(a.Time.Format(time.RFC3339Nano))
	w.Key("parameters")
	w.StartObject()
	var err error
	a.Parameters.Range(func(k, v any) bool {
		key, _ := k.(string)
		w.Key(key)
		if !serialization.IsSerializable(v) {
			w.WriteNull()
			return true
		}
		err = serialization.WriteValue(w, v)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	w.EndObject()
	w.EndObject()
	return w.Bytes()
}

// Trigger receives core events.
type Trigger func(args Args)
