package propertyobject

import (
	"fmt"
	"sync"

	"github.com/openDAQ/openDAQ-sub004/internal/coreevent"
	"github.com/openDAQ/openDAQ-sub004/internal/permission"
	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/schema"
	"github.com/openDAQ/openDAQ-sub004/internal/serialization"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// Logger defines the logging interface used by objects.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Hooks let types built on Object take part in transactions and
// serialization. Nil hooks are skipped.
type Hooks struct {
	// BeginApplyUpdate runs once before buffered writes are replayed.
	BeginApplyUpdate func(o *Object)
	// SerializeCustomValues writes extra keys into the object's snapshot.
	SerializeCustomValues func(o *Object, w serialization.Writer) error
	// DeserializeCustomValues reads the keys SerializeCustomValues wrote.
	DeserializeCustomValues func(o *Object, d *serialization.Decoder, so *serialization.SerializedObject) error
}

// Option configures an Object.
type Option func(*Object)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(o *Object) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTypeManager sets the type manager used to resolve the class,
// structs and enumerations.
func WithTypeManager(tm *schema.TypeManager) Option {
	return func(o *Object) { o.typeManager = tm }
}

// WithHooks installs extension hooks.
func WithHooks(h Hooks) Option {
	return func(o *Object) { o.hooks = h }
}

// WithPermissions sets the object's own permission configuration.
func WithPermissions(cfg permission.Config) Option {
	return func(o *Object) { o.permissions.SetPermissions(cfg) }
}

// WithCoreEventTrigger sets the core event relay callback. Core events stay
// muted until EnableCoreEventTrigger.
func WithCoreEventTrigger(t coreevent.Trigger) Option {
	return func(o *Object) { o.coreTrigger = t }
}

// pendingAction is one buffered write or clear.
type pendingAction struct {
	name      string
	value     any
	clear     bool
	protected bool
}

// Object is a property object.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Object struct {
	mu     recursiveMutex
	syncMu sync.Mutex // guards localProps and values for ReadFast

	className   string
	typeManager *schema.TypeManager
	logger      Logger
	hooks       Hooks

	localProps  map[string]*property.Property // bound descriptors
	localOrder  []string
	values      map[string]any
	valueOrder  []string
	customOrder []string

	frozen      bool
	updateCount int
	pending     []pendingAction

	writeEvents map[string]*Event[*PropertyValueEventArgs]
	readEvents  map[string]*Event[*PropertyValueEventArgs]
	anyWrite    *Event[*PropertyValueEventArgs]
	anyRead     *Event[*PropertyValueEventArgs]
	endUpdate   *Event[*EndUpdateEventArgs]

	permissions *permission.Manager

	owner       *Object
	path        string
	coreTrigger coreevent.Trigger
	coreMuted   bool
}

// New creates an object without a class.
func New(opts ...Option) *Object {
	o := &Object{
		logger:      noopLogger{},
		localProps:  make(map[string]*property.Property),
		values:      make(map[string]any),
		writeEvents: make(map[string]*Event[*PropertyValueEventArgs]),
		readEvents:  make(map[string]*Event[*PropertyValueEventArgs]),
		anyWrite:    newEvent[*PropertyValueEventArgs](),
		anyRead:     newEvent[*PropertyValueEventArgs](),
		endUpdate:   newEvent[*EndUpdateEventArgs](),
		permissions: permission.NewManager(nil),
		coreMuted:   true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewWithClass creates an instance of className. The class chain supplies
// the properties; object-typed class properties get a fresh copy of their
// default object.
func NewWithClass(tm *schema.TypeManager, className string, opts ...Option) (*Object, error) {
	if tm == nil {
		return nil, fmt.Errorf("%w: type manager", status.ErrArgumentNull)
	}
	if className == "" {
		return nil, fmt.Errorf("%w: class name", status.ErrArgumentNull)
	}
	props, err := tm.ClassProperties(className)
	if err != nil {
		return nil, err
	}

	o := New(append(opts, WithTypeManager(tm))...)
	o.className = className
	for _, p := range props {
		if def, ok := p.RawDefault().(*Object); ok && def != nil {
			o.adoptChild(p.Name(), def.Clone())
		}
	}
	return o, nil
}

// ClassName returns the class name, or "" for classless objects.
func (o *Object) ClassName() string { return o.className }

// TypeManager returns the type manager, which may be nil.
func (o *Object) TypeManager() *schema.TypeManager { return o.typeManager }

// Permissions returns the object's permission manager.
func (o *Object) Permissions() *permission.Manager { return o.permissions }

// SetLogger sets the logger.
func (o *Object) SetLogger(l Logger) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if l != nil {
		o.logger = l
	}
}

// Owner returns the object holding this one as a property value.
func (o *Object) Owner() *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.owner
}

// Path returns the dotted path from the root object.
func (o *Object) Path() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.path
}

// SetPath assigns the path of a root object. Children follow.
func (o *Object) SetPath(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attach(o.owner, path, o.coreTrigger, o.coreMuted)
}

// IsFrozen reports whether the object is frozen.
func (o *Object) IsFrozen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frozen
}

// IsUpdating reports whether a transaction is open.
func (o *Object) IsUpdating() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.updateCount > 0
}

// CoreType implements value.Typed.
func (o *Object) CoreType() value.CoreType { return value.CTObject }

// PropertyValue implements property.Owner.
func (o *Object) PropertyValue(name string) (any, error) {
	return o.GetPropertyValue(name)
}

// qualify returns the path of property name of this object.
func (o *Object) qualify(name string) string {
	if o.path == "" {
		return name
	}
	return o.path + "." + name
}

// children returns the child objects held as values. Caller holds o.mu.
func (o *Object) children() map[string]*Object {
	out := make(map[string]*Object)
	for name, v := range o.values {
		if c, ok := v.(*Object); ok {
			out[name] = c
		}
	}
	return out
}

// adoptChild stores child as the value of name and links it to o. Caller
// holds o.mu (or owns o exclusively during construction).
func (o *Object) adoptChild(name string, child *Object) {
	child.mu.Lock()
	child.attach(o, o.qualify(name), o.coreTrigger, o.coreMuted)
	child.mu.Unlock()
	o.storeValue(name, child)
}

// releaseChild unlinks a child that is no longer a value of o.
func releaseChild(v any) {
	c, ok := v.(*Object)
	if !ok {
		return
	}
	c.mu.Lock()
	c.attach(nil, "", nil, true)
	c.mu.Unlock()
}

// attach sets the owner, path and relay of o and its children. Caller
// holds o.mu.
func (o *Object) attach(owner *Object, path string, trigger coreevent.Trigger, muted bool) {
	o.owner = owner
	o.path = path
	o.coreTrigger = trigger
	o.coreMuted = muted
	if owner != nil {
		o.permissions.SetParent(owner.permissions)
	} else {
		o.permissions.SetParent(nil)
	}
	for name, c := range o.children() {
		c.mu.Lock()
		c.attach(o, o.qualify(name), trigger, muted)
		c.mu.Unlock()
	}
}

func (o *Object) storeValue(name string, v any) {
	o.syncMu.Lock()
	defer o.syncMu.Unlock()
	if _, ok := o.values[name]; !ok {
		o.valueOrder = append(o.valueOrder, name)
	}
	o.values[name] = v
}

func (o *Object) deleteValue(name string) {
	o.syncMu.Lock()
	defer o.syncMu.Unlock()
	if _, ok := o.values[name]; !ok {
		return
	}
	delete(o.values, name)
	o.valueOrder = removeName(o.valueOrder, name)
}

func removeName(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i:i], names[i+1:]...)
		}
	}
	return names
}

// Dispose detaches the object from its owner and releases its children.
// The object stays usable as a root.
func (o *Object) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range o.children() {
		releaseChild(c)
	}
	o.owner = nil
	o.permissions.SetParent(nil)
	o.coreTrigger = nil
}
