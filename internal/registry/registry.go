// Package registry owns the named root property objects served by the
// daemon.
//
// Each root gets a UUID, which is also its core-event path, so events from
// "3f2a...c1.channel.gain" can be traced back to their root. The registry
// keeps roots in memory and persists their serialized form through a
// store.Repository. As a core-event sink it re-saves a root whenever one of
// its events passes through the relay.
//
//	┌──────────┐  Create/Get   ┌──────────┐ Save/List ┌──────────────────┐
//	│ API      │──────────────▶│ Registry │──────────▶│ store.Repository │
//	└──────────┘               └────┬─────┘           └──────────────────┘
//	                                │ trigger (path = id)
//	                                ▼
//	                          ┌───────────┐  Handle    ┌──────────┐
//	                          │ Relay     │───────────▶│ sinks    │
//	                          └───────────┘            └──────────┘
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openDAQ/openDAQ-sub004/internal/coreevent"
	"github.com/openDAQ/openDAQ-sub004/internal/propertyobject"
	"github.com/openDAQ/openDAQ-sub004/internal/schema"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/store"
)

// Registry errors. Check with errors.Is().
var (
	// ErrObjectNotFound is returned for unknown IDs or names.
	ErrObjectNotFound = errors.New("registry: object not found")

	// ErrNameTaken is returned when a name is already used by another root.
	ErrNameTaken = errors.New("registry: name already in use")

	// ErrInvalidName is returned for empty names or names containing dots.
	ErrInvalidName = errors.New("registry: invalid name")
)

// Logger defines the logging interface used by the registry.
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

// Entry is one registered root object.
type Entry struct {
	ID     string
	Name   string
	Object *propertyobject.Object
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used by the registry and passed to objects.
func WithLogger(l Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCoreEventTrigger installs t on every root and unmutes its core
// events.
func WithCoreEventTrigger(t coreevent.Trigger) Option {
	return func(r *Registry) { r.trigger = t }
}

// WithObjectOptions passes extra options to every object the registry
// creates or restores.
func WithObjectOptions(opts ...propertyobject.Option) Option {
	return func(r *Registry) { r.objectOpts = append(r.objectOpts, opts...) }
}

// Registry holds root objects by ID and name.
//
// Thread Safety: all methods are safe for concurrent use. Objects returned
// are live; they carry their own locking.
type Registry struct {
	repo       store.Repository
	types      *schema.TypeManager
	trigger    coreevent.Trigger
	objectOpts []propertyobject.Option
	logger     Logger

	mu      sync.RWMutex
	entries map[string]*Entry
	byName  map[string]string
}

// New creates a registry persisting through repo and resolving classes
// through tm.
func New(repo store.Repository, tm *schema.TypeManager, opts ...Option) *Registry {
	r := &Registry{
		repo:    repo,
		types:   tm,
		logger:  noopLogger{},
		entries: make(map[string]*Entry),
		byName:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TypeManager returns the type manager classes resolve through.
func (r *Registry) TypeManager() *schema.TypeManager { return r.types }

func (r *Registry) options() []propertyobject.Option {
	return append([]propertyobject.Option{propertyobject.WithLogger(r.logger)}, r.objectOpts...)
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, ".[]") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Create instantiates className (or a classless object when className is
// empty), registers it under name and persists it.
func (r *Registry) Create(ctx context.Context, name, className string) (*Entry, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	var obj *propertyobject.Object
	if className == "" {
		obj = propertyobject.New(append(r.options(), propertyobject.WithTypeManager(r.types))...)
	} else {
		var err error
		if obj, err = propertyobject.NewWithClass(r.types, className, r.options()...); err != nil {
			return nil, err
		}
	}
	return r.Add(ctx, name, obj)
}

// Add registers an existing root object under name and persists it.
func (r *Registry) Add(ctx context.Context, name string, obj *propertyobject.Object) (*Entry, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: object", status.ErrArgumentNull)
	}
	if obj.Owner() != nil {
		return nil, fmt.Errorf("%w: object is owned by another object", status.ErrInvalidState)
	}

	e := &Entry{ID: uuid.NewString(), Name: name, Object: obj}
	r.mu.Lock()
	if _, taken := r.byName[name]; taken {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	r.entries[e.ID] = e
	r.byName[name] = e.ID
	r.mu.Unlock()

	r.wire(e)
	if err := r.persist(ctx, e); err != nil {
		r.remove(e)
		return nil, err
	}
	r.logger.Info("object registered", "id", e.ID, "name", name, "class", obj.ClassName())
	return e, nil
}

func (r *Registry) wire(e *Entry) {
	e.Object.SetPath(e.ID)
	if r.trigger != nil {
		e.Object.SetCoreEventTrigger(r.trigger)
		e.Object.EnableCoreEventTrigger()
	}
}

func (r *Registry) remove(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, e.ID)
	delete(r.byName, e.Name)
}

// Get returns the entry with id.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	return e, nil
}

// Lookup resolves an ID or a name.
func (r *Registry) Lookup(idOrName string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[idOrName]; ok {
		return e, nil
	}
	if id, ok := r.byName[idOrName]; ok {
		return r.entries[id], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, idOrName)
}

// List returns every entry ordered by name.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Entry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Len returns the number of registered roots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Delete unregisters and disposes a root and removes its snapshot.
func (r *Registry) Delete(ctx context.Context, id string) error {
	e, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := r.repo.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrSnapshotNotFound) {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	r.remove(e)
	e.Object.DisableCoreEventTrigger()
	e.Object.Dispose()
	r.logger.Info("object deleted", "id", id, "name", e.Name)
	return nil
}

// Clone registers an unfrozen copy of id under name.
func (r *Registry) Clone(ctx context.Context, id, name string) (*Entry, error) {
	e, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return r.Add(ctx, name, e.Object.Clone())
}

// Freeze freezes a root and persists the frozen flag.
func (r *Registry) Freeze(ctx context.Context, id string) error {
	e, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := e.Object.Freeze(); err != nil {
		return err
	}
	return r.persist(ctx, e)
}

// Save persists the current state of a root.
func (r *Registry) Save(ctx context.Context, id string) error {
	e, err := r.Get(id)
	if err != nil {
		return err
	}
	return r.persist(ctx, e)
}

// SaveAll persists every root, returning the joined errors.
func (r *Registry) SaveAll(ctx context.Context) error {
	var errs []error
	for _, e := range r.List() {
		if err := r.persist(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) persist(ctx context.Context, e *Entry) error {
	data, err := propertyobject.Marshal(e.Object, nil)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", e.Name, err)
	}
	err = r.repo.Save(ctx, &store.Snapshot{
		ID:        e.ID,
		Name:      e.Name,
		ClassName: e.Object.ClassName(),
		Data:      data,
		Frozen:    e.Object.IsFrozen(),
	})
	if err != nil {
		return fmt.Errorf("saving %s: %w", e.Name, err)
	}
	return nil
}

// Restore loads every snapshot from the repository, replacing roots with
// the same ID. Snapshots that fail to decode are logged and skipped; the
// count of restored roots is returned.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	snapshots, err := r.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading snapshots: %w", err)
	}

	decoder := propertyobject.NewDecoder(r.types, r.options()...)
	restored := 0
	for _, s := range snapshots {
		obj, err := propertyobject.Unmarshal(decoder, s.Data)
		if err != nil {
			r.logger.Error("restoring object failed", "id", s.ID, "name", s.Name, "error", err)
			continue
		}
		e := &Entry{ID: s.ID, Name: s.Name, Object: obj}
		r.mu.Lock()
		if old, ok := r.entries[s.ID]; ok {
			delete(r.byName, old.Name)
			old.Object.Dispose()
		}
		r.entries[s.ID] = e
		r.byName[s.Name] = s.ID
		r.mu.Unlock()
		r.wire(e)
		restored++
	}
	r.logger.Info("objects restored", "count", restored, "snapshots", len(snapshots))
	return restored, nil
}

// Name implements coreevent.Sink.
func (r *Registry) Name() string { return "registry" }

// Handle implements coreevent.Sink by persisting the root an event came
// from. Events for roots deleted in the meantime are ignored.
func (r *Registry) Handle(ctx context.Context, args coreevent.Args) error {
	id, _, _ := strings.Cut(args.Path, ".")
	e, err := r.Get(id)
	if err != nil {
		return nil
	}
	return r.persist(ctx, e)
}
