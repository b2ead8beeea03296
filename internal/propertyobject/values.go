package propertyobject

import (
	"errors"
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/coreevent"
	"github.com/openDAQ/openDAQ-sub004/internal/eval"
	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// writeMode carries the flags of one pass through the write pipeline.
type writeMode struct {
	protected  bool // bypass read-only and object-type checks
	batch      bool // buffer while a transaction is open
	isUpdating bool // replaying a transaction: no per-write core events
	depth      int  // reference hops taken so far
}

// GetPropertyValue returns the value of name: the override, or else the
// default. Dotted names resolve through child objects and "list[i]"
// selects a list element. References are followed. Read handlers may
// replace the returned value.
func (o *Object) GetPropertyValue(name string) (any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.getValue(name, 0, true)
}

// getValue is the read path. Caller holds o.mu.
func (o *Object) getValue(name string, depth int, fireRead bool) (any, error) {
	pp, err := parsePath(name)
	if err != nil {
		return nil, err
	}
	if pp.rest != "" {
		child, err := o.childObject(pp.head, depth)
		if err != nil {
			return nil, err
		}
		child.mu.Lock()
		defer child.mu.Unlock()
		return child.getValue(pp.rest, 0, fireRead)
	}

	p, err := o.lookup(pp.head)
	if err != nil {
		return nil, err
	}
	if p.IsReference() {
		target, err := referenceTarget(p, depth)
		if err != nil {
			return nil, err
		}
		return o.getValue(pp.withIndex(target), depth+1, fireRead)
	}

	v := o.currentValue(p)
	if e, ok := v.(*eval.Value); ok {
		if v, err = o.evaluate(e, depth); err != nil {
			return nil, err
		}
	}
	if pp.hasIndex {
		list, ok := v.(value.List)
		if !ok {
			return nil, fmt.Errorf("%w: property %q is not a list", status.ErrInvalidType, pp.head)
		}
		if pp.index >= len(list) {
			return nil, fmt.Errorf("%w: index %d of %q", status.ErrOutOfRange, pp.index, pp.head)
		}
		v = list[pp.index]
	}

	if fireRead {
		args := &PropertyValueEventArgs{Property: p, Kind: ChangeRead, value: v}
		if ev, ok := o.readEvents[p.Name()]; ok {
			ev.trigger(o, args)
		}
		o.anyRead.trigger(o, args)
		v = args.value
	}
	return exportValue(v), nil
}

// evaluate resolves an expression stored as a value.
func (o *Object) evaluate(e *eval.Value, depth int) (any, error) {
	res, err := e.Eval(o)
	if err != nil {
		return nil, err
	}
	if ref, ok := res.(eval.Reference); ok {
		if depth >= maxReferenceDepth {
			return nil, fmt.Errorf("%w: expression %q nests too deep", status.ErrInvalidState, e.Expression())
		}
		return o.getValue(ref.Name, depth+1, false)
	}
	return res, nil
}

// exportValue copies containers handed out to callers. Child objects are
// returned live.
func exportValue(v any) any {
	switch x := v.(type) {
	case *Object:
		return x
	case value.List, *value.Dict, *value.Struct:
		return value.Clone(x)
	}
	return v
}

// GetPropertySelectionValue returns the selection entry the value of a
// selection property points at.
func (o *Object) GetPropertySelectionValue(name string) (any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.resolveDescriptor(name)
	if err != nil {
		return nil, err
	}
	if !p.IsSelection() {
		return nil, fmt.Errorf("%w: property %q is not a selection", status.ErrInvalidType, name)
	}
	idx, err := o.getValue(name, 0, true)
	if err != nil {
		return nil, err
	}
	sel, err := p.SelectionValues()
	if err != nil {
		return nil, err
	}
	switch s := sel.(type) {
	case value.List:
		i, ok := value.ToInt(idx)
		if !ok || i < 0 || i >= int64(len(s)) {
			return nil, fmt.Errorf("%w: selection index %v of %q", status.ErrOutOfRange, idx, name)
		}
		return value.Clone(s[i]), nil
	case *value.Dict:
		v, ok := s.Get(idx)
		if !ok {
			return nil, fmt.Errorf("%w: selection key %v of %q", status.ErrNotFound, idx, name)
		}
		return value.Clone(v), nil
	}
	return nil, fmt.Errorf("%w: selection values of %q are %T", status.ErrInvalidType, name, sel)
}

// resolveDescriptor returns the descriptor name finally resolves to,
// following dotted paths and references. Caller holds o.mu.
func (o *Object) resolveDescriptor(name string) (*property.Property, error) {
	target, p := o, (*property.Property)(nil)
	for depth := 0; ; depth++ {
		pp, err := parsePath(name)
		if err != nil {
			return nil, err
		}
		if pp.rest != "" {
			child, err := target.childObject(pp.head, depth)
			if err != nil {
				return nil, err
			}
			child.mu.Lock()
			defer child.mu.Unlock()
			target, name = child, pp.rest
			continue
		}
		if p, err = target.lookup(pp.head); err != nil {
			return nil, err
		}
		if !p.IsReference() {
			return p, nil
		}
		next, err := referenceTarget(p, depth)
		if err != nil {
			return nil, err
		}
		name = next
	}
}

// SetPropertyValue writes name through the full pipeline. Read-only and
// object-typed properties are rejected with ErrAccessDenied. While a
// transaction is open the write is buffered and replayed by EndUpdate.
// Writing the current value returns ErrIgnored.
func (o *Object) SetPropertyValue(name string, v any) error {
	return o.setValue(name, v, writeMode{batch: true})
}

// SetProtectedPropertyValue writes name, bypassing the read-only and
// object-type checks.
func (o *Object) SetProtectedPropertyValue(name string, v any) error {
	return o.setValue(name, v, writeMode{protected: true, batch: true})
}

func (o *Object) setValue(name string, v any, m writeMode) error {
	if name == "" {
		return fmt.Errorf("%w: property name", status.ErrArgumentNull)
	}
	if v == nil {
		return fmt.Errorf("%w: value of %q", status.ErrArgumentNull, name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.frozen {
		return fmt.Errorf("%w: cannot set %q", status.ErrFrozen, name)
	}

	pp, err := parsePath(name)
	if err != nil {
		return err
	}
	if pp.rest != "" {
		child, err := o.childObject(pp.head, m.depth)
		if err != nil {
			return err
		}
		m.depth = 0
		return child.setValue(pp.rest, v, m)
	}

	p, err := o.lookup(pp.head)
	if err != nil {
		return err
	}
	if p.IsReference() {
		target, err := referenceTarget(p, m.depth)
		if err != nil {
			return err
		}
		m.depth++
		return o.setValue(pp.withIndex(target), v, m)
	}

	if err := checkAccess(p, m); err != nil {
		return err
	}
	if m.batch && o.updateCount > 0 {
		o.pending = append(o.pending, pendingAction{name: name, value: value.Clone(value.Normalize(v)), protected: m.protected})
		return nil
	}
	return o.writeValue(p, pp, v, m)
}

// checkAccess rejects unprotected writes to read-only and object-typed
// properties.
func checkAccess(p *property.Property, m writeMode) error {
	if m.protected {
		return nil
	}
	if p.ReadOnly() {
		return fmt.Errorf("%w: property %q is read-only", status.ErrAccessDenied, p.Name())
	}
	if p.ValueType() == value.CTObject {
		return fmt.Errorf("%w: object property %q can only be set through a protected write", status.ErrAccessDenied, p.Name())
	}
	return nil
}

// writeValue validates, stores and announces a new value. Caller holds
// o.mu.
func (o *Object) writeValue(p *property.Property, pp propertyPath, v any, m writeMode) error {
	name := p.Name()
	if err := checkAccess(p, m); err != nil {
		return err
	}

	v = value.Normalize(v)
	if pp.hasIndex {
		list, ok := value.Clone(o.currentValue(p)).(value.List)
		if !ok {
			return fmt.Errorf("%w: property %q is not a list", status.ErrInvalidType, name)
		}
		if pp.index >= len(list) {
			return fmt.Errorf("%w: index %d of %q", status.ErrOutOfRange, pp.index, name)
		}
		list[pp.index] = v
		v = list
	}

	newValue, err := o.prepareValue(p, v)
	if err != nil {
		return err
	}

	old, overridden := o.values[name]
	current := old
	if !overridden {
		current = p.RawDefault()
	}
	if value.Equal(current, newValue) {
		if c, ok := newValue.(*Object); ok {
			releaseChild(c)
		}
		return status.ErrIgnored
	}

	o.store(name, old, newValue)

	args := &PropertyValueEventArgs{Property: p, Kind: ChangeUpdate, IsUpdating: m.isUpdating, value: newValue}
	o.fireWrite(name, args)
	if args.replaced && !value.Equal(args.value, newValue) {
		replacement, err := o.prepareValue(p, args.value)
		if err != nil {
			return fmt.Errorf("write handler of %q: %w", name, err)
		}
		o.store(name, newValue, replacement)
		newValue = replacement
	}

	if !m.isUpdating {
		o.emitCoreEvent(coreevent.PropertyValueChanged,
			coreevent.ParamName, name,
			coreevent.ParamValue, newValue)
	}
	return nil
}

// store replaces the value of name, relinking child objects.
func (o *Object) store(name string, old, v any) {
	if oc, ok := old.(*Object); ok && oc != v {
		releaseChild(oc)
	}
	if c, ok := v.(*Object); ok {
		o.adoptChild(name, c)
		return
	}
	o.storeValue(name, v)
}

// prepareValue converts and checks v against p, runs the coercer and
// validator, clamps numbers and copies containers. Caller holds o.mu.
func (o *Object) prepareValue(p *property.Property, v any) (any, error) {
	v = value.Normalize(v)
	if e, ok := v.(*eval.Value); ok {
		return e, nil
	}

	name := p.Name()
	switch vt := p.ValueType(); vt {
	case value.CTUndefined:
	case value.CTEnumeration:
		et := p.EnumerationType()
		if et == nil {
			return nil, fmt.Errorf("%w: property %q has no enumeration type", status.ErrInvalidType, name)
		}
		enum, err := et.Enumerate(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		v = enum
	case value.CTObject:
		if _, ok := v.(*Object); !ok {
			return nil, fmt.Errorf("%w: property %q holds objects, got %T", status.ErrInvalidType, name, v)
		}
	default:
		converted, err := value.Convert(v, vt)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		v = converted
	}

	switch x := v.(type) {
	case value.List:
		if !x.ItemTypes(p.ItemType()) {
			return nil, fmt.Errorf("%w: items of %q must be %s", status.ErrInvalidType, name, p.ItemType())
		}
	case *value.Dict:
		if !x.Types(p.KeyType(), p.ItemType()) {
			return nil, fmt.Errorf("%w: entries of %q must be %s: %s", status.ErrInvalidType, name, p.KeyType(), p.ItemType())
		}
	case *value.Struct:
		if want := p.StructTypeName(); want != "" && x.TypeName() != want {
			return nil, fmt.Errorf("%w: property %q holds %s structs, got %s", status.ErrInvalidType, name, want, x.TypeName())
		}
	}

	if p.IsSelection() {
		if err := checkSelection(p, v); err != nil {
			return nil, err
		}
	}

	if c := p.Coercer(); c != nil {
		coerced, err := c.Coerce(o, v)
		if err != nil {
			return nil, fmt.Errorf("%w: property %q: %w", status.ErrCoerceFailed, name, err)
		}
		v = value.Normalize(coerced)
	}
	if val := p.Validator(); val != nil {
		if err := val.Validate(o, v); err != nil {
			return nil, fmt.Errorf("%w: property %q: %w", status.ErrValidateFailed, name, err)
		}
	}

	if p.ValueType().IsNumeric() {
		clamped, err := clamp(p, v)
		if err != nil {
			return nil, err
		}
		v = clamped
	}

	switch x := v.(type) {
	case *Object:
		return x.clone(true), nil
	case value.List, *value.Dict, *value.Struct:
		return value.Clone(x), nil
	}
	return v, nil
}

func checkSelection(p *property.Property, v any) error {
	sel, err := p.SelectionValues()
	if err != nil {
		return err
	}
	switch s := sel.(type) {
	case value.List:
		i, ok := value.ToInt(v)
		if !ok || i < 0 || i >= int64(len(s)) {
			return fmt.Errorf("%w: %v is not a selection index of %q", status.ErrNotFound, v, p.Name())
		}
	case *value.Dict:
		if !s.Has(v) {
			return fmt.Errorf("%w: %v is not a selection key of %q", status.ErrNotFound, v, p.Name())
		}
	}
	return nil
}

// clamp limits numeric values to the property bounds.
func clamp(p *property.Property, v any) (any, error) {
	lo, err := p.MinValue()
	if err != nil {
		return nil, err
	}
	hi, err := p.MaxValue()
	if err != nil {
		return nil, err
	}
	bound := v
	if c, ok := value.Compare(v, lo); lo != nil && ok && c < 0 {
		bound = lo
	} else if c, ok := value.Compare(v, hi); hi != nil && ok && c > 0 {
		bound = hi
	}
	if bound == v {
		return v, nil
	}
	return value.Convert(bound, p.ValueType())
}

// ClearPropertyValue removes the override of name so the default applies
// again. Object-typed properties get a fresh copy of their default object.
// Clearing a value equal to the default returns ErrIgnored.
func (o *Object) ClearPropertyValue(name string) error {
	return o.clearValue(name, writeMode{batch: true})
}

// ClearProtectedPropertyValue clears name, bypassing the read-only check.
func (o *Object) ClearProtectedPropertyValue(name string) error {
	return o.clearValue(name, writeMode{protected: true, batch: true})
}

func (o *Object) clearValue(name string, m writeMode) error {
	if name == "" {
		return fmt.Errorf("%w: property name", status.ErrArgumentNull)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.frozen {
		return fmt.Errorf("%w: cannot clear %q", status.ErrFrozen, name)
	}

	pp, err := parsePath(name)
	if err != nil {
		return err
	}
	if pp.hasIndex {
		return fmt.Errorf("%w: cannot clear list element %q", status.ErrInvalidParameter, name)
	}
	if pp.rest != "" {
		child, err := o.childObject(pp.head, m.depth)
		if err != nil {
			return err
		}
		m.depth = 0
		return child.clearValue(pp.rest, m)
	}

	p, err := o.lookup(pp.head)
	if err != nil {
		return err
	}
	if p.IsReference() {
		target, err := referenceTarget(p, m.depth)
		if err != nil {
			return err
		}
		m.depth++
		return o.clearValue(target, m)
	}

	if !m.protected && p.ReadOnly() {
		return fmt.Errorf("%w: property %q is read-only", status.ErrAccessDenied, name)
	}
	if m.batch && o.updateCount > 0 {
		o.pending = append(o.pending, pendingAction{name: name, clear: true, protected: m.protected})
		return nil
	}
	return o.removeValue(p, m)
}

// removeValue drops the override of p. Caller holds o.mu.
func (o *Object) removeValue(p *property.Property, m writeMode) error {
	name := p.Name()
	if !m.protected && p.ReadOnly() {
		return fmt.Errorf("%w: property %q is read-only", status.ErrAccessDenied, name)
	}

	old, overridden := o.values[name]
	if !overridden {
		return status.ErrIgnored
	}
	def := p.RawDefault()
	if value.Equal(old, def) {
		if _, isObject := old.(*Object); !isObject {
			o.deleteValue(name)
		}
		return status.ErrIgnored
	}

	if defObj, ok := def.(*Object); ok && defObj != nil {
		releaseChild(old)
		o.adoptChild(name, defObj.Clone())
	} else {
		releaseChild(old)
		o.deleteValue(name)
	}

	args := &PropertyValueEventArgs{Property: p, Kind: ChangeClear, IsUpdating: m.isUpdating}
	o.fireWrite(name, args)

	if !m.isUpdating {
		o.emitCoreEvent(coreevent.PropertyValueChanged,
			coreevent.ParamName, name,
			coreevent.ParamValue, o.currentValue(p))
	}
	return nil
}

func (o *Object) fireWrite(name string, args *PropertyValueEventArgs) {
	if ev, ok := o.writeEvents[name]; ok {
		ev.trigger(o, args)
	}
	o.anyWrite.trigger(o, args)
}

// ReadFast returns the raw value of a local or class property under the
// non-reentrant sync lock only. It skips references, expressions, read
// handlers and copying; callers must not modify returned containers.
func (o *Object) ReadFast(name string) (any, error) {
	o.syncMu.Lock()
	v, ok := o.values[name]
	p, local := o.localProps[name]
	o.syncMu.Unlock()
	if ok {
		return v, nil
	}
	if local {
		return p.RawDefault(), nil
	}
	if o.className == "" || o.typeManager == nil {
		return nil, fmt.Errorf("%w: property %q", status.ErrNotFound, name)
	}
	cp, err := o.typeManager.ClassProperty(o.className, name)
	if err != nil {
		return nil, err
	}
	return cp.RawDefault(), nil
}

// IsIgnored reports whether err is the soft ErrIgnored outcome.
func IsIgnored(err error) bool { return errors.Is(err, status.ErrIgnored) }
