package propertyobject

import (
	"errors"
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/coreevent"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// BeginUpdate opens a transaction on the object and its children. Writes
// and clears are buffered until the matching EndUpdate. Transactions nest;
// only the outermost EndUpdate applies the buffer.
func (o *Object) BeginUpdate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updateCount++
	for _, c := range o.children() {
		c.BeginUpdate()
	}
}

// EndUpdate closes a transaction. When the outermost transaction ends the
// buffered actions are replayed in the order they were made, children
// first, and one EndUpdate event reports what changed. Replay continues
// past failed actions; their errors are joined into the returned error.
// Calling EndUpdate without an open transaction returns ErrInvalidState.
func (o *Object) EndUpdate() error {
	return o.finishUpdate(false)
}

func (o *Object) finishUpdate(parentUpdating bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.updateCount == 0 {
		return fmt.Errorf("%w: no update in progress", status.ErrInvalidState)
	}
	o.updateCount--
	if o.updateCount > 0 {
		return nil
	}

	if o.hooks.BeginApplyUpdate != nil {
		o.hooks.BeginApplyUpdate(o)
	}

	var errs []error
	for name, c := range o.children() {
		// Children adopted during the transaction never saw BeginUpdate.
		if err := c.finishUpdate(true); err != nil && !errors.Is(err, status.ErrInvalidState) {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	pending := o.pending
	o.pending = nil
	var changed []string
	seen := make(map[string]bool)
	for _, a := range pending {
		var err error
		if a.clear {
			err = o.clearValue(a.name, writeMode{protected: a.protected, isUpdating: true})
		} else {
			err = o.setValue(a.name, a.value, writeMode{protected: a.protected, isUpdating: true})
		}
		switch {
		case err == nil:
			if !seen[a.name] {
				seen[a.name] = true
				changed = append(changed, a.name)
			}
		case errors.Is(err, status.ErrIgnored):
		default:
			o.logger.Debug("buffered write failed", "path", o.qualify(a.name), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
		}
	}

	values := value.NewDict()
	for _, name := range changed {
		v, err := o.getValue(name, 0, false)
		if err != nil {
			continue
		}
		_ = values.Set(name, v)
	}

	o.endUpdate.trigger(o, &EndUpdateEventArgs{
		Properties:     changed,
		Values:         values,
		ParentUpdating: parentUpdating,
	})
	if len(changed) > 0 {
		o.emitCoreEvent(coreevent.PropertyObjectUpdateEnd, coreevent.ParamUpdatedProperties, values)
	}
	return errors.Join(errs...)
}
