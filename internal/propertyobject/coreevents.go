package propertyobject

import "github.com/openDAQ/openDAQ-sub004/internal/coreevent"

// SetCoreEventTrigger installs the relay callback on the object and its
// children.
func (o *Object) SetCoreEventTrigger(t coreevent.Trigger) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attach(o.owner, o.path, t, o.coreMuted)
}

// EnableCoreEventTrigger unmutes core events on the object and its
// children.
func (o *Object) EnableCoreEventTrigger() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attach(o.owner, o.path, o.coreTrigger, false)
}

// DisableCoreEventTrigger mutes core events on the object and its
// children.
func (o *Object) DisableCoreEventTrigger() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attach(o.owner, o.path, o.coreTrigger, true)
}

// CoreEventsMuted reports whether core events are muted.
func (o *Object) CoreEventsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.coreMuted
}

// emitCoreEvent forwards an event to the relay. Caller holds o.mu.
func (o *Object) emitCoreEvent(id coreevent.ID, kv ...any) {
	if o.coreMuted || o.coreTrigger == nil {
		return
	}
	o.coreTrigger(coreevent.NewArgs(id, o.path, kv...))
}
