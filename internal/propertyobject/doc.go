// Package propertyobject implements the property object: a container of
// typed, named properties whose values are resolved, validated, coerced,
// clamped, batched and observed through one write pipeline.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                            Object                                    │
//	│                                                                      │
//	│  ┌───────────────┐   ┌────────────────┐   ┌────────────────────┐     │
//	│  │  Resolution   │   │ Write pipeline │   │    Transactions    │     │
//	│  │ (resolve.go)  │──▶│  (values.go)   │◀──│    (update.go)     │     │
//	│  │               │   │                │   │                    │     │
//	│  │ • class chain │   │ • convert      │   │ • Begin/EndUpdate  │     │
//	│  │ • dotted path │   │ • coerce       │   │ • ordered replay   │     │
//	│  │ • references  │   │ • validate     │   │ • EndUpdate event  │     │
//	│  └───────────────┘   │ • clamp        │   └────────────────────┘     │
//	│                      │ • events       │                              │
//	│                      └────────────────┘                              │
//	│           │                   │                     │                │
//	└───────────│───────────────────│─────────────────────│────────────────┘
//	            ▼                   ▼                     ▼
//	   schema.TypeManager    coreevent.Trigger    serialization (JSON)
//
// # Key Types
//
//   - Object: the property container
//   - Event: a handler list for value reads, writes and transaction ends
//   - PropertyValueEventArgs: what read and write handlers see and may replace
//   - Hooks: extension points for derived objects
//
// # Values
//
// Overrides are stored per property; a property without an override reads
// its descriptor default. Object-typed properties always hold a live child
// object, created from the default when the property is added or the class
// instantiated. Lists, dictionaries and structs are deep-copied on the way
// in and on the way out; child objects are returned live.
//
// # Thread Safety
//
// Every Object has a reentrant config lock: the goroutine holding it may
// call back into the same object from an event handler. A second,
// non-reentrant lock guards the value table for ReadFast.
package propertyobject
