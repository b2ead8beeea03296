package status

import "errors"

// Error taxonomy shared by every property-object operation.
//
// Operations return these sentinels wrapped with context, so callers check
// them with errors.Is():
//
//	if errors.Is(err, status.ErrFrozen) {
//	    // object no longer accepts mutation
//	}
//
// ErrIgnored is a soft success: the call was valid but had no effect.
// Use IsSuccess to treat it as success.
var (
	// ErrArgumentNull is returned when a required argument is nil or empty.
	ErrArgumentNull = errors.New("argument is null")

	// ErrNotFound is returned for unknown properties, classes or selection keys.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when adding a name that is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAccessDenied is returned when writing a read-only or object-typed
	// property without protected access.
	ErrAccessDenied = errors.New("access denied")

	// ErrFrozen is returned by every mutator of a frozen object.
	ErrFrozen = errors.New("object is frozen")

	// ErrInvalidType is returned on container, selection, struct or
	// enumeration type mismatches and failed conversions.
	ErrInvalidType = errors.New("invalid type")

	// ErrInvalidParameter is returned for malformed arguments such as a bad
	// list index suffix.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrOutOfRange is returned when a list index is outside the list.
	ErrOutOfRange = errors.New("out of range")

	// ErrInvalidState is returned by an unbalanced EndUpdate.
	ErrInvalidState = errors.New("invalid state")

	// ErrGeneral marks an unexpected internal failure.
	ErrGeneral = errors.New("general error")

	// ErrIgnored reports a valid call that changed nothing.
	ErrIgnored = errors.New("ignored")

	// ErrNoInterface is returned when a value lacks a queried capability.
	ErrNoInterface = errors.New("interface not supported")

	// ErrCoerceFailed is returned when a property coercer rejects a value.
	ErrCoerceFailed = errors.New("coercion failed")

	// ErrValidateFailed is returned when a property validator rejects a value.
	ErrValidateFailed = errors.New("validation failed")
)
