package value

import (
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// Function is a callable property value returning a result.
type Function func(args ...any) (any, error)

// Procedure is a callable property value without a result.
type Procedure func(args ...any) error

// Cloneable values produce an independent deep copy of themselves.
type Cloneable interface {
	CloneValue() any
}

// Equatable values compare themselves against another value.
type Equatable interface {
	EqualValue(other any) bool
}

// Freezable values can be made immutable.
type Freezable interface {
	Freeze() error
	IsFrozen() bool
}

// Disposable values hold back-references that must be cleared on teardown.
type Disposable interface {
	Dispose()
}

// Query returns v as capability T, or ErrNoInterface.
func Query[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %T does not implement %T", status.ErrNoInterface, v, (*T)(nil))
	}
	return t, nil
}

// Supports reports whether v implements capability T.
func Supports[T any](v any) bool {
	_, ok := v.(T)
	return ok
}
