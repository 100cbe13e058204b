package meshtopo

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is returned for an index beyond the current count of its level.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrDegenerate is returned for an element referencing the same point twice.
	ErrDegenerate = errors.New("degenerate element")
	// ErrDuplicate is returned for an element that already exists, or an index
	// repeated within one batch.
	ErrDuplicate = errors.New("duplicate element")
	// ErrEmpty is returned when an operation needs elements and the level has none.
	ErrEmpty = errors.New("level is empty")
	// ErrReentrant is returned when an edit is attempted while its journal is propagating.
	ErrReentrant = errors.New("edit during propagation")
	// ErrNotBijection is returned for a renumbering that is not a permutation.
	ErrNotBijection = errors.New("renumbering is not a bijection")
	// ErrNoSharedVertex is returned when two edges to fuse have no common endpoint.
	ErrNoSharedVertex = errors.New("edges share no endpoint")
	// ErrAncestry is returned for ancestry breaking the weight law.
	ErrAncestry = errors.New("invalid ancestry")
	// ErrStale is returned for an index whose source no longer exists.
	ErrStale = errors.New("stale index")
	// ErrInvariant is returned by consistency checks.
	ErrInvariant = errors.New("topology invariant violated")
	// ErrInUse is returned when removing a point still referenced by an element.
	ErrInUse = errors.New("point still referenced")
)

// IndexError records an item skipped by an operation.
//
// The cause can be accessed via errors.Unwrap or matched with errors.Is.
type IndexError struct {
	Op    string
	Level Level
	Index Index
	Err   error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %s %d: %v", e.Op, e.Level, e.Index, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// ItemError returns an *IndexError.
func ItemError(op string, level Level, i Index, err error) error {
	return &IndexError{Op: op, Level: level, Index: i, Err: err}
}

// Invariantf returns an error wrapping ErrInvariant.
func Invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
