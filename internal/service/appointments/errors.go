package appointments

import (
	"context"
	"errors"
	"fmt"

	"shopbook/backend/internal/store"
)

var (
	ErrMalformedInput    = errors.New("malformed input")
	ErrInvalidOrdering   = errors.New("invalid ordering")
	ErrDurationViolation = errors.New("duration violation")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrForbidden         = errors.New("forbidden")
	ErrStoreFailure      = errors.New("store failure")

	ErrNotFound            = store.ErrNotFound
	ErrIdempotencyConflict = store.ErrIdempotencyConflict
)

// ValidationError is returned for input rejected before any write. Its
// kind is one of ErrMalformedInput, ErrInvalidOrdering,
// ErrDurationViolation or ErrInvalidTransition.
type ValidationError struct {
	kind error
	msg  string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}

func (e *ValidationError) Kind() error {
	return e.kind
}

func validationError(kind error, msg string) error {
	return &ValidationError{kind: kind, msg: msg}
}

type CapacityError struct {
	Capacity    int
	Overlapping int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("No available slots for this time. The store can only handle %d appointments at the same time.", e.Capacity)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// StoreError wraps a persistence failure. It is never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

// classify passes scheduling outcomes through and wraps everything else as
// a store failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrIdempotencyConflict):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &StoreError{Op: op, Err: err}
}
