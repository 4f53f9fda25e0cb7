// Package errs provides small helpers for annotating errors with the
// operation that produced them while keeping sentinel kinds matchable
// via errors.Is.
package errs

import "fmt"

// Wrap annotates err with the operation name. Returns nil when err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// NewKind creates a new error of the given sentinel kind at an operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags err with a sentinel kind and the operation name so callers
// can match the kind with errors.Is while keeping the original cause.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// Kindf creates a new error of the given sentinel kind with a formatted
// detail message appended.
func Kindf(op string, kind error, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", op, kind, fmt.Sprintf(format, args...))
}
