package model

import "errors"

// Sentinel errors for programmatic handling. Operations wrap them with the
// offending id; callers match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid reference")
	ErrCyclicMove       = errors.New("cyclic move")
	ErrImmutableRoot    = errors.New("root folder is immutable")
	ErrValidation       = errors.New("validation error")
	ErrCycleDetected    = errors.New("cycle detected")
)

// ErrorKind maps err onto its taxonomy name, or "Internal" when err is not
// one of the sentinel errors.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInvalidReference):
		return "InvalidReference"
	case errors.Is(err, ErrCyclicMove):
		return "CyclicMove"
	case errors.Is(err, ErrImmutableRoot):
		return "ImmutableRoot"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrCycleDetected):
		return "CycleDetected"
	default:
		return "Internal"
	}
}
