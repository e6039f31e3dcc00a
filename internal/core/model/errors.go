package model

import "errors"

// Error taxonomy for the pipeline. Each variant has a defined recovery:
// security rejections surface to the user, upstream failures resolve to
// fallback text, persistence conflicts retry as updates, and anything
// else is converted to a structured failure at the pipeline boundary.
var (
	ErrSecurityRejected    = errors.New("input rejected by security screening")
	ErrUpstreamUnavailable = errors.New("completion upstream unavailable")
	ErrPersistenceConflict = errors.New("persistence conflict")
	ErrPersistenceFailure  = errors.New("persistence failure")
	ErrSessionNotFound     = errors.New("session not found")
	ErrBusinessNotFound    = errors.New("business not found")
)

// ErrorType maps an error to the wire-level error_type string.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, ErrSecurityRejected):
		return "security_rejection"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrPersistenceConflict):
		return "persistence_conflict"
	case errors.Is(err, ErrPersistenceFailure):
		return "persistence_failure"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrBusinessNotFound):
		return "business_not_found"
	default:
		return "internal_error"
	}
}
