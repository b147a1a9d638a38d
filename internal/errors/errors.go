package errors

import "fmt"

// ErrorCode represents a Valet error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"
	ErrNoKnownConverter ErrorCode = "NO_KNOWN_CONVERTER"
	ErrNoCapableTool    ErrorCode = "NO_CAPABLE_TOOL"
	ErrToolUnavailable  ErrorCode = "TOOL_UNAVAILABLE"
	ErrConversionFailed ErrorCode = "CONVERSION_FAILED"
	ErrBlocked          ErrorCode = "BLOCKED"
	ErrTimeout          ErrorCode = "TIMEOUT"
	ErrInvalidPlan      ErrorCode = "INVALID_PLAN"
	ErrUnknownAction    ErrorCode = "UNKNOWN_ACTION"
	ErrInternal         ErrorCode = "INTERNAL"
)

// ValetError represents a structured error with code and details.
type ValetError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ValetError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates an error for invalid request parameters.
func NewInvalidRequest(msg string) *ValetError {
	return &ValetError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewFileNotFound creates an error for a missing source file or directory.
func NewFileNotFound(path string) *ValetError {
	return &ValetError{
		Code:    ErrFileNotFound,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNoKnownConverter creates an error for a conversion with no exact or
// category mapping.
func NewNoKnownConverter(sourceExt, target string) *ValetError {
	return &ValetError{
		Code:    ErrNoKnownConverter,
		Message: fmt.Sprintf("don't know how to convert %s -> .%s", sourceExt, target),
		Details: map[string]any{"source_ext": sourceExt, "target": target},
	}
}

// NewNoCapableTool creates an error for a mapping whose tools all reject the
// target format.
func NewNoCapableTool(sourceExt, target string) *ValetError {
	return &ValetError{
		Code:    ErrNoCapableTool,
		Message: fmt.Sprintf("no known tool can convert %s -> .%s", sourceExt, target),
		Details: map[string]any{"source_ext": sourceExt, "target": target},
	}
}

// NewToolUnavailable creates an error for a capable tool that is not
// installed. installable names a tool the caller can offer to install, or is
// empty when no candidate has a known download source.
func NewToolUnavailable(sourceExt, target, installable string) *ValetError {
	e := &ValetError{
		Code:    ErrToolUnavailable,
		Message: fmt.Sprintf("no available tool for %s -> .%s", sourceExt, target),
		Details: map[string]any{"source_ext": sourceExt, "target": target},
	}
	if installable != "" {
		e.Message = fmt.Sprintf("missing tool: %s (install it with 'valet install %s')", installable, installable)
		e.Details["installable"] = installable
	}
	return e
}

// NewConversionFailed creates an error for an adapter whose underlying
// operation errored.
func NewConversionFailed(msg string) *ValetError {
	return &ValetError{
		Code:    ErrConversionFailed,
		Message: msg,
	}
}

// NewBlocked creates an error for a safety-filter veto.
func NewBlocked(reason string) *ValetError {
	return &ValetError{
		Code:    ErrBlocked,
		Message: "dangerous command detected",
		Details: map[string]any{"reason": reason},
	}
}

// NewTimeout creates an error for a command exceeding its wall-clock limit.
func NewTimeout(seconds int) *ValetError {
	return &ValetError{
		Code:    ErrTimeout,
		Message: fmt.Sprintf("timed out (%d second limit)", seconds),
		Details: map[string]any{"limit_seconds": seconds},
	}
}

// NewInvalidPlan creates an error for malformed plan JSON.
func NewInvalidPlan(msg string) *ValetError {
	return &ValetError{
		Code:    ErrInvalidPlan,
		Message: msg,
	}
}

// NewUnknownAction creates an error for a plan action outside the known set.
func NewUnknownAction(action string) *ValetError {
	return &ValetError{
		Code:    ErrUnknownAction,
		Message: fmt.Sprintf("unknown action: %s", action),
		Details: map[string]any{"action": action},
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *ValetError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ValetError{
		Code:    ErrInternal,
		Message: msg,
	}
}

// Is checks if an error is a ValetError with the given code.
func Is(err error, code ErrorCode) bool {
	if vErr, ok := err.(*ValetError); ok {
		return vErr.Code == code
	}
	return false
}
