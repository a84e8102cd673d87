// Package inferr defines the typed failure taxonomy shared by the inference
// core. Every component creates errors through the constructors here and the
// HTTP boundary alone translates kinds into status codes.
package inferr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the failure categories.
type Kind int

const (
	// KindValidation: malformed or incomplete request (client error).
	KindValidation Kind = iota
	// KindUnsupportedTask: unknown task or task/engine mismatch (client error).
	KindUnsupportedTask
	// KindModelNotFound: named model does not resolve (not found).
	KindModelNotFound
	// KindResourceNotFound: generic missing dependency (not found).
	KindResourceNotFound
	// KindModelLoad: model exists but failed to load (server error).
	KindModelLoad
	// KindExecution: failure during preprocess/run/postprocess (server error).
	KindExecution
	// KindEngine: backend failure not otherwise classified (server error).
	KindEngine
	// KindResourceExhausted: capacity or memory limits hit (retryable).
	KindResourceExhausted
)

// String returns the stable external name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindUnsupportedTask:
		return "UnsupportedTaskError"
	case KindModelNotFound:
		return "ModelNotFoundError"
	case KindResourceNotFound:
		return "ResourceNotFoundError"
	case KindModelLoad:
		return "ModelLoadError"
	case KindExecution:
		return "InferenceExecutionError"
	case KindEngine:
		return "EngineError"
	case KindResourceExhausted:
		return "ResourceExhaustedError"
	default:
		return "InferenceError"
	}
}

// Context carries optional request identifiers attached at the failure site.
type Context struct {
	Task      string
	Engine    string
	ModelName string
}

// Error is the tagged inference failure. It is created at the point of
// failure and propagated unchanged until the service boundary.
type Error struct {
	Kind  Kind
	Msg   string
	Ctx   Context
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Msg + ": " + e.cause.Error()
	}
	return e.Msg
}

// Unwrap exposes the original cause for diagnostics.
func (e *Error) Unwrap() error { return e.cause }

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind preserving cause. If cause is
// already an *Error it is returned unchanged so known kinds are never
// re-classified on their way up.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	var ie *Error
	if errors.As(cause, &ie) {
		return cause
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), cause: cause}
}

// WithContext returns e with task/engine/model identifiers filled in where
// they were previously empty.
func (e *Error) WithContext(task, engine, model string) *Error {
	if e.Ctx.Task == "" {
		e.Ctx.Task = task
	}
	if e.Ctx.Engine == "" {
		e.Ctx.Engine = engine
	}
	if e.Ctx.ModelName == "" {
		e.Ctx.ModelName = model
	}
	return e
}

// KindOf reports the kind of err, or (0, false) when err is not an inference
// error.
func KindOf(err error) (Kind, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is an inference error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// IsUnsupportedTask reports whether err rejects a task/engine combination.
func IsUnsupportedTask(err error) bool { return IsKind(err, KindUnsupportedTask) }

// IsModelNotFound reports whether err indicates an unresolved model name.
func IsModelNotFound(err error) bool { return IsKind(err, KindModelNotFound) }

// IsModelLoad reports whether err indicates a failed model load.
func IsModelLoad(err error) bool { return IsKind(err, KindModelLoad) }

// IsExecution reports whether err indicates a pipeline execution failure.
func IsExecution(err error) bool { return IsKind(err, KindExecution) }

// IsEngine reports whether err is a backend engine failure.
func IsEngine(err error) bool { return IsKind(err, KindEngine) }

// IsResourceExhausted reports whether err indicates exhausted capacity.
func IsResourceExhausted(err error) bool { return IsKind(err, KindResourceExhausted) }

// HTTPStatus maps an error to the status code the boundary should return.
// Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	k, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch k {
	case KindValidation, KindUnsupportedTask:
		return http.StatusBadRequest
	case KindModelNotFound, KindResourceNotFound:
		return http.StatusNotFound
	case KindResourceExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// TypeName returns the stable external kind name for err, or
// "UnexpectedError" when err carries no kind.
func TypeName(err error) string {
	k, ok := KindOf(err)
	if !ok {
		return "UnexpectedError"
	}
	return k.String()
}
