package apperror

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AuthMessage is the fixed message of the authentication error.
const AuthMessage = "Authentication needed"

// Error is one entry of a mutation's errors list.
//
// Msg is always set. Type, Loc and Ctx are only filled for structural input
// failures: Type is the machine-readable rule ("min", "required_if", ...),
// Loc the path of the offending input field, Ctx the rule's parameters.
// Authorization and unknown-reference errors carry only Msg.
type Error struct {
	Msg  string         `json:"msg"`
	Type string         `json:"type"`
	Loc  []string       `json:"loc"`
	Ctx  map[string]any `json:"ctx"`
}

// NewError builds a message-only error with empty (never nil) defaults so the
// JSON shape is stable: {"msg": "...", "type": "", "loc": [], "ctx": {}}.
func NewError(msg string) Error {
	return Error{Msg: msg, Loc: []string{}, Ctx: map[string]any{}}
}

// MutationResult is what every mutation returns. No errors means success.
type MutationResult struct {
	Errors []Error `json:"errors"`
}

// Success returns a result with an empty errors list.
func Success() *MutationResult {
	return &MutationResult{Errors: []Error{}}
}

// Fail returns a result carrying the given errors.
func Fail(errs ...Error) *MutationResult {
	if errs == nil {
		errs = []Error{}
	}
	return &MutationResult{Errors: errs}
}

// ValidationError carries a pre-built result from a check to the pipeline.
//
// It is the only error a field's checks raise on purpose. The pipeline unwraps
// it exactly once and returns Result as the field's value; Err tells what kind
// of failure it was (ErrUnauthenticated or ErrValidation) so callers never
// need to compare messages.
type ValidationError struct {
	Result any
	Err    error
}

func (e *ValidationError) Error() string {
	if r, ok := e.Result.(*MutationResult); ok && len(r.Errors) > 0 {
		return r.Errors[0].Msg
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Reject wraps an arbitrary field result as a validation failure.
func Reject(result any) *ValidationError {
	return &ValidationError{Result: result, Err: ErrValidation}
}

// RejectMessage rejects with a single message-only error.
func RejectMessage(msg string) *ValidationError {
	return Reject(Fail(NewError(msg)))
}

// RejectErrors rejects with structured errors, one per offending field.
func RejectErrors(errs []Error) *ValidationError {
	return Reject(Fail(errs...))
}

// AuthRequired is the failure every mutation returns to anonymous callers.
// The auth error is always the only and therefore the first entry.
func AuthRequired() *ValidationError {
	return &ValidationError{
		Result: Fail(NewError(AuthMessage)),
		Err:    ErrUnauthenticated,
	}
}

// UnknownIDs rejects a request that referenced ids the caller does not own.
// The message lists them as "Unknown ids: [3, 7]".
func UnknownIDs(ids []int64) *ValidationError {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return RejectMessage(fmt.Sprintf("Unknown ids: [%s]", strings.Join(parts, ", ")))
}

// IsAuthError reports whether err is the authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// AsValidation extracts a *ValidationError from err's chain.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
