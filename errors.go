package luabridge

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Error kind constants classifying failures reported by the Lua state.
const (
	// ErrorKindRuntime indicates the script raised an error while running.
	ErrorKindRuntime = "runtime_error"

	// ErrorKindSyntax indicates the script source failed to parse.
	ErrorKindSyntax = "syntax_error"

	// ErrorKindFile indicates a script file could not be loaded.
	ErrorKindFile = "file_error"

	// ErrorKindMemory indicates the state exhausted an allocation limit,
	// such as its call stack or registry.
	ErrorKindMemory = "memory_error"

	// ErrorKindErrHandler indicates a failure occurred while the state was
	// already handling an error.
	ErrorKindErrHandler = "error_in_error_handling"

	// ErrorKindUnknown is used when the state reports a failure this
	// package does not recognize.
	ErrorKindUnknown = "unknown_error"
)

// noErrorInfo is the diagnostic used when the state left no error message.
const noErrorInfo = "Sorry, there is no additional information about this error."

// ScriptError is a failure reported by the Lua state, classified by kind
// and carrying the state's own diagnostic message verbatim.
type ScriptError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Wrapped error  `json:"-"`
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying VM error for errors.Is and errors.As.
func (e *ScriptError) Unwrap() error {
	return e.Wrapped
}

// NewScriptError creates a ScriptError with the given kind and message.
func NewScriptError(kind, message string) *ScriptError {
	return &ScriptError{Kind: kind, Message: message}
}

// TypeMismatchError is raised by a typed accessor when the active variant
// of a Value does not match the one requested.
type TypeMismatchError struct {
	Expected string
	Found    string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: '%s' was expected but '%s' was found", e.Expected, e.Found)
}

// NoSuchKeyError is raised when a table is read with a key that is not
// present. It is distinct from reading a key whose value is nil: entries
// holding nil do not exist (see Table.Set).
type NoSuchKeyError struct {
	Key Value
}

func (e *NoSuchKeyError) Error() string {
	return fmt.Sprintf("no such key: %s (%s)", e.Key.String(), e.Key.TypeName())
}

// UnsupportedTypeError is raised when a Lua value with no Value
// representation, such as a function or coroutine, reaches the marshaler.
type UnsupportedTypeError struct {
	TypeName string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported lua type: %s", e.TypeName)
}

// ClassifyError converts an error returned by the Lua state into a
// ScriptError. Syntax, file and error-handler failures map to their own
// kinds. gopher-lua has no distinct out-of-memory status; runtime errors
// reporting a stack or registry overflow classify as memory errors.
func ClassifyError(err error) *ScriptError {
	var scriptErr *ScriptError
	if errors.As(err, &scriptErr) {
		return scriptErr
	}
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return &ScriptError{Kind: ErrorKindUnknown, Message: err.Error(), Wrapped: err}
	}
	message := noErrorInfo
	if s, ok := apiErr.Object.(lua.LString); ok {
		message = string(s)
	} else if apiErr.Object != lua.LNil && apiErr.Object != nil {
		message = apiErr.Object.String()
	}
	kind := ErrorKindUnknown
	switch apiErr.Type {
	case lua.ApiErrorSyntax:
		kind = ErrorKindSyntax
	case lua.ApiErrorFile:
		kind = ErrorKindFile
	case lua.ApiErrorRun:
		kind = ErrorKindRuntime
		if strings.Contains(message, "stack overflow") || strings.Contains(message, "registry overflow") {
			kind = ErrorKindMemory
		}
	case lua.ApiErrorError:
		kind = ErrorKindErrHandler
	}
	return &ScriptError{Kind: kind, Message: message, Wrapped: err}
}
