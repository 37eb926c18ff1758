package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the agent core.
var (
	ErrDuplicateTool      = fmt.Errorf("tool already registered")
	ErrToolNotFound       = fmt.Errorf("tool not found")
	ErrUnknownTool        = fmt.Errorf("unknown tool")
	ErrMalformedArguments = fmt.Errorf("malformed tool arguments")
	ErrToolFailure        = fmt.Errorf("tool execution failed")
	ErrService            = fmt.Errorf("model service error")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrCanceled           = fmt.Errorf("operation canceled")
	ErrBusy               = fmt.Errorf("consultation already in flight")
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrConfigLoad         = fmt.Errorf("failed to load configuration")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrMethodNotFound     = fmt.Errorf("rpc method not found")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Executor.Execute")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsModelFailure reports whether err is a failure of the remote model exchange
// that the agent should answer with its fallback capability.
func IsModelFailure(err error) bool {
	return errors.Is(err, ErrService) || errors.Is(err, ErrTimeout)
}

// ErrorCode is a machine-parseable error category for logs.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeDuplicateTool      ErrorCode = "DUPLICATE_TOOL"
	CodeToolNotFound       ErrorCode = "TOOL_NOT_FOUND"
	CodeUnknownTool        ErrorCode = "UNKNOWN_TOOL"
	CodeMalformedArguments ErrorCode = "MALFORMED_ARGUMENTS"
	CodeToolFailure        ErrorCode = "TOOL_FAILURE"
	CodeService            ErrorCode = "SERVICE"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeCanceled           ErrorCode = "CANCELED"
	CodeBusy               ErrorCode = "BUSY"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeMethodNotFound     ErrorCode = "METHOD_NOT_FOUND"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrDuplicateTool:      CodeDuplicateTool,
	ErrToolNotFound:       CodeToolNotFound,
	ErrUnknownTool:        CodeUnknownTool,
	ErrMalformedArguments: CodeMalformedArguments,
	ErrToolFailure:        CodeToolFailure,
	ErrService:            CodeService,
	ErrTimeout:            CodeTimeout,
	ErrCanceled:           CodeCanceled,
	ErrBusy:               CodeBusy,
	ErrInvalidInput:       CodeInvalidInput,
	ErrConfigLoad:         CodeConfigLoad,
	ErrUnauthorized:       CodeUnauthorized,
	ErrMethodNotFound:     CodeMethodNotFound,
}

// codeOrder fixes the order in which the error chain is probed so that
// ErrorCodeOf is deterministic for errors wrapping several sentinels.
var codeOrder = []error{
	ErrTimeout,
	ErrCanceled,
	ErrService,
	ErrUnknownTool,
	ErrToolNotFound,
	ErrMalformedArguments,
	ErrDuplicateTool,
	ErrToolFailure,
	ErrBusy,
	ErrInvalidInput,
	ErrConfigLoad,
	ErrUnauthorized,
	ErrMethodNotFound,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for _, sentinel := range codeOrder {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
