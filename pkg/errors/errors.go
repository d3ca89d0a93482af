package errors

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// Code classifies workflow failures so transports can map them to statuses
type Code string

const (
	CodeConflict          Code = "conflict"           // another open session exists
	CodeImmutable         Code = "immutable"          // session is completed
	CodeNotReady          Code = "not_ready"          // session cannot be finished yet
	CodeValidation        Code = "validation"         // invalid input
	CodeInvalidResult     Code = "invalid_result"     // result payload breaks recording rules
	CodeInsufficientInput Code = "insufficient_input" // not enough samples to allocate pools
	CodeNotFound          Code = "not_found"
)

// WorkflowError is a domain failure with a stable code
type WorkflowError struct {
	Code    Code
	Message string
	Entity  string
}

func New(code Code, msg string) *WorkflowError {
	return &WorkflowError{
		Code:    code,
		Message: msg,
	}
}

// Newf creates a WorkflowError with a formatted message
func Newf(code Code, format string, args ...any) *WorkflowError {
	return &WorkflowError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *WorkflowError) Error() string {
	return e.Message
}

func (e *WorkflowError) AddEntity(entity string) *WorkflowError {
	e.Entity = entity
	return e
}

// StatusCode maps the code to an HTTP status
func (e *WorkflowError) StatusCode() int {
	switch e.Code {
	case CodeConflict, CodeImmutable, CodeNotReady:
		return http.StatusConflict
	case CodeValidation, CodeInvalidResult:
		return http.StatusBadRequest
	case CodeInsufficientInput:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (e *WorkflowError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(e.StatusCode(), e.Error()).AddMetaValue("code", string(e.Code)).AddMetaValue("entity", e.Entity)
}

func IsWorkflowError(err error) bool {
	_, ok := err.(*WorkflowError)
	return ok
}

// AsWorkflowError returns the WorkflowError behind err, or nil
func AsWorkflowError(err error) *WorkflowError {
	we, ok := err.(*WorkflowError)
	if !ok {
		return nil
	}
	return we
}
