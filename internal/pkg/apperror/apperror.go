// Package apperror is the error taxonomy of contract changes. Every error
// names the field, status or entity involved so it can be shown to users.
package apperror

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or invalid field or an illegal status
// transition. It is never retried.
type ValidationError struct {
	Field   string
	Status  string
	Action  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError about field.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// MissingField reports an absent required field.
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("Parameter '%s' missing.", field)}
}

// IllegalTransition reports that action may not start from status.
func IllegalTransition(status, action string) *ValidationError {
	return &ValidationError{
		Status:  status,
		Action:  action,
		Message: fmt.Sprintf("Cannot %s a contract with status '%s'.", action, status),
	}
}

// NotFoundError reports an absent contract, payment or change.
type NotFoundError struct {
	Entity string
	ID     int64
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s [%d] not found!", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// NotFound builds a NotFoundError.
func NotFound(entityName string, id int64, cause error) *NotFoundError {
	return &NotFoundError{Entity: entityName, ID: id, Err: cause}
}

// ExternalWriteError reports a failed write-through to the host. Unaudited
// is set when the contract was already written but its change record was
// not.
type ExternalWriteError struct {
	Entity    string
	ID        int64
	Op        string
	Unaudited bool
	Err       error
}

func (e *ExternalWriteError) Error() string {
	target := e.Entity
	if e.ID != 0 {
		target = fmt.Sprintf("%s [%d]", e.Entity, e.ID)
	}
	msg := fmt.Sprintf("failed to %s %s: %v", e.Op, target, e.Err)
	if e.Unaudited {
		msg += " (contract was updated without an audit record)"
	}
	return msg
}

func (e *ExternalWriteError) Unwrap() error {
	return e.Err
}

// WriteFailed builds an ExternalWriteError.
func WriteFailed(op, entityName string, id int64, cause error) *ExternalWriteError {
	return &ExternalWriteError{Entity: entityName, ID: id, Op: op, Err: cause}
}

// UnsupportedError flags data the service cannot interpret, such as an
// unknown frequency unit. It points at a data-quality problem upstream.
type UnsupportedError struct {
	What  string
	Value string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %s '%s'", e.What, e.Value)
}

// Unsupported builds an UnsupportedError.
func Unsupported(what, value string) *UnsupportedError {
	return &UnsupportedError{What: what, Value: value}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsExternalWrite(err error) bool {
	var target *ExternalWriteError
	return errors.As(err, &target)
}

func IsUnsupported(err error) bool {
	var target *UnsupportedError
	return errors.As(err, &target)
}
