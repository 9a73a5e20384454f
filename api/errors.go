// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for blockpool.

package api

import (
	"errors"
	"fmt"
)

// Allocation and configuration errors. All are reported through return
// values; none of them is fatal to the allocator.
var (
	ErrExhausted       = errors.New("blockpool: tier exhausted")
	ErrOversize        = errors.New("blockpool: request exceeds largest tier")
	ErrInvalidSize     = errors.New("blockpool: invalid allocation size")
	ErrTierMismatch    = errors.New("blockpool: block does not belong to tier")
	ErrDoubleFree      = errors.New("blockpool: block already released")
	ErrInvalidBlock    = errors.New("blockpool: invalid block")
	ErrUnsupportedType = errors.New("blockpool: type cannot live in pooled storage")
	ErrInvalidConfig   = errors.New("blockpool: invalid configuration")
	ErrQueueFull       = errors.New("blockpool: queue is full")
	ErrExecutorClosed  = errors.New("blockpool: executor is closed")
	ErrNotSupported    = errors.New("blockpool: operation not supported")
	ErrInvalidArgument = errors.New("blockpool: invalid argument")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeInvalidConfig
	ErrCodeNotSupported
	ErrCodeInternal
)

// Error represents a structured error with code and context.
// It unwraps to its Cause so callers can match sentinels with errors.Is.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap returns the underlying sentinel.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the sentinel the error unwraps to.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}
