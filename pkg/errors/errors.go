// Package errors holds the gateway's typed errors. Each one knows the HTTP
// status it is reported with; handlers resolve it through StatusOf.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type statusError interface {
	HTTPStatus() int
}

// ValidationError is a rejected input (400).
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) HTTPStatus() int { return http.StatusBadRequest }

// NotFoundError is a missing account or payment (404).
type NotFoundError struct {
	Resource string
	Message  string
}

func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return e.Resource + " not found"
	}
	return e.Message
}

func (e *NotFoundError) HTTPStatus() int { return http.StatusNotFound }

// AlreadyExistsError is a duplicate username or email. Signup and profile
// updates report duplicates as 400.
type AlreadyExistsError struct {
	Resource string
	Message  string
}

func NewAlreadyExistsError(resource, message string) *AlreadyExistsError {
	return &AlreadyExistsError{Resource: resource, Message: message}
}

func (e *AlreadyExistsError) Error() string {
	if e.Message == "" {
		return e.Resource + " already exists"
	}
	return e.Message
}

func (e *AlreadyExistsError) HTTPStatus() int { return http.StatusBadRequest }

// UnauthorizedError is a failed login or a missing bearer token (401).
type UnauthorizedError struct {
	Message string
}

func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

func (e *UnauthorizedError) Error() string { return e.Message }

func (e *UnauthorizedError) HTTPStatus() int { return http.StatusUnauthorized }

// UpstreamError is a failed call to the flight backend. StatusCode is 0
// when no response arrived.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Detail     string
	Err        error
}

func NewUpstreamError(operation string, statusCode int, detail string, err error) *UpstreamError {
	return &UpstreamError{Operation: operation, StatusCode: statusCode, Detail: detail, Err: err}
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (Status: %d)", e.Operation, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
	}
	return e.Operation + " failed"
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// HTTPStatus passes backend 4xx answers through; anything else is a 502.
func (e *UpstreamError) HTTPStatus() int {
	if e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError {
		return e.StatusCode
	}
	return http.StatusBadGateway
}

// InternalError is a local failure (500). Message is safe to show clients.
type InternalError struct {
	Message string
	Err     error
}

func NewInternalError(message string, err error) *InternalError {
	return &InternalError{Message: message, Err: err}
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) HTTPStatus() int { return http.StatusInternalServerError }

// StatusOf returns the status of the first typed error in err's chain, or 500.
func StatusOf(err error) int {
	var s statusError
	if errors.As(err, &s) {
		return s.HTTPStatus()
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsAlreadyExists(err error) bool {
	var target *AlreadyExistsError
	return errors.As(err, &target)
}
