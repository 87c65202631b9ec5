// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ClientError of the same Type, so the
// sentinels below match any error of their category.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeServerUnreachable
	ErrTypeModelNotFound
	ErrTypeInvalidResponse
	ErrTypeTransport
	ErrTypeApplication
)

// String returns the category name used in logs and metrics.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeServerUnreachable:
		return "server_unreachable"
	case ErrTypeModelNotFound:
		return "model_not_found"
	case ErrTypeInvalidResponse:
		return "invalid_response_shape"
	case ErrTypeTransport:
		return "transport"
	case ErrTypeApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking with errors.Is.
var (
	ErrUnavailable          = &ClientError{Type: ErrTypeServerUnreachable, Message: "Could not connect to Ollama on any available address"}
	ErrModelMissing         = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
	ErrInvalidResponseShape = &ClientError{Type: ErrTypeInvalidResponse, Message: "Invalid response format from Ollama"}
	ErrTransport            = &ClientError{Type: ErrTypeTransport, Message: "stream transport failed"}
	ErrApplication          = &ClientError{Type: ErrTypeApplication, Message: "Ollama returned an error"}
)

// StatusError is recorded when a candidate answers with a non-2xx status.
type StatusError struct {
	Code   int
	Detail string // "error" field from the Ollama body, if any
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// =============================================================================
// HELPERS
// =============================================================================

func errorType(err error) ErrorType {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrTypeUnknown
}

// TypeOf returns the category of err, or ErrTypeUnknown.
func TypeOf(err error) ErrorType {
	return errorType(err)
}

// IsUnreachable returns true if no candidate address could serve the call.
func IsUnreachable(err error) bool {
	return errorType(err) == ErrTypeServerUnreachable
}

// IsModelNotFound returns true if the error is a model not found error.
func IsModelNotFound(err error) bool {
	return errorType(err) == ErrTypeModelNotFound
}

// IsInvalidResponse returns true if the server answered 2xx with an unexpected body.
func IsInvalidResponse(err error) bool {
	return errorType(err) == ErrTypeInvalidResponse
}

// IsTransport returns true if the connection failed mid-stream.
func IsTransport(err error) bool {
	return errorType(err) == ErrTypeTransport
}

// IsApplication returns true if the server reported an explicit error field.
func IsApplication(err error) bool {
	return errorType(err) == ErrTypeApplication
}
