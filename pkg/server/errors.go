package server

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Error types for structured error handling
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeAuth          ErrorType = "authentication"
	ErrorTypeDatabase      ErrorType = "database"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypeNotFound      ErrorType = "not_found"
)

// ServerError represents a structured error with context
type ServerError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewError creates a new ServerError
func NewError(errType ErrorType, message string, details string) *ServerError {
	return &ServerError{
		Type:      errType,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Unix(),
	}
}

// NewErrorWithContext creates a new ServerError carrying the request id from ctx
func NewErrorWithContext(ctx context.Context, errType ErrorType, message string, details string) *ServerError {
	err := NewError(errType, message, details)
	if requestID, ok := RequestIDFromContext(ctx); ok {
		err.RequestID = requestID
	}
	return err
}

// Wrap wraps a standard error as a ServerError
func Wrap(err error, errType ErrorType, message string) *ServerError {
	if err == nil {
		return nil
	}
	return NewError(errType, message, err.Error())
}

// WrapWithContext wraps a standard error as a ServerError with request context
func WrapWithContext(ctx context.Context, err error, errType ErrorType, message string) *ServerError {
	if err == nil {
		return nil
	}
	return NewErrorWithContext(ctx, errType, message, err.Error())
}

// LogError logs the error with its type prefix
func (e *ServerError) LogError() {
	switch e.Type {
	case ErrorTypeValidation:
		log.Printf("VALIDATION ERROR: %s", e.Error())
	case ErrorTypeConfiguration:
		log.Printf("CONFIGURATION ERROR: %s", e.Error())
	case ErrorTypeAuth:
		log.Printf("AUTH ERROR: %s", e.Error())
	case ErrorTypeDatabase:
		log.Printf("DATABASE ERROR: %s", e.Error())
	case ErrorTypeNetwork:
		log.Printf("NETWORK ERROR: %s", e.Error())
	case ErrorTypeNotFound:
		log.Printf("NOT FOUND: %s", e.Error())
	default:
		log.Printf("ERROR: %s", e.Error())
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if serverErr, ok := err.(*ServerError); ok {
		return serverErr.Type == errType
	}
	return false
}

// GetType returns the error type if it's a ServerError, otherwise ErrorTypeInternal
func GetType(err error) ErrorType {
	if serverErr, ok := err.(*ServerError); ok {
		return serverErr.Type
	}
	return ErrorTypeInternal
}
