// Package errors provides structured error types for comicpress.
//
// Every failure that crosses a package boundary carries a machine-readable
// [Code]. The codes map the conversion failure taxonomy:
//   - INVALID_INPUT: input path missing, not a directory, or without images
//   - UNSUPPORTED_COMBINATION: output format not supported by the device
//   - IMAGE_DECODE: a file failed the image sniff test (skipped, never fatal)
//   - PIPELINE: a page could not be prepared; aborts the run
//   - CONTAINER_WRITE: the output container could not be written
//   - TOOL_UNAVAILABLE: the native-format compiler is missing or failed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "input %s is not a directory", path)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // report and exit
//	}
//
//	err := errors.Wrap(errors.ErrCodePipeline, cause, "prepare %s", src)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeUnsupported   Code = "UNSUPPORTED_COMBINATION"

	// Resource not found errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeDeviceNotFound Code = "DEVICE_NOT_FOUND"

	// Processing errors
	ErrCodeImageDecode     Code = "IMAGE_DECODE"
	ErrCodePipeline        Code = "PIPELINE"
	ErrCodeContainerWrite  Code = "CONTAINER_WRITE"
	ErrCodeToolUnavailable Code = "TOOL_UNAVAILABLE"
	ErrCodeInvalidState    Code = "INVALID_STATE"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Recoverable reports whether err is absorbed at a component boundary
// (logged, never returned to the caller as a terminal failure).
func Recoverable(err error) bool {
	switch GetCode(err) {
	case ErrCodeImageDecode, ErrCodeToolUnavailable:
		return true
	}
	return false
}
