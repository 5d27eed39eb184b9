// Package errors provides standardized error codes for the host application.
//
// Error codes follow the format {domain}.{error} where:
//   - domain: The subsystem that generated the error (option, shell, persist, config)
//   - error: The specific error type within that domain
//
// Codes are stable and are what the notification boundary reports when a
// mode change fails. Human-readable messages are provided alongside codes.
package errors

import (
	"errors"
	"fmt"
)

// Error codes by domain.
const (
	// Option domain - rejected configuration values
	CodeOptionInvalidValue = "option.invalid_value" // Value rejected by the option's validator
	CodeOptionUnknownKey   = "option.unknown_key"   // No option registered under the key

	// Shell domain - privileged batch execution
	CodeShellStartFailed = "shell.start_failed" // Shell interpreter could not be started
	CodeShellWriteFailed = "shell.write_failed" // A statement could not be written to the shell
	CodeShellExitStatus  = "shell.exit_status"  // Shell exited with a non-zero status

	// Mode change domain - reported to the notifier
	CodeModeChangeCouldNotExecute = "modechange.could_not_execute" // Batch did not complete

	// Persist domain - option blob
	CodePersistReadFailed         = "persist.read_failed"         // Blob could not be read
	CodePersistBadSignature       = "persist.bad_signature"       // Blob does not start with the signature
	CodePersistUnsupportedVersion = "persist.unsupported_version" // Blob written by a newer format
	CodePersistCorrupt            = "persist.corrupt"             // Truncated record or unknown value tag
	CodePersistWriteFailed        = "persist.write_failed"        // Blob could not be replaced

	// Config domain - host TOML file
	CodeConfigNotFound    = "config.not_found"    // Explicit config path does not exist
	CodeConfigParseFailed = "config.parse_failed" // TOML decode failed

	// General domain - catch-all errors
	CodeUnknown  = "error.unknown"  // Unknown error
	CodeInternal = "error.internal" // Internal error
)

// CodedError wraps an error with a stable error code.
// This allows errors to carry both a code for programmatic handling
// and a message for human consumption.
type CodedError struct {
	Code    string // Stable error code (e.g., "shell.exit_status")
	Message string // Human-readable error message
	Cause   error  // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a new CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CodedError wrapping an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error.
// Falls back to CodeUnknown for errors that carry no code.
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return CodeUnknown
}

// ToCodeAndMessage extracts both code and message from an error.
// Errors without a code report CodeUnknown and their full text.
func ToCodeAndMessage(err error) (code, message string) {
	if err == nil {
		return "", ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code, coded.Message
	}

	return CodeUnknown, err.Error()
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// Common error constructors.

// InvalidValue creates an "option.invalid_value" error.
func InvalidValue(key, reason string) *CodedError {
	return New(CodeOptionInvalidValue, fmt.Sprintf("option %s: %s", key, reason))
}

// UnknownKey creates an "option.unknown_key" error.
func UnknownKey(key string) *CodedError {
	return New(CodeOptionUnknownKey, fmt.Sprintf("unknown option %q", key))
}

// ShellStartFailed creates a "shell.start_failed" error.
func ShellStartFailed(shell string, cause error) *CodedError {
	return Wrap(CodeShellStartFailed, fmt.Sprintf("failed to start shell %s", shell), cause)
}

// ShellWriteFailed creates a "shell.write_failed" error for the statement
// that did not reach the shell.
func ShellWriteFailed(statement string, cause error) *CodedError {
	return Wrap(CodeShellWriteFailed, fmt.Sprintf("failed to send %q", statement), cause)
}

// ShellExitStatus creates a "shell.exit_status" error.
func ShellExitStatus(code int, cause error) *CodedError {
	return Wrap(CodeShellExitStatus, fmt.Sprintf("shell exited with status %d", code), cause)
}

// PersistCorrupt creates a "persist.corrupt" error.
func PersistCorrupt(reason string, cause error) *CodedError {
	return Wrap(CodePersistCorrupt, reason, cause)
}

// Internal creates an "error.internal" error.
func Internal(message string, cause error) *CodedError {
	return Wrap(CodeInternal, message, cause)
}
