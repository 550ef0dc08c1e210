// Package errors provides structured error handling for Tipjar.
// It defines the error type shared by every layer, generic sentinel errors,
// exit codes, and helpers for adding context, details, and suggestions.
//
// Domain-specific sentinels (tip outcomes, ledger and signer failures) are
// declared next to the code that produces them using the same type.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"maps"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Authorization failed or session invalid
	ExitNotFound   = 4 // Resource not found
	ExitFunds      = 5 // Insufficient funds
	ExitCancelled  = 6 // Cancelled or rejected by the user in the wallet
	ExitUnknownOut = 7 // Outcome unknown: the transfer may or may not have happened
)

// TipjarError is the structured error type for Tipjar.
type TipjarError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *TipjarError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *TipjarError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for TipjarError. Two errors match when their codes match.
func (e *TipjarError) Is(target error) bool {
	var t *TipjarError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &TipjarError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &TipjarError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &TipjarError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrNotConnected = &TipjarError{
		Code:     "NOT_CONNECTED",
		Message:  "wallet is not connected",
		ExitCode: ExitAuth,
	}

	ErrConfigNotFound = &TipjarError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &TipjarError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &TipjarError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
	}

	ErrNotImplemented = &TipjarError{
		Code:     "NOT_IMPLEMENTED",
		Message:  "operation not implemented yet",
		ExitCode: ExitGeneral,
	}
)

// New creates a new TipjarError with the given code and message.
func New(code, message string) *TipjarError {
	return &TipjarError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var te *TipjarError
	if errors.As(err, &te) {
		return &TipjarError{
			Code:       te.Code,
			Message:    fmt.Sprintf("%s: %s", msg, te.Message),
			Details:    te.Details,
			Suggestion: te.Suggestion,
			Cause:      err,
			ExitCode:   te.ExitCode,
		}
	}

	return &TipjarError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause attaches an underlying cause while keeping the code, message and
// exit code of the structured error.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var te *TipjarError
	if errors.As(err, &te) {
		return &TipjarError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: te.Suggestion,
			Cause:      cause,
			ExitCode:   te.ExitCode,
		}
	}

	return fmt.Errorf("%w: %w", err, cause)
}

// WithDetails adds details to an error. Existing details are kept; keys in
// details overwrite keys already present.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var te *TipjarError
	if errors.As(err, &te) {
		merged := make(map[string]string, len(te.Details)+len(details))
		maps.Copy(merged, te.Details)
		maps.Copy(merged, details)
		return &TipjarError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    merged,
			Suggestion: te.Suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TipjarError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var te *TipjarError
	if errors.As(err, &te) {
		return &TipjarError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TipjarError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var te *TipjarError
	if errors.As(err, &te) {
		return te.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var te *TipjarError
	if errors.As(err, &te) {
		return te.Code
	}
	return "GENERAL_ERROR"
}

// Details returns the details attached to an error, or nil.
func Details(err error) map[string]string {
	var te *TipjarError
	if errors.As(err, &te) {
		return te.Details
	}
	return nil
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
