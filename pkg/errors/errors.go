// Package errors provides structured error handling for walletcore.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes used by the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Authentication failed or locked out
	ExitNotFound   = 4 // No session or nothing pending
	ExitPermission = 5 // Refused by policy or by the ledger
	ExitPending    = 6 // Submitted but not yet confirmed
)

// WalletError is the structured error type for walletcore.
type WalletError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *WalletError) Error() string {
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

func (e *WalletError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for WalletError.
func (e *WalletError) Is(target error) bool {
	var t *WalletError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	// Validation family. Surfaced immediately, never retried.
	ErrValidation = &WalletError{
		Code:     "VALIDATION_ERROR",
		Message:  "invalid request",
		ExitCode: ExitInput,
	}

	ErrInvalidAddress = &WalletError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &WalletError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount",
		ExitCode: ExitInput,
	}

	ErrInvalidMnemonic = &WalletError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrWeakPassword = &WalletError{
		Code:     "WEAK_PASSWORD",
		Message:  "password must be at least 8 characters and contain letters and numbers",
		ExitCode: ExitInput,
	}

	// Session lifecycle.
	ErrNotConnected = &WalletError{
		Code:       "NOT_CONNECTED",
		Message:    "no wallet connected",
		Suggestion: "create a new wallet or connect an existing one",
		ExitCode:   ExitNotFound,
	}

	ErrAlreadyConnected = &WalletError{
		Code:       "ALREADY_CONNECTED",
		Message:    "a different wallet is already connected",
		Suggestion: "disconnect the current wallet first",
		ExitCode:   ExitInput,
	}

	ErrAuthentication = &WalletError{
		Code:     "AUTHENTICATION_FAILED",
		Message:  "incorrect password",
		ExitCode: ExitAuth,
	}

	ErrLockedOut = &WalletError{
		Code:       "LOCKED_OUT",
		Message:    "too many failed password attempts",
		Suggestion: "reconnect your wallet or reset the lockout",
		ExitCode:   ExitAuth,
	}

	ErrRateLimited = &WalletError{
		Code:       "RATE_LIMITED",
		Message:    "too many operations",
		Suggestion: "wait and try again later",
		ExitCode:   ExitPermission,
	}

	ErrCorruptedState = &WalletError{
		Code:     "CORRUPTED_STATE",
		Message:  "stored session record is unreadable",
		ExitCode: ExitGeneral,
	}

	// Approval flow.
	ErrNoPendingOperation = &WalletError{
		Code:     "NO_PENDING_OPERATION",
		Message:  "no operation is waiting for approval",
		ExitCode: ExitNotFound,
	}

	ErrPendingExpired = &WalletError{
		Code:       "PENDING_EXPIRED",
		Message:    "the pending operation expired before it was approved",
		Suggestion: "request the operation again",
		ExitCode:   ExitInput,
	}

	ErrOperationRejected = &WalletError{
		Code:     "OPERATION_REJECTED",
		Message:  "operation rejected",
		ExitCode: ExitPermission,
	}

	ErrAlreadyRecorded = &WalletError{
		Code:     "ALREADY_RECORDED",
		Message:  "transaction already in ledger",
		ExitCode: ExitSuccess,
	}

	ErrNotConfirmedInTime = &WalletError{
		Code:       "NOT_CONFIRMED_IN_TIME",
		Message:    "transaction was submitted but not confirmed in time",
		Suggestion: "check the transaction status later before sending again",
		ExitCode:   ExitPending,
	}

	// Ledger and infrastructure.
	ErrNetwork = &WalletError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrRetryable = &WalletError{
		Code:     "RETRYABLE",
		Message:  "temporary failure",
		ExitCode: ExitGeneral,
	}

	ErrTimeout = &WalletError{
		Code:     "TIMEOUT",
		Message:  "operation timed out",
		ExitCode: ExitGeneral,
	}

	ErrConfigInvalid = &WalletError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new WalletError with the given code and message.
func New(code, message string) *WalletError {
	return &WalletError{
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

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    fmt.Sprintf("%s: %s", msg, we.Message),
			Details:    we.Details,
			Suggestion: we.Suggestion,
			Cause:      err,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    details,
			Suggestion: we.Suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
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

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    we.Details,
			Suggestion: suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// WithCause attaches an underlying cause while keeping the sentinel's identity.
func WithCause(sentinel *WalletError, cause error) error {
	return &WalletError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var we *WalletError
	if errors.As(err, &we) {
		return we.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Code
	}
	return "GENERAL_ERROR"
}

// Detail returns a single detail value from a WalletError, or "".
func Detail(err error, key string) string {
	var we *WalletError
	if errors.As(err, &we) && we.Details != nil {
		return we.Details[key]
	}
	return ""
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
