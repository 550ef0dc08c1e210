package tip

import (
	"context"
	"errors"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/signer"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// Tip errors. Every failure returned by the coordinator matches exactly one
// of these with errors.Is.
var (
	ErrInvalidAmount = &tjerr.TipjarError{
		Code:       "INVALID_AMOUNT",
		Message:    "invalid amount",
		Suggestion: "Enter a positive number using '.' as the decimal separator",
		ExitCode:   tjerr.ExitInput,
	}

	ErrBelowMinimum = &tjerr.TipjarError{
		Code:     "BELOW_MINIMUM",
		Message:  "amount is below the minimum tip",
		ExitCode: tjerr.ExitInput,
	}

	ErrInvalidRecipient = &tjerr.TipjarError{
		Code:     "INVALID_RECIPIENT",
		Message:  "invalid recipient address",
		ExitCode: tjerr.ExitInput,
	}

	ErrSelfTip = &tjerr.TipjarError{
		Code:     "SELF_TIP",
		Message:  "cannot tip yourself",
		ExitCode: tjerr.ExitInput,
	}

	ErrInsufficientForAmount = &tjerr.TipjarError{
		Code:     "INSUFFICIENT_FOR_AMOUNT",
		Message:  "insufficient balance for this tip",
		ExitCode: tjerr.ExitFunds,
	}

	ErrInsufficientForFee = &tjerr.TipjarError{
		Code:       "INSUFFICIENT_FOR_FEE",
		Message:    "insufficient balance to cover the tip and network fee",
		Suggestion: "Lower the amount to leave room for the network fee",
		ExitCode:   tjerr.ExitFunds,
	}

	// ErrNetworkUnavailable and ErrTimeout are the ledger errors, re-exported
	// so callers only need this package.
	ErrNetworkUnavailable = chain.ErrNetworkUnavailable
	ErrTimeout            = chain.ErrTimeout

	ErrUserCancelled = &tjerr.TipjarError{
		Code:     "USER_CANCELLED",
		Message:  "cancelled in wallet",
		ExitCode: tjerr.ExitCancelled,
	}

	ErrUserRejected = &tjerr.TipjarError{
		Code:     "USER_REJECTED",
		Message:  "request declined in wallet",
		ExitCode: tjerr.ExitCancelled,
	}

	ErrSignerSessionInvalid = &tjerr.TipjarError{
		Code:       "SIGNER_SESSION_INVALID",
		Message:    "wallet session is no longer valid",
		Suggestion: "Reconnect your wallet and try again",
		ExitCode:   tjerr.ExitAuth,
	}

	// ErrAccountChanged is a session-invalid subtype: the wallet re-authorized
	// with a different account than the one the transaction was built for.
	ErrAccountChanged = &tjerr.TipjarError{
		Code:       "ACCOUNT_CHANGED",
		Message:    "wallet account changed during the tip",
		Suggestion: "Try again with the account now connected",
		Cause:      ErrSignerSessionInvalid,
		ExitCode:   tjerr.ExitAuth,
	}

	ErrSignerUnknown = &tjerr.TipjarError{
		Code:     "SIGNER_UNKNOWN_ERROR",
		Message:  "wallet reported an error",
		ExitCode: tjerr.ExitGeneral,
	}

	ErrUnknownOutcome = &tjerr.TipjarError{
		Code:       "UNKNOWN_OUTCOME",
		Message:    "the tip may or may not have been sent",
		Suggestion: "Check the transaction in an explorer before trying again",
		ExitCode:   tjerr.ExitUnknownOut,
	}

	ErrTxFailed = &tjerr.TipjarError{
		Code:     "TX_FAILED",
		Message:  "transaction failed on chain",
		ExitCode: tjerr.ExitGeneral,
	}
)

// Category is the coarse outcome shown by a UI.
type Category string

// Outcome categories.
const (
	CategorySuccess   Category = "success"
	CategoryCancelled Category = "cancelled"
	CategoryRejected  Category = "rejected"
	CategoryError     Category = "error"
	CategoryUnknown   Category = "unknown"
)

// CategoryOf returns the UI category for a SendTip error. Cancellations and
// rejections are not errors from the user's point of view, and an unknown
// outcome is never reported as success.
func CategoryOf(err error) Category {
	switch {
	case err == nil:
		return CategorySuccess
	case errors.Is(err, ErrUserCancelled), errors.Is(err, context.Canceled):
		return CategoryCancelled
	case errors.Is(err, ErrUserRejected):
		return CategoryRejected
	case errors.Is(err, ErrUnknownOutcome):
		return CategoryUnknown
	default:
		return CategoryError
	}
}

// FromSigner maps a classified signer failure into the tip taxonomy. Errors
// that are not signer errors are returned unchanged. A sign-and-send that
// times out or loses its connection after the request reached the wallet
// may have been broadcast, so it becomes an unknown outcome.
func FromSigner(err error) error {
	var se *signer.Error
	if err == nil || !errors.As(err, &se) {
		return err
	}

	details := map[string]string{"signer_op": se.Op}
	if se.Message != "" {
		details["signer_message"] = se.Message
	}

	var target error
	switch se.Kind {
	case signer.KindTimeout, signer.KindInterrupted:
		switch {
		case se.OutcomeUnknown():
			target = ErrUnknownOutcome
		case se.Kind == signer.KindTimeout:
			target = ErrTimeout
		default:
			target = ErrSignerUnknown
		}
	case signer.KindCancelled:
		target = ErrUserCancelled
	case signer.KindRejected:
		target = ErrUserRejected
	case signer.KindSessionInvalid:
		target = ErrSignerSessionInvalid
	case signer.KindUnavailable:
		target = tjerr.WithSuggestion(ErrSignerUnknown, "Install or open a compatible wallet and try again")
	default:
		target = ErrSignerUnknown
	}
	return tjerr.WithDetails(tjerr.WithCause(target, se), details)
}
