// Package chain provides ledger interface definitions and common utilities.
//
// The tipping core never talks to a ledger directly; it reads balances,
// freshness bounds and signature statuses through the small interfaces
// declared here. The Solana-compatible implementation lives in chain/sol.
package chain

import (
	"bytes"
	"context"
	"strings"

	"github.com/mr-tron/base58"

	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// AccountSize is the size in bytes of an account public key.
const AccountSize = 32

// SignatureSize is the size in bytes of an ed25519 transaction signature.
const SignatureSize = 64

// Ledger errors shared by every implementation.
var (
	// ErrInvalidAddress indicates the address text is not a base58 encoded 32-byte key.
	ErrInvalidAddress = &tjerr.TipjarError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: tjerr.ExitInput,
	}

	// ErrNetworkUnavailable indicates a ledger read failed for a reason other than a deadline.
	ErrNetworkUnavailable = &tjerr.TipjarError{
		Code:       "NETWORK_UNAVAILABLE",
		Message:    "network unavailable",
		Suggestion: "Check your connection and try again",
		ExitCode:   tjerr.ExitGeneral,
	}

	// ErrTimeout indicates a bounded network operation exceeded its deadline.
	ErrTimeout = &tjerr.TipjarError{
		Code:       "TIMEOUT",
		Message:    "operation timed out",
		Suggestion: "Check your connection and try again",
		ExitCode:   tjerr.ExitGeneral,
	}
)

// Account identifies a party able to hold funds and sign transactions.
// Two accounts are the same party when their keys are equal; the label is
// display metadata only.
type Account struct {
	Key   [AccountSize]byte
	Label string
}

// ParseAccount decodes a base58 address into an Account.
func ParseAccount(address string) (Account, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Account{}, ErrInvalidAddress
	}

	raw, err := base58.Decode(address)
	if err != nil {
		return Account{}, tjerr.WithDetails(ErrInvalidAddress, map[string]string{"address": Ellipsify(address, 8)})
	}

	return AccountFromBytes(raw, "")
}

// AccountFromBytes builds an Account from a raw public key.
func AccountFromBytes(key []byte, label string) (Account, error) {
	if len(key) != AccountSize {
		return Account{}, ErrInvalidAddress
	}

	var a Account
	copy(a.Key[:], key)
	a.Label = label
	return a, nil
}

// MustParseAccount is like ParseAccount but panics on invalid input.
// Intended for constants and tests.
func MustParseAccount(address string) Account {
	a, err := ParseAccount(address)
	if err != nil {
		panic("chain: invalid account " + address)
	}
	return a
}

// String returns the base58 address.
func (a Account) String() string {
	return base58.Encode(a.Key[:])
}

// Short returns the ellipsified address for display and logs.
func (a Account) Short() string {
	return Ellipsify(a.String(), 4)
}

// Equal reports whether both accounts refer to the same key.
func (a Account) Equal(b Account) bool {
	return bytes.Equal(a.Key[:], b.Key[:])
}

// IsZero reports whether the account is unset.
func (a Account) IsZero() bool {
	return a.Key == [AccountSize]byte{}
}

// MarshalText encodes the account as its base58 address.
func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a base58 address.
func (a *Account) UnmarshalText(text []byte) error {
	parsed, err := ParseAccount(string(text))
	if err != nil {
		return err
	}
	a.Key = parsed.Key
	return nil
}

// FreshnessBound is the ledger-state marker a built transaction is tied to.
// The transaction must be broadcast before the ledger passes
// LastValidBlockHeight; MinContextSlot tells the broadcaster not to
// evaluate it against older state.
type FreshnessBound struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"last_valid_block_height"`
	MinContextSlot       uint64 `json:"min_context_slot"`
}

// BlockhashBytes decodes the base58 blockhash.
func (f FreshnessBound) BlockhashBytes() ([32]byte, error) {
	var out [32]byte
	raw, err := base58.Decode(f.Blockhash)
	if err != nil || len(raw) != len(out) {
		return out, tjerr.WithDetails(tjerr.ErrInvalidInput, map[string]string{"blockhash": f.Blockhash})
	}
	copy(out[:], raw)
	return out, nil
}

// Commitment levels in increasing order of finality.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// CommitmentRank orders commitment levels. Unknown levels rank lowest.
func CommitmentRank(level string) int {
	switch level {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// SignatureStatus is the ledger's view of a submitted transaction.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64
	ConfirmationStatus string
	Err                string // Empty when the transaction succeeded
}

// Reached reports whether the status satisfies the given commitment level.
func (s *SignatureStatus) Reached(commitment string) bool {
	return CommitmentRank(s.ConfirmationStatus) >= CommitmentRank(commitment)
}

// BalanceReader provides balance querying capabilities.
type BalanceReader interface {
	// GetBalance returns the native balance of the account in the smallest unit.
	GetBalance(ctx context.Context, account Account) (uint64, error)
}

// FreshnessReader provides freshness bound lookups.
type FreshnessReader interface {
	// GetFreshnessBound returns a freshly fetched bound. Callers never reuse it
	// across transactions.
	GetFreshnessBound(ctx context.Context) (FreshnessBound, error)
}

// StatusReader provides signature status and block height lookups.
type StatusReader interface {
	// GetSignatureStatus returns nil status when the ledger has not seen the signature.
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)
}

// Ledger combines every read used by the tipping core.
type Ledger interface {
	BalanceReader
	FreshnessReader
	StatusReader
}
