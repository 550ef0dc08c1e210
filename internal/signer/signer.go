// Package signer defines the boundary to the external signer: an
// out-of-process wallet that holds the keys, asks the user for approval and
// signs (and broadcasts) on our behalf.
//
// Implementations return *Error values tagged with a Kind. Untyped failures
// from a transport library are converted once, in the adapter, via Classify.
package signer

import (
	"context"

	"github.com/mrz1836/tipjar/internal/chain"
)

// Signer operations. Transports use these names on the wire and in errors.
const (
	OpOpen         = "open"
	OpAuthorize    = "authorize"
	OpDeauthorize  = "deauthorize"
	OpSignAndSend  = "sign_and_send_transactions"
	OpSignMessages = "sign_messages"
)

// AppIdentity is shown to the user by the wallet when authorizing.
type AppIdentity struct {
	Name string `yaml:"name" json:"name"`
	URI  string `yaml:"uri" json:"uri"`
	Icon string `yaml:"icon" json:"icon"`
}

// SignInPayload asks the wallet to sign a sign-in statement as part of authorization.
type SignInPayload struct {
	Domain    string `json:"domain,omitempty"`
	Statement string `json:"statement,omitempty"`
	URI       string `json:"uri,omitempty"`
}

// SignInResult is the wallet's answer to a SignInPayload.
type SignInResult struct {
	Address       chain.Account
	SignedMessage []byte
	Signature     []byte
}

// AuthorizeRequest requests a new authorization, or a reauthorization when
// AuthToken is set.
type AuthorizeRequest struct {
	Identity  AppIdentity
	Chain     string
	AuthToken string
	SignIn    *SignInPayload
}

// Authorization is a granted session. AuthToken is an opaque capability and
// must never be logged.
type Authorization struct {
	AuthToken     string
	Accounts      []chain.Account
	WalletURIBase string
	SignIn        *SignInResult
}

// Account returns the first authorized account.
func (a *Authorization) Account() (chain.Account, bool) {
	if a == nil || len(a.Accounts) == 0 {
		return chain.Account{}, false
	}
	return a.Accounts[0], true
}

// SignAndSendRequest asks the wallet to sign transactions and broadcast them.
type SignAndSendRequest struct {
	AuthToken      string
	Transactions   [][]byte
	MinContextSlot uint64
}

// SignMessagesRequest asks the wallet to sign arbitrary payloads.
type SignMessagesRequest struct {
	AuthToken string
	Addresses []chain.Account
	Payloads  [][]byte
}

// Conn is one exclusive session with the external signer. A Conn is not safe
// for concurrent use and must be closed on every exit path.
type Conn interface {
	// Authorize grants or refreshes an authorization.
	Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error)

	// Deauthorize invalidates the token at the wallet.
	Deauthorize(ctx context.Context, authToken string) error

	// SignAndSendTransactions returns one base58 signature per transaction.
	SignAndSendTransactions(ctx context.Context, req SignAndSendRequest) ([]string, error)

	// SignMessages returns one signature per payload.
	SignMessages(ctx context.Context, req SignMessagesRequest) ([][]byte, error)

	Close() error
}

// Transport opens sessions with the external signer. Opening may block until
// the wallet accepts the connection.
type Transport interface {
	Open(ctx context.Context) (Conn, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context) (Conn, error)

// Open calls f(ctx).
func (f TransportFunc) Open(ctx context.Context) (Conn, error) {
	return f(ctx)
}
