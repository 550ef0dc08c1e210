// Package wsbridge reaches an out-of-process wallet through a websocket
// bridge speaking JSON-RPC 2.0. Binary payloads travel base64 encoded.
package wsbridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/signer"
)

// Wallet protocol error codes.
const (
	CodeAuthorizationFailed = -1
	CodeInvalidPayloads     = -2
	CodeNotSigned           = -3
	CodeNotSubmitted        = -4
	CodeTooManyPayloads     = -5
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	maxMessageSize          = 1 << 20
)

// Transport dials the bridge once per session.
type Transport struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
}

var _ signer.Transport = (*Transport)(nil)

// New creates a transport for the bridge at url (ws:// or wss://).
func New(url string) *Transport {
	return &Transport{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
	}
}

// WithHeader sets extra headers sent on the upgrade request.
func (t *Transport) WithHeader(h http.Header) *Transport {
	t.header = h
	return t
}

// Open dials the bridge.
func (t *Transport) Open(ctx context.Context) (signer.Conn, error) {
	ws, resp, err := t.dialer.DialContext(ctx, t.url, t.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, signer.Classify(signer.OpOpen, err, false)
		}
		return nil, &signer.Error{Kind: signer.KindUnavailable, Op: signer.OpOpen, Message: err.Error(), Cause: err}
	}
	ws.SetReadLimit(maxMessageSize)
	return &Conn{ws: ws}, nil
}

// Conn is one bridge session.
type Conn struct {
	ws     *websocket.Conn
	nextID atomic.Uint64
	closed atomic.Bool
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call writes one request and waits for its response. Deadlines come from ctx.
func (c *Conn) call(ctx context.Context, method string, params, result any) error {
	if c.closed.Load() {
		return &signer.Error{Kind: signer.KindUnavailable, Op: method, Message: "session closed"}
	}

	id := c.nextID.Add(1)
	deadline, _ := ctx.Deadline()

	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteJSON(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return signer.Classify(method, ctxErr(ctx, err), false)
	}

	_ = c.ws.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		var resp rpcResponse
		if err := c.ws.ReadJSON(&resp); err != nil {
			return readError(ctx, method, err)
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return &signer.Error{
				Kind:        kindForCode(method, resp.Error, params),
				Op:          method,
				Message:     resp.Error.Message,
				RequestSent: true,
			}
		}
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return &signer.Error{Kind: signer.KindUnknown, Op: method, Message: "malformed result", RequestSent: true, Cause: err}
		}
		return nil
	}
}

func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

// readError classifies a failure while waiting for the wallet's answer. The
// request has been written, so the wallet may already have acted on it.
func readError(ctx context.Context, method string, err error) error {
	if ctx.Err() != nil {
		return signer.Classify(method, ctxErr(ctx, err), true)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		// The read deadline can fire just before ctx reports it.
		return signer.Classify(method, fmt.Errorf("%w: %w", context.DeadlineExceeded, err), true)
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
		// The wallet ended the session itself, which it does when the user
		// dismisses the request.
		return &signer.Error{Kind: signer.KindCancelled, Op: method, Message: "wallet closed the session", RequestSent: true, Cause: err}
	}
	// Abnormal closure, EOF or a broken socket: the wallet never answered.
	return &signer.Error{Kind: signer.KindInterrupted, Op: method, Message: "bridge connection lost", RequestSent: true, Cause: err}
}

func kindForCode(method string, e *rpcError, params any) signer.Kind {
	switch e.Code {
	case CodeAuthorizationFailed:
		if p, ok := params.(authorizeParams); ok && p.AuthToken == "" {
			return signer.KindRejected
		}
		return signer.KindSessionInvalid
	case CodeNotSigned:
		return signer.KindRejected
	case CodeNotSubmitted, CodeInvalidPayloads, CodeTooManyPayloads:
		return signer.KindUnknown
	default:
		return signer.Classify(method, errors.New(e.Message), true).Kind //nolint:err113 // raw wallet message
	}
}

type identityParams struct {
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
	Icon string `json:"icon,omitempty"`
}

type authorizeParams struct {
	Identity  identityParams        `json:"identity"`
	Chain     string                `json:"chain,omitempty"`
	AuthToken string                `json:"auth_token,omitempty"`
	SignIn    *signer.SignInPayload `json:"sign_in_payload,omitempty"`
}

type authorizeResult struct {
	AuthToken string `json:"auth_token"`
	Accounts  []struct {
		Address string `json:"address"`
		Label   string `json:"label"`
	} `json:"accounts"`
	WalletURIBase string `json:"wallet_uri_base"`
	SignInResult  *struct {
		Address       string `json:"address"`
		SignedMessage string `json:"signed_message"`
		Signature     string `json:"signature"`
	} `json:"sign_in_result"`
}

// Authorize requests or refreshes an authorization.
func (c *Conn) Authorize(ctx context.Context, req signer.AuthorizeRequest) (*signer.Authorization, error) {
	params := authorizeParams{
		Identity:  identityParams{Name: req.Identity.Name, URI: req.Identity.URI, Icon: req.Identity.Icon},
		Chain:     req.Chain,
		AuthToken: req.AuthToken,
		SignIn:    req.SignIn,
	}

	var res authorizeResult
	if err := c.call(ctx, signer.OpAuthorize, params, &res); err != nil {
		return nil, err
	}
	if res.AuthToken == "" || len(res.Accounts) == 0 {
		return nil, &signer.Error{Kind: signer.KindUnknown, Op: signer.OpAuthorize, Message: "authorization without token or accounts", RequestSent: true}
	}

	auth := &signer.Authorization{AuthToken: res.AuthToken, WalletURIBase: res.WalletURIBase}
	for _, a := range res.Accounts {
		acct, err := decodeAccount(a.Address, a.Label)
		if err != nil {
			return nil, &signer.Error{Kind: signer.KindUnknown, Op: signer.OpAuthorize, Message: "invalid account address", RequestSent: true, Cause: err}
		}
		auth.Accounts = append(auth.Accounts, acct)
	}

	if sr := res.SignInResult; sr != nil {
		acct, err := decodeAccount(sr.Address, "")
		if err != nil {
			return nil, &signer.Error{Kind: signer.KindUnknown, Op: signer.OpAuthorize, Message: "invalid sign-in address", RequestSent: true, Cause: err}
		}
		msg, err1 := base64.StdEncoding.DecodeString(sr.SignedMessage)
		sig, err2 := base64.StdEncoding.DecodeString(sr.Signature)
		if err := errors.Join(err1, err2); err != nil {
			return nil, &signer.Error{Kind: signer.KindUnknown, Op: signer.OpAuthorize, Message: "invalid sign-in result", RequestSent: true, Cause: err}
		}
		auth.SignIn = &signer.SignInResult{Address: acct, SignedMessage: msg, Signature: sig}
	}
	return auth, nil
}

// Deauthorize invalidates the token at the wallet.
func (c *Conn) Deauthorize(ctx context.Context, authToken string) error {
	return c.call(ctx, signer.OpDeauthorize, map[string]string{"auth_token": authToken}, nil)
}

type signAndSendParams struct {
	AuthToken string   `json:"auth_token"`
	Payloads  []string `json:"payloads"`
	Options   struct {
		MinContextSlot uint64 `json:"min_context_slot,omitempty"`
	} `json:"options"`
}

// SignAndSendTransactions asks the wallet to sign and broadcast. Signatures
// come back base64 encoded and are returned base58 encoded.
func (c *Conn) SignAndSendTransactions(ctx context.Context, req signer.SignAndSendRequest) ([]string, error) {
	params := signAndSendParams{AuthToken: req.AuthToken, Payloads: encodeAll(req.Transactions)}
	params.Options.MinContextSlot = req.MinContextSlot

	var res struct {
		Signatures []string `json:"signatures"`
	}
	if err := c.call(ctx, signer.OpSignAndSend, params, &res); err != nil {
		return nil, err
	}
	if len(res.Signatures) != len(req.Transactions) {
		return nil, &signer.Error{Kind: signer.KindUnknown, Op: signer.OpSignAndSend, Message: "signature count mismatch", RequestSent: true}
	}

	out := make([]string, 0, len(res.Signatures))
	for _, s := range res.Signatures {
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil || len(raw) != chain.SignatureSize {
			return nil, &signer.Error{Kind: signer.KindUnknown, Op: signer.OpSignAndSend, Message: "invalid signature encoding", RequestSent: true, Cause: err}
		}
		out = append(out, base58.Encode(raw))
	}
	return out, nil
}

// SignMessages asks the wallet to sign arbitrary payloads.
func (c *Conn) SignMessages(ctx context.Context, req signer.SignMessagesRequest) ([][]byte, error) {
	addrs := make([]string, 0, len(req.Addresses))
	for _, a := range req.Addresses {
		addrs = append(addrs, base64.StdEncoding.EncodeToString(a.Key[:]))
	}
	params := map[string]any{
		"auth_token": req.AuthToken,
		"addresses":  addrs,
		"payloads":   encodeAll(req.Payloads),
	}

	var res struct {
		SignedPayloads []string `json:"signed_payloads"`
	}
	if err := c.call(ctx, signer.OpSignMessages, params, &res); err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(res.SignedPayloads))
	for _, s := range res.SignedPayloads {
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, &signer.Error{Kind: signer.KindUnknown, Op: signer.OpSignMessages, Message: "invalid payload encoding", RequestSent: true, Cause: err}
		}
		out = append(out, raw)
	}
	return out, nil
}

// Close ends the session. Safe to call more than once.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}

func encodeAll(in [][]byte) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		out = append(out, base64.StdEncoding.EncodeToString(b))
	}
	return out
}

func decodeAccount(b64, label string) (chain.Account, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return chain.Account{}, err
	}
	return chain.AccountFromBytes(raw, label)
}
