// Package signertest provides a scripted in-memory external signer for tests.
package signertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/signer"
)

// Signer is a fake wallet. Scripted errors are consumed in order, one per
// call of the matching operation; when a queue is empty the call succeeds.
// The zero value is not usable; call New.
type Signer struct {
	mu sync.Mutex

	account chain.Account

	// Delay is applied to every signer call, honoring the context.
	Delay time.Duration

	// OpenErr, when set, fails every Open.
	OpenErr error

	authorizeErrs []error
	signErrs      []error
	messageErrs   []error
	deauthErrs    []error
	signatures    []string

	tokenSeq  int
	validTok  map[string]bool
	sigSeq    int
	openNow   int
	openMax   int
	opens     int
	closes    int
	authCalls int
	deauths   int
	signCalls int
	msgCalls  int
	requests  []signer.SignAndSendRequest
	authReqs  []signer.AuthorizeRequest
}

var _ signer.Transport = (*Signer)(nil)

// New returns a signer that authorizes the given account.
func New(account chain.Account) *Signer {
	return &Signer{account: account, validTok: make(map[string]bool)}
}

// SetAccount changes the account returned by subsequent authorizations.
func (s *Signer) SetAccount(a chain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = a
}

// FailAuthorize queues errors for subsequent Authorize calls.
func (s *Signer) FailAuthorize(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorizeErrs = append(s.authorizeErrs, errs...)
}

// FailSign queues errors for subsequent SignAndSendTransactions calls.
func (s *Signer) FailSign(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signErrs = append(s.signErrs, errs...)
}

// FailSignMessage queues errors for subsequent SignMessages calls.
func (s *Signer) FailSignMessage(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageErrs = append(s.messageErrs, errs...)
}

// FailDeauthorize queues errors for subsequent Deauthorize calls.
func (s *Signer) FailDeauthorize(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deauthErrs = append(s.deauthErrs, errs...)
}

// QueueSignatures sets the signatures returned by subsequent successful sends.
// Without queued signatures, SIG1, SIG2, ... are returned.
func (s *Signer) QueueSignatures(sigs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signatures = append(s.signatures, sigs...)
}

// ExpireTokens invalidates every token issued so far, as a wallet does when
// its session times out.
func (s *Signer) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validTok = make(map[string]bool)
}

// Stats is a snapshot of the call counters.
type Stats struct {
	Opens          int
	Closes         int
	OpenNow        int
	MaxOpen        int
	Authorize      int
	Deauthorize    int
	SignAndSend    int
	SignMessages   int
	ValidTokens    int
	LastAuthTokens []string
}

// Stats returns the current counters.
func (s *Signer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	toks := make([]string, 0, len(s.authReqs))
	for _, r := range s.authReqs {
		toks = append(toks, r.AuthToken)
	}
	return Stats{
		Opens:          s.opens,
		Closes:         s.closes,
		OpenNow:        s.openNow,
		MaxOpen:        s.openMax,
		Authorize:      s.authCalls,
		Deauthorize:    s.deauths,
		SignAndSend:    s.signCalls,
		SignMessages:   s.msgCalls,
		ValidTokens:    len(s.validTok),
		LastAuthTokens: toks,
	}
}

// Requests returns every SignAndSend request received.
func (s *Signer) Requests() []signer.SignAndSendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]signer.SignAndSendRequest(nil), s.requests...)
}

// Open starts a session.
func (s *Signer) Open(ctx context.Context) (signer.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.opens++
	s.openNow++
	if s.openNow > s.openMax {
		s.openMax = s.openNow
	}
	return &conn{s: s}, nil
}

func pop(q *[]error) error {
	if len(*q) == 0 {
		return nil
	}
	err := (*q)[0]
	*q = (*q)[1:]
	return err
}

func (s *Signer) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type conn struct {
	s      *Signer
	closed bool
}

func (c *conn) Authorize(ctx context.Context, req signer.AuthorizeRequest) (*signer.Authorization, error) {
	s := c.s
	s.mu.Lock()
	s.authCalls++
	s.authReqs = append(s.authReqs, req)
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := pop(&s.authorizeErrs); err != nil {
		return nil, err
	}
	if req.AuthToken != "" && !s.validTok[req.AuthToken] {
		return nil, signer.NewError(signer.KindSessionInvalid, signer.OpAuthorize, "auth_token not valid")
	}

	s.tokenSeq++
	tok := fmt.Sprintf("token-%d", s.tokenSeq)
	if req.AuthToken != "" {
		delete(s.validTok, req.AuthToken)
	}
	s.validTok[tok] = true

	auth := &signer.Authorization{AuthToken: tok, Accounts: []chain.Account{s.account}}
	if req.SignIn != nil {
		msg := []byte(req.SignIn.Domain + " wants you to sign in with your account:\n" + s.account.String())
		auth.SignIn = &signer.SignInResult{Address: s.account, SignedMessage: msg, Signature: []byte("signed:" + string(msg))}
	}
	return auth, nil
}

func (c *conn) Deauthorize(ctx context.Context, token string) error {
	s := c.s
	s.mu.Lock()
	s.deauths++
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := pop(&s.deauthErrs); err != nil {
		return err
	}
	delete(s.validTok, token)
	return nil
}

func (c *conn) SignAndSendTransactions(ctx context.Context, req signer.SignAndSendRequest) ([]string, error) {
	s := c.s
	s.mu.Lock()
	s.signCalls++
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := pop(&s.signErrs); err != nil {
		return nil, err
	}
	if !s.validTok[req.AuthToken] {
		return nil, signer.NewError(signer.KindSessionInvalid, signer.OpSignAndSend, "auth_token not valid")
	}

	sigs := make([]string, 0, len(req.Transactions))
	for range req.Transactions {
		if len(s.signatures) > 0 {
			sigs = append(sigs, s.signatures[0])
			s.signatures = s.signatures[1:]
			continue
		}
		s.sigSeq++
		sigs = append(sigs, fmt.Sprintf("SIG%d", s.sigSeq))
	}
	return sigs, nil
}

func (c *conn) SignMessages(ctx context.Context, req signer.SignMessagesRequest) ([][]byte, error) {
	s := c.s
	s.mu.Lock()
	s.msgCalls++
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := pop(&s.messageErrs); err != nil {
		return nil, err
	}
	if !s.validTok[req.AuthToken] {
		return nil, signer.NewError(signer.KindSessionInvalid, signer.OpSignMessages, "auth_token not valid")
	}

	out := make([][]byte, 0, len(req.Payloads))
	for _, p := range req.Payloads {
		out = append(out, append([]byte("signed:"), p...))
	}
	return out, nil
}

func (c *conn) Close() error {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	s.closes++
	s.openNow--
	return nil
}
