// Package walletsession owns the authorization with the external signer.
//
// A Session holds at most one authorization token in memory, never persists
// it, and serializes every interaction with the signer so that at most one
// transport session is open at a time. Callers queue in arrival order.
package walletsession

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/signer"
)

// State is the authorization state of a Session.
type State int

// Session states.
const (
	StateUnauthorized State = iota
	StateAuthorizing
	StateAuthorized
	StateRevoked
)

func (s State) String() string {
	switch s {
	case StateAuthorizing:
		return "authorizing"
	case StateAuthorized:
		return "authorized"
	case StateRevoked:
		return "revoked"
	default:
		return "unauthorized"
	}
}

// DefaultRoundTripTimeout bounds one signer round trip, including the time
// the user spends in the wallet UI.
const DefaultRoundTripTimeout = 5 * time.Minute

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Recorder receives signer metrics.
type Recorder interface {
	RecordSignerCall(op, outcome string, duration time.Duration)
	RecordReauthorization()
	SessionOpened()
	SessionClosed()
}

// Config configures a Session.
type Config struct {
	Identity         signer.AppIdentity
	Chain            string
	RoundTripTimeout time.Duration
}

// Wallet is what an Operation sees: the authorized account and the signer
// calls allowed under the current authorization.
type Wallet interface {
	Account() chain.Account
	SignAndSend(ctx context.Context, tx []byte, minContextSlot uint64) (string, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// Operation runs under authorization. It must not retain the Wallet.
type Operation func(ctx context.Context, w Wallet) error

// Session mediates all interaction with the external signer.
type Session struct {
	transport signer.Transport
	cfg       Config
	log       LogWriter
	rec       Recorder

	sem *semaphore.Weighted

	mu    sync.RWMutex
	state State
	auth  *signer.Authorization
}

// Option configures optional Session collaborators.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l LogWriter) Option {
	return func(s *Session) { s.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.rec = r }
}

// New creates an unauthorized Session.
func New(transport signer.Transport, cfg Config, opts ...Option) *Session {
	if cfg.RoundTripTimeout <= 0 {
		cfg.RoundTripTimeout = DefaultRoundTripTimeout
	}
	s := &Session{
		transport: transport,
		cfg:       cfg,
		log:       nopLogger{},
		rec:       nopRecorder{},
		sem:       semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthorized reports whether a token is held.
func (s *Session) IsAuthorized() bool {
	return s.State() == StateAuthorized
}

// Account returns the authorized account, if any.
func (s *Session) Account() (chain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthorized {
		return chain.Account{}, false
	}
	return s.auth.Account()
}

// Authorize establishes a session if none is held and returns the authorized
// account. An existing authorization is reused without contacting the signer.
func (s *Session) Authorize(ctx context.Context) (chain.Account, error) {
	var acct chain.Account
	err := s.exclusive(ctx, func(ctx context.Context, conn signer.Conn) error {
		var err error
		acct, err = s.ensureAuthorized(ctx, conn)
		return err
	}, func() bool {
		a, ok := s.Account()
		acct = a
		return ok
	})
	return acct, err
}

// SignIn authorizes with a sign-in payload, reauthorizing an existing
// session, and returns the wallet's sign-in result.
func (s *Session) SignIn(ctx context.Context, payload signer.SignInPayload) (*signer.SignInResult, error) {
	var result *signer.SignInResult
	err := s.exclusive(ctx, func(ctx context.Context, conn signer.Conn) error {
		auth, err := s.authorize(ctx, conn, s.token(), &payload)
		if signer.IsKind(err, signer.KindSessionInvalid) {
			s.rec.RecordReauthorization()
			auth, err = s.authorize(ctx, conn, "", &payload)
		}
		if err != nil {
			return err
		}
		if auth.SignIn == nil {
			acct, _ := auth.Account()
			result = &signer.SignInResult{Address: acct}
			return nil
		}
		result = auth.SignIn
		return nil
	}, nil)
	return result, err
}

// RunAuthorized runs op under authorization, authorizing first if needed.
// If the signer rejects the token, the session re-authorizes once and runs
// op once more; a second rejection is returned as a session-invalid error.
//
// Once the caller holds the signer, cancellation of ctx is no longer
// honored: the wallet interaction is allowed to resolve so the state stays
// consistent. Each round trip is still bounded by the configured timeout.
func (s *Session) RunAuthorized(ctx context.Context, op Operation) error {
	return s.exclusive(ctx, func(ctx context.Context, conn signer.Conn) error {
		acct, err := s.ensureAuthorized(ctx, conn)
		if err != nil {
			return err
		}

		err = op(ctx, &wallet{s: s, conn: conn, token: s.token(), account: acct})
		if !signer.IsKind(err, signer.KindSessionInvalid) {
			return err
		}

		s.log.Debug("signer rejected session token, re-authorizing")
		s.invalidate()
		s.rec.RecordReauthorization()

		acct, err = s.ensureAuthorized(ctx, conn)
		if err != nil {
			return reauthorizationFailed(err)
		}
		err = op(ctx, &wallet{s: s, conn: conn, token: s.token(), account: acct})
		if signer.IsKind(err, signer.KindSessionInvalid) {
			s.invalidate()
		}
		return err
	}, nil)
}

// reauthorizationFailed keeps the user's own decision visible and reports
// every other failure of the lazy re-authorization as an invalid session.
func reauthorizationFailed(err error) error {
	switch signer.KindOf(err) {
	case signer.KindCancelled, signer.KindRejected, signer.KindTimeout, signer.KindSessionInvalid:
		return err
	default:
		return &signer.Error{Kind: signer.KindSessionInvalid, Op: signer.OpAuthorize, Message: "re-authorization failed", Cause: err}
	}
}

// SignMessage signs message with the authorized account.
func (s *Session) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	var sig []byte
	err := s.RunAuthorized(ctx, func(ctx context.Context, w Wallet) error {
		var err error
		sig, err = w.SignMessage(ctx, message)
		return err
	})
	return sig, err
}

// Revoke drops the authorization. The token is forgotten locally first, then
// the signer is asked to deauthorize it; a failure there is logged and
// otherwise ignored. Revoke is idempotent and leaves the session
// Unauthorized.
func (s *Session) Revoke(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	s.mu.Lock()
	var token string
	if s.auth != nil {
		token = s.auth.AuthToken
		s.state = StateRevoked
	}
	s.auth = nil
	s.mu.Unlock()

	if token != "" {
		sctx := context.WithoutCancel(ctx)
		if err := s.withConn(sctx, func(ctx context.Context, conn signer.Conn) error {
			return s.roundTrip(ctx, signer.OpDeauthorize, func(ctx context.Context) error {
				return conn.Deauthorize(ctx, token)
			})
		}); err != nil {
			s.log.Error("deauthorize failed, token dropped locally: %v", err)
		}
	}

	s.mu.Lock()
	s.state = StateUnauthorized
	s.mu.Unlock()
	return nil
}

// Probe opens and closes a transport session without touching the
// authorization. It queues behind in-flight signer work like any other call.
func (s *Session) Probe(ctx context.Context) error {
	return s.exclusive(ctx, func(context.Context, signer.Conn) error { return nil }, nil)
}

// exclusive waits for the signer in FIFO order, then runs fn on a fresh
// transport session. fast, when non-nil and returning true, short-circuits
// without opening a session.
func (s *Session) exclusive(ctx context.Context, fn func(ctx context.Context, conn signer.Conn) error, fast func() bool) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	if fast != nil && fast() {
		return nil
	}
	return s.withConn(context.WithoutCancel(ctx), fn)
}

// withConn opens a transport session and guarantees it is closed on every
// exit path.
func (s *Session) withConn(ctx context.Context, fn func(ctx context.Context, conn signer.Conn) error) (err error) {
	openCtx, cancel := context.WithTimeout(ctx, s.cfg.RoundTripTimeout)
	conn, err := s.transport.Open(openCtx)
	cancel()
	if err != nil {
		return signer.Classify(signer.OpOpen, err, false)
	}
	s.rec.SessionOpened()

	defer func() {
		if cerr := conn.Close(); cerr != nil {
			s.log.Debug("closing signer session: %v", cerr)
		}
		s.rec.SessionClosed()
	}()

	return fn(ctx, conn)
}

func (s *Session) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auth == nil {
		return ""
	}
	return s.auth.AuthToken
}

func (s *Session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = nil
	s.state = StateUnauthorized
}

// ensureAuthorized returns the held account or performs a fresh authorization.
func (s *Session) ensureAuthorized(ctx context.Context, conn signer.Conn) (chain.Account, error) {
	if acct, ok := s.Account(); ok {
		return acct, nil
	}
	auth, err := s.authorize(ctx, conn, "", nil)
	if err != nil {
		return chain.Account{}, err
	}
	acct, _ := auth.Account()
	return acct, nil
}

// authorize runs the handshake and stores the result. On failure the
// previous state is restored when a token is still held, otherwise the
// session returns to Unauthorized.
func (s *Session) authorize(ctx context.Context, conn signer.Conn, token string, signIn *signer.SignInPayload) (*signer.Authorization, error) {
	s.mu.Lock()
	prev, prevAuth := s.state, s.auth
	s.state = StateAuthorizing
	s.mu.Unlock()

	var auth *signer.Authorization
	err := s.roundTrip(ctx, signer.OpAuthorize, func(ctx context.Context) error {
		var err error
		auth, err = conn.Authorize(ctx, signer.AuthorizeRequest{
			Identity:  s.cfg.Identity,
			Chain:     s.cfg.Chain,
			AuthToken: token,
			SignIn:    signIn,
		})
		return err
	})
	if err == nil {
		if _, ok := auth.Account(); !ok {
			err = signer.NewError(signer.KindUnknown, signer.OpAuthorize, "wallet returned no accounts")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if signer.IsKind(err, signer.KindSessionInvalid) || prevAuth == nil {
			s.state, s.auth = StateUnauthorized, nil
		} else {
			s.state, s.auth = prev, prevAuth
		}
		return nil, err
	}
	s.state, s.auth = StateAuthorized, auth
	acct, _ := auth.Account()
	s.log.Debug("signer authorized account %s", acct.Short())
	return auth, nil
}

// roundTrip bounds one signer call, classifies its error and records it.
func (s *Session) roundTrip(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	rctx, cancel := context.WithTimeout(ctx, s.cfg.RoundTripTimeout)
	defer cancel()

	start := time.Now()
	classified := signer.Classify(op, fn(rctx), true)

	outcome := "ok"
	if classified != nil {
		outcome = classified.Kind.String()
		s.log.Debug("signer %s failed: %s", op, outcome)
		s.rec.RecordSignerCall(op, outcome, time.Since(start))
		return classified
	}
	s.rec.RecordSignerCall(op, outcome, time.Since(start))
	return nil
}

type wallet struct {
	s       *Session
	conn    signer.Conn
	token   string
	account chain.Account
}

func (w *wallet) Account() chain.Account {
	return w.account
}

func (w *wallet) SignAndSend(ctx context.Context, tx []byte, minContextSlot uint64) (string, error) {
	var sigs []string
	err := w.s.roundTrip(ctx, signer.OpSignAndSend, func(ctx context.Context) error {
		var err error
		sigs, err = w.conn.SignAndSendTransactions(ctx, signer.SignAndSendRequest{
			AuthToken:      w.token,
			Transactions:   [][]byte{tx},
			MinContextSlot: minContextSlot,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	if len(sigs) != 1 || sigs[0] == "" {
		return "", &signer.Error{Kind: signer.KindUnknown, Op: signer.OpSignAndSend, Message: "wallet returned no signature", RequestSent: true}
	}
	return sigs[0], nil
}

func (w *wallet) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	var out [][]byte
	err := w.s.roundTrip(ctx, signer.OpSignMessages, func(ctx context.Context) error {
		var err error
		out, err = w.conn.SignMessages(ctx, signer.SignMessagesRequest{
			AuthToken: w.token,
			Addresses: []chain.Account{w.account},
			Payloads:  [][]byte{message},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, &signer.Error{Kind: signer.KindUnknown, Op: signer.OpSignMessages, Message: "wallet returned no signature", RequestSent: true}
	}
	return out[0], nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

type nopRecorder struct{}

func (nopRecorder) RecordSignerCall(string, string, time.Duration) {}
func (nopRecorder) RecordReauthorization()                         {}
func (nopRecorder) SessionOpened()                                 {}
func (nopRecorder) SessionClosed()                                 {}
