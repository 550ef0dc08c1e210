// Package api exposes tipping and wallet session operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/metrics"
	"github.com/mrz1836/tipjar/internal/signer"
	"github.com/mrz1836/tipjar/internal/tip"
	"github.com/mrz1836/tipjar/internal/walletsession"
)

// maxBodyBytes bounds request bodies; every request here is a few short strings.
const maxBodyBytes = 16 << 10

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// TipSender sends tips.
type TipSender interface {
	SendTip(ctx context.Context, recipientText, amountText string) (*tip.Result, error)
}

// SessionManager is the wallet session surface served by the API.
type SessionManager interface {
	State() walletsession.State
	Account() (chain.Account, bool)
	Authorize(ctx context.Context) (chain.Account, error)
	SignIn(ctx context.Context, payload signer.SignInPayload) (*signer.SignInResult, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	Revoke(ctx context.Context) error
}

// Config holds dependencies for the API handler.
type Config struct {
	Tips    TipSender
	Session SessionManager

	// Policy and QuickAmounts are served by the amounts endpoint.
	Policy       tip.Policy
	QuickAmounts []tip.QuickAmount

	Metrics *metrics.Metrics
	Logger  LogWriter
	Version string
}

// Handler serves the HTTP API.
type Handler struct {
	tips    TipSender
	session SessionManager
	policy  tip.Policy
	amounts []tip.QuickAmount
	metrics *metrics.Metrics
	logger  LogWriter
	version string
}

// NewHandler creates a new API handler.
func NewHandler(cfg *Config) *Handler {
	h := &Handler{
		tips:    cfg.Tips,
		session: cfg.Session,
		policy:  cfg.Policy,
		amounts: cfg.QuickAmounts,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		version: cfg.Version,
	}
	if h.logger == nil {
		h.logger = nopLogger{}
	}
	return h
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.requestID, h.instrument)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/tips", h.CreateTip).Methods(http.MethodPost)
	v1.HandleFunc("/tips/amounts", h.ListAmounts).Methods(http.MethodGet)
	v1.HandleFunc("/session", h.GetSession).Methods(http.MethodGet)
	v1.HandleFunc("/session", h.Connect).Methods(http.MethodPost)
	v1.HandleFunc("/session", h.Disconnect).Methods(http.MethodDelete)
	v1.HandleFunc("/session/messages", h.SignMessage).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}

// NewServer wraps the router in an http.Server with conservative timeouts.
// The write timeout is left open because a tip request waits on the user
// approving it in the wallet.
func (h *Handler) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

type ctxKey int

const requestIDKey ctxKey = iota

// requestID tags each request with an id, reusing a well-formed incoming one.
func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestID returns the id assigned to the request, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency by route template.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		h.metrics.RecordHTTPRequest(r.Method, route, rec.status, time.Since(start))
		h.logger.Debug("http %s %s %d %s (request %s)", r.Method, route, rec.status, time.Since(start).Round(time.Millisecond), RequestID(r.Context()))
	})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
