package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mrz1836/tipjar/internal/signer"
	"github.com/mrz1836/tipjar/internal/tip"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// TipRequest is the body of POST /api/v1/tips.
type TipRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// SessionResponse describes the wallet session.
type SessionResponse struct {
	State   string `json:"state"`
	Account string `json:"account,omitempty"`
}

// ConnectRequest is the optional body of POST /api/v1/session.
type ConnectRequest struct {
	SignIn *signer.SignInPayload `json:"sign_in,omitempty"`
}

// ConnectResponse is returned after connecting.
type ConnectResponse struct {
	SessionResponse
	SignedMessage string `json:"signed_message,omitempty"` // base64
	Signature     string `json:"signature,omitempty"`      // base64
}

// SignMessageRequest is the body of POST /api/v1/session/messages.
type SignMessageRequest struct {
	Message string `json:"message"`
}

// AmountsResponse lists the tip policy and quick amounts.
type AmountsResponse struct {
	Minimum string            `json:"minimum"`
	Symbol  string            `json:"symbol"`
	Fee     string            `json:"fee"`
	Amounts []tip.QuickAmount `json:"amounts"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// CreateTip sends a tip. Success returns the result; every failure returns
// the classified error with its UI category.
func (h *Handler) CreateTip(w http.ResponseWriter, r *http.Request) {
	var req TipRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	res, err := h.tips.SendTip(r.Context(), req.Recipient, req.Amount)
	if err != nil {
		if tip.CategoryOf(err) == tip.CategoryError || tip.CategoryOf(err) == tip.CategoryUnknown {
			h.logger.Error("tip request %s failed: %v", RequestID(r.Context()), err)
		}
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// ListAmounts returns the quick tip amounts.
func (h *Handler) ListAmounts(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, AmountsResponse{
		Minimum: h.policy.MinTip,
		Symbol:  h.policy.Symbol,
		Fee:     tip.FormatAmount(tip.Amount(h.policy.FeeLamports), h.policy.Decimals),
		Amounts: h.amounts,
	})
}

// GetSession returns the session state without contacting the wallet.
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, h.sessionResponse())
}

// Connect authorizes the wallet, with a sign-in payload when one is given.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			respondWithError(w, err)
			return
		}
	}

	if req.SignIn == nil {
		if _, err := h.session.Authorize(r.Context()); err != nil {
			respondWithError(w, tip.FromSigner(err))
			return
		}
		respondWithJSON(w, http.StatusOK, ConnectResponse{SessionResponse: h.sessionResponse()})
		return
	}

	result, err := h.session.SignIn(r.Context(), *req.SignIn)
	if err != nil {
		respondWithError(w, tip.FromSigner(err))
		return
	}
	resp := ConnectResponse{SessionResponse: h.sessionResponse()}
	if len(result.SignedMessage) > 0 {
		resp.SignedMessage = base64.StdEncoding.EncodeToString(result.SignedMessage)
		resp.Signature = base64.StdEncoding.EncodeToString(result.Signature)
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// Disconnect revokes the wallet session. It always succeeds.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Revoke(r.Context()); err != nil {
		respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SignMessage signs a UTF-8 message with the connected account.
func (h *Handler) SignMessage(w http.ResponseWriter, r *http.Request) {
	var req SignMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if req.Message == "" {
		respondWithError(w, tjerr.WithDetails(tjerr.ErrInvalidInput, map[string]string{"field": "message"}))
		return
	}

	sig, err := h.session.SignMessage(r.Context(), []byte(req.Message))
	if err != nil {
		respondWithError(w, tip.FromSigner(err))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"account":   h.sessionResponse().Account,
		"signature": base64.StdEncoding.EncodeToString(sig),
	})
}

func (h *Handler) sessionResponse() SessionResponse {
	resp := SessionResponse{State: h.session.State().String()}
	if acct, ok := h.session.Account(); ok {
		resp.Account = acct.String()
	}
	return resp
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return tjerr.WithDetails(tjerr.ErrInvalidInput, map[string]string{"body": "too large"})
		}
		return tjerr.WithDetails(tjerr.ErrInvalidInput, map[string]string{"body": "malformed JSON"})
	}
	return nil
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
