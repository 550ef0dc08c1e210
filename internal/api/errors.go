package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/mrz1836/tipjar/internal/output"
	"github.com/mrz1836/tipjar/internal/tip"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// statusByCode maps error codes to HTTP status. An unknown outcome is 202:
// the request was accepted and may still complete.
//
//nolint:gochecknoglobals // Lookup table
var statusByCode = map[string]int{
	"INVALID_INPUT":           http.StatusBadRequest,
	"INVALID_AMOUNT":          http.StatusBadRequest,
	"BELOW_MINIMUM":           http.StatusBadRequest,
	"INVALID_RECIPIENT":       http.StatusBadRequest,
	"SELF_TIP":                http.StatusBadRequest,
	"INSUFFICIENT_FOR_AMOUNT": http.StatusUnprocessableEntity,
	"INSUFFICIENT_FOR_FEE":    http.StatusUnprocessableEntity,
	"TX_FAILED":               http.StatusUnprocessableEntity,
	"NETWORK_UNAVAILABLE":     http.StatusServiceUnavailable,
	"TIMEOUT":                 http.StatusGatewayTimeout,
	"USER_CANCELLED":          http.StatusConflict,
	"USER_REJECTED":           http.StatusConflict,
	"SIGNER_SESSION_INVALID":  http.StatusUnauthorized,
	"ACCOUNT_CHANGED":         http.StatusUnauthorized,
	"NOT_CONNECTED":           http.StatusUnauthorized,
	"SIGNER_UNKNOWN_ERROR":    http.StatusBadGateway,
	"UNKNOWN_OUTCOME":         http.StatusAccepted,
}

// StatusFor returns the HTTP status for an error.
func StatusFor(err error) int {
	if errors.Is(err, context.Canceled) {
		return http.StatusConflict
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	if code, ok := statusByCode[tjerr.Code(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func respondWithError(w http.ResponseWriter, err error) {
	detail := output.NewErrorDetail(err)
	detail.Category = string(tip.CategoryOf(err))
	if errors.Is(err, context.Canceled) {
		detail.Code = "ABANDONED"
	}
	respondWithJSON(w, StatusFor(err), output.ErrorOutput{Error: detail})
}
