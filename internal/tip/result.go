package tip

import (
	"github.com/mrz1836/tipjar/internal/chain"
)

// Status is the delivery state of a successful tip.
type Status string

// Tip statuses.
const (
	StatusSubmitted Status = "submitted" // Broadcast by the wallet, confirmation not checked
	StatusConfirmed Status = "confirmed"
)

// Result is the terminal outcome of a successful SendTip call.
type Result struct {
	ID            string               `json:"id"`
	Signature     string               `json:"signature"`
	Amount        Amount               `json:"amount"`
	DisplayAmount string               `json:"display_amount"`
	Symbol        string               `json:"symbol"`
	Sender        chain.Account        `json:"sender"`
	Recipient     chain.Account        `json:"recipient"`
	Status        Status               `json:"status"`
	Freshness     chain.FreshnessBound `json:"freshness"`
	ExplorerURL   string               `json:"explorer_url,omitempty"`
}
