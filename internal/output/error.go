package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Category   string            `json:"category,omitempty"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// NewErrorDetail extracts the structured fields of err.
func NewErrorDetail(err error) ErrorDetail {
	var te *tjerr.TipjarError
	if tjerr.As(err, &te) {
		return ErrorDetail{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: te.Suggestion,
			ExitCode:   te.ExitCode,
		}
	}
	return ErrorDetail{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		ExitCode: tjerr.ExitGeneral,
	}
}

// FormatError formats an error for display. category, when set, is the
// UI outcome category of the error.
func FormatError(w io.Writer, err error, format Format, category string) error {
	if err == nil {
		return nil
	}

	detail := NewErrorDetail(err)
	detail.Category = category

	if format == FormatJSON {
		return writeJSON(w, ErrorOutput{Error: detail})
	}
	return formatErrorText(w, detail)
}

func formatErrorText(w io.Writer, d ErrorDetail) error {
	var sb strings.Builder

	label := "Error"
	switch d.Category {
	case "cancelled":
		label = "Cancelled"
	case "rejected":
		label = "Declined"
	case "unknown":
		label = "Outcome unknown"
	}
	sb.WriteString(fmt.Sprintf("%s: %s\n", label, d.Message))

	if len(d.Details) > 0 {
		keys := make([]string, 0, len(d.Details))
		for k := range d.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, d.Details[k]))
		}
	}

	if d.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\nSuggestion: %s\n", d.Suggestion))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, map[string]string{"status": "success", "message": message})
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
