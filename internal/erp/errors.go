package erp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigNotFound is returned when no .erp-config exists in any search path
	ErrConfigNotFound = errors.New("config file not found. Copy .erp-config.example to .erp-config")
	// ErrNotSubmitted is returned for payment actions on draft or cancelled orders
	ErrNotSubmitted = errors.New("sales order must be submitted")
	// ErrNoPaymentLink is returned by link actions when the order has no link yet
	ErrNoPaymentLink = errors.New("no payment link found. Please create payment link first")
	// ErrActionUnavailable is returned when an action is not offered for the order
	ErrActionUnavailable = errors.New("action not available for this sales order")
)

// APIError is a transport-level failure reported by the Frappe server:
// an exception envelope or a non-2xx response.
type APIError struct {
	StatusCode int
	Endpoint   string
	ExcType    string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	if e.ExcType != "" {
		return fmt.Sprintf("API error (%s): %s", e.ExcType, msg)
	}
	return fmt.Sprintf("API error: %s", msg)
}

// RemoteError is a well-formed method response carrying status "error".
// Message is the server text, shown to the user verbatim.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// ReportedError wraps a failure whose message was already shown to the
// user; callers exit non-zero without printing it again.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

func (e *ReportedError) Unwrap() error { return e.Err }

// IsRemoteError reports whether err is a RemoteError and returns it
func IsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// serverMessages unpacks Frappe's _server_messages field, a JSON list of
// JSON-encoded {"message": ...} objects, into plain text.
func serverMessages(raw string) string {
	if raw == "" {
		return ""
	}

	var encoded []string
	if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
		return ""
	}

	var msgs []string
	for _, e := range encoded {
		var m struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(e), &m); err == nil && m.Message != "" {
			msgs = append(msgs, m.Message)
		} else if err != nil {
			msgs = append(msgs, e)
		}
	}
	return strings.Join(msgs, "; ")
}
