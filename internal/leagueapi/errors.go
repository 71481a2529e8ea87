package leagueapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
)

// Error wraps an underlying coded error with operation context.
type Error struct {
	Op  string // e.g. "create league", "list chores"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("leagueapi %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// rejected converts an explicit success=false answer into an error.
func rejected(op, serverMsg string) error {
	if serverMsg == "" {
		serverMsg = op + " failed"
	}
	return clienterrors.Rejected(serverMsg)
}

// statusError maps a non-2xx response. A JSON {"error": "..."} body wins over
// the generic status text.
func statusError(status int, body []byte) error {
	msg := fmt.Sprintf("unexpected status %d", status)
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	switch status {
	case http.StatusForbidden:
		return clienterrors.Forbidden(msg)
	case http.StatusNotFound:
		return clienterrors.NotFound(msg)
	default:
		return clienterrors.Server(msg)
	}
}
