package ocpp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Jaypatelbond/ocpp-client-go/ocppj"
)

// ErrClientDisconnected resolves every request that was still pending when
// the client disconnected, distinguishing "the connection went away" from
// "nobody answered" (TimeoutError).
var ErrClientDisconnected = errors.New("ocpp: client disconnected while request was pending")

// Error is a protocol-level failure: either a CallError received from the
// peer, or one produced locally by a call handler to pick the reply code.
type Error struct {
	Code        ocppj.ErrorCode
	Description string
	Details     json.RawMessage
	MessageID   string
}

func NewError(code ocppj.ErrorCode, description, messageID string) *Error {
	return &Error{Code: code, Description: description, MessageID: messageID}
}

func (e *Error) Error() string {
	return fmt.Sprintf("ocpp: %v - %v", e.Code, e.Description)
}

// TimeoutError reports that no reply arrived within the request budget. The
// request is no longer tracked; a late reply will be silently dropped.
type TimeoutError struct {
	MessageID string
	Action    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ocpp: request %s (%s) timed out", e.MessageID, e.Action)
}
