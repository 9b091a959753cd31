// Package ocppj implements the OCPP-J wire format: the untyped JSON arrays
// exchanged between a charge point and a central system over a websocket.
// The three message kinds (Call, CallResult, CallError) carry their payloads
// as raw JSON; typed decoding is the concern of the profile layer on top.
package ocppj

import (
	"encoding/json"
	"fmt"
)

type MessageType int

const (
	CALL        MessageType = 2
	CALL_RESULT MessageType = 3
	CALL_ERROR  MessageType = 4
)

// ErrorCode is the error vocabulary of a CallError frame.
type ErrorCode string

const (
	NotImplemented                ErrorCode = "NotImplemented"
	NotSupported                  ErrorCode = "NotSupported"
	InternalError                 ErrorCode = "InternalError"
	ProtocolError                 ErrorCode = "ProtocolError"
	SecurityError                 ErrorCode = "SecurityError"
	FormationViolation            ErrorCode = "FormationViolation"
	PropertyConstraintViolation   ErrorCode = "PropertyConstraintViolation"
	OccurrenceConstraintViolation ErrorCode = "OccurrenceConstraintViolation"
	TypeConstraintViolation       ErrorCode = "TypeConstraintViolation"
	GenericError                  ErrorCode = "GenericError"
)

var knownErrorCodes = map[ErrorCode]struct{}{
	NotImplemented:                {},
	NotSupported:                  {},
	InternalError:                 {},
	ProtocolError:                 {},
	SecurityError:                 {},
	FormationViolation:            {},
	PropertyConstraintViolation:   {},
	OccurrenceConstraintViolation: {},
	TypeConstraintViolation:       {},
	GenericError:                  {},
}

// asErrorCode maps unrecognized code strings to GenericError, so frames from
// newer protocol revisions still parse.
func asErrorCode(raw string) ErrorCode {
	code := ErrorCode(raw)
	if _, ok := knownErrorCodes[code]; !ok {
		return GenericError
	}
	return code
}

// Message is one of *Call, *CallResult or *CallError.
type Message interface {
	MessageType() MessageType
	GetUniqueID() string
	json.Marshaler
}

// Call is a request frame: [2, "<id>", "<action>", {payload}].
type Call struct {
	UniqueID string
	Action   string
	Payload  json.RawMessage
}

func (call *Call) MessageType() MessageType { return CALL }
func (call *Call) GetUniqueID() string      { return call.UniqueID }

func (call *Call) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{CALL, call.UniqueID, call.Action, orEmptyObject(call.Payload)})
}

// CallResult is a successful reply frame: [3, "<id>", {payload}].
type CallResult struct {
	UniqueID string
	Payload  json.RawMessage
}

func (result *CallResult) MessageType() MessageType { return CALL_RESULT }
func (result *CallResult) GetUniqueID() string      { return result.UniqueID }

func (result *CallResult) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{CALL_RESULT, result.UniqueID, orEmptyObject(result.Payload)})
}

// CallError is a failed reply frame: [4, "<id>", "<code>", "<description>", {details}].
// Details are optional on the wire but always emitted on serialization.
type CallError struct {
	UniqueID         string
	ErrorCode        ErrorCode
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

func (callError *CallError) MessageType() MessageType { return CALL_ERROR }
func (callError *CallError) GetUniqueID() string      { return callError.UniqueID }

func (callError *CallError) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{
		CALL_ERROR,
		callError.UniqueID,
		string(callError.ErrorCode),
		callError.ErrorDescription,
		orEmptyObject(callError.ErrorDetails),
	})
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}

// ParseError reports a frame that could not be decoded. It is always
// recoverable: the caller should log it and keep reading the stream.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ocppj: %s: %s", e.Reason, e.Raw)
}

func newParseError(raw []byte, format string, args ...interface{}) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...), Raw: string(raw)}
}

// ParseMessage decodes a raw OCPP-J frame into one of the three message kinds.
// Failures are reported as *ParseError. Extra array elements and unknown
// payload keys are tolerated; missing mandatory elements are not.
func ParseMessage(data []byte) (Message, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, newParseError(data, "message is not a JSON array")
	}
	if len(elements) < 3 {
		return nil, newParseError(data, "message has %d elements, expected at least 3", len(elements))
	}
	var typeID int
	if err := json.Unmarshal(elements[0], &typeID); err != nil {
		return nil, newParseError(data, "message type is not an integer")
	}
	var uniqueID string
	if err := json.Unmarshal(elements[1], &uniqueID); err != nil {
		return nil, newParseError(data, "message id is not a string")
	}
	if uniqueID == "" {
		return nil, newParseError(data, "message id is empty")
	}

	switch MessageType(typeID) {
	case CALL:
		if len(elements) < 4 {
			return nil, newParseError(data, "call has %d elements, expected 4", len(elements))
		}
		var action string
		if err := json.Unmarshal(elements[2], &action); err != nil {
			return nil, newParseError(data, "call action is not a string")
		}
		return &Call{UniqueID: uniqueID, Action: action, Payload: elements[3]}, nil
	case CALL_RESULT:
		return &CallResult{UniqueID: uniqueID, Payload: elements[2]}, nil
	case CALL_ERROR:
		if len(elements) < 4 {
			return nil, newParseError(data, "call error has %d elements, expected at least 4", len(elements))
		}
		var rawCode string
		if err := json.Unmarshal(elements[2], &rawCode); err != nil {
			return nil, newParseError(data, "error code is not a string")
		}
		var description string
		if err := json.Unmarshal(elements[3], &description); err != nil {
			return nil, newParseError(data, "error description is not a string")
		}
		callError := &CallError{
			UniqueID:         uniqueID,
			ErrorCode:        asErrorCode(rawCode),
			ErrorDescription: description,
		}
		if len(elements) >= 5 {
			callError.ErrorDetails = elements[4]
		}
		return callError, nil
	default:
		return nil, newParseError(data, "invalid message type %d", typeID)
	}
}
