package ocppj

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseCall(t *testing.T) {
	raw := `[2,"19223201","BootNotification",{"chargePointModel":"model","chargePointVendor":"vendor"}]`
	msg, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	call, ok := msg.(*Call)
	if !ok {
		t.Fatalf("expected *Call, got %T", msg)
	}
	if call.MessageType() != CALL {
		t.Errorf("message type = %v, want %v", call.MessageType(), CALL)
	}
	if call.UniqueID != "19223201" {
		t.Errorf("unique id = %q, want %q", call.UniqueID, "19223201")
	}
	if call.Action != "BootNotification" {
		t.Errorf("action = %q, want %q", call.Action, "BootNotification")
	}

	var payload map[string]string
	if err := json.Unmarshal(call.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["chargePointModel"] != "model" {
		t.Errorf("payload model = %q, want %q", payload["chargePointModel"], "model")
	}
}

func TestParseCallResult(t *testing.T) {
	raw := `[3,"19223201",{"status":"Accepted","interval":300}]`
	msg, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	result, ok := msg.(*CallResult)
	if !ok {
		t.Fatalf("expected *CallResult, got %T", msg)
	}
	if result.UniqueID != "19223201" {
		t.Errorf("unique id = %q, want %q", result.UniqueID, "19223201")
	}
}

func TestParseCallError(t *testing.T) {
	raw := `[4,"19223201","NotSupported","action not supported",{"detail":"x"}]`
	msg, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	callError, ok := msg.(*CallError)
	if !ok {
		t.Fatalf("expected *CallError, got %T", msg)
	}
	if callError.ErrorCode != NotSupported {
		t.Errorf("error code = %q, want %q", callError.ErrorCode, NotSupported)
	}
	if callError.ErrorDescription != "action not supported" {
		t.Errorf("description = %q", callError.ErrorDescription)
	}
	if string(callError.ErrorDetails) != `{"detail":"x"}` {
		t.Errorf("details = %s", callError.ErrorDetails)
	}
}

func TestParseCallErrorWithoutDetails(t *testing.T) {
	msg, err := ParseMessage([]byte(`[4,"1","InternalError","boom"]`))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	callError := msg.(*CallError)
	if callError.ErrorDetails != nil {
		t.Errorf("details = %s, want none", callError.ErrorDetails)
	}
}

func TestParseCallErrorUnknownCode(t *testing.T) {
	msg, err := ParseMessage([]byte(`[4,"1","SomeFutureCode","boom",{}]`))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	callError := msg.(*CallError)
	if callError.ErrorCode != GenericError {
		t.Errorf("error code = %q, want %q", callError.ErrorCode, GenericError)
	}
}

func TestParseTolerates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"extra call elements", `[2,"1","Heartbeat",{},"extra"]`},
		{"unknown payload keys", `[2,"1","Heartbeat",{"bogus":true}]`},
		{"extra result elements", `[3,"1",{},42]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMessage([]byte(tt.raw)); err != nil {
				t.Errorf("ParseMessage(%s): %v", tt.raw, err)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `garbage`},
		{"not an array", `{"messageTypeId":2}`},
		{"too short", `[2,"1"]`},
		{"non integer type", `["2","1",{}]`},
		{"non string id", `[3,42,{}]`},
		{"empty id", `[3,"",{}]`},
		{"unknown message type", `[9,"1",{}]`},
		{"call without payload", `[2,"1","Heartbeat"]`},
		{"call error without description", `[4,"1","InternalError"]`},
		{"non string action", `[2,"1",42,{}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.raw))
			if err == nil {
				t.Fatalf("ParseMessage(%s) succeeded, want error", tt.raw)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("error type = %T, want *ParseError", err)
			}
		})
	}
}

func TestCallRoundTrip(t *testing.T) {
	call := &Call{UniqueID: "42", Action: "Heartbeat", Payload: json.RawMessage(`{"a":1}`)}
	data, err := call.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	parsed := msg.(*Call)
	if parsed.UniqueID != call.UniqueID || parsed.Action != call.Action {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
	if string(parsed.Payload) != `{"a":1}` {
		t.Errorf("payload = %s", parsed.Payload)
	}
}

func TestMarshalNilPayloads(t *testing.T) {
	call := &Call{UniqueID: "1", Action: "Heartbeat"}
	data, err := call.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal call: %v", err)
	}
	if string(data) != `[2,"1","Heartbeat",{}]` {
		t.Errorf("call = %s", data)
	}

	result := &CallResult{UniqueID: "1"}
	data, err = result.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if string(data) != `[3,"1",{}]` {
		t.Errorf("result = %s", data)
	}
}

func TestMarshalCallErrorAlwaysEmitsDetails(t *testing.T) {
	callError := &CallError{UniqueID: "1", ErrorCode: InternalError, ErrorDescription: "boom"}
	data, err := callError.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `[4,"1","InternalError","boom",{}]` {
		t.Errorf("call error = %s", data)
	}
}
