// Package ocpp turns the raw bidirectional OCPP-J message stream into
// request/response semantics: outgoing calls are tracked by message id until
// their reply, timeout or disconnect; incoming calls are routed to registered
// per-action handlers and always answered exactly once.
package ocpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Jaypatelbond/ocpp-client-go/ocppj"
)

var log = logrus.StandardLogger()

// SetLogger replaces the package logger.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// DefaultRequestTimeout bounds SendCall when the caller's context carries no
// deadline of its own.
const DefaultRequestTimeout = 30 * time.Second

// Transport is the connection the client correlates requests over.
// Implemented by *ws.Client.
type Transport interface {
	Connect(csURL, chargePointID string) error
	Disconnect() error
	Send(msg ocppj.Message) error
	Inbound() <-chan ocppj.Message
	IsConnected() bool
}

// CallHandler serves one inbound action. The returned payload is wrapped in a
// CallResult. Returning an *Error picks the CallError code of the reply; any
// other error (or a panic) is answered with an InternalError.
type CallHandler func(call *ocppj.Call) (payload interface{}, err error)

type callOutcome struct {
	result json.RawMessage
	err    error
}

// Client is the call-correlation layer for one charge point endpoint.
type Client struct {
	transport Transport
	timeout   time.Duration

	// pending maps in-flight outbound message ids to their resolution slot.
	// Entries are claimed with LoadAndDelete, so each request resolves at
	// most once no matter how reply, timeout and disconnect interleave.
	pending sync.Map // string -> chan callOutcome

	handlersMu sync.RWMutex
	handlers   map[string]CallHandler

	runMu sync.Mutex
	done  chan struct{}
}

func NewClient(transport Transport) *Client {
	return &Client{
		transport: transport,
		timeout:   DefaultRequestTimeout,
		handlers:  map[string]CallHandler{},
	}
}

// SetRequestTimeout overrides the default per-request timeout.
func (c *Client) SetRequestTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// OnCall registers the handler for an action. The last registration wins.
func (c *Client) OnCall(action string, handler CallHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if handler == nil {
		delete(c.handlers, action)
		return
	}
	c.handlers[action] = handler
}

// Start connects the transport and begins consuming its inbound stream.
func (c *Client) Start(csURL, chargePointID string) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.done != nil {
		return errors.New("ocpp: client already started")
	}
	if err := c.transport.Connect(csURL, chargePointID); err != nil {
		return err
	}
	c.done = make(chan struct{})
	go c.readLoop(c.done)
	return nil
}

// Stop disconnects the transport and resolves every pending request with
// ErrClientDisconnected. No request is left hanging across the boundary.
func (c *Client) Stop() error {
	c.runMu.Lock()
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.runMu.Unlock()

	err := c.transport.Disconnect()
	c.failPending(ErrClientDisconnected)
	return err
}

func (c *Client) IsConnected() bool { return c.transport.IsConnected() }

// SendCall issues a request and waits for the matching reply. The pending
// entry is registered before transmitting, closing the race between send and
// an immediate reply. A context deadline overrides the default timeout.
func (c *Client) SendCall(ctx context.Context, action string, payload interface{}) (json.RawMessage, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("ocpp: marshal %s payload: %w", action, err)
	}

	messageID := uuid.NewString()
	call := &ocppj.Call{UniqueID: messageID, Action: action, Payload: raw}

	outcomeC := make(chan callOutcome, 1)
	c.pending.Store(messageID, outcomeC)

	if err := c.transport.Send(call); err != nil {
		c.pending.Delete(messageID)
		return nil, err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	select {
	case outcome := <-outcomeC:
		return outcome.result, outcome.err
	case <-ctx.Done():
		c.pending.Delete(messageID)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{MessageID: messageID, Action: action}
		}
		return nil, ctx.Err()
	}
}

func (c *Client) readLoop(done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-c.transport.Inbound():
			if !ok {
				return
			}
			switch m := msg.(type) {
			case *ocppj.Call:
				// Handlers run concurrently so a slow one cannot stall
				// correlation of other in-flight replies.
				go c.dispatchCall(m)
			case *ocppj.CallResult:
				c.resolve(m.UniqueID, callOutcome{result: m.Payload})
			case *ocppj.CallError:
				c.resolve(m.UniqueID, callOutcome{err: &Error{
					Code:        m.ErrorCode,
					Description: m.ErrorDescription,
					Details:     m.ErrorDetails,
					MessageID:   m.UniqueID,
				}})
			}
		}
	}
}

func (c *Client) resolve(messageID string, outcome callOutcome) {
	slot, ok := c.pending.LoadAndDelete(messageID)
	if !ok {
		// Stale, duplicate or unknown reply. Timeouts legitimately produce
		// this, so drop without complaint.
		log.WithField("message_id", messageID).Debugln("ocpp: dropping unmatched reply")
		return
	}
	slot.(chan callOutcome) <- outcome
}

func (c *Client) failPending(cause error) {
	c.pending.Range(func(key, _ interface{}) bool {
		if slot, ok := c.pending.LoadAndDelete(key); ok {
			slot.(chan callOutcome) <- callOutcome{err: cause}
		}
		return true
	})
}

func (c *Client) dispatchCall(call *ocppj.Call) {
	c.handlersMu.RLock()
	handler := c.handlers[call.Action]
	c.handlersMu.RUnlock()

	if handler == nil {
		c.replyError(call, ocppj.NotImplemented, fmt.Sprintf("Action '%s' is not implemented", call.Action), nil)
		return
	}

	payload, err := invoke(handler, call)
	if err != nil {
		var ocppErr *Error
		if errors.As(err, &ocppErr) {
			c.replyError(call, ocppErr.Code, ocppErr.Description, ocppErr.Details)
			return
		}
		c.replyError(call, ocppj.InternalError, fmt.Sprintf("Handler error: %v", err), nil)
		return
	}

	raw, err := marshalPayload(payload)
	if err != nil {
		c.replyError(call, ocppj.InternalError, fmt.Sprintf("Handler error: %v", err), nil)
		return
	}
	if err := c.transport.Send(&ocppj.CallResult{UniqueID: call.UniqueID, Payload: raw}); err != nil {
		log.WithError(err).WithField("action", call.Action).Warnln("ocpp: failed to send call result")
	}
}

// invoke shields the read path from a misbehaving application handler.
func invoke(handler CallHandler, call *ocppj.Call) (payload interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return handler(call)
}

func (c *Client) replyError(call *ocppj.Call, code ocppj.ErrorCode, description string, details json.RawMessage) {
	callError := &ocppj.CallError{
		UniqueID:         call.UniqueID,
		ErrorCode:        code,
		ErrorDescription: description,
		ErrorDetails:     details,
	}
	if err := c.transport.Send(callError); err != nil {
		log.WithError(err).WithField("action", call.Action).Warnln("ocpp: failed to send call error")
	}
}

func marshalPayload(payload interface{}) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if len(p) == 0 {
			return json.RawMessage("{}"), nil
		}
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
