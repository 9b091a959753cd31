// Package ws provides the websocket transport of an OCPP-J charge point: a
// single logical connection to one central system, with keep-alive pings,
// automatic reconnection with exponential backoff and a push-based
// connection-state observable.
package ws

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
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

var (
	ErrNotConnected       = errors.New("ws: not connected")
	ErrSendFailed         = errors.New("ws: send failed")
	ErrReconnectExhausted = errors.New("ws: reconnect attempts exhausted")
)

// errClientClosed aborts a dial that finished after Disconnect was called.
var errClientClosed = errors.New("ws: client closed")

// Config is the transport configuration surface.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// PingInterval is the websocket ping cadence, independent of the
	// application-level Heartbeat action. Zero disables client pings.
	PingInterval time.Duration

	AutoReconnect        bool
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	MaxReconnectDelay    time.Duration
	BackoffMultiplier    float64

	// SubProtocols is the ordered preference list offered at the handshake.
	SubProtocols []string
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:       30 * time.Second,
		ReadTimeout:          90 * time.Second,
		WriteTimeout:         10 * time.Second,
		PingInterval:         30 * time.Second,
		AutoReconnect:        true,
		MaxReconnectAttempts: 10,
		ReconnectDelay:       1 * time.Second,
		MaxReconnectDelay:    60 * time.Second,
		BackoffMultiplier:    2.0,
		SubProtocols:         []string{"ocpp1.6"},
	}
}

// reconnectDelay computes the backoff before reconnect attempt n (1-based):
// min(ReconnectDelay * BackoffMultiplier^(n-1), MaxReconnectDelay).
func reconnectDelay(cfg Config, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := cfg.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := time.Duration(float64(cfg.ReconnectDelay) * math.Pow(multiplier, float64(attempt-1)))
	if cfg.MaxReconnectDelay > 0 && delay > cfg.MaxReconnectDelay {
		delay = cfg.MaxReconnectDelay
	}
	return delay
}

// Client maintains one websocket connection to a central system on behalf of
// a single charge point identity. Send is safe for concurrent use; the
// inbound stream is meant for exactly one consumer.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer

	mu               sync.Mutex
	conn             *websocket.Conn
	connecting       bool
	endpoint         string
	basicUser        string
	basicPass        string
	reconnectAttempt int
	reconnecting     bool
	explicitClose    bool
	stopC            chan struct{}

	writeMu sync.Mutex
	inbound chan ocppj.Message
	state   *stateNotifier
}

// NewClient creates a plain (ws://) transport client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.ConnectTimeout,
			Subprotocols:     cfg.SubProtocols,
		},
		inbound: make(chan ocppj.Message, 32),
		state:   newStateNotifier(),
	}
}

// NewTLSClient creates a wss:// transport client. Server verification and any
// client certificates (mutual TLS) are the caller's concern via tlsConfig.
func NewTLSClient(cfg Config, tlsConfig *tls.Config) *Client {
	client := NewClient(cfg)
	client.dialer.TLSClientConfig = tlsConfig
	return client
}

// SetBasicAuth enables HTTP Basic authentication on the upgrade handshake.
func (c *Client) SetBasicAuth(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.basicUser = username
	c.basicPass = password
}

// State returns the current connection state.
func (c *Client) State() ConnectionState { return c.state.get() }

// Subscribe returns a channel receiving every state transition from now on.
func (c *Client) Subscribe() <-chan ConnectionState { return c.state.subscribe() }

// Inbound returns the stream of parsed messages read from the socket.
// Malformed frames are logged and skipped, they never terminate the stream.
func (c *Client) Inbound() <-chan ocppj.Message { return c.inbound }

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect opens the websocket to {csURL trimmed of trailing '/'}/{chargePointID}.
// An error is returned only for caller mistakes (empty arguments, already
// connected). A failed dial is reported through the state observable, and
// schedules reconnection when AutoReconnect is set; Connect itself still
// returns nil so callers can await the attempt and watch the real outcome
// asynchronously.
func (c *Client) Connect(csURL, chargePointID string) error {
	if csURL == "" {
		return errors.New("ws: central system url is required")
	}
	if chargePointID == "" {
		return errors.New("ws: charge point id is required")
	}

	c.mu.Lock()
	if c.conn != nil || c.connecting {
		c.mu.Unlock()
		return errors.New("ws: already connected")
	}
	c.connecting = true
	c.endpoint = strings.TrimRight(csURL, "/") + "/" + chargePointID
	c.explicitClose = false
	c.reconnectAttempt = 0
	c.stopC = make(chan struct{})
	stop := c.stopC
	c.mu.Unlock()

	c.state.set(ConnectionState{Status: StatusConnecting})
	err := c.dial()
	c.mu.Lock()
	c.connecting = false
	c.mu.Unlock()

	if err != nil && !errors.Is(err, errClientClosed) {
		c.state.set(ConnectionState{Status: StatusError, Err: err})
		if c.cfg.AutoReconnect {
			go c.reconnectLoop(stop)
		}
	}
	return nil
}

func (c *Client) dial() error {
	c.mu.Lock()
	endpoint := c.endpoint
	header := http.Header{}
	if c.basicUser != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(c.basicUser + ":" + c.basicPass))
		header.Set("Authorization", "Basic "+credentials)
	}
	c.mu.Unlock()

	conn, resp, err := c.dialer.Dial(endpoint, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("ws: dial %s: %w (http status: %s)", endpoint, err, resp.Status)
		}
		return fmt.Errorf("ws: dial %s: %w", endpoint, err)
	}

	c.mu.Lock()
	// Disconnect may have raced the handshake. The socket must not be
	// committed once an explicit close happened.
	if c.explicitClose || c.stopC == nil {
		c.mu.Unlock()
		conn.Close()
		return errClientClosed
	}
	c.conn = conn
	c.reconnectAttempt = 0
	stop := c.stopC
	c.mu.Unlock()

	log.WithField("endpoint", endpoint).WithField("subprotocol", conn.Subprotocol()).Debugln("ws: connected")
	c.state.set(ConnectionState{Status: StatusConnected})

	go c.readPump(conn, stop)
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(conn, stop)
	}
	return nil
}

// Disconnect closes the socket with a normal-closure code, forgets the
// remembered connection parameters and never triggers auto-reconnect.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.explicitClose = true
	conn := c.conn
	c.conn = nil
	c.endpoint = ""
	c.basicUser = ""
	c.basicPass = ""
	if c.stopC != nil {
		close(c.stopC)
		c.stopC = nil
	}
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	}
	c.state.set(ConnectionState{Status: StatusDisconnected})
	return nil
}

// Send serializes the message and writes it to the socket. It fails with
// ErrNotConnected when no socket is open and with ErrSendFailed when the
// write itself is rejected.
func (c *Client) Send(msg ocppj.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := msg.MarshalJSON()
	if err != nil {
		return fmt.Errorf("ws: marshal message %s: %w", msg.GetUniqueID(), err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

func (c *Client) readPump(conn *websocket.Conn, stop chan struct{}) {
	if c.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		})
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleConnectionLoss(conn, err, stop)
			return
		}
		if c.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}

		msg, parseErr := ocppj.ParseMessage(data)
		if parseErr != nil {
			log.WithError(parseErr).Warnln("ws: dropping malformed frame")
			continue
		}
		select {
		case c.inbound <- msg:
		case <-stop:
			return
		}
	}
}

func (c *Client) handleConnectionLoss(conn *websocket.Conn, cause error, stop chan struct{}) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	explicit := c.explicitClose
	c.mu.Unlock()
	conn.Close()

	if explicit {
		// Disconnect already published the Disconnected state.
		return
	}

	log.WithError(cause).Warnln("ws: connection lost")
	c.state.set(ConnectionState{Status: StatusError, Err: cause})
	if c.cfg.AutoReconnect {
		go c.reconnectLoop(stop)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			stale := c.conn != conn
			c.mu.Unlock()
			if stale {
				return
			}
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.WithError(err).Debugln("ws: ping failed")
				return
			}
		case <-stop:
			return
		}
	}
}

// reconnectLoop retries dialing with the remembered endpoint and credentials.
// Attempts are strictly sequential; the counter resets on a successful open
// and the loop escalates to a terminal Error state once the cap is reached.
func (c *Client) reconnectLoop(stop chan struct{}) {
	c.mu.Lock()
	if c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		c.mu.Lock()
		if c.reconnectAttempt >= c.cfg.MaxReconnectAttempts {
			c.mu.Unlock()
			log.WithField("max_attempts", c.cfg.MaxReconnectAttempts).Errorln("ws: giving up on reconnecting")
			c.state.set(ConnectionState{Status: StatusError, Err: ErrReconnectExhausted})
			return
		}
		c.reconnectAttempt++
		attempt := c.reconnectAttempt
		c.mu.Unlock()

		c.state.set(ConnectionState{
			Status:      StatusReconnecting,
			Attempt:     attempt,
			MaxAttempts: c.cfg.MaxReconnectAttempts,
		})

		select {
		case <-time.After(reconnectDelay(c.cfg, attempt)):
		case <-stop:
			return
		}

		err := c.dial()
		if err == nil || errors.Is(err, errClientClosed) {
			return
		}
		log.WithError(err).WithField("attempt", attempt).Warnln("ws: reconnect attempt failed")
	}
}
