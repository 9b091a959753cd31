package ws

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Jaypatelbond/ocpp-client-go/ocppj"
)

func TestReconnectDelay(t *testing.T) {
	cfg := Config{
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 60 * time.Second,
		BackoffMultiplier: 2.0,
	}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{7, 60 * time.Second},
		{100, 60 * time.Second},
		{0, 1 * time.Second},
	}
	for _, tt := range tests {
		if got := reconnectDelay(cfg, tt.attempt); got != tt.want {
			t.Errorf("reconnectDelay(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestReconnectDelayWithoutBackoff(t *testing.T) {
	cfg := Config{ReconnectDelay: 500 * time.Millisecond}
	if got := reconnectDelay(cfg, 5); got != 500*time.Millisecond {
		t.Errorf("reconnectDelay = %v, want constant 500ms", got)
	}
}

type upgradeInfo struct {
	path          string
	authorization string
	subProtocols  []string
	conn          *websocket.Conn
}

// newWsServer upgrades every request and reports each connection on the
// returned channel.
func newWsServer(t *testing.T) (*httptest.Server, <-chan upgradeInfo) {
	t.Helper()
	infoC := make(chan upgradeInfo, 4)
	upgrader := websocket.Upgrader{Subprotocols: []string{"ocpp1.6"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := upgradeInfo{
			path:          r.URL.Path,
			authorization: r.Header.Get("Authorization"),
			subProtocols:  websocket.Subprotocols(r),
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		info.conn = conn
		infoC <- info
	}))
	t.Cleanup(srv.Close)
	return srv, infoC
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AutoReconnect = false
	cfg.PingInterval = 0
	return cfg
}

func awaitStatus(t *testing.T, states <-chan ConnectionState, status ConnectionStatus) ConnectionState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case state := <-states:
			if state.Status == status {
				return state
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", status)
		}
	}
}

func TestConnectHandshake(t *testing.T) {
	srv, infoC := newWsServer(t)

	client := NewClient(testConfig())
	client.SetBasicAuth("CP001", "secret")

	// The trailing slash must not produce a double slash in the path.
	if err := client.Connect(wsURL(srv)+"/", "CP001"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Disconnect()

	var info upgradeInfo
	select {
	case info = <-infoC:
	case <-time.After(2 * time.Second):
		t.Fatal("server saw no connection")
	}

	if info.path != "/CP001" {
		t.Errorf("path = %q, want %q", info.path, "/CP001")
	}
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("CP001:secret"))
	if info.authorization != wantAuth {
		t.Errorf("authorization = %q, want %q", info.authorization, wantAuth)
	}
	found := false
	for _, proto := range info.subProtocols {
		if proto == "ocpp1.6" {
			found = true
		}
	}
	if !found {
		t.Errorf("offered subprotocols = %v, want ocpp1.6", info.subProtocols)
	}
	if !client.IsConnected() {
		t.Error("client not connected after handshake")
	}
	if state := client.State(); state.Status != StatusConnected {
		t.Errorf("state = %s, want %s", state.Status, StatusConnected)
	}
}

func TestConnectValidation(t *testing.T) {
	client := NewClient(testConfig())
	if err := client.Connect("", "CP001"); err == nil {
		t.Error("Connect with empty url succeeded, want error")
	}
	if err := client.Connect("ws://localhost:9", ""); err == nil {
		t.Error("Connect with empty charge point id succeeded, want error")
	}
}

func TestSendAndReceive(t *testing.T) {
	srv, infoC := newWsServer(t)

	client := NewClient(testConfig())
	if err := client.Connect(wsURL(srv), "CP001"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Disconnect()
	info := <-infoC

	call := &ocppj.Call{UniqueID: "m-1", Action: "Heartbeat"}
	if err := client.Send(call); err != nil {
		t.Fatalf("Send: %v", err)
	}
	_, data, err := info.conn.ReadMessage()
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if string(data) != `[2,"m-1","Heartbeat",{}]` {
		t.Errorf("server received %s", data)
	}

	if err := info.conn.WriteMessage(websocket.TextMessage, []byte(`[3,"m-1",{"currentTime":"2026-01-01T00:00:00Z"}]`)); err != nil {
		t.Fatalf("server write: %v", err)
	}
	select {
	case msg := <-client.Inbound():
		if msg.GetUniqueID() != "m-1" {
			t.Errorf("inbound id = %q, want m-1", msg.GetUniqueID())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no inbound message")
	}
}

func TestMalformedFramesAreSkipped(t *testing.T) {
	srv, infoC := newWsServer(t)

	client := NewClient(testConfig())
	if err := client.Connect(wsURL(srv), "CP001"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Disconnect()
	info := <-infoC

	for _, frame := range []string{`not json`, `{"a":1}`, `[3,"good",{}]`} {
		if err := info.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("server write: %v", err)
		}
	}
	select {
	case msg := <-client.Inbound():
		if msg.GetUniqueID() != "good" {
			t.Errorf("inbound id = %q, want the frame after the malformed ones", msg.GetUniqueID())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream stalled on malformed frames")
	}
}

func TestSendWhenDisconnected(t *testing.T) {
	client := NewClient(testConfig())
	err := client.Send(&ocppj.Call{UniqueID: "m-1", Action: "Heartbeat"})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}

func TestConnectFailureIsReportedViaState(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing is listening anymore

	client := NewClient(testConfig())
	states := client.Subscribe()
	if err := client.Connect(wsURL(srv), "CP001"); err != nil {
		t.Fatalf("Connect returned %v, want nil with async error reporting", err)
	}
	state := awaitStatus(t, states, StatusError)
	if state.Err == nil {
		t.Error("error state carries no cause")
	}
	if client.IsConnected() {
		t.Error("client claims to be connected")
	}
}

func TestReconnectSequenceAndExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cfg := testConfig()
	cfg.AutoReconnect = true
	cfg.MaxReconnectAttempts = 3
	cfg.ReconnectDelay = 5 * time.Millisecond
	cfg.MaxReconnectDelay = 50 * time.Millisecond
	cfg.BackoffMultiplier = 2.0

	client := NewClient(cfg)
	states := client.Subscribe()
	if err := client.Connect(wsURL(srv), "CP001"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var attempts []int
	deadline := time.After(5 * time.Second)
	for {
		var state ConnectionState
		select {
		case state = <-states:
		case <-deadline:
			t.Fatalf("timed out, attempts so far: %v", attempts)
		}
		if state.Status == StatusReconnecting {
			attempts = append(attempts, state.Attempt)
			if state.MaxAttempts != 3 {
				t.Errorf("max attempts = %d, want 3", state.MaxAttempts)
			}
		}
		if state.Status == StatusError && errors.Is(state.Err, ErrReconnectExhausted) {
			break
		}
	}

	want := []int{1, 2, 3}
	if len(attempts) != len(want) {
		t.Fatalf("attempts = %v, want %v", attempts, want)
	}
	for i := range want {
		if attempts[i] != want[i] {
			t.Fatalf("attempts = %v, want %v", attempts, want)
		}
	}
}

func TestReconnectAfterConnectionLoss(t *testing.T) {
	srv, infoC := newWsServer(t)

	cfg := testConfig()
	cfg.AutoReconnect = true
	cfg.MaxReconnectAttempts = 5
	cfg.ReconnectDelay = 5 * time.Millisecond

	client := NewClient(cfg)
	states := client.Subscribe()
	if err := client.Connect(wsURL(srv), "CP001"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Disconnect()

	awaitStatus(t, states, StatusConnected)
	first := <-infoC
	first.conn.Close() // drop the connection from the server side

	awaitStatus(t, states, StatusReconnecting)
	awaitStatus(t, states, StatusConnected)

	select {
	case <-infoC:
	case <-time.After(2 * time.Second):
		t.Fatal("server saw no second connection")
	}
	if !client.IsConnected() {
		t.Error("client not connected after reconnect")
	}
}

func TestDisconnectDuringReconnectDialDiscardsSocket(t *testing.T) {
	var (
		mu            sync.Mutex
		connections   int
		secondArrived = make(chan struct{})
		release       = make(chan struct{})
	)
	upgrader := websocket.Upgrader{Subprotocols: []string{"ocpp1.6"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		n := connections
		connections++
		mu.Unlock()

		switch n {
		case 0:
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				t.Errorf("upgrade: %v", err)
				return
			}
			conn.Close() // force a reconnect
		default:
			// Hold the reconnect handshake open until the test says so.
			close(secondArrived)
			<-release
			if _, err := upgrader.Upgrade(w, r, nil); err != nil {
				t.Errorf("upgrade: %v", err)
			}
		}
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.AutoReconnect = true
	cfg.MaxReconnectAttempts = 5
	cfg.ReconnectDelay = time.Millisecond

	client := NewClient(cfg)
	states := client.Subscribe()
	if err := client.Connect(wsURL(srv), "CP001"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	awaitStatus(t, states, StatusConnected)
	awaitStatus(t, states, StatusReconnecting)

	select {
	case <-secondArrived:
	case <-time.After(2 * time.Second):
		t.Fatal("server saw no reconnect dial")
	}

	// Disconnect while the reconnect dial is mid-handshake; the dial that
	// completes afterwards must be thrown away.
	if err := client.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	close(release)
	time.Sleep(100 * time.Millisecond)

	if client.IsConnected() {
		t.Errorf("client is connected after explicit Disconnect: state=%+v", client.State())
	}
	if state := client.State(); state.Status != StatusDisconnected {
		t.Errorf("state = %s, want %s", state.Status, StatusDisconnected)
	}
}

func TestConcurrentConnectIsRejected(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	upgrader := websocket.Upgrader{Subprotocols: []string{"ocpp1.6"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		if _, err := upgrader.Upgrade(w, r, nil); err != nil {
			t.Errorf("upgrade: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(testConfig())
	firstErr := make(chan error, 1)
	go func() {
		firstErr <- client.Connect(wsURL(srv), "CP001")
	}()

	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("server saw no dial")
	}

	// The first handshake is still in flight; a second Connect must refuse.
	if err := client.Connect(wsURL(srv), "CP001"); err == nil {
		t.Error("second Connect succeeded while the first was dialing")
	}

	close(release)
	if err := <-firstErr; err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	defer client.Disconnect()
	if !client.IsConnected() {
		t.Error("client not connected after the held handshake completed")
	}
}

func TestExplicitDisconnectDoesNotReconnect(t *testing.T) {
	srv, infoC := newWsServer(t)

	cfg := testConfig()
	cfg.AutoReconnect = true
	cfg.ReconnectDelay = 5 * time.Millisecond

	client := NewClient(cfg)
	states := client.Subscribe()
	if err := client.Connect(wsURL(srv), "CP001"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	awaitStatus(t, states, StatusConnected)
	<-infoC

	if err := client.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	awaitStatus(t, states, StatusDisconnected)

	// No reconnect attempt should follow an intentional close.
	select {
	case state := <-states:
		if state.Status == StatusReconnecting || state.Status == StatusConnected {
			t.Errorf("unexpected state after disconnect: %+v", state)
		}
	case <-time.After(100 * time.Millisecond):
	}
	select {
	case <-infoC:
		t.Error("server saw a new connection after explicit disconnect")
	default:
	}
}
