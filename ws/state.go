package ws

import "sync"

// ConnectionStatus enumerates the lifecycle phases of a client connection.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "Disconnected"
	StatusConnecting   ConnectionStatus = "Connecting"
	StatusConnected    ConnectionStatus = "Connected"
	StatusReconnecting ConnectionStatus = "Reconnecting"
	StatusError        ConnectionStatus = "Error"
)

// ConnectionState is the atomically published state of a client. Attempt and
// MaxAttempts are meaningful while Status is StatusReconnecting, Err while
// Status is StatusError.
type ConnectionState struct {
	Status      ConnectionStatus
	Attempt     int
	MaxAttempts int
	Err         error
}

// stateNotifier holds the current ConnectionState and pushes every transition
// to all subscribers. Each client instance owns its own notifier, so multiple
// charge points in one process never share state.
type stateNotifier struct {
	mu      sync.RWMutex
	current ConnectionState
	subs    []chan ConnectionState
}

func newStateNotifier() *stateNotifier {
	return &stateNotifier{current: ConnectionState{Status: StatusDisconnected}}
}

func (n *stateNotifier) get() ConnectionState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

func (n *stateNotifier) set(state ConnectionState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = state
	for _, sub := range n.subs {
		select {
		case sub <- state:
		default:
			log.WithField("status", state.Status).Debugln("ws: slow state subscriber, transition dropped")
		}
	}
}

func (n *stateNotifier) subscribe() <-chan ConnectionState {
	n.mu.Lock()
	defer n.mu.Unlock()
	sub := make(chan ConnectionState, 32)
	n.subs = append(n.subs, sub)
	return sub
}
