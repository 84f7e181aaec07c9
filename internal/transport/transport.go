package transport

// Status is the connection lifecycle state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Handler receives the raw body of one inbound frame for a topic.
type Handler func(body []byte)

// Canceler revokes one transport-level subscription.
type Canceler interface {
	Cancel() error
}

// Transport is the minimal broker surface the registry and the chat layer
// depend on. *Conn implements it; tests substitute fakes.
type Transport interface {
	Connected() bool
	Subscribe(destination string, fn Handler) (Canceler, error)
	Send(destination, contentType string, body []byte) error
}
