package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/go-stomp/stomp/v3"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned by Send when no live session exists. Subscribe
// paths never see it; the registry declines with a nil handle instead.
var ErrNotConnected = errors.New("transport: not connected")

const handshakeTimeout = 10 * time.Second

// Conn owns the single websocket+STOMP session for the process. It is
// created once by the composition root, connected once at startup, and torn
// down once at shutdown; there is no automatic reconnect.
type Conn struct {
	endpoint string
	log      zerolog.Logger

	mu       sync.Mutex
	status   Status
	ws       *websocket.Conn
	stomp    *stomp.Conn
	registry *Registry
}

func NewConn(endpoint string, log zerolog.Logger) *Conn {
	c := &Conn{
		endpoint: endpoint,
		log:      log.With().Str("component", "transport").Logger(),
		status:   StatusDisconnected,
	}
	c.registry = NewRegistry(c, c.log)
	return c
}

// Registry returns the subscription registry bound to this connection.
func (c *Conn) Registry() *Registry { return c.registry }

func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Conn) Connected() bool { return c.Status() == StatusConnected }

// Connect dials the websocket endpoint and performs the STOMP handshake.
// On failure the status drops back to Disconnected and the error is also
// logged, so callers that treat connectivity as best-effort can ignore it.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusConnecting
	c.mu.Unlock()

	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, c.endpoint, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.fail(err)
		return fmt.Errorf("dial %s: %w", c.endpoint, err)
	}

	// Heart-beating is negotiated off: the dev relay does not emit beats, and
	// the reconciliation layer tolerates silent links.
	st, err := stomp.Connect(NetConn(ws), stomp.ConnOpt.HeartBeat(0, 0))
	if err != nil {
		ws.Close()
		c.fail(err)
		return fmt.Errorf("stomp handshake: %w", err)
	}

	c.mu.Lock()
	c.ws = ws
	c.stomp = st
	c.status = StatusConnected
	c.mu.Unlock()
	c.log.Info().Str("endpoint", c.endpoint).Msg("connected")
	return nil
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	c.status = StatusDisconnected
	c.mu.Unlock()
	c.log.Warn().Err(err).Str("endpoint", c.endpoint).Msg("connect failed")
}

// Subscribe opens a transport-level subscription and pumps each inbound
// frame body to fn on a dedicated goroutine. Callers go through the registry,
// which dedups by destination; this method always creates a new subscription.
func (c *Conn) Subscribe(destination string, fn Handler) (Canceler, error) {
	c.mu.Lock()
	st := c.stomp
	c.mu.Unlock()
	if st == nil {
		return nil, ErrNotConnected
	}
	sub, err := st.Subscribe(destination, stomp.AckAuto)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}
	go func() {
		for msg := range sub.C {
			if msg == nil {
				return
			}
			if msg.Err != nil {
				c.log.Debug().Err(msg.Err).Str("destination", destination).Msg("subscription closed")
				return
			}
			fn(msg.Body)
		}
	}()
	return stompCanceler{sub}, nil
}

type stompCanceler struct{ sub *stomp.Subscription }

func (s stompCanceler) Cancel() error { return s.sub.Unsubscribe() }

// Send publishes one frame. It declines with ErrNotConnected rather than
// queueing when no session is up.
func (c *Conn) Send(destination, contentType string, body []byte) error {
	c.mu.Lock()
	st := c.stomp
	connected := c.status == StatusConnected
	c.mu.Unlock()
	if !connected || st == nil {
		return ErrNotConnected
	}
	if err := st.Send(destination, contentType, body); err != nil {
		return fmt.Errorf("send %s: %w", destination, err)
	}
	return nil
}

// Disconnect releases every registry subscription, then the STOMP session,
// then the socket. Idempotent; safe on a Conn that never connected. The
// composition root runs it via defer so teardown happens on every exit path.
func (c *Conn) Disconnect() error {
	c.registry.Teardown()

	c.mu.Lock()
	st, ws := c.stomp, c.ws
	c.stomp, c.ws = nil, nil
	c.status = StatusDisconnected
	c.mu.Unlock()

	var err error
	if st != nil {
		err = st.Disconnect()
	}
	if ws != nil {
		if cerr := ws.Close(); err == nil {
			err = cerr
		}
	}
	if st != nil || ws != nil {
		c.log.Info().Msg("disconnected")
	}
	return err
}
