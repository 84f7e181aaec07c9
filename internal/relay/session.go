package relay

import (
	"sync"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/rs/zerolog"
)

const sessionSendBuffer = 16

// session is one connected websocket peer. Outbound frames go through a
// bounded channel drained by a single writer goroutine; a full buffer drops
// the frame rather than stalling the relay (slow-consumer policy).
type session struct {
	id   string
	send chan *frame.Frame
	log  zerolog.Logger

	mu     sync.Mutex
	subs   map[string]string // subscription id -> destination
	closed bool
}

func newSession(id string, log zerolog.Logger) *session {
	return &session{
		id:   id,
		send: make(chan *frame.Frame, sessionSendBuffer),
		log:  log.With().Str("session", id).Logger(),
		subs: make(map[string]string),
	}
}

// writePump drains the send channel onto the wire. It owns the frame writer
// exclusively; every outbound frame from any goroutine funnels through send.
func (s *session) writePump(w *frame.Writer) {
	for f := range s.send {
		if err := w.Write(f); err != nil {
			s.log.Debug().Err(err).Msg("write failed")
			return
		}
	}
}

// enqueue offers a frame to the peer, dropping it if the session is gone or
// the buffer is full. The mutex guards against racing close: a send on a
// closed channel would panic the publisher.
func (s *session) enqueue(f *frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- f:
	default:
		s.log.Warn().Str("command", f.Command).Msg("send buffer full, frame dropped")
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

func (s *session) addSub(id, destination string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[id] = destination
}

func (s *session) removeSub(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dest, ok := s.subs[id]
	delete(s.subs, id)
	return dest, ok
}

func (s *session) subID(destination string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, dest := range s.subs {
		if dest == destination {
			return id, true
		}
	}
	return "", false
}

func (s *session) destinations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subs))
	for _, dest := range s.subs {
		out = append(out, dest)
	}
	return out
}
