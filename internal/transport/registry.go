package transport

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry dedups topic subscriptions against the single connection. It
// holds at most one live Subscription per topic key; subscribing a key that
// is already live hands back the existing handle instead of opening a second
// transport subscription (which would double-deliver every frame).
type Registry struct {
	mu   sync.Mutex
	tr   Transport
	subs map[string]*Subscription
	log  zerolog.Logger
}

func NewRegistry(tr Transport, log zerolog.Logger) *Registry {
	return &Registry{
		tr:   tr,
		subs: make(map[string]*Subscription),
		log:  log.With().Str("component", "registry").Logger(),
	}
}

// Subscription is one live topic interest. The zero of usefulness is a nil
// handle: every method is nil-receiver-safe, so callers can tear down
// unconditionally whether or not their subscribe ever succeeded.
type Subscription struct {
	topic  string
	reg    *Registry
	cancel Canceler
	once   sync.Once
}

// Unsubscribe cancels the transport subscription and removes the registry
// entry. Safe to call twice, and safe on a nil handle.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if err := s.cancel.Cancel(); err != nil {
			s.reg.log.Debug().Err(err).Str("topic", s.topic).Msg("cancel subscription")
		}
		s.reg.remove(s)
	})
}

// Subscribe returns a live handle for topic, creating the transport
// subscription if none exists. Returns nil when the connection is down:
// the operation is declined, never queued, and callers re-attempt once they
// observe the connection up.
func (r *Registry) Subscribe(topic string, fn Handler) *Subscription {
	if !r.tr.Connected() {
		r.log.Debug().Str("topic", topic).Msg("subscribe declined: not connected")
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.subs[topic]; ok {
		return existing
	}

	cancel, err := r.tr.Subscribe(topic, fn)
	if err != nil {
		r.log.Warn().Err(err).Str("topic", topic).Msg("subscribe failed")
		return nil
	}
	sub := &Subscription{topic: topic, reg: r, cancel: cancel}
	r.subs[topic] = sub
	return sub
}

// Unsubscribe is a convenience mirror of (*Subscription).Unsubscribe for
// callers holding possibly-nil handles.
func (r *Registry) Unsubscribe(s *Subscription) { s.Unsubscribe() }

func (r *Registry) remove(s *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs[s.topic] == s {
		delete(r.subs, s.topic)
	}
}

// Active returns the live topic keys, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.subs))
	for topic := range r.subs {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// Teardown releases every live subscription and clears the map. Invoked by
// the connection on disconnect.
func (r *Registry) Teardown() {
	r.mu.Lock()
	snapshot := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		snapshot = append(snapshot, s)
	}
	r.subs = make(map[string]*Subscription)
	r.mu.Unlock()

	for _, s := range snapshot {
		s.once.Do(func() {
			if err := s.cancel.Cancel(); err != nil {
				r.log.Debug().Err(err).Str("topic", s.topic).Msg("cancel subscription")
			}
		})
	}
}
