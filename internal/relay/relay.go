// Package relay is a development broker: a STOMP-subset websocket endpoint
// plus the REST fixtures the client consumes. It exists so the chat overlay
// can be exercised end to end without the production backend. Everything is
// in memory.
package relay

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/rs/zerolog"

	"github.com/moabook/chatlink/internal/chat"
)

type Relay struct {
	log zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	topics   map[string]map[string]*session // destination -> session id -> session
	rooms    map[int64]*roomState

	nextMessageID int64
	nextFrameID   int64
}

type roomState struct {
	summary      chat.RoomSummary
	history      []chat.Message
	participants map[int64]struct{}
}

func New(log zerolog.Logger) *Relay {
	return &Relay{
		log:      log.With().Str("component", "relay").Logger(),
		sessions: make(map[string]*session),
		topics:   make(map[string]map[string]*session),
		rooms:    make(map[int64]*roomState),
	}
}

// Seed installs fixture rooms and their histories, advancing the message id
// counter past the highest seeded id.
func (r *Relay) Seed(summaries []chat.RoomSummary, histories map[int64][]chat.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range summaries {
		rs := r.roomLocked(s.ID)
		rs.summary = s
	}
	for roomID, msgs := range histories {
		rs := r.roomLocked(roomID)
		rs.history = append(rs.history, msgs...)
		for _, m := range msgs {
			if m.SenderID != chat.SystemSenderID {
				rs.participants[m.SenderID] = struct{}{}
			}
			if m.ID > r.nextMessageID {
				r.nextMessageID = m.ID
			}
		}
	}
}

func (r *Relay) roomLocked(id int64) *roomState {
	rs, ok := r.rooms[id]
	if !ok {
		rs = &roomState{
			summary:      chat.RoomSummary{ID: id},
			participants: make(map[int64]struct{}),
		}
		r.rooms[id] = rs
	}
	return rs
}

// RoomSummaries returns the room directory sorted by last activity.
func (r *Relay) RoomSummaries() []chat.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]chat.RoomSummary, 0, len(r.rooms))
	for _, rs := range r.rooms {
		out = append(out, rs.summary)
	}
	// newest first, matching the client's inbox ordering
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTime.After(out[j].LastMessageTime) })
	return out
}

// History returns a copy of one room's stored messages.
func (r *Relay) History(roomID int64) []chat.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]chat.Message, len(rs.history))
	copy(out, rs.history)
	return out
}

func (r *Relay) register(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

func (r *Relay) drop(s *session) {
	r.mu.Lock()
	delete(r.sessions, s.id)
	for _, dest := range s.destinations() {
		if subs, ok := r.topics[dest]; ok {
			delete(subs, s.id)
			if len(subs) == 0 {
				delete(r.topics, dest)
			}
		}
	}
	r.mu.Unlock()
	s.close()
}

func (r *Relay) subscribe(s *session, subID, destination string) {
	s.addSub(subID, destination)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.topics[destination]; !ok {
		r.topics[destination] = make(map[string]*session)
	}
	r.topics[destination][s.id] = s
}

func (r *Relay) unsubscribe(s *session, subID string) {
	dest, ok := s.removeSub(subID)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs, ok := r.topics[dest]; ok {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(r.topics, dest)
		}
	}
}

// route dispatches one SEND frame. The app destination runs the message
// pipeline; topic destinations relay the body verbatim, which doubles as the
// dev hook for injecting read, calendar and emoji events.
func (r *Relay) route(destination, contentType string, body []byte) {
	switch {
	case destination == chat.SendDestination:
		r.handleSend(body)
	case strings.HasPrefix(destination, "/topic/"):
		r.publish(destination, contentType, body)
	default:
		r.log.Debug().Str("destination", destination).Msg("discard send to unknown destination")
	}
}

func (r *Relay) handleSend(body []byte) {
	var out chat.OutgoingMessage
	if err := json.Unmarshal(body, &out); err != nil {
		r.log.Warn().Err(err).Msg("drop malformed outgoing message")
		return
	}
	if out.Type == "" {
		out.Type = chat.MessageChat
	}

	r.mu.Lock()
	r.nextMessageID++
	msg := chat.Message{
		ID:         r.nextMessageID,
		ChatRoomID: out.ChatRoomID,
		SenderID:   out.SenderID,
		Content:    out.Content,
		Type:       out.Type,
		Timestamp:  time.Now(),
	}
	rs := r.roomLocked(out.ChatRoomID)
	rs.history = append(rs.history, msg)
	if out.SenderID != chat.SystemSenderID {
		rs.participants[out.SenderID] = struct{}{}
	}
	rs.summary.LastMessage = msg.Content
	rs.summary.LastMessageTime = msg.Timestamp
	participants := make([]int64, 0, len(rs.participants))
	for id := range rs.participants {
		participants = append(participants, id)
	}
	r.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error().Err(err).Msg("encode message")
		return
	}
	r.publish(chat.ChatTopic(msg.ChatRoomID), "application/json", data)

	update, err := json.Marshal(chat.RoomUpdate{
		ChatRoomID:      msg.ChatRoomID,
		LastMessage:     msg.Content,
		LastMessageTime: msg.Timestamp,
	})
	if err != nil {
		return
	}
	for _, uid := range participants {
		r.publish(chat.UserTopic(uid), "application/json", update)
	}
}

// publish fans one payload out to every subscriber of destination, framing
// it as a MESSAGE with that subscriber's subscription id.
func (r *Relay) publish(destination, contentType string, body []byte) {
	r.mu.Lock()
	r.nextFrameID++
	msgID := strconv.FormatInt(r.nextFrameID, 10)
	subs := make([]*session, 0, len(r.topics[destination]))
	for _, s := range r.topics[destination] {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		subID, ok := s.subID(destination)
		if !ok {
			continue
		}
		f := frame.New(frame.MESSAGE,
			frame.Destination, destination,
			frame.MessageId, msgID,
			frame.Subscription, subID,
			frame.ContentType, contentType,
		)
		f.Body = body
		s.enqueue(f)
	}
}
