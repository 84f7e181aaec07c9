package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moabook/chatlink/internal/transport"
)

// SessionState tracks a room view's lifecycle.
type SessionState string

const (
	StateIdle    SessionState = "idle"
	StateLoading SessionState = "loading"
	StateLive    SessionState = "live"
	StateClosed  SessionState = "closed"
)

// HistoryFetcher is the REST collaborator that seeds a room's timeline.
type HistoryFetcher interface {
	MessageHistory(ctx context.Context, roomID int64) ([]Message, error)
}

// RoomSession reconciles the four per-room event streams into one Timeline.
// Lifecycle: Start fetches history (Idle -> Loading), then subscribes the
// chat, read, calendar and emoji topics (Loading -> Live). Stop releases all
// four subscriptions (-> Closed) and is safe to call no matter how far Start
// got; handles that were declined are nil and unsubscribe as no-ops.
type RoomSession struct {
	roomID   int64
	senderID int64
	reg      *transport.Registry
	tr       transport.Transport
	history  HistoryFetcher
	timeline *Timeline
	log      zerolog.Logger

	mu         sync.Mutex
	state      SessionState
	subs       []*transport.Subscription
	nextInfoID int64 // descends from -1; keeps synthesized ids off the server range
}

func NewRoomSession(roomID, senderID int64, reg *transport.Registry, tr transport.Transport, history HistoryFetcher, log zerolog.Logger) *RoomSession {
	return &RoomSession{
		roomID:     roomID,
		senderID:   senderID,
		reg:        reg,
		tr:         tr,
		history:    history,
		timeline:   NewTimeline(),
		log:        log.With().Str("component", "room").Int64("room_id", roomID).Logger(),
		state:      StateIdle,
		nextInfoID: -1,
	}
}

func (s *RoomSession) RoomID() int64 { return s.roomID }

func (s *RoomSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the reconciled list.
func (s *RoomSession) Messages() []Message { return s.timeline.Messages() }

// Start loads history and goes live. History failure is terminal for the
// call (the view has nothing to show); subscription declines are not: the
// session stays Live with whatever handles it got, and a later Start call
// after the connection comes up fills in the missing ones.
func (s *RoomSession) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return fmt.Errorf("room %d: session closed", s.roomID)
	case StateIdle:
		s.state = StateLoading
		s.mu.Unlock()

		msgs, err := s.history.MessageHistory(ctx, s.roomID)
		if err != nil {
			s.mu.Lock()
			if s.state == StateLoading {
				s.state = StateIdle
			}
			s.mu.Unlock()
			return fmt.Errorf("load history for room %d: %w", s.roomID, err)
		}
		s.mu.Lock()
		// Stop may have run while the fetch was in flight; a closed session
		// must stay closed rather than seed the timeline and resubscribe.
		if s.state == StateClosed {
			s.mu.Unlock()
			return fmt.Errorf("room %d: session closed", s.roomID)
		}
		s.timeline.Reset(msgs)
	default:
		// Loading or Live: fall through and (re)attempt subscriptions.
	}

	s.subs = []*transport.Subscription{
		s.reg.Subscribe(ChatTopic(s.roomID), s.onChat),
		s.reg.Subscribe(ReadTopic(s.roomID), s.onRead),
		s.reg.Subscribe(CalendarTopic(s.roomID), s.onCalendar),
		s.reg.Subscribe(EmojiTopic(s.roomID), s.onEmoji),
	}
	s.state = StateLive
	s.mu.Unlock()

	live := 0
	for _, sub := range s.subs {
		if sub != nil {
			live++
		}
	}
	s.log.Debug().Int("subscriptions", live).Msg("room live")
	return nil
}

// Stop releases the room's subscriptions. Idempotent.
func (s *RoomSession) Stop() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	s.log.Debug().Msg("room closed")
}

// Send publishes a message and clears nothing locally: the message shows up
// in the timeline only when the server echoes it back on the chat topic.
// Declines silently when the connection is down.
func (s *RoomSession) Send(content string) error {
	out := OutgoingMessage{
		ChatRoomID: s.roomID,
		SenderID:   s.senderID,
		Content:    content,
		Type:       MessageChat,
	}
	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := s.tr.Send(SendDestination, jsonContentType, body); err != nil {
		s.log.Debug().Err(err).Msg("send declined")
		return nil
	}
	return nil
}

func (s *RoomSession) onChat(body []byte) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		s.log.Warn().Err(err).Msg("drop malformed chat frame")
		return
	}
	if !s.timeline.Append(m) {
		s.log.Debug().Int64("id", m.ID).Msg("duplicate chat frame")
	}
}

func (s *RoomSession) onRead(body []byte) {
	var ev ReadEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		s.log.Warn().Err(err).Msg("drop malformed read frame")
		return
	}
	s.timeline.MarkRead(ev.MessageIDs)
}

func (s *RoomSession) onCalendar(body []byte) {
	var ev CalendarEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		s.log.Warn().Err(err).Msg("drop malformed calendar frame")
		return
	}
	content, ok := calendarContent(ev)
	if !ok {
		return
	}
	s.mu.Lock()
	id := s.nextInfoID
	s.nextInfoID--
	s.mu.Unlock()
	s.timeline.Append(Message{
		ID:         id,
		ChatRoomID: s.roomID,
		SenderID:   SystemSenderID,
		Content:    content,
		Type:       MessageInfo,
		Timestamp:  time.Now(),
	})
}

func (s *RoomSession) onEmoji(body []byte) {
	var ev EmojiEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		s.log.Warn().Err(err).Msg("drop malformed emoji frame")
		return
	}
	s.timeline.SetEmoji(ev.MessageID, ev.Emoji, ev.Type == emojiActionAdd)
}
