package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/moabook/chatlink/internal/transport"
)

// RoomLister is the REST collaborator that seeds the inbox.
type RoomLister interface {
	RoomList(ctx context.Context) ([]RoomSummary, error)
}

// API bundles the REST calls the chat layer consumes.
type API interface {
	HistoryFetcher
	RoomLister
}

// Service is the composition root for the chat overlay: it owns the one
// connection, the registry behind it, the inbox, and at most one open room
// session. Views receive it by reference; nothing here is package-global.
type Service struct {
	conn   *transport.Conn
	api    API
	inbox  *Inbox
	userID int64
	log    zerolog.Logger

	mu      sync.Mutex
	userSub *transport.Subscription
	current *RoomSession
}

func NewService(conn *transport.Conn, api API, userID int64, log zerolog.Logger) *Service {
	return &Service{
		conn:   conn,
		api:    api,
		inbox:  NewInbox(log),
		userID: userID,
		log:    log.With().Str("component", "chat").Logger(),
	}
}

func (s *Service) Inbox() *Inbox            { return s.inbox }
func (s *Service) Status() transport.Status { return s.conn.Status() }

// Start connects and seeds the inbox. A failed connect is not fatal: the
// room list still loads over REST and the app runs without live updates,
// which is the intended degraded mode.
func (s *Service) Start(ctx context.Context) error {
	if err := s.conn.Connect(ctx); err != nil {
		s.log.Warn().Err(err).Msg("running without live updates")
	}

	rooms, err := s.api.RoomList(ctx)
	if err != nil {
		return fmt.Errorf("load room list: %w", err)
	}
	s.inbox.Reset(rooms)

	s.mu.Lock()
	if s.userSub == nil {
		s.userSub = s.conn.Registry().Subscribe(UserTopic(s.userID), s.inbox.HandleFrame)
	}
	s.mu.Unlock()
	return nil
}

// OpenRoom closes any open session, marks roomID active in the inbox, and
// starts a fresh session for it. The room goes active before the history
// fetch so a user-topic delta arriving mid-load never counts as unread for
// the room the user is looking at.
func (s *Service) OpenRoom(ctx context.Context, roomID int64) (*RoomSession, error) {
	s.CloseRoom()
	s.inbox.SetActiveRoom(roomID)

	sess := NewRoomSession(roomID, s.userID, s.conn.Registry(), s.conn, s.api, s.log)
	if err := sess.Start(ctx); err != nil {
		s.inbox.ClearActiveRoom()
		return nil, err
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return sess, nil
}

// CloseRoom stops the open session, if any.
func (s *Service) CloseRoom() {
	s.mu.Lock()
	sess := s.current
	s.current = nil
	s.mu.Unlock()
	if sess != nil {
		sess.Stop()
	}
	s.inbox.ClearActiveRoom()
}

// Stop tears the whole overlay down: open room, user subscription, then the
// connection (which releases anything still registered). Idempotent.
func (s *Service) Stop() {
	s.CloseRoom()

	s.mu.Lock()
	sub := s.userSub
	s.userSub = nil
	s.mu.Unlock()
	sub.Unsubscribe()

	if err := s.conn.Disconnect(); err != nil {
		s.log.Debug().Err(err).Msg("disconnect")
	}
}
