package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moabook/chatlink/internal/transport"
)

// midFetchAPI injects a user-topic delta for the room being opened while its
// history is still loading, and records the unread count it observes.
type midFetchAPI struct {
	inbox    *Inbox
	observed int
}

func (a *midFetchAPI) MessageHistory(ctx context.Context, roomID int64) ([]Message, error) {
	a.inbox.Apply(RoomUpdate{ChatRoomID: roomID, LastMessage: "mid-load", LastMessageTime: time.Now()})
	for _, r := range a.inbox.Rooms() {
		if r.ID == roomID {
			a.observed = r.UnreadCount
		}
	}
	return nil, nil
}

func (a *midFetchAPI) RoomList(ctx context.Context) ([]RoomSummary, error) {
	return []RoomSummary{{ID: 10}}, nil
}

type failingAPI struct{}

func (failingAPI) MessageHistory(ctx context.Context, roomID int64) ([]Message, error) {
	return nil, errors.New("history down")
}

func (failingAPI) RoomList(ctx context.Context) ([]RoomSummary, error) { return nil, nil }

func newTestService(api API) *Service {
	// never connected: subscriptions decline, which is fine for inbox logic
	conn := transport.NewConn("ws://127.0.0.1:0/ws", zerolog.Nop())
	return NewService(conn, api, 5, zerolog.Nop())
}

func TestServiceOpenRoomActiveBeforeHistoryLoad(t *testing.T) {
	api := &midFetchAPI{}
	svc := newTestService(api)
	api.inbox = svc.Inbox()
	svc.Inbox().Reset([]RoomSummary{{ID: 10}})

	sess, err := svc.OpenRoom(context.Background(), 10)
	require.NoError(t, err)
	defer svc.CloseRoom()

	assert.Equal(t, StateLive, sess.State())
	assert.Zero(t, api.observed, "a delta for the room being opened never counts as unread")
}

func TestServiceCloseRoomReenablesUnread(t *testing.T) {
	api := &midFetchAPI{}
	svc := newTestService(api)
	api.inbox = svc.Inbox()
	svc.Inbox().Reset([]RoomSummary{{ID: 10}})

	_, err := svc.OpenRoom(context.Background(), 10)
	require.NoError(t, err)
	svc.CloseRoom()

	svc.Inbox().Apply(RoomUpdate{ChatRoomID: 10, LastMessage: "later", LastMessageTime: time.Now()})
	rooms := svc.Inbox().Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, 1, rooms[0].UnreadCount)
}

func TestServiceOpenRoomFailureClearsActiveRoom(t *testing.T) {
	svc := newTestService(failingAPI{})
	svc.Inbox().Reset([]RoomSummary{{ID: 10}})

	_, err := svc.OpenRoom(context.Background(), 10)
	require.Error(t, err)

	// the failed room is not left pinned active
	svc.Inbox().Apply(RoomUpdate{ChatRoomID: 10, LastMessage: "x", LastMessageTime: time.Now()})
	assert.Equal(t, 1, svc.Inbox().Rooms()[0].UnreadCount)
}
