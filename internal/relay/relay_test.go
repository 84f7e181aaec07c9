package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moabook/chatlink/internal/chat"
)

func drain(s *session) []*frame.Frame {
	var out []*frame.Frame
	for {
		select {
		case f := <-s.send:
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestRelayConnectHandshake(t *testing.T) {
	r := New(zerolog.Nop())
	s := newSession("s1", zerolog.Nop())
	r.register(s)

	done := r.handleFrame(s, frame.New(frame.CONNECT, frame.AcceptVersion, "1.2"))
	assert.False(t, done)

	frames := drain(s)
	require.Len(t, frames, 1)
	assert.Equal(t, frame.CONNECTED, frames[0].Command)
	assert.Equal(t, "1.2", frames[0].Header.Get(frame.Version))
}

func TestRelaySendFansOutToRoomSubscribers(t *testing.T) {
	r := New(zerolog.Nop())
	a := newSession("a", zerolog.Nop())
	b := newSession("b", zerolog.Nop())
	r.register(a)
	r.register(b)
	r.subscribe(a, "sub-1", chat.ChatTopic(10))
	r.subscribe(b, "sub-2", chat.ChatTopic(10))
	r.subscribe(b, "sub-3", chat.UserTopic(5))

	body, _ := json.Marshal(chat.OutgoingMessage{ChatRoomID: 10, SenderID: 5, Content: "hello", Type: chat.MessageChat})
	r.route(chat.SendDestination, "application/json", body)

	aFrames := drain(a)
	require.Len(t, aFrames, 1)
	assert.Equal(t, frame.MESSAGE, aFrames[0].Command)
	assert.Equal(t, chat.ChatTopic(10), aFrames[0].Header.Get(frame.Destination))
	assert.Equal(t, "sub-1", aFrames[0].Header.Get(frame.Subscription))

	var msg chat.Message
	require.NoError(t, json.Unmarshal(aFrames[0].Body, &msg))
	assert.Equal(t, int64(1), msg.ID, "relay assigns the first server id")
	assert.Equal(t, "hello", msg.Content)

	// b gets the chat frame and, as the only known participant, the room
	// summary delta on its user topic
	bFrames := drain(b)
	require.Len(t, bFrames, 2)
	assert.Equal(t, chat.ChatTopic(10), bFrames[0].Header.Get(frame.Destination))
	assert.Equal(t, chat.UserTopic(5), bFrames[1].Header.Get(frame.Destination))

	var update chat.RoomUpdate
	require.NoError(t, json.Unmarshal(bFrames[1].Body, &update))
	assert.Equal(t, int64(10), update.ChatRoomID)
	assert.Equal(t, "hello", update.LastMessage)
}

func TestRelaySendAppendsHistoryAndSummary(t *testing.T) {
	r := New(zerolog.Nop())

	body, _ := json.Marshal(chat.OutgoingMessage{ChatRoomID: 3, SenderID: 1, Content: "first"})
	r.route(chat.SendDestination, "application/json", body)

	hist := r.History(3)
	require.Len(t, hist, 1)
	assert.Equal(t, chat.MessageChat, hist[0].Type, "missing type defaults to chat")

	sums := r.RoomSummaries()
	require.Len(t, sums, 1)
	assert.Equal(t, "first", sums[0].LastMessage)
}

func TestRelayTopicSendRelaysVerbatim(t *testing.T) {
	r := New(zerolog.Nop())
	s := newSession("s", zerolog.Nop())
	r.register(s)
	r.subscribe(s, "sub-1", chat.ReadTopic(10))

	payload := []byte(`{"messageIds":[1,2]}`)
	r.route(chat.ReadTopic(10), "application/json", payload)

	frames := drain(s)
	require.Len(t, frames, 1)
	assert.Equal(t, payload, frames[0].Body)
	assert.Empty(t, r.History(10), "topic relays never touch history")
}

func TestRelayUnsubscribeStopsDelivery(t *testing.T) {
	r := New(zerolog.Nop())
	s := newSession("s", zerolog.Nop())
	r.register(s)
	r.subscribe(s, "sub-1", chat.ChatTopic(10))
	r.unsubscribe(s, "sub-1")

	body, _ := json.Marshal(chat.OutgoingMessage{ChatRoomID: 10, SenderID: 1, Content: "x"})
	r.route(chat.SendDestination, "application/json", body)
	assert.Empty(t, drain(s))
}

func TestRelayDropReleasesAllSubscriptions(t *testing.T) {
	r := New(zerolog.Nop())
	s := newSession("s", zerolog.Nop())
	r.register(s)
	r.subscribe(s, "sub-1", chat.ChatTopic(10))
	r.subscribe(s, "sub-2", chat.UserTopic(1))

	r.drop(s)
	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.Empty(t, r.topics)
	assert.Empty(t, r.sessions)
}

func TestRelayReceiptRequestsAnswered(t *testing.T) {
	r := New(zerolog.Nop())
	s := newSession("s", zerolog.Nop())
	r.register(s)

	done := r.handleFrame(s, frame.New(frame.DISCONNECT, frame.Receipt, "77"))
	assert.True(t, done)

	frames := drain(s)
	require.Len(t, frames, 1)
	assert.Equal(t, frame.RECEIPT, frames[0].Command)
	assert.Equal(t, "77", frames[0].Header.Get(frame.ReceiptId))
}

func TestRelaySeedAdvancesMessageIDs(t *testing.T) {
	r := New(zerolog.Nop())
	now := time.Now()
	r.Seed(
		[]chat.RoomSummary{{ID: 1, PartnerName: "Jiwoo", LastMessageTime: now}},
		map[int64][]chat.Message{1: {{ID: 41, ChatRoomID: 1, SenderID: 2, Content: "old"}}},
	)

	body, _ := json.Marshal(chat.OutgoingMessage{ChatRoomID: 1, SenderID: 2, Content: "new"})
	r.route(chat.SendDestination, "application/json", body)

	hist := r.History(1)
	require.Len(t, hist, 2)
	assert.Equal(t, int64(42), hist[1].ID)
}

func TestRelayMalformedSendDropped(t *testing.T) {
	r := New(zerolog.Nop())
	assert.NotPanics(t, func() { r.route(chat.SendDestination, "application/json", []byte("junk")) })
	assert.Empty(t, r.RoomSummaries())
}
