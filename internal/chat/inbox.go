package chat

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Inbox reconciles the user's room list: a bulk REST fetch seeds it, and
// user-topic deltas upsert entries as messages land in any room. The unread
// counter only moves for rooms the user is not currently viewing.
type Inbox struct {
	mu         sync.Mutex
	rooms      map[int64]*RoomSummary
	activeRoom int64 // 0 = no room open
	log        zerolog.Logger
}

func NewInbox(log zerolog.Logger) *Inbox {
	return &Inbox{
		rooms: make(map[int64]*RoomSummary),
		log:   log.With().Str("component", "inbox").Logger(),
	}
}

// Reset replaces all entries with a fetched summary list.
func (b *Inbox) Reset(summaries []RoomSummary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = make(map[int64]*RoomSummary, len(summaries))
	for _, s := range summaries {
		cp := s
		b.rooms[s.ID] = &cp
	}
}

// SetActiveRoom marks roomID as the open room; its unread counter is zeroed
// and stays pinned at zero while it remains active.
func (b *Inbox) SetActiveRoom(roomID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeRoom = roomID
	if r, ok := b.rooms[roomID]; ok {
		r.UnreadCount = 0
	}
}

// ClearActiveRoom marks no room as open.
func (b *Inbox) ClearActiveRoom() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeRoom = 0
}

// Apply folds one user-topic delta into the list, creating the entry when
// the room is new to this session.
func (b *Inbox) Apply(u RoomUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rooms[u.ChatRoomID]
	if !ok {
		r = &RoomSummary{ID: u.ChatRoomID}
		b.rooms[u.ChatRoomID] = r
	}
	if u.PartnerName != "" {
		r.PartnerName = u.PartnerName
	}
	if u.PartnerProfileImage != "" {
		r.PartnerProfileImage = u.PartnerProfileImage
	}
	r.LastMessage = u.LastMessage
	r.LastMessageTime = u.LastMessageTime
	if u.ChatRoomID != b.activeRoom {
		r.UnreadCount++
	}
}

// HandleFrame is the registry handler for the user topic.
func (b *Inbox) HandleFrame(body []byte) {
	var u RoomUpdate
	if err := json.Unmarshal(body, &u); err != nil {
		b.log.Warn().Err(err).Msg("drop malformed room update")
		return
	}
	b.Apply(u)
}

// Rooms returns a copy of the list sorted by last activity, newest first.
func (b *Inbox) Rooms() []RoomSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RoomSummary, 0, len(b.rooms))
	for _, r := range b.rooms {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTime.After(out[j].LastMessageTime) })
	return out
}
