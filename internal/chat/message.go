package chat

import "time"

// SystemSenderID marks messages synthesized by the client or server rather
// than typed by a participant (calendar notices, join/leave info lines).
const SystemSenderID = 0

type MessageType string

const (
	MessageChat MessageType = "chat"
	MessageInfo MessageType = "info"
)

// Message is one entry in a room's timeline. IDs are server-assigned and
// positive; locally synthesized info messages carry negative ids so the two
// ranges can never collide.
type Message struct {
	ID         int64       `json:"id"`
	ChatRoomID int64       `json:"chatRoomId"`
	SenderID   int64       `json:"senderId"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	Timestamp  time.Time   `json:"timestamp"`
	IsRead     bool        `json:"isRead"`
	Emoji      string      `json:"emoji,omitempty"`
}

// OutgoingMessage is the publish payload for the send destination. The server
// echoes the stored message back on the room's chat topic; the client never
// appends locally on send.
type OutgoingMessage struct {
	ChatRoomID int64       `json:"chatRoomId"`
	SenderID   int64       `json:"senderId"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
}

// ReadEvent lists message ids the partner has now read.
type ReadEvent struct {
	MessageIDs []int64 `json:"messageIds"`
}

// CalendarEvent announces a created or changed exchange/rental appointment.
// Dates arrive as strings; whichever field is present first in priority order
// (exchange, rental start, rental end) drives the synthesized info line.
type CalendarEvent struct {
	ID              int64  `json:"id,omitempty"`
	ExchangeDate    string `json:"exchangeDate,omitempty"`
	RentalStartDate string `json:"rentalStartDate,omitempty"`
	RentalEndDate   string `json:"rentalEndDate,omitempty"`
}

const emojiActionAdd = "ADD"

// EmojiEvent toggles a reaction on one message. Type "ADD" sets the code,
// any other value clears it.
type EmojiEvent struct {
	MessageID int64  `json:"messageId"`
	Emoji     string `json:"emoji"`
	Type      string `json:"type"`
}

// RoomSummary is one entry in the user's room list.
type RoomSummary struct {
	ID                  int64     `json:"id"`
	PartnerName         string    `json:"partnerName"`
	PartnerProfileImage string    `json:"partnerProfileImage"`
	LastMessage         string    `json:"lastMessage"`
	LastMessageTime     time.Time `json:"lastMessageTime"`
	UnreadCount         int       `json:"unreadCount"`
}

// RoomUpdate is the delta published on a user topic when any of the user's
// rooms receives a message.
type RoomUpdate struct {
	ChatRoomID          int64     `json:"chatRoomId"`
	PartnerName         string    `json:"partnerName,omitempty"`
	PartnerProfileImage string    `json:"partnerProfileImage,omitempty"`
	LastMessage         string    `json:"lastMessage"`
	LastMessageTime     time.Time `json:"lastMessageTime"`
}
