package models

import "time"

// GlobalChannelID is the event-wide chat channel; every other channel id is a
// sub-event id.
const GlobalChannelID = "global"

// Role identifies the sender's relation to the event at send time.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleOrganizer Role = "organizer"
	RoleGuest     Role = "guest"
)

// ChatMessage is immutable once created. Timestamp is the ordering key,
// ID is the de-duplication key across merge sources.
type ChatMessage struct {
	ID         string    `db:"id" json:"id"`
	EventID    string    `db:"event_id" json:"event_id"`
	ChannelID  string    `db:"channel_id" json:"channel_id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	SenderName string    `db:"sender_name" json:"sender_name"`
	Text       string    `db:"text" json:"text"`
	Role       Role      `db:"role" json:"role"`
	Timestamp  time.Time `db:"created_at" json:"timestamp"`
}

// PresenceState is a client's last announced ephemeral state on a channel.
// It is never persisted.
type PresenceState struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Typing   bool   `json:"typing"`
}

// ChatFrame is broadcast over chat websocket connections.
type ChatFrame struct {
	Type      string          `json:"type"`
	Message   *ChatMessage    `json:"message,omitempty"`
	Presences []PresenceState `json:"presences,omitempty"`
}

// Chat frame types.
const (
	FrameMessage  = "message"
	FramePresence = "presence"
	FrameTyping   = "typing"
)

// TypingFrame is the only frame clients send upstream on a chat socket.
type TypingFrame struct {
	Type   string `json:"type"`
	Typing bool   `json:"typing"`
}

// EventChange is broadcast over the events feed socket on every aggregate
// write. The feed is filtered by table only; consumers decide relevance from
// the creator and organizer ids.
type EventChange struct {
	Type         string   `json:"type"`
	EventID      string   `json:"event_id"`
	CreatorID    string   `json:"creator_id"`
	OrganizerIDs []string `json:"organizer_ids"`
}

// Event change types.
const (
	ChangeInsert = "insert"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)
