package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"event-service/internal/models"
)

// MessageRepository defines interactions for chat messages. The table is
// insert-only from the application's perspective.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
	ListMessages(ctx context.Context, eventID, channelID string) ([]models.ChatMessage, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a chat message. The id and timestamp come from the
// sender (optimistic construction); the returned row is what the store kept.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	var out models.ChatMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_messages (id, event_id, channel_id, sender_id, sender_name, text, role, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, event_id, channel_id, sender_id, sender_name, text, role, created_at`,
		msg.ID, msg.EventID, msg.ChannelID, msg.SenderID, msg.SenderName, msg.Text, msg.Role, msg.Timestamp,
	).StructScan(&out)
	return out, err
}

// ListMessages returns all messages of one channel ordered by timestamp
// ascending.
func (r *MessageRepo) ListMessages(ctx context.Context, eventID, channelID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, event_id, channel_id, sender_id, sender_name, text, role, created_at
        FROM chat_messages
        WHERE event_id=$1 AND channel_id=$2
        ORDER BY created_at ASC`, eventID, channelID)
	return msgs, err
}
