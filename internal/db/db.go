package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"event-service/internal/logging"
)

var dbLogger = logging.New("db")

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
            id UUID PRIMARY KEY,
            share_code TEXT NOT NULL UNIQUE,
            share_password TEXT NOT NULL DEFAULT '',
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            start_date TIMESTAMPTZ,
            end_date TIMESTAMPTZ,
            is_period BOOLEAN NOT NULL DEFAULT FALSE,
            is_date_tbd BOOLEAN NOT NULL DEFAULT FALSE,
            location TEXT NOT NULL DEFAULT '',
            image TEXT NOT NULL DEFAULT '',
            creator_id TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT 'Social',
            general_guests_count INT NOT NULL DEFAULT 0,
            budget DOUBLE PRECISION NOT NULL DEFAULT 0,
            organizers JSONB NOT NULL DEFAULT '[]',
            sub_events JSONB NOT NULL DEFAULT '[]',
            guests JSONB NOT NULL DEFAULT '[]',
            is_guest_chat_enabled BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
            id UUID PRIMARY KEY,
            event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
            channel_id TEXT NOT NULL,
            sender_id TEXT NOT NULL,
            sender_name TEXT NOT NULL,
            text TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'organizer',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_channel
            ON chat_messages (event_id, channel_id, created_at);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	dbLogger.Info().Msg("database migrations applied")
	return nil
}
