package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"event-service/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

const eventColumns = `id, share_code, share_password, title, description, start_date, end_date,
        is_period, is_date_tbd, location, image, creator_id, category, general_guests_count,
        budget, organizers, sub_events, guests, is_guest_chat_enabled, created_at`

// EventRepository abstracts event persistence. Updates always replace the
// whole document; there is no per-field write path.
type EventRepository interface {
	InsertEvent(ctx context.Context, evt models.Event) (models.Event, error)
	GetEvent(ctx context.Context, id string) (models.Event, error)
	UpdateEvent(ctx context.Context, evt models.Event) (models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ShareCodeExists(ctx context.Context, code string) (bool, error)
	FindEventIDForJoin(ctx context.Context, code, password string) (string, error)
	ListEventsForUser(ctx context.Context, userID string) ([]models.Event, error)
}

// EventRepo is a sqlx implementation of EventRepository.
type EventRepo struct {
	db *sqlx.DB
}

// NewEventRepo constructs an EventRepo.
func NewEventRepo(db *sqlx.DB) *EventRepo {
	return &EventRepo{db: db}
}

// InsertEvent stores a new event and returns the server-confirmed row.
func (r *EventRepo) InsertEvent(ctx context.Context, evt models.Event) (models.Event, error) {
	query := `INSERT INTO events (id, share_code, share_password, title, description, start_date, end_date,
            is_period, is_date_tbd, location, image, creator_id, category, general_guests_count,
            budget, organizers, sub_events, guests, is_guest_chat_enabled)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
        RETURNING ` + eventColumns
	var out models.Event
	err := r.db.QueryRowxContext(ctx, query,
		evt.ID, evt.ShareCode, evt.SharePassword, evt.Title, evt.Description, evt.StartDate, evt.EndDate,
		evt.IsPeriod, evt.IsDateTBD, evt.Location, evt.Image, evt.CreatorID, evt.Category, evt.GeneralGuestsCount,
		evt.Budget, evt.Organizers, evt.SubEvents, evt.Guests, evt.IsGuestChatEnabled,
	).StructScan(&out)
	return out, err
}

// GetEvent fetches an event by id.
func (r *EventRepo) GetEvent(ctx context.Context, id string) (models.Event, error) {
	var evt models.Event
	err := r.db.GetContext(ctx, &evt, `SELECT `+eventColumns+` FROM events WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, ErrEventNotFound
	}
	return evt, err
}

// UpdateEvent replaces the whole document for the event's id and returns the
// row as the store confirmed it.
func (r *EventRepo) UpdateEvent(ctx context.Context, evt models.Event) (models.Event, error) {
	query := `UPDATE events SET share_code=$2, share_password=$3, title=$4, description=$5,
            start_date=$6, end_date=$7, is_period=$8, is_date_tbd=$9, location=$10, image=$11,
            category=$12, general_guests_count=$13, budget=$14, organizers=$15, sub_events=$16,
            guests=$17, is_guest_chat_enabled=$18
        WHERE id=$1
        RETURNING ` + eventColumns
	var out models.Event
	err := r.db.QueryRowxContext(ctx, query,
		evt.ID, evt.ShareCode, evt.SharePassword, evt.Title, evt.Description,
		evt.StartDate, evt.EndDate, evt.IsPeriod, evt.IsDateTBD, evt.Location, evt.Image,
		evt.Category, evt.GeneralGuestsCount, evt.Budget, evt.Organizers, evt.SubEvents,
		evt.Guests, evt.IsGuestChatEnabled,
	).StructScan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, ErrEventNotFound
	}
	return out, err
}

// DeleteEvent removes the event row; chat messages cascade.
func (r *EventRepo) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ShareCodeExists checks the unique share-code index before generation
// settles on a candidate.
func (r *EventRepo) ShareCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM events WHERE share_code=$1)`, code)
	return exists, err
}

// FindEventIDForJoin resolves an invitation. Code and password are matched in
// a single predicate so a code hit with a wrong password is indistinguishable
// from a miss.
func (r *EventRepo) FindEventIDForJoin(ctx context.Context, code, password string) (string, error) {
	var id string
	err := r.db.GetContext(ctx, &id,
		`SELECT id FROM events WHERE share_code=$1 AND share_password=$2`, code, password)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrEventNotFound
	}
	return id, err
}

// ListEventsForUser returns events the user created or is a confirmed
// organizer of, newest first.
func (r *EventRepo) ListEventsForUser(ctx context.Context, userID string) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
        WHERE creator_id=$1
           OR EXISTS (
                SELECT 1 FROM jsonb_array_elements(organizers) AS org
                WHERE org->>'userId' = $1 AND org->>'status' = 'confirmed')
        ORDER BY created_at DESC`
	var evts []models.Event
	err := r.db.SelectContext(ctx, &evts, query, userID)
	return evts, err
}
