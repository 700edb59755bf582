// Package events holds the atomic update protocol and the pure aggregate
// transforms every mutation in the system is expressed as.
package events

import (
	"context"

	"event-service/internal/models"
)

// Store is the slice of the event repository the update protocol needs.
type Store interface {
	GetEvent(ctx context.Context, id string) (models.Event, error)
	UpdateEvent(ctx context.Context, evt models.Event) (models.Event, error)
}

// Transform is a pure function applied to the freshly fetched aggregate.
// It must be side-effect free so a retry is always safe.
type Transform func(models.Event) models.Event

// PersistenceError wraps a rejected store write. The fetch succeeded, so the
// caller knows the event exists and the failure is a no-op on persisted state.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persist event: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// UpdateAtomic applies fn to the current stored state of the event, never to
// a client-held copy, and persists the whole document. The returned value is
// the server-confirmed post-write row, not the locally computed one.
//
// This is not a compare-and-swap: two concurrent calls can race between each
// other's fetch and write, and the later write replaces the entire document.
func UpdateAtomic(ctx context.Context, store Store, eventID string, fn Transform) (models.Event, error) {
	current, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}
	updated, err := store.UpdateEvent(ctx, fn(current))
	if err != nil {
		return models.Event{}, &PersistenceError{Err: err}
	}
	return updated, nil
}
