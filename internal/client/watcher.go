package client

import (
	"context"
	"sync"
	"time"

	"event-service/internal/logging"
	"event-service/internal/models"
)

// EventLister fetches the caller's event list.
type EventLister interface {
	ListEventsForUser(ctx context.Context, userID string) ([]models.Event, error)
}

// ChangeFeed is a live stream of event change notifications. The feed is
// filtered by table only; relevance to a given user is decided here.
type ChangeFeed interface {
	Changes() <-chan models.EventChange
	Errors() <-chan error
	Close() error
}

var watcherLogger = logging.New("client.watcher")

// ListWatcher keeps a user's event list current. It holds the result of the
// last full fetch and refetches whenever the change feed reports a write on
// an event the user owns or co-organizes. Deletions are relevant through the
// notification's payload since the row itself is gone.
type ListWatcher struct {
	lister EventLister
	feed   ChangeFeed
	userID string

	// OnEvents receives the refreshed list after every refetch.
	onEvents func([]models.Event)

	mu     sync.Mutex
	alive  bool
	events []models.Event

	done chan struct{}
}

// NewListWatcher performs the initial fetch and starts consuming the feed.
func NewListWatcher(ctx context.Context, lister EventLister, feed ChangeFeed, userID string, onEvents func([]models.Event)) (*ListWatcher, error) {
	w := &ListWatcher{
		lister:   lister,
		feed:     feed,
		userID:   userID,
		onEvents: onEvents,
		alive:    true,
		done:     make(chan struct{}),
	}

	evts, err := lister.ListEventsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	w.store(evts)

	go w.consume()
	return w, nil
}

// Events returns a snapshot of the current list.
func (w *ListWatcher) Events() []models.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.Event, len(w.events))
	copy(out, w.events)
	return out
}

// Close stops the watcher and the underlying feed.
func (w *ListWatcher) Close() error {
	w.mu.Lock()
	if !w.alive {
		w.mu.Unlock()
		return nil
	}
	w.alive = false
	w.mu.Unlock()

	close(w.done)
	return w.feed.Close()
}

func (w *ListWatcher) consume() {
	for {
		select {
		case <-w.done:
			return
		case change, ok := <-w.feed.Changes():
			if !ok {
				return
			}
			if w.relevant(change) {
				w.refetch()
			}
		case err, ok := <-w.feed.Errors():
			if !ok {
				return
			}
			if err != nil {
				watcherLogger.Warn().Err(err).Msg("change feed error, refetching")
			}
			w.refetch()
		}
	}
}

// relevant reports whether the change touches an event this user can see.
func (w *ListWatcher) relevant(change models.EventChange) bool {
	if change.CreatorID == w.userID {
		return true
	}
	for _, id := range change.OrganizerIDs {
		if id == w.userID {
			return true
		}
	}
	return false
}

func (w *ListWatcher) refetch() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	evts, err := w.lister.ListEventsForUser(ctx, w.userID)
	if err != nil {
		watcherLogger.Debug().Err(err).Msg("event list refetch failed")
		return
	}
	w.store(evts)
}

func (w *ListWatcher) store(evts []models.Event) {
	w.mu.Lock()
	if !w.alive {
		w.mu.Unlock()
		return
	}
	w.events = evts
	w.mu.Unlock()

	if w.onEvents != nil {
		w.onEvents(evts)
	}
}
