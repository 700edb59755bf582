package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"event-service/internal/events"
	"event-service/internal/models"
	"event-service/internal/observability"
	"event-service/internal/repositories"
	"event-service/internal/ws"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if val, ok := c.Get("userID"); ok {
		if id, ok := val.(string); ok && id != "" {
			return &id
		}
	}

	if header := c.GetHeader("X-User-ID"); header != "" {
		return &header
	}

	return nil
}

// eventChange builds the feed notification for an aggregate write.
func eventChange(changeType string, evt models.Event) models.EventChange {
	ids := make([]string, 0, len(evt.Organizers))
	for _, org := range evt.Organizers {
		ids = append(ids, org.UserID)
	}
	return models.EventChange{
		Type:         changeType,
		EventID:      evt.ID,
		CreatorID:    evt.CreatorID,
		OrganizerIDs: ids,
	}
}

// applyTransform runs fn through the atomic update protocol, translates
// failures to JSON responses and broadcasts the change on success.
func applyTransform(c *gin.Context, repo repositories.EventRepository, hub *ws.Hub, eventID string, fn events.Transform) (models.Event, bool) {
	updated, err := events.UpdateAtomic(c.Request.Context(), repo, eventID, fn)
	if err != nil {
		var persistErr *events.PersistenceError
		switch {
		case errors.Is(err, repositories.ErrEventNotFound):
			observability.IncEventUpdate("not_found")
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		case errors.As(err, &persistErr):
			observability.IncEventUpdate("persist_error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update event"})
		default:
			observability.IncEventUpdate("error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update event"})
		}
		return models.Event{}, false
	}

	observability.IncEventUpdate("ok")
	if hub != nil {
		hub.BroadcastEventChange(eventChange(models.ChangeUpdate, updated))
	}
	return updated, true
}

// channelExists reports whether channelID is the global channel or one of the
// event's sub-event ids.
func channelExists(evt models.Event, channelID string) bool {
	if channelID == models.GlobalChannelID {
		return true
	}
	for _, sub := range evt.SubEvents {
		if sub.ID == channelID {
			return true
		}
	}
	return false
}
