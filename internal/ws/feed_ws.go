package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"event-service/internal/identity"
	"event-service/internal/observability"
)

// FeedWebSocketHandler serves the event change feed consumed by the
// collection view. The feed carries every change to the events table; the
// subscriber checks creator/organizer ids before refetching its list.
type FeedWebSocketHandler struct {
	hub       *Hub
	validator identity.Validator
}

// NewFeedWebSocketHandler constructs a FeedWebSocketHandler.
func NewFeedWebSocketHandler(hub *Hub, validator identity.Validator) *FeedWebSocketHandler {
	return &FeedWebSocketHandler{hub: hub, validator: validator}
}

// Handle upgrades the connection and registers the feed subscriber.
func (h *FeedWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("event-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	user, err := h.validator.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		UserName:    user.DisplayName(),
		DeviceID:    deviceIDFrom(c.Request),
		IP:          clientIP(c.Request),
		RequestID:   requestIDFrom(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddFeedClient(conn, info)
	observability.IncWSActive("feed")
	observability.IncWSEvent("feed", "ws_connect")

	go func() {
		defer func() {
			h.hub.RemoveFeedClient(conn)
			observability.DecWSActive("feed")
			observability.IncWSEvent("feed", "ws_disconnect")
			conn.Close()
		}()
		for {
			// The feed is one-way; just drain control frames until close.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
