package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"event-service/internal/identity"
	"event-service/internal/models"
	"event-service/internal/observability"
	"event-service/internal/permissions"
	"event-service/internal/repositories"
)

// ChatWebSocketHandler handles chat websocket connections. One connection
// serves one (event, channel) pair; switching channels is a new connection.
type ChatWebSocketHandler struct {
	hub       *Hub
	eventRepo repositories.EventRepository
	validator identity.Validator
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, eventRepo repositories.EventRepository, validator identity.Validator) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{hub: hub, eventRepo: eventRepo, validator: validator}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, gates it on the channel's chat permission
// and registers the client. Inbound frames only carry typing announcements.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	eventID := c.Param("event_id")
	channelID := c.Param("channel_id")

	ctx, span := otel.Tracer("event-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	user, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	evt, err := h.eventRepo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrEventNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "event not found"})
		return
	}

	if !channelExists(evt, channelID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return
	}
	if !permissions.CanUseChannel(evt, user.ID, channelID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for channel"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := requestIDFrom(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		UserName:    user.DisplayName(),
		DeviceID:    deviceIDFrom(c.Request),
		IP:          clientIP(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddChatClient(eventID, channelID, conn, info)

	observability.IncWSActive("chat")
	observability.IncWSEvent("chat", "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload("chat", eventID, channelID, info, "ws_connect", 0, ""),
	}, observability.TraceHeaders(requestID, traceID))

	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveChatClient(eventID, channelID, conn)
			observability.DecWSActive("chat")
			observability.IncWSEvent("chat", "ws_disconnect")
			_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   wsEventPayload("chat", eventID, channelID, info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
			}, observability.TraceHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("chat", "ws_error")
					_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
						EventType: "ws_events",
						EventName: "ws_error",
						Payload:   wsEventPayload("chat", eventID, channelID, info, "ws_error", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
					}, observability.TraceHeaders(requestID, traceID))
				}
				return
			}

			var frame models.TypingFrame
			if err := json.Unmarshal(data, &frame); err != nil || frame.Type != models.FrameTyping {
				continue
			}
			h.hub.Track(eventID, channelID, conn, models.PresenceState{
				UserID:   user.ID,
				UserName: user.DisplayName(),
				Typing:   frame.Typing,
			})
		}
	}()
}

func (h *ChatWebSocketHandler) authenticate(c *gin.Context) (identity.User, error) {
	token := bearerToken(c)
	if token == "" {
		return identity.User{}, errors.New("missing token")
	}
	return h.validator.ValidateToken(c.Request.Context(), token)
}

func channelExists(evt models.Event, channelID string) bool {
	if channelID == models.GlobalChannelID {
		return true
	}
	for _, s := range evt.SubEvents {
		if s.ID == channelID {
			return true
		}
	}
	return false
}

func wsEventPayload(kind, eventID, channelID string, info ConnInfo, event string, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"event_id":    eventID,
			"channel_id":  channelID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
