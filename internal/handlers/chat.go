package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"event-service/internal/middleware"
	"event-service/internal/models"
	"event-service/internal/observability"
	"event-service/internal/permissions"
	"event-service/internal/repositories"
	"event-service/internal/ws"
)

// ChatHandler manages per-channel chat endpoints.
type ChatHandler struct {
	eventRepo   repositories.EventRepository
	messageRepo repositories.MessageRepository
	hub         *ws.Hub
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(eventRepo repositories.EventRepository, messageRepo repositories.MessageRepository, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{
		eventRepo:   eventRepo,
		messageRepo: messageRepo,
		hub:         hub,
	}
}

// ListChannelMessages returns a channel's history ordered by timestamp.
func (h *ChatHandler) ListChannelMessages(c *gin.Context) {
	eventID := c.Param("event_id")
	channelID := c.Param("channel_id")
	user := middleware.CurrentUser(c)

	if _, ok := h.authorizeChannel(c, eventID, channelID, user.ID); !ok {
		return
	}

	msgs, err := h.messageRepo.ListMessages(c.Request.Context(), eventID, channelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChannelMessage stores a message and broadcasts it to the event's chat
// connections. The client may supply the message id so an optimistic local
// copy and the pushed server copy dedupe to one entry.
func (h *ChatHandler) PostChannelMessage(c *gin.Context) {
	eventID := c.Param("event_id")
	channelID := c.Param("channel_id")
	user := middleware.CurrentUser(c)

	var req struct {
		ID        string     `json:"id"`
		Text      string     `json:"text" binding:"required"`
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt, ok := h.authorizeChannel(c, eventID, channelID, user.ID)
	if !ok {
		return
	}

	role := models.RoleOrganizer
	if permissions.IsOwner(evt, user.ID) {
		role = models.RoleOwner
	}

	msg := models.ChatMessage{
		ID:         req.ID,
		EventID:    eventID,
		ChannelID:  channelID,
		SenderID:   user.ID,
		SenderName: user.DisplayName(),
		Text:       req.Text,
		Role:       role,
		Timestamp:  time.Now().UTC(),
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if req.Timestamp != nil {
		msg.Timestamp = req.Timestamp.UTC()
	}

	stored, err := h.messageRepo.CreateMessage(c.Request.Context(), msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	observability.IncChatMessage()
	h.hub.BroadcastChatMessage(eventID, stored)
	c.JSON(http.StatusCreated, stored)
}

// authorizeChannel loads the event, verifies the channel exists and checks
// the caller may use it.
func (h *ChatHandler) authorizeChannel(c *gin.Context, eventID, channelID, userID string) (models.Event, bool) {
	evt, err := h.eventRepo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrEventNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "event not found"})
		return models.Event{}, false
	}

	if !channelExists(evt, channelID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return models.Event{}, false
	}
	if !permissions.CanUseChannel(evt, userID, channelID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "channel access denied"})
		return models.Event{}, false
	}

	return evt, true
}
