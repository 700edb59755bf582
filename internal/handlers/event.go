package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"event-service/internal/events"
	"event-service/internal/middleware"
	"event-service/internal/models"
	"event-service/internal/permissions"
	"event-service/internal/repositories"
	"event-service/internal/sharecode"
	"event-service/internal/telemetry"
	"event-service/internal/ws"
)

// EventHandler manages the event aggregate endpoints.
type EventHandler struct {
	eventRepo repositories.EventRepository
	hub       *ws.Hub
	emitter   *telemetry.AuditEmitter
}

// NewEventHandler builds an EventHandler.
func NewEventHandler(eventRepo repositories.EventRepository, hub *ws.Hub, emitter *telemetry.AuditEmitter) *EventHandler {
	return &EventHandler{
		eventRepo: eventRepo,
		hub:       hub,
		emitter:   emitter,
	}
}

// CreateEvent creates a new event owned by the caller. Share code and
// password are generated server-side.
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req struct {
		Title              string     `json:"title" binding:"required"`
		Description        string     `json:"description"`
		Location           string     `json:"location"`
		Category           string     `json:"category"`
		Image              string     `json:"image"`
		Budget             float64    `json:"budget"`
		GeneralGuestsCount int        `json:"general_guests_count"`
		IsPeriod           bool       `json:"is_period"`
		IsDateTBD          bool       `json:"is_date_tbd"`
		StartDate          *time.Time `json:"start_date"`
		EndDate            *time.Time `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)

	code, err := sharecode.GenerateCode(c.Request.Context(), h.eventRepo.ShareCodeExists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate share code"})
		return
	}
	password, err := sharecode.GeneratePassword()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate share password"})
		return
	}

	evt := models.Event{
		ID:                 uuid.NewString(),
		ShareCode:          code,
		SharePassword:      password,
		Title:              req.Title,
		Description:        req.Description,
		Location:           req.Location,
		Category:           req.Category,
		Image:              req.Image,
		Budget:             req.Budget,
		GeneralGuestsCount: req.GeneralGuestsCount,
		IsPeriod:           req.IsPeriod,
		IsDateTBD:          req.IsDateTBD,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		CreatorID:          user.ID,
		Organizers:         models.OrganizerList{},
		SubEvents:          models.SubEventList{},
		Guests:             models.GuestList{},
	}
	if evt.IsDateTBD {
		evt.StartDate = nil
		evt.EndDate = nil
	}

	created, err := h.eventRepo.InsertEvent(c.Request.Context(), evt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create event"})
		return
	}

	h.hub.BroadcastEventChange(eventChange(models.ChangeInsert, created))
	h.emitter.Emit(c.Request.Context(), "INFO", "event created", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, created)
}

// ListEvents returns the events the caller owns or co-organizes.
func (h *EventHandler) ListEvents(c *gin.Context) {
	user := middleware.CurrentUser(c)

	evts, err := h.eventRepo.ListEventsForUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": evts})
}

// GetEvent returns one event the caller can see. The share password is
// stripped for everyone but the owner.
func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID := c.Param("event_id")
	user := middleware.CurrentUser(c)

	evt, err := h.eventRepo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrEventNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "event not found"})
		return
	}

	if !permissions.IsOwner(evt, user.ID) && permissions.CurrentOrganizer(evt, user.ID) == nil && !isPendingOrganizer(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not an event member"})
		return
	}

	if !permissions.IsOwner(evt, user.ID) {
		evt.SharePassword = ""
	}
	c.JSON(http.StatusOK, evt)
}

// UpdateDetails applies a partial edit of the event's top-level fields.
func (h *EventHandler) UpdateDetails(c *gin.Context) {
	eventID := c.Param("event_id")
	user := middleware.CurrentUser(c)

	var req struct {
		Title              *string    `json:"title"`
		Description        *string    `json:"description"`
		Location           *string    `json:"location"`
		Category           *string    `json:"category"`
		Image              *string    `json:"image"`
		Budget             *float64   `json:"budget"`
		GeneralGuestsCount *int       `json:"general_guests_count"`
		IsPeriod           *bool      `json:"is_period"`
		IsDateTBD          *bool      `json:"is_date_tbd"`
		StartDate          *time.Time `json:"start_date"`
		EndDate            *time.Time `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Category != nil && !validCategory(*req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	if !permissions.CanEditDetails(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing edit_details permission"})
		return
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID, events.UpdateDetails(events.DetailsUpdate{
		Title:              req.Title,
		Description:        req.Description,
		Location:           req.Location,
		Category:           req.Category,
		Image:              req.Image,
		Budget:             req.Budget,
		GeneralGuestsCount: req.GeneralGuestsCount,
		IsPeriod:           req.IsPeriod,
		IsDateTBD:          req.IsDateTBD,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
	}))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, updated)
}

// RotateSharePassword replaces the share password. Owner only.
func (h *EventHandler) RotateSharePassword(c *gin.Context) {
	eventID := c.Param("event_id")
	user := middleware.CurrentUser(c)

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	if !permissions.IsOwner(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can rotate the password"})
		return
	}

	password, err := sharecode.GeneratePassword()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate share password"})
		return
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID, events.RotateSharePassword(password))
	if !ok {
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "share password rotated", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"share_code": updated.ShareCode, "share_password": updated.SharePassword})
}

// DeleteEvent removes an event. Owner only.
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	eventID := c.Param("event_id")
	user := middleware.CurrentUser(c)

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	if !permissions.IsOwner(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can delete the event"})
		return
	}

	if err := h.eventRepo.DeleteEvent(c.Request.Context(), eventID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrEventNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to delete event"})
		return
	}

	h.hub.BroadcastEventChange(eventChange(models.ChangeDelete, evt))
	h.emitter.Emit(c.Request.Context(), "WARN", "event deleted", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *EventHandler) loadEvent(c *gin.Context, eventID string) (models.Event, bool) {
	evt, err := h.eventRepo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrEventNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "event not found"})
		return models.Event{}, false
	}
	return evt, true
}

func isPendingOrganizer(evt models.Event, userID string) bool {
	for _, org := range evt.Organizers {
		if org.UserID == userID {
			return true
		}
	}
	return false
}

func validCategory(category string) bool {
	switch category {
	case models.CategoryBusiness, models.CategorySocial, models.CategorySport, models.CategoryCulture:
		return true
	}
	return false
}
