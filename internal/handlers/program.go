package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"event-service/internal/events"
	"event-service/internal/middleware"
	"event-service/internal/models"
	"event-service/internal/permissions"
	"event-service/internal/repositories"
	"event-service/internal/ws"
)

// ProgramHandler manages sub-events, key moments, guests and attendance.
type ProgramHandler struct {
	eventRepo repositories.EventRepository
	hub       *ws.Hub
}

// NewProgramHandler builds a ProgramHandler.
func NewProgramHandler(eventRepo repositories.EventRepository, hub *ws.Hub) *ProgramHandler {
	return &ProgramHandler{
		eventRepo: eventRepo,
		hub:       hub,
	}
}

// AddSubEvent appends a sub-event to the program.
func (h *ProgramHandler) AddSubEvent(c *gin.Context) {
	eventID := c.Param("event_id")
	user := middleware.CurrentUser(c)

	var req struct {
		Title           string     `json:"title" binding:"required"`
		Date            *time.Time `json:"date"`
		Location        string     `json:"location"`
		EstimatedGuests int        `json:"estimatedGuests"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	if !permissions.CanManageProgram(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing manage_sub_events permission"})
		return
	}

	sub := models.SubEvent{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Date:            req.Date,
		Location:        req.Location,
		EstimatedGuests: req.EstimatedGuests,
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID, events.AddSubEvent(sub))
	if !ok {
		return
	}

	c.JSON(http.StatusCreated, updated)
}

// UpdateSubEvent edits one sub-event's settings.
func (h *ProgramHandler) UpdateSubEvent(c *gin.Context) {
	eventID := c.Param("event_id")
	subEventID := c.Param("sub_event_id")
	user := middleware.CurrentUser(c)

	var req struct {
		Title           *string    `json:"title"`
		Location        *string    `json:"location"`
		Date            *time.Time `json:"date"`
		ClearDate       bool       `json:"clearDate"`
		EstimatedGuests *int       `json:"estimatedGuests"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	if !h.requireSubEvent(c, evt, subEventID) {
		return
	}
	if !permissions.CanManageProgramAt(evt, user.ID, subEventID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "sub-event outside allowed scope"})
		return
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID, events.UpdateSubEvent(subEventID, events.SubEventUpdate{
		Title:           req.Title,
		Location:        req.Location,
		Date:            req.Date,
		ClearDate:       req.ClearDate,
		EstimatedGuests: req.EstimatedGuests,
	}))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteSubEvent removes a sub-event and unlinks it from every guest.
func (h *ProgramHandler) DeleteSubEvent(c *gin.Context) {
	eventID := c.Param("event_id")
	subEventID := c.Param("sub_event_id")
	user := middleware.CurrentUser(c)

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	if !h.requireSubEvent(c, evt, subEventID) {
		return
	}
	if !permissions.CanManageProgramAt(evt, user.ID, subEventID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "sub-event outside allowed scope"})
		return
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID, events.RemoveSubEvent(subEventID))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, updated)
}

// AddKeyMoment appends a timeline entry to a sub-event.
func (h *ProgramHandler) AddKeyMoment(c *gin.Context) {
	eventID := c.Param("event_id")
	subEventID := c.Param("sub_event_id")
	user := middleware.CurrentUser(c)

	var req struct {
		Time  string `json:"time" binding:"required"`
		Label string `json:"label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	if !h.requireSubEvent(c, evt, subEventID) {
		return
	}
	if !permissions.CanManageProgramAt(evt, user.ID, subEventID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "sub-event outside allowed scope"})
		return
	}

	moment := models.KeyMoment{
		ID:    uuid.NewString(),
		Time:  req.Time,
		Label: req.Label,
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID, events.AddKeyMoment(subEventID, moment))
	if !ok {
		return
	}

	c.JSON(http.StatusCreated, updated)
}

// AddGuest appends a guest record.
func (h *ProgramHandler) AddGuest(c *gin.Context) {
	eventID := c.Param("event_id")
	user := middleware.CurrentUser(c)

	var req struct {
		FirstName         string             `json:"firstName" binding:"required"`
		LastName          string             `json:"lastName"`
		Email             string             `json:"email"`
		Phone             string             `json:"phone"`
		Status            models.GuestStatus `json:"status"`
		LinkedSubEventIDs []string           `json:"linkedSubEventIds"`
		GuestCount        int                `json:"guestCount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	for _, id := range req.LinkedSubEventIDs {
		if !h.requireSubEvent(c, evt, id) {
			return
		}
		if !permissions.CanManageGuestsAt(evt, user.ID, id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "sub-event outside allowed scope"})
			return
		}
	}
	if !permissions.CanManageGuests(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing manage_guests permission"})
		return
	}

	guest := models.Guest{
		ID:                uuid.NewString(),
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		Phone:             req.Phone,
		Status:            req.Status,
		LinkedSubEventIDs: req.LinkedSubEventIDs,
		GuestCount:        req.GuestCount,
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID, events.AddGuest(guest))
	if !ok {
		return
	}

	c.JSON(http.StatusCreated, updated)
}

// UpdateGuest edits one guest record.
func (h *ProgramHandler) UpdateGuest(c *gin.Context) {
	eventID := c.Param("event_id")
	guestID := c.Param("guest_id")
	user := middleware.CurrentUser(c)

	var req struct {
		FirstName         *string             `json:"firstName"`
		LastName          *string             `json:"lastName"`
		Email             *string             `json:"email"`
		Phone             *string             `json:"phone"`
		Status            *models.GuestStatus `json:"status"`
		GuestCount        *int                `json:"guestCount"`
		LinkedSubEventIDs *[]string           `json:"linkedSubEventIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	if !h.requireGuest(c, evt, guestID) {
		return
	}
	if !permissions.CanManageGuests(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing manage_guests permission"})
		return
	}
	if req.LinkedSubEventIDs != nil {
		for _, id := range *req.LinkedSubEventIDs {
			if !h.requireSubEvent(c, evt, id) {
				return
			}
		}
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID, events.UpdateGuest(guestID, events.GuestUpdate{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		Phone:             req.Phone,
		Status:            req.Status,
		GuestCount:        req.GuestCount,
		LinkedSubEventIDs: req.LinkedSubEventIDs,
	}))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, updated)
}

// RemoveGuest deletes a guest record.
func (h *ProgramHandler) RemoveGuest(c *gin.Context) {
	eventID := c.Param("event_id")
	guestID := c.Param("guest_id")
	user := middleware.CurrentUser(c)

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	if !h.requireGuest(c, evt, guestID) {
		return
	}
	if !permissions.CanManageGuests(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing manage_guests permission"})
		return
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID, events.RemoveGuest(guestID))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, updated)
}

// SetAttendance records how many of a guest's party attended a sub-event.
// The count is clamped to 0..guestCount by the transform.
func (h *ProgramHandler) SetAttendance(c *gin.Context) {
	eventID := c.Param("event_id")
	guestID := c.Param("guest_id")
	user := middleware.CurrentUser(c)

	var req struct {
		SubEventID string `json:"subEventId" binding:"required"`
		Count      int    `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt, ok := h.loadEvent(c, eventID)
	if !ok {
		return
	}
	if !h.requireGuest(c, evt, guestID) {
		return
	}
	if !h.requireSubEvent(c, evt, req.SubEventID) {
		return
	}
	if !permissions.CanManageGuestsAt(evt, user.ID, req.SubEventID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "sub-event outside allowed scope"})
		return
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID, events.SetAttendance(guestID, req.SubEventID, req.Count))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *ProgramHandler) loadEvent(c *gin.Context, eventID string) (models.Event, bool) {
	evt, err := h.eventRepo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return models.Event{}, false
	}
	return evt, true
}

func (h *ProgramHandler) requireSubEvent(c *gin.Context, evt models.Event, subEventID string) bool {
	for _, sub := range evt.SubEvents {
		if sub.ID == subEventID {
			return true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "sub-event not found"})
	return false
}

func (h *ProgramHandler) requireGuest(c *gin.Context, evt models.Event, guestID string) bool {
	for _, g := range evt.Guests {
		if g.ID == guestID {
			return true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "guest not found"})
	return false
}
