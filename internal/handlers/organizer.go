package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"event-service/internal/events"
	"event-service/internal/middleware"
	"event-service/internal/models"
	"event-service/internal/permissions"
	"event-service/internal/repositories"
	"event-service/internal/sharecode"
	"event-service/internal/telemetry"
	"event-service/internal/ws"
)

// joinErrorMessage is the only failure detail the join flow ever reveals.
const joinErrorMessage = "Clé ou mot de passe incorrect."

// OrganizerHandler manages the join workflow and organizer rights.
type OrganizerHandler struct {
	eventRepo repositories.EventRepository
	hub       *ws.Hub
	emitter   *telemetry.AuditEmitter
}

// NewOrganizerHandler builds an OrganizerHandler.
func NewOrganizerHandler(eventRepo repositories.EventRepository, hub *ws.Hub, emitter *telemetry.AuditEmitter) *OrganizerHandler {
	return &OrganizerHandler{
		eventRepo: eventRepo,
		hub:       hub,
		emitter:   emitter,
	}
}

// JoinByCode resolves a share code + password pair and appends the caller as
// a pending organizer. Every failure collapses into the same response so the
// caller cannot tell which half was wrong.
func (h *OrganizerHandler) JoinByCode(c *gin.Context) {
	var req struct {
		Code     string `json:"code"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": joinErrorMessage})
		return
	}

	code := sharecode.Normalize(req.Code)
	password := strings.TrimSpace(req.Password)
	if code == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": joinErrorMessage})
		return
	}

	eventID, err := h.eventRepo.FindEventIDForJoin(c.Request.Context(), code, password)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": joinErrorMessage})
		return
	}

	user := middleware.CurrentUser(c)
	_, err = events.UpdateAtomic(c.Request.Context(), h.eventRepo, eventID,
		events.RequestJoin(user.ID, user.FirstName, user.LastName))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": joinErrorMessage})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "organizer join requested", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"event_id": eventID})
}

// RequestJoin appends the caller as a pending organizer on a known event.
func (h *OrganizerHandler) RequestJoin(c *gin.Context) {
	eventID := c.Param("event_id")
	user := middleware.CurrentUser(c)

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID,
		events.RequestJoin(user.ID, user.FirstName, user.LastName))
	if !ok {
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "organizer join requested", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, updated)
}

// DecideOrganizer approves or rejects a pending organizer. Owner only.
// Approval may carry an initial permission set and sub-event scope; rejection
// removes the entry entirely.
func (h *OrganizerHandler) DecideOrganizer(c *gin.Context) {
	eventID := c.Param("event_id")
	organizerID := c.Param("user_id")
	user := middleware.CurrentUser(c)

	var req struct {
		Approve            bool                `json:"approve"`
		Permissions        []models.Permission `json:"permissions"`
		AllowedSubEventIDs []string            `json:"allowedSubEventIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt, err := h.eventRepo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if !permissions.IsOwner(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can decide join requests"})
		return
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID,
		events.ApproveOrganizer(organizerID, req.Approve, req.Permissions, req.AllowedSubEventIDs))
	if !ok {
		return
	}

	decision := "rejected"
	if req.Approve {
		decision = "approved"
	}
	h.emitter.Emit(c.Request.Context(), "INFO", "organizer "+decision, requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, updated)
}

// EditOrganizerRights replaces a confirmed organizer's permissions and
// sub-event scope. Owner only.
func (h *OrganizerHandler) EditOrganizerRights(c *gin.Context) {
	eventID := c.Param("event_id")
	organizerID := c.Param("user_id")
	user := middleware.CurrentUser(c)

	var req struct {
		Permissions        []models.Permission `json:"permissions"`
		AllowedSubEventIDs []string            `json:"allowedSubEventIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt, err := h.eventRepo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if !permissions.IsOwner(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can edit organizer rights"})
		return
	}

	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID,
		events.EditOrganizerRights(organizerID, req.Permissions, req.AllowedSubEventIDs))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, updated)
}

// TogglePermission flips one permission tag on a confirmed organizer,
// honoring the exclusivity of the "all" tag. Owner only.
func (h *OrganizerHandler) TogglePermission(c *gin.Context) {
	eventID := c.Param("event_id")
	organizerID := c.Param("user_id")
	user := middleware.CurrentUser(c)

	var req struct {
		Permission models.Permission `json:"permission" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt, err := h.eventRepo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if !permissions.IsOwner(evt, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can edit organizer rights"})
		return
	}

	org := permissions.CurrentOrganizer(evt, organizerID)
	if org == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "organizer not found"})
		return
	}

	next := permissions.Toggle(org.Permissions, req.Permission)
	updated, ok := applyTransform(c, h.eventRepo, h.hub, eventID,
		events.EditOrganizerRights(organizerID, next, org.AllowedSubEventIDs))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, updated)
}
