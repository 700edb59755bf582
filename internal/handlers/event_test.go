package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"event-service/internal/identity"
	"event-service/internal/mocks"
	"event-service/internal/models"
	"event-service/internal/sharecode"
	"event-service/internal/ws"
)

func setupEventRouter(handler *EventHandler, user identity.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	})
	r.POST("/events", handler.CreateEvent)
	r.GET("/events", handler.ListEvents)
	r.GET("/events/:event_id", handler.GetEvent)
	r.PATCH("/events/:event_id", handler.UpdateDetails)
	r.DELETE("/events/:event_id", handler.DeleteEvent)
	r.POST("/events/:event_id/share-password", handler.RotateSharePassword)
	return r
}

func ownerUser() identity.User {
	return identity.User{ID: "owner", FirstName: "Olga", LastName: "Durand"}
}

func sampleEvent() models.Event {
	return models.Event{
		ID:            "evt-1",
		ShareCode:     "ABCDEF2345",
		SharePassword: "SECRET23",
		Title:         "Launch",
		CreatorID:     "owner",
		Organizers: models.OrganizerList{
			{
				UserID:      "alice",
				Status:      models.OrganizerConfirmed,
				Permissions: []models.Permission{models.PermEditDetails},
			},
		},
	}
}

func TestCreateEventGeneratesShareCredentials(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, ownerUser())

	var inserted models.Event
	repo.On("ShareCodeExists", mock.Anything, mock.Anything).Return(false, nil).Once()
	repo.On("InsertEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(models.Event)
		}).
		Return(sampleEvent(), nil).Once()

	body := bytes.NewBufferString(`{"title":"Launch","category":"Business"}`)
	req := httptest.NewRequest(http.MethodPost, "/events", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, inserted.ShareCode, sharecode.CodeLength)
	assert.Len(t, inserted.SharePassword, sharecode.PasswordLength)
	assert.Equal(t, "owner", inserted.CreatorID)
	assert.NotEmpty(t, inserted.ID)
	repo.AssertExpectations(t)
}

func TestCreateEventRequiresTitle(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, ownerUser())

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything)
}

func TestListEvents(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, ownerUser())

	repo.On("ListEventsForUser", mock.Anything, "owner").Return([]models.Event{sampleEvent()}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "evt-1", resp.Events[0].ID)
	repo.AssertExpectations(t)
}

func TestGetEventStripsPasswordForNonOwner(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, identity.User{ID: "alice"})

	repo.On("GetEvent", mock.Anything, "evt-1").Return(sampleEvent(), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/events/evt-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.Event
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.SharePassword)
	assert.Equal(t, "ABCDEF2345", resp.ShareCode)
}

func TestGetEventForbiddenForStranger(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, identity.User{ID: "nobody"})

	repo.On("GetEvent", mock.Anything, "evt-1").Return(sampleEvent(), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/events/evt-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateDetailsPermissionDenied(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, identity.User{ID: "bob"})

	repo.On("GetEvent", mock.Anything, "evt-1").Return(sampleEvent(), nil).Once()

	body := bytes.NewBufferString(`{"title":"Hijacked"}`)
	req := httptest.NewRequest(http.MethodPatch, "/events/evt-1", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "UpdateEvent", mock.Anything, mock.Anything)
}

func TestUpdateDetailsSuccess(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, identity.User{ID: "alice"})

	renamed := sampleEvent()
	renamed.Title = "Renamed"

	var written models.Event
	repo.On("GetEvent", mock.Anything, "evt-1").Return(sampleEvent(), nil).Twice()
	repo.On("UpdateEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(models.Event)
		}).
		Return(renamed, nil).Once()

	body := bytes.NewBufferString(`{"title":"Renamed"}`)
	req := httptest.NewRequest(http.MethodPatch, "/events/evt-1", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", written.Title)

	var resp models.Event
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Renamed", resp.Title)
	repo.AssertExpectations(t)
}

func TestUpdateDetailsRejectsUnknownCategory(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, ownerUser())

	body := bytes.NewBufferString(`{"category":"Birthday"}`)
	req := httptest.NewRequest(http.MethodPatch, "/events/evt-1", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEventOwnerOnly(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, identity.User{ID: "alice"})

	repo.On("GetEvent", mock.Anything, "evt-1").Return(sampleEvent(), nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/events/evt-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "DeleteEvent", mock.Anything, mock.Anything)
}

func TestDeleteEventSuccess(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, ownerUser())

	repo.On("GetEvent", mock.Anything, "evt-1").Return(sampleEvent(), nil).Once()
	repo.On("DeleteEvent", mock.Anything, "evt-1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/events/evt-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestRotateSharePasswordOwnerOnly(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, identity.User{ID: "alice"})

	repo.On("GetEvent", mock.Anything, "evt-1").Return(sampleEvent(), nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/events/evt-1/share-password", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRotateSharePasswordSuccess(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewEventHandler(repo, ws.NewHub(), nil)
	router := setupEventRouter(handler, ownerUser())

	rotated := sampleEvent()
	rotated.SharePassword = "NEWPAS23"

	var written models.Event
	repo.On("GetEvent", mock.Anything, "evt-1").Return(sampleEvent(), nil).Twice()
	repo.On("UpdateEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(models.Event)
		}).
		Return(rotated, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/events/evt-1/share-password", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, written.SharePassword, sharecode.PasswordLength)
	assert.NotEqual(t, "SECRET23", written.SharePassword)
	repo.AssertExpectations(t)
}
