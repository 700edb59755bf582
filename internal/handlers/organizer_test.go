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
	"event-service/internal/repositories"
	"event-service/internal/ws"
)

func setupOrganizerRouter(handler *OrganizerHandler, user identity.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	})
	r.POST("/events/join", handler.JoinByCode)
	r.POST("/events/:event_id/join", handler.RequestJoin)
	r.POST("/events/:event_id/organizers/:user_id/decision", handler.DecideOrganizer)
	r.PUT("/events/:event_id/organizers/:user_id/rights", handler.EditOrganizerRights)
	r.POST("/events/:event_id/organizers/:user_id/toggle", handler.TogglePermission)
	return r
}

func TestJoinByCodeSuccess(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewOrganizerHandler(repo, ws.NewHub(), nil)
	router := setupOrganizerRouter(handler, identity.User{ID: "carol", FirstName: "Carol", LastName: "Lambert"})

	var written models.Event
	// the entered code is normalized before the lookup
	repo.On("FindEventIDForJoin", mock.Anything, "ABCDEF2345", "SECRET23").Return("evt-1", nil).Once()
	repo.On("GetEvent", mock.Anything, "evt-1").Return(sampleEvent(), nil).Once()
	repo.On("UpdateEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(models.Event)
		}).
		Return(sampleEvent(), nil).Once()

	body := bytes.NewBufferString(`{"code":"  abcdef2345 ","password":"SECRET23"}`)
	req := httptest.NewRequest(http.MethodPost, "/events/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "evt-1", resp["event_id"])

	// the caller was appended pending with the default grant
	require.Len(t, written.Organizers, 2)
	appended := written.Organizers[1]
	assert.Equal(t, "carol", appended.UserID)
	assert.Equal(t, models.OrganizerPending, appended.Status)
	assert.Equal(t, []models.Permission{models.PermOrganizerChat}, appended.Permissions)
	repo.AssertExpectations(t)
}

func TestJoinByCodeWrongCredentials(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewOrganizerHandler(repo, ws.NewHub(), nil)
	router := setupOrganizerRouter(handler, identity.User{ID: "alice"})

	repo.On("FindEventIDForJoin", mock.Anything, "WRONGCODE2", "badpass1").
		Return("", repositories.ErrEventNotFound).Once()

	body := bytes.NewBufferString(`{"code":"WRONGCODE2","password":"badpass1"}`)
	req := httptest.NewRequest(http.MethodPost, "/events/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	// the response never reveals which half failed
	assert.Equal(t, "Clé ou mot de passe incorrect.", resp["error"])
}

func TestJoinByCodeBlankFields(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewOrganizerHandler(repo, ws.NewHub(), nil)
	router := setupOrganizerRouter(handler, identity.User{ID: "alice"})

	body := bytes.NewBufferString(`{"code":"   ","password":""}`)
	req := httptest.NewRequest(http.MethodPost, "/events/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Clé ou mot de passe incorrect.", resp["error"])
	repo.AssertNotCalled(t, "FindEventIDForJoin", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestJoinIdempotentOverHTTP(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewOrganizerHandler(repo, ws.NewHub(), nil)
	router := setupOrganizerRouter(handler, identity.User{ID: "carol"})

	already := sampleEvent()
	already.Organizers = append(already.Organizers, models.Organizer{
		UserID: "carol", Status: models.OrganizerPending,
	})

	var written models.Event
	repo.On("GetEvent", mock.Anything, "evt-1").Return(already, nil).Once()
	repo.On("UpdateEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(models.Event)
		}).
		Return(already, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/events/evt-1/join", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, written.Organizers, 2)
}

func TestDecideOrganizerOwnerOnly(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewOrganizerHandler(repo, ws.NewHub(), nil)
	router := setupOrganizerRouter(handler, identity.User{ID: "alice"})

	repo.On("GetEvent", mock.Anything, "evt-1").Return(sampleEvent(), nil).Once()

	body := bytes.NewBufferString(`{"approve":true}`)
	req := httptest.NewRequest(http.MethodPost, "/events/evt-1/organizers/bob/decision", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "UpdateEvent", mock.Anything, mock.Anything)
}

func TestDecideOrganizerApprove(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewOrganizerHandler(repo, ws.NewHub(), nil)
	router := setupOrganizerRouter(handler, ownerUser())

	pending := sampleEvent()
	pending.Organizers = append(pending.Organizers, models.Organizer{
		UserID: "bob", Status: models.OrganizerPending,
		Permissions: []models.Permission{models.PermOrganizerChat},
	})

	var written models.Event
	repo.On("GetEvent", mock.Anything, "evt-1").Return(pending, nil).Twice()
	repo.On("UpdateEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(models.Event)
		}).
		Return(pending, nil).Once()

	body := bytes.NewBufferString(`{"approve":true,"permissions":["manage_guests"],"allowedSubEventIds":["sub-1"]}`)
	req := httptest.NewRequest(http.MethodPost, "/events/evt-1/organizers/bob/decision", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, written.Organizers, 2)
	bob := written.Organizers[1]
	assert.Equal(t, models.OrganizerConfirmed, bob.Status)
	assert.Equal(t, []models.Permission{models.PermManageGuests}, bob.Permissions)
	assert.Equal(t, []string{"sub-1"}, bob.AllowedSubEventIDs)
}

func TestDecideOrganizerReject(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewOrganizerHandler(repo, ws.NewHub(), nil)
	router := setupOrganizerRouter(handler, ownerUser())

	pending := sampleEvent()
	pending.Organizers = append(pending.Organizers, models.Organizer{
		UserID: "bob", Status: models.OrganizerPending,
	})

	var written models.Event
	repo.On("GetEvent", mock.Anything, "evt-1").Return(pending, nil).Twice()
	repo.On("UpdateEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(models.Event)
		}).
		Return(pending, nil).Once()

	body := bytes.NewBufferString(`{"approve":false}`)
	req := httptest.NewRequest(http.MethodPost, "/events/evt-1/organizers/bob/decision", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, written.Organizers, 1)
	assert.Equal(t, "alice", written.Organizers[0].UserID)
}

func TestTogglePermissionCollapsesAll(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewOrganizerHandler(repo, ws.NewHub(), nil)
	router := setupOrganizerRouter(handler, ownerUser())

	evt := sampleEvent()
	evt.Organizers[0].Permissions = []models.Permission{models.PermAll}

	var written models.Event
	repo.On("GetEvent", mock.Anything, "evt-1").Return(evt, nil).Twice()
	repo.On("UpdateEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(models.Event)
		}).
		Return(evt, nil).Once()

	body := bytes.NewBufferString(`{"permission":"manage_guests"}`)
	req := httptest.NewRequest(http.MethodPost, "/events/evt-1/organizers/alice/toggle", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.Permission{models.PermManageGuests}, written.Organizers[0].Permissions)
}

func TestTogglePermissionAllOffPersistsEmptyGrant(t *testing.T) {
	repo := new(mocks.EventRepositoryMock)
	handler := NewOrganizerHandler(repo, ws.NewHub(), nil)
	router := setupOrganizerRouter(handler, ownerUser())

	evt := sampleEvent()
	evt.Organizers[0].Permissions = []models.Permission{models.PermAll}

	var written models.Event
	repo.On("GetEvent", mock.Anything, "evt-1").Return(evt, nil).Twice()
	repo.On("UpdateEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(models.Event)
		}).
		Return(evt, nil).Once()

	body := bytes.NewBufferString(`{"permission":"all"}`)
	req := httptest.NewRequest(http.MethodPost, "/events/evt-1/organizers/alice/toggle", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, written.Organizers[0].Permissions)
}
