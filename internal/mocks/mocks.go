package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"event-service/internal/identity"
	"event-service/internal/models"
)

type EventRepositoryMock struct {
	mock.Mock
}

func (m *EventRepositoryMock) InsertEvent(ctx context.Context, evt models.Event) (models.Event, error) {
	args := m.Called(ctx, evt)
	var out models.Event
	if val := args.Get(0); val != nil {
		out = val.(models.Event)
	}
	return out, args.Error(1)
}

func (m *EventRepositoryMock) GetEvent(ctx context.Context, id string) (models.Event, error) {
	args := m.Called(ctx, id)
	var out models.Event
	if val := args.Get(0); val != nil {
		out = val.(models.Event)
	}
	return out, args.Error(1)
}

func (m *EventRepositoryMock) UpdateEvent(ctx context.Context, evt models.Event) (models.Event, error) {
	args := m.Called(ctx, evt)
	var out models.Event
	if val := args.Get(0); val != nil {
		out = val.(models.Event)
	}
	return out, args.Error(1)
}

func (m *EventRepositoryMock) DeleteEvent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *EventRepositoryMock) ShareCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *EventRepositoryMock) FindEventIDForJoin(ctx context.Context, code, password string) (string, error) {
	args := m.Called(ctx, code, password)
	return args.String(0), args.Error(1)
}

func (m *EventRepositoryMock) ListEventsForUser(ctx context.Context, userID string) ([]models.Event, error) {
	args := m.Called(ctx, userID)
	var list []models.Event
	if val := args.Get(0); val != nil {
		list = val.([]models.Event)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	args := m.Called(ctx, msg)
	var out models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.(models.ChatMessage)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, eventID, channelID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, eventID, channelID)
	var list []models.ChatMessage
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatMessage)
	}
	return list, args.Error(1)
}

type ValidatorMock struct {
	mock.Mock
}

func (m *ValidatorMock) ValidateToken(ctx context.Context, token string) (identity.User, error) {
	args := m.Called(ctx, token)
	var user identity.User
	if val := args.Get(0); val != nil {
		user = val.(identity.User)
	}
	return user, args.Error(1)
}
