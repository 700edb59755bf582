package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"event-service/internal/models"
)

// WSSubscriber opens chat subscriptions over websocket.
type WSSubscriber struct {
	baseURL string
	token   string
}

// NewWSSubscriber builds a WSSubscriber against a ws:// or wss:// base URL.
func NewWSSubscriber(baseURL, token string) *WSSubscriber {
	return &WSSubscriber{baseURL: baseURL, token: token}
}

// Subscribe dials the chat socket for one event and channel.
func (s *WSSubscriber) Subscribe(ctx context.Context, eventID, channelID string) (Subscription, error) {
	endpoint := fmt.Sprintf("%s/ws/events/%s/channels/%s?token=%s",
		s.baseURL, url.PathEscape(eventID), url.PathEscape(channelID), url.QueryEscape(s.token))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	sub := &wsSubscription{
		conn:   conn,
		frames: make(chan models.ChatFrame, 16),
		errs:   make(chan error, 1),
	}
	go sub.read()
	return sub, nil
}

type wsSubscription struct {
	conn   *websocket.Conn
	frames chan models.ChatFrame
	errs   chan error

	writeMu sync.Mutex
	once    sync.Once
}

func (s *wsSubscription) Frames() <-chan models.ChatFrame {
	return s.frames
}

func (s *wsSubscription) Errors() <-chan error {
	return s.errs
}

func (s *wsSubscription) SendTyping(typing bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(models.TypingFrame{Type: models.FrameTyping, Typing: typing})
}

func (s *wsSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func (s *wsSubscription) read() {
	defer close(s.frames)
	for {
		var frame models.ChatFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			select {
			case s.errs <- err:
			default:
			}
			return
		}
		s.frames <- frame
	}
}

// WSFeed consumes the events change feed over websocket.
type WSFeed struct {
	conn    *websocket.Conn
	changes chan models.EventChange
	errs    chan error
	once    sync.Once
}

// DialFeed opens the change feed socket.
func DialFeed(ctx context.Context, baseURL, token string) (*WSFeed, error) {
	endpoint := fmt.Sprintf("%s/ws/events?token=%s", baseURL, url.QueryEscape(token))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	f := &WSFeed{
		conn:    conn,
		changes: make(chan models.EventChange, 16),
		errs:    make(chan error, 1),
	}
	go f.read()
	return f, nil
}

func (f *WSFeed) Changes() <-chan models.EventChange {
	return f.changes
}

func (f *WSFeed) Errors() <-chan error {
	return f.errs
}

func (f *WSFeed) Close() error {
	var err error
	f.once.Do(func() {
		err = f.conn.Close()
	})
	return err
}

func (f *WSFeed) read() {
	defer close(f.changes)
	for {
		var change models.EventChange
		if err := f.conn.ReadJSON(&change); err != nil {
			select {
			case f.errs <- err:
			default:
			}
			return
		}
		f.changes <- change
	}
}
