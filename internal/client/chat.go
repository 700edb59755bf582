package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"event-service/internal/logging"
	"event-service/internal/models"
)

// ChatAPI is the HTTP surface the session needs: channel history and
// message persistence.
type ChatAPI interface {
	ListMessages(ctx context.Context, eventID, channelID string) ([]models.ChatMessage, error)
	SaveMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
}

// Subscription is a live push stream of chat frames for one event. The
// server pushes frames for every channel of the event; the session filters
// by channel id locally.
type Subscription interface {
	Frames() <-chan models.ChatFrame
	Errors() <-chan error
	SendTyping(typing bool) error
	Close() error
}

// Subscriber opens push subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, eventID, channelID string) (Subscription, error)
}

const (
	defaultPollInterval = 3 * time.Second
	defaultTypingIdle   = 3 * time.Second
)

// SessionConfig configures a ChatSession.
type SessionConfig struct {
	API        ChatAPI
	Subscriber Subscriber
	EventID    string
	ChannelID  string
	UserID     string
	UserName   string
	Role       models.Role

	// PollInterval is the fallback poll period, 3s by default.
	PollInterval time.Duration
	// TypingIdle is how long after the last keystroke the typing state is
	// withdrawn, 3s by default.
	TypingIdle time.Duration

	// OnMessages receives the merged history after every change.
	OnMessages func([]models.ChatMessage)
	// OnComposer receives composer text restored after a failed send.
	OnComposer func(string)
	// OnTyping receives the names of other users currently typing.
	OnTyping func([]string)
}

// ChatSession is the synchronization engine for one channel. History is
// assembled from three sources (initial load, push, fallback poll) through a
// single idempotent merge; sends are optimistic with rollback. A session is
// bound to one channel for its whole life: switching channels means closing
// the session and opening a new one.
type ChatSession struct {
	cfg SessionConfig
	sub Subscription

	mu       sync.Mutex
	alive    bool
	messages []models.ChatMessage
	composer string
	typing   []string
	typingOn bool
	idle     *time.Timer

	done chan struct{}
}

// NewChatSession loads the channel history, announces presence and starts
// the push and poll loops.
func NewChatSession(ctx context.Context, cfg SessionConfig) (*ChatSession, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.TypingIdle <= 0 {
		cfg.TypingIdle = defaultTypingIdle
	}

	s := &ChatSession{
		cfg:   cfg,
		alive: true,
		done:  make(chan struct{}),
	}

	initial, err := cfg.API.ListMessages(ctx, cfg.EventID, cfg.ChannelID)
	if err != nil {
		return nil, err
	}
	s.apply(initial)

	sub, err := cfg.Subscriber.Subscribe(ctx, cfg.EventID, cfg.ChannelID)
	if err != nil {
		return nil, err
	}
	s.sub = sub

	// Presence announce: joined, not typing.
	if err := sub.SendTyping(false); err != nil {
		chatLogger.Debug().Err(err).Msg("presence announce failed")
	}

	go s.consume()
	go s.poll()
	return s, nil
}

var chatLogger = logging.New("client.chat")

// Messages returns a snapshot of the merged history.
func (s *ChatSession) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Composer returns the current composer text.
func (s *ChatSession) Composer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composer
}

// TypingNames returns the names of other users currently typing.
func (s *ChatSession) TypingNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.typing))
	copy(out, s.typing)
	return out
}

// InputChanged records a composer edit and broadcasts the typing state. The
// state is withdrawn after the idle period with no further edits.
func (s *ChatSession) InputChanged(text string) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.composer = text

	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		s.stopTyping()
		return
	}

	wasTyping := s.typingOn
	s.typingOn = true
	if s.idle != nil {
		s.idle.Stop()
	}
	s.idle = time.AfterFunc(s.cfg.TypingIdle, s.stopTyping)
	s.mu.Unlock()

	if !wasTyping {
		if err := s.sub.SendTyping(true); err != nil {
			chatLogger.Debug().Err(err).Msg("typing broadcast failed")
		}
	}
}

// Send persists a message optimistically: the local copy is visible
// immediately and the composer clears. When persistence fails the local copy
// is rolled back and the composer text restored so nothing typed is lost.
func (s *ChatSession) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	msg := models.ChatMessage{
		ID:         uuid.NewString(),
		EventID:    s.cfg.EventID,
		ChannelID:  s.cfg.ChannelID,
		SenderID:   s.cfg.UserID,
		SenderName: s.cfg.UserName,
		Text:       text,
		Role:       s.cfg.Role,
		Timestamp:  time.Now().UTC(),
	}

	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return nil
	}
	s.messages = MergeMessages(s.messages, []models.ChatMessage{msg})
	s.composer = ""
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyMessages(snapshot)
	s.notifyComposer("")
	s.stopTyping()

	stored, err := s.cfg.API.SaveMessage(ctx, msg)
	if err != nil {
		s.mu.Lock()
		if !s.alive {
			s.mu.Unlock()
			return err
		}
		s.messages = removeMessage(s.messages, msg.ID)
		s.composer = text
		snapshot = s.snapshotLocked()
		s.mu.Unlock()

		s.notifyMessages(snapshot)
		s.notifyComposer(text)
		return err
	}

	s.apply([]models.ChatMessage{stored})
	return nil
}

// Close tears the session down: loops stop, the subscription closes and no
// queued async result is applied afterwards.
func (s *ChatSession) Close() error {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return nil
	}
	s.alive = false
	if s.idle != nil {
		s.idle.Stop()
	}
	s.mu.Unlock()

	close(s.done)
	return s.sub.Close()
}

func (s *ChatSession) consume() {
	for {
		select {
		case <-s.done:
			return
		case frame, ok := <-s.sub.Frames():
			if !ok {
				s.reconcile()
				return
			}
			s.handleFrame(frame)
		case err, ok := <-s.sub.Errors():
			if !ok {
				s.reconcile()
				return
			}
			if err != nil {
				chatLogger.Warn().Err(err).Msg("subscription error, reconciling")
			}
			s.reconcile()
		}
	}
}

func (s *ChatSession) handleFrame(frame models.ChatFrame) {
	switch frame.Type {
	case models.FrameMessage:
		if frame.Message == nil || frame.Message.ChannelID != s.cfg.ChannelID {
			return
		}
		s.apply([]models.ChatMessage{*frame.Message})
	case models.FramePresence:
		names := make([]string, 0, len(frame.Presences))
		for _, p := range frame.Presences {
			if p.Typing && p.UserID != s.cfg.UserID {
				names = append(names, p.UserName)
			}
		}
		s.setTypingNames(names)
	}
}

func (s *ChatSession) poll() {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.reconcile()
		}
	}
}

// reconcile is the shared fetch-merge used by the fallback poll and by
// subscription failures.
func (s *ChatSession) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PollInterval)
	defer cancel()

	msgs, err := s.cfg.API.ListMessages(ctx, s.cfg.EventID, s.cfg.ChannelID)
	if err != nil {
		chatLogger.Debug().Err(err).Msg("history fetch failed")
		return
	}
	s.apply(msgs)
}

func (s *ChatSession) apply(incoming []models.ChatMessage) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	before := len(s.messages)
	s.messages = MergeMessages(s.messages, incoming)
	changed := len(s.messages) != before || len(incoming) > 0
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.notifyMessages(snapshot)
	}
}

func (s *ChatSession) setTypingNames(names []string) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.typing = names
	s.mu.Unlock()

	if s.cfg.OnTyping != nil {
		s.cfg.OnTyping(names)
	}
}

func (s *ChatSession) stopTyping() {
	s.mu.Lock()
	if !s.alive || !s.typingOn {
		s.mu.Unlock()
		return
	}
	s.typingOn = false
	s.mu.Unlock()

	if err := s.sub.SendTyping(false); err != nil {
		chatLogger.Debug().Err(err).Msg("typing withdraw failed")
	}
}

func (s *ChatSession) snapshotLocked() []models.ChatMessage {
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *ChatSession) notifyMessages(msgs []models.ChatMessage) {
	if s.cfg.OnMessages != nil {
		s.cfg.OnMessages(msgs)
	}
}

func (s *ChatSession) notifyComposer(text string) {
	if s.cfg.OnComposer != nil {
		s.cfg.OnComposer(text)
	}
}
