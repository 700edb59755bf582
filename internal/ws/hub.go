package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"event-service/internal/logging"
	"event-service/internal/models"
	"event-service/internal/observability"
)

var wsLogger = logging.New("ws")

// Hub maintains active websocket rooms. Chat rooms are keyed by event id:
// message inserts are delivered per event and filtered by channel on the
// client, since the feed cannot filter on the channel column alone. Presence
// is tracked per (event, channel).
type Hub struct {
	chatRooms    map[string]map[*websocket.Conn]bool
	chatConnInfo map[string]map[*websocket.Conn]ConnInfo
	presence     map[string]map[*websocket.Conn]presenceEntry
	feedConns    map[*websocket.Conn]ConnInfo
	mu           sync.RWMutex
}

type presenceEntry struct {
	state     models.PresenceState
	updatedAt time.Time
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		chatRooms:    make(map[string]map[*websocket.Conn]bool),
		chatConnInfo: make(map[string]map[*websocket.Conn]ConnInfo),
		presence:     make(map[string]map[*websocket.Conn]presenceEntry),
		feedConns:    make(map[*websocket.Conn]ConnInfo),
	}
}

func channelKey(eventID, channelID string) string {
	return eventID + ":" + channelID
}

// AddChatClient registers a websocket connection to an event's chat room and
// announces its initial presence on the channel.
func (h *Hub) AddChatClient(eventID, channelID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	if _, ok := h.chatRooms[eventID]; !ok {
		h.chatRooms[eventID] = make(map[*websocket.Conn]bool)
	}
	h.chatRooms[eventID][conn] = true
	if _, ok := h.chatConnInfo[eventID]; !ok {
		h.chatConnInfo[eventID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.chatConnInfo[eventID][conn] = info

	key := channelKey(eventID, channelID)
	if _, ok := h.presence[key]; !ok {
		h.presence[key] = make(map[*websocket.Conn]presenceEntry)
	}
	h.presence[key][conn] = presenceEntry{
		state:     models.PresenceState{UserID: info.UserID, UserName: info.UserName, Typing: false},
		updatedAt: time.Now(),
	}
	h.mu.Unlock()

	h.broadcastPresence(eventID, channelID)
}

// RemoveChatClient removes a chat websocket connection and its presence.
func (h *Hub) RemoveChatClient(eventID, channelID string, conn *websocket.Conn) {
	h.mu.Lock()
	if conns, ok := h.chatRooms[eventID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.chatRooms, eventID)
		}
	}
	if infos, ok := h.chatConnInfo[eventID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.chatConnInfo, eventID)
		}
	}
	key := channelKey(eventID, channelID)
	if entries, ok := h.presence[key]; ok {
		delete(entries, conn)
		if len(entries) == 0 {
			delete(h.presence, key)
		}
	}
	h.mu.Unlock()

	h.broadcastPresence(eventID, channelID)
}

// BroadcastChatMessage fans a stored message out to every connection of the
// event. Consumers filter by channel id and de-duplicate by message id.
func (h *Hub) BroadcastChatMessage(eventID string, msg models.ChatMessage) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.chatRooms[eventID]))
	for conn := range h.chatRooms[eventID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	frame := models.ChatFrame{Type: models.FrameMessage, Message: &msg}
	payload, _ := json.Marshal(frame)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			wsLogger.Error().Err(err).Str("event_id", eventID).Msg("websocket write failed")
			conn.Close()
			h.dropChatConn(eventID, conn)
			h.publishWSError("chat", eventID, conn, err)
		}
	}
}

// Track replaces a connection's announced presence state and re-broadcasts
// the channel's presence set.
func (h *Hub) Track(eventID, channelID string, conn *websocket.Conn, state models.PresenceState) {
	key := channelKey(eventID, channelID)
	h.mu.Lock()
	if entries, ok := h.presence[key]; ok {
		if _, exists := entries[conn]; exists {
			entries[conn] = presenceEntry{state: state, updatedAt: time.Now()}
		}
	}
	h.mu.Unlock()

	h.broadcastPresence(eventID, channelID)
}

// Presences returns the last-tracked state of every participant on a channel.
func (h *Hub) Presences(eventID, channelID string) []models.PresenceState {
	key := channelKey(eventID, channelID)
	h.mu.RLock()
	defer h.mu.RUnlock()
	states := make([]models.PresenceState, 0, len(h.presence[key]))
	for _, entry := range h.presence[key] {
		states = append(states, entry.state)
	}
	return states
}

func (h *Hub) broadcastPresence(eventID, channelID string) {
	key := channelKey(eventID, channelID)
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.presence[key]))
	states := make([]models.PresenceState, 0, len(h.presence[key]))
	for conn, entry := range h.presence[key] {
		conns = append(conns, conn)
		states = append(states, entry.state)
	}
	h.mu.RUnlock()

	frame := models.ChatFrame{Type: models.FramePresence, Presences: states}
	payload, _ := json.Marshal(frame)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			h.dropChatConn(eventID, conn)
			h.mu.Lock()
			if entries, ok := h.presence[key]; ok {
				delete(entries, conn)
			}
			h.mu.Unlock()
		}
	}
}

// SweepStaleTyping clears typing flags that have not been refreshed within
// maxAge. Covers clients that vanished without announcing typing=false.
func (h *Hub) SweepStaleTyping(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	type room struct{ eventID, channelID string }
	stale := make(map[room]bool)

	h.mu.Lock()
	for key, entries := range h.presence {
		for conn, entry := range entries {
			if entry.state.Typing && entry.updatedAt.Before(cutoff) {
				entry.state.Typing = false
				entries[conn] = entry
				// key is eventID:channelID; ids never contain a colon
				if eventID, channelID, ok := strings.Cut(key, ":"); ok {
					stale[room{eventID, channelID}] = true
				}
			}
		}
	}
	h.mu.Unlock()

	for r := range stale {
		h.broadcastPresence(r.eventID, r.channelID)
	}
}

// AddFeedClient registers a connection on the event change feed.
func (h *Hub) AddFeedClient(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.feedConns[conn] = info
}

// RemoveFeedClient removes a feed connection.
func (h *Hub) RemoveFeedClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.feedConns, conn)
}

// BroadcastEventChange notifies every feed subscriber of an aggregate write.
// The feed is filtered by table only; subscribers decide relevance.
func (h *Hub) BroadcastEventChange(change models.EventChange) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.feedConns))
	for conn := range h.feedConns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(change)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			wsLogger.Error().Err(err).Msg("feed write failed")
			conn.Close()
			h.RemoveFeedClient(conn)
			h.publishWSError("feed", change.EventID, conn, err)
		}
	}
}

func (h *Hub) dropChatConn(eventID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.chatRooms[eventID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.chatRooms, eventID)
		}
	}
	if infos, ok := h.chatConnInfo[eventID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.chatConnInfo, eventID)
		}
	}
}

func (h *Hub) publishWSError(kind, eventID string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(kind, eventID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"event_id":    eventID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.TraceHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) getConnInfo(kind, eventID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if kind == "feed" {
		info, exists := h.feedConns[conn]
		return info, exists
	}
	if infos, ok := h.chatConnInfo[eventID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func wsRoutingKey(kind string) string {
	if kind == "feed" {
		return "ws_events.feed"
	}
	return "ws_events.chat"
}
