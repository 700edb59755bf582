package ws

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// ConnInfo describes a websocket connection for lifecycle events.
type ConnInfo struct {
	ConnID      string
	UserID      string
	UserName    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func deviceIDFrom(r *http.Request) string {
	return r.Header.Get("X-Device-Id")
}

func requestIDFrom(r *http.Request) string {
	return r.Header.Get("X-Request-Id")
}

// clientIP prefers the first X-Forwarded-For hop over the socket peer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
