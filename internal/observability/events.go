package observability

// EventEnvelope wraps a websocket lifecycle event for the broker. EventType
// names the stream ("ws_events"), EventName the lifecycle step (ws_connect,
// ws_disconnect, ws_error).
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// TraceHeaders builds the per-message AMQP headers that tie a broker event
// back to the originating request and trace. Empty values are omitted.
func TraceHeaders(requestID, traceID string) map[string]string {
	headers := make(map[string]string, 2)
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
