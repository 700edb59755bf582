package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"event-service/internal/models"
)

// Client talks to the event service over HTTP. It implements ChatAPI and
// EventLister for the sync engine and the list watcher.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a Client against a service base URL with a bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ListMessages fetches a channel's history.
func (c *Client) ListMessages(ctx context.Context, eventID, channelID string) ([]models.ChatMessage, error) {
	var out struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	path := fmt.Sprintf("/events/%s/channels/%s/messages", url.PathEscape(eventID), url.PathEscape(channelID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SaveMessage persists a message. The id and timestamp of the local copy
// travel with the request so the server row dedupes against it.
func (c *Client) SaveMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	body := map[string]any{
		"id":        msg.ID,
		"text":      msg.Text,
		"timestamp": msg.Timestamp,
	}
	var out models.ChatMessage
	path := fmt.Sprintf("/events/%s/channels/%s/messages", url.PathEscape(msg.EventID), url.PathEscape(msg.ChannelID))
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return models.ChatMessage{}, err
	}
	return out, nil
}

// ListEventsForUser fetches the caller's event list. The server resolves the
// user from the bearer token; userID is accepted for interface symmetry.
func (c *Client) ListEventsForUser(ctx context.Context, userID string) ([]models.Event, error) {
	var out struct {
		Events []models.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/events", nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
