// Package identity wraps the external identity provider. Authentication and
// session management live entirely on that side; this service only resolves
// bearer tokens to user snapshots.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// User is the identity snapshot attached to requests and denormalized into
// organizer entries and chat messages.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName is the sender-name snapshot stored on chat messages.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Validator resolves a bearer token to a user.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (User, error)
}

// Client talks to the identity provider's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs the wrapper.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// ValidateToken verifies the token and returns the authenticated user.
func (c *Client) ValidateToken(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/user", nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return User{}, errors.New("invalid token")
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode identity response: %w", err)
	}
	if user.ID == "" {
		return User{}, errors.New("invalid token")
	}
	return user, nil
}
