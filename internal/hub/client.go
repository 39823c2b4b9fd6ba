package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultRequestTimeout bounds every individual hub API request.
const DefaultRequestTimeout = 5 * time.Second

// ErrUnauthorized reports that the hub rejected the bearer token. Callers
// use it to drive reauthentication; it must never be wrapped into a generic
// transport failure.
var ErrUnauthorized = errors.New("hub: unauthorized")

// APIError reports a non-2xx response that is not an authorization failure.
type APIError struct {
	Method string
	Path   string
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hub: %s %s returned HTTP %d", e.Method, e.Path, e.Status)
}

// Client issues bearer-authenticated requests against a single hub. The
// token is held behind an atomic pointer so a reauthentication can swap it
// without tearing a request in flight.
type Client struct {
	baseURL string
	http    *http.Client
	token   atomic.Pointer[string]
}

// NewClient builds a client for the hub at scheme://host:port using token
// as the bearer credential.
func NewClient(scheme, host string, port int, token string) *Client {
	c := &Client{
		baseURL: fmt.Sprintf("%s://%s:%d", scheme, host, port),
		http:    NewHTTPClient(scheme, DefaultRequestTimeout),
	}
	c.token.Store(&token)
	return c
}

// SetToken atomically replaces the bearer token after a reauthentication.
func (c *Client) SetToken(token string) {
	c.token.Store(&token)
}

// Status fetches the hub identity. The endpoint is unauthenticated.
func (c *Client) Status(ctx context.Context) (DeviceIdentity, error) {
	var payload struct {
		Device DeviceIdentity `json:"device"`
	}
	if err := c.do(ctx, http.MethodGet, PathStatus, nil, &payload); err != nil {
		return DeviceIdentity{}, err
	}
	return payload.Device, nil
}

// Activities fetches the full current activity catalog.
func (c *Client) Activities(ctx context.Context) ([]Activity, error) {
	var activities []Activity
	if err := c.do(ctx, http.MethodGet, PathActivities, nil, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// LiveSessions fetches the currently open sessions.
func (c *Client) LiveSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.do(ctx, http.MethodGet, PathLiveSessions, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// StartSession asks the hub to start tracking the given activity.
func (c *Client) StartSession(ctx context.Context, activityID, workspaceID string) error {
	return c.do(ctx, http.MethodPost, PathStartSession, commandBody(activityID, workspaceID), nil)
}

// StopSession asks the hub to stop the session running for the given activity.
func (c *Client) StopSession(ctx context.Context, activityID, workspaceID string) error {
	return c.do(ctx, http.MethodPost, PathStopSession, commandBody(activityID, workspaceID), nil)
}

func commandBody(activityID, workspaceID string) any {
	return map[string]string{
		"activityId":  activityID,
		"workspaceId": workspaceID,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hub: encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("hub: build %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token.Load(); token != nil && *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hub: decode %s %s response: %w", method, path, err)
	}
	return nil
}
