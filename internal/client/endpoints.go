package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wolfeidau/funkctl/internal/models"
)

// DefaultLogLimit is the connection log window the console renders.
const DefaultLogLimit = 100

// Login exchanges admin credentials for a session token. It is public.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	var out models.LoginResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/api/admin/login",
		path:   "/api/admin/login",
		body:   models.LoginRequest{Username: username, Password: password},
		public: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify checks the current session.
func (c *Client) Verify(ctx context.Context) (*models.VerifyResult, error) {
	var out models.VerifyResult
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/api/admin/verify",
		path:   "/api/admin/verify",
		quiet:  true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		route:  "/api/admin/logout",
		path:   "/api/admin/logout",
		quiet:  true,
	}, nil)
}

// Health calls the unauthenticated health endpoint.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/health",
		path:   "/health",
		public: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveUsers lists users currently connected to the voice server.
func (c *Client) ActiveUsers(ctx context.Context) (*models.ActiveUserList, error) {
	var out models.ActiveUserList
	if err := c.Do(ctx, http.MethodGet, "/api/stats/active-users", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns all user accounts.
func (c *Client) ListUsers(ctx context.Context) (*models.UserList, error) {
	var out models.UserList
	if err := c.Do(ctx, http.MethodGet, "/api/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser returns one user account.
func (c *Client) GetUser(ctx context.Context, username string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, userRequest(http.MethodGet, username, nil), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser creates a user account.
func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) error {
	if req.AllowedChannels == nil {
		req.AllowedChannels = []int{}
	}
	return c.Do(ctx, http.MethodPost, "/api/admin/users", req, nil)
}

// UpdateUser changes the channel set and active flag of a user.
func (c *Client) UpdateUser(ctx context.Context, username string, req models.UpdateUserRequest) error {
	if req.AllowedChannels == nil {
		req.AllowedChannels = []int{}
	}
	return c.do(ctx, userRequest(http.MethodPut, username, req), nil)
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.do(ctx, userRequest(http.MethodDelete, username, nil), nil)
}

func userRequest(method, username string, body any) request {
	return request{
		method: method,
		route:  "/api/admin/users/{username}",
		path:   "/api/admin/users/" + url.PathEscape(username),
		body:   body,
	}
}

// ConnectionLogs returns the most recent connection log entries. The window
// is capped at DefaultLogLimit.
func (c *Client) ConnectionLogs(ctx context.Context, limit int) (*models.ConnectionLogList, error) {
	if limit <= 0 || limit > DefaultLogLimit {
		limit = DefaultLogLimit
	}
	var out models.ConnectionLogList
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/api/logs/connections",
		path:   "/api/logs/connections",
		query:  url.Values{"limit": {strconv.Itoa(limit)}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ChannelUsage returns sparse per-channel usage counters.
func (c *Client) ChannelUsage(ctx context.Context) (*models.ChannelUsageList, error) {
	var out models.ChannelUsageList
	if err := c.Do(ctx, http.MethodGet, "/api/stats/channel-usage", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Traffic returns pre-formatted traffic totals per window.
func (c *Client) Traffic(ctx context.Context) (*models.TrafficStats, error) {
	var out models.TrafficStats
	if err := c.Do(ctx, http.MethodGet, "/api/stats/traffic", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateInfo returns the currently distributed client version, if any.
func (c *Client) UpdateInfo(ctx context.Context) (*models.UpdateInfo, error) {
	var out models.UpdateInfo
	if err := c.Do(ctx, http.MethodGet, "/api/admin/updates/info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestTone asks the voice server to play a test tone on a channel.
func (c *Client) TestTone(ctx context.Context, channelID int) (*models.TestToneResult, error) {
	var out models.TestToneResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/api/channels/{id}/test-tone",
		path:   "/api/channels/" + strconv.Itoa(channelID) + "/test-tone",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadPath is the artifact upload endpoint.
const UploadPath = "/api/admin/updates/upload"
