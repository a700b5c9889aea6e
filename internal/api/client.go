// Package api provides the HTTP client for the meeting-synthesis
// backend's REST endpoints. The streaming chat endpoint lives in the
// chat package; the realtime websocket in the realtime package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

// ErrUnauthorized is returned for 401 responses: the presented
// credential is missing, invalid, or expired.
var ErrUnauthorized = errors.New("unauthorized")

// Options configures the API client.
type Options struct {
	// BaseURL is the server URL (e.g. "http://localhost:8000").
	BaseURL string
	// Timeout for HTTP requests (default: 30s).
	Timeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client is the REST client.
type Client struct {
	options    Options
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		options:    opts,
		httpClient: httpClient,
	}
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.options.BaseURL, "/")
}

// Login exchanges a username and password for a token pair and profile.
func (c *Client) Login(ctx context.Context, username, password string) (*types.LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}

	var result types.LoginResponse
	if err := c.post(ctx, "/auth/login", "", body, &result); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return &result, nil
}

// RefreshToken exchanges a stored refresh credential for a fresh
// access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var result types.TokenResponse
	if err := c.post(ctx, "/auth/refresh-token", "", body, &result); err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return &result, nil
}

// Me fetches the profile of the bearer of the given access token.
func (c *Client) Me(ctx context.Context, accessToken string) (*types.UserProfile, error) {
	var result types.UserProfile
	if err := c.get(ctx, "/users/me", accessToken, &result); err != nil {
		return nil, fmt.Errorf("profile fetch failed: %w", err)
	}
	return &result, nil
}

// ListMeetings lists meetings, optionally filtered to one project.
func (c *Client) ListMeetings(ctx context.Context, accessToken, projectID string) ([]types.Meeting, error) {
	path := "/api/v1/meetings"
	if projectID != "" {
		path += "?project_id=" + url.QueryEscape(projectID)
	}

	var result []types.Meeting
	if err := c.get(ctx, path, accessToken, &result); err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return result, nil
}

// GetMeeting fetches a single meeting by id.
func (c *Client) GetMeeting(ctx context.Context, accessToken, meetingID string) (*types.Meeting, error) {
	var result types.Meeting
	if err := c.get(ctx, "/api/v1/meetings/"+url.PathEscape(meetingID), accessToken, &result); err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return &result, nil
}

// ListProjects lists the caller's projects.
func (c *Client) ListProjects(ctx context.Context, accessToken string) ([]types.Project, error) {
	var result []types.Project
	if err := c.get(ctx, "/api/v1/projects", accessToken, &result); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return result, nil
}

// get performs a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL()+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, accessToken, out)
}

// post performs a POST request with a JSON body and decodes the JSON
// response into out.
func (c *Client) post(ctx context.Context, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL()+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, accessToken, out)
}

func (c *Client) do(req *http.Request, accessToken string, out any) error {
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
