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

	"soulcast/internal/content"
	"soulcast/internal/generation"
)

// Error is returned for non-2xx daemon responses.
type Error struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon API returned HTTP %d", e.StatusCode)
}

// Unwrap exposes orchestrator failures so errors.Is(err, generation.ErrServerError)
// holds on both sides of the API.
func (e *Error) Unwrap() error {
	if kind := generation.ParseKind(e.Kind); kind != 0 {
		return &generation.Error{Kind: kind, Message: e.Message}
	}
	return nil
}

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the daemon listening at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var resp DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp)
	return resp, err
}

// ListContent returns the daemon's visible content list.
func (c *Client) ListContent(ctx context.Context) ([]content.Item, error) {
	var resp ContentListResponse
	if err := c.do(ctx, http.MethodGet, "/api/content", nil, &resp); err != nil {
		return nil, err
	}
	return ToItems(resp.Items), nil
}

// Refresh asks the daemon to reload the list from the backend.
func (c *Client) Refresh(ctx context.Context) ([]content.Item, error) {
	var resp ContentListResponse
	if err := c.do(ctx, http.MethodPost, "/api/content/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return ToItems(resp.Items), nil
}

// Item returns a single item from the daemon's list and whether the daemon
// is still polling the backend for it.
func (c *Client) Item(ctx context.Context, id string) (content.Item, bool, error) {
	var resp ItemResponse
	if err := c.do(ctx, http.MethodGet, "/api/content/"+url.PathEscape(id), nil, &resp); err != nil {
		return content.Item{}, false, err
	}
	return ToItem(resp.Item), resp.Tracked, nil
}

// Generate submits a podcast generation request.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (content.Item, error) {
	var resp ItemResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return content.Item{}, err
	}
	return ToItem(resp.Item), nil
}

// BibleStudy submits a Bible-study generation request. On a server error the
// returned item is the failed placeholder the daemon inserted.
func (c *Client) BibleStudy(ctx context.Context, req BibleStudyRequest) (content.Item, error) {
	var resp ItemResponse
	err := c.do(ctx, http.MethodPost, "/api/bible-study", req, &resp)
	return ToItem(resp.Item), err
}

// Quota returns the current quota snapshot.
func (c *Client) Quota(ctx context.Context) (QuotaStatus, error) {
	var resp QuotaStatus
	err := c.do(ctx, http.MethodGet, "/api/quota", nil, &resp)
	return resp, err
}

// ResetQuota starts a new quota period.
func (c *Client) ResetQuota(ctx context.Context) (QuotaStatus, error) {
	var resp QuotaStatus
	err := c.do(ctx, http.MethodDelete, "/api/quota", nil, &resp)
	return resp, err
}

// Tracking returns the tracking registry state.
func (c *Client) Tracking(ctx context.Context) (TrackingStatus, error) {
	var resp TrackingStatus
	err := c.do(ctx, http.MethodGet, "/api/tracking", nil, &resp)
	return resp, err
}

// Play starts or toggles playback of id on the daemon host.
func (c *Client) Play(ctx context.Context, id string) (PlaybackStatus, error) {
	var resp PlaybackStatus
	err := c.do(ctx, http.MethodPost, "/api/playback/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// StopPlayback clears the playback slot.
func (c *Client) StopPlayback(ctx context.Context) (PlaybackStatus, error) {
	var resp PlaybackStatus
	err := c.do(ctx, http.MethodDelete, "/api/playback", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read daemon response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var errBody ErrorResponse
		if json.Unmarshal(data, &errBody) == nil {
			apiErr.Kind = errBody.Kind
			apiErr.Message = errBody.Error
		}
		// Failed Bible studies carry the placeholder item alongside the error.
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

// IsUnavailable reports whether err means no daemon answered.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	return !errors.As(err, &apiErr)
}
