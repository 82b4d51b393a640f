package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/livestatus"
	"github.com/claude/liftlog/internal/workout"
)

// HTTPClient implements SessionControl by calling the liftlog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but the
// session runtime lives on the server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies SessionControl.
var _ SessionControl = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. apiKey is
// sent with every mutation.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError carries a non-2xx response from the server.
type apiError struct {
	Path    string
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("httpclient: %s returned %d: %s", e.Path, e.Status, e.Message)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return nil, &apiError{Path: path, Status: resp.StatusCode, Message: msg}
	}
	return data, nil
}

func (c *HTTPClient) state(ctx context.Context, method, path string, body any) (workout.State, error) {
	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return workout.State{}, err
	}
	var st workout.State
	if err := json.Unmarshal(data, &st); err != nil {
		return workout.State{}, fmt.Errorf("httpclient: decode state: %w", err)
	}
	return st, nil
}

func (c *HTTPClient) State(ctx context.Context) (workout.State, error) {
	return c.state(ctx, http.MethodGet, "/api/v1/session", nil)
}

func (c *HTTPClient) LiveActivities(ctx context.Context) ([]livestatus.Activity, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/live", nil)
	if err != nil {
		return nil, err
	}
	var activities []livestatus.Activity
	if err := json.Unmarshal(data, &activities); err != nil {
		return nil, fmt.Errorf("httpclient: decode live activities: %w", err)
	}
	return activities, nil
}

func (c *HTTPClient) Pause(ctx context.Context) (workout.State, error) {
	return c.state(ctx, http.MethodPost, "/api/v1/session/pause", nil)
}

func (c *HTTPClient) Resume(ctx context.Context) (workout.State, error) {
	return c.state(ctx, http.MethodPost, "/api/v1/session/resume", nil)
}

func (c *HTTPClient) CompleteSet(ctx context.Context, setID uuid.UUID) (workout.State, error) {
	return c.state(ctx, http.MethodPost, "/api/v1/session/sets/"+setID.String()+"/complete", nil)
}

func (c *HTTPClient) SelectExercise(ctx context.Context, groupKey string) (workout.State, error) {
	if groupKey == "" {
		return c.state(ctx, http.MethodDelete, "/api/v1/session/selection", nil)
	}
	return c.state(ctx, http.MethodPut, "/api/v1/session/selection", map[string]string{"group_key": groupKey})
}

func (c *HTTPClient) SkipRest(ctx context.Context) (workout.State, error) {
	return c.state(ctx, http.MethodDelete, "/api/v1/session/rest", nil)
}
