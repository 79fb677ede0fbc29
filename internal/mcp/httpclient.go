package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/overload"
	"github.com/claude/liftlog/internal/recovery"
)

// HTTPClient implements DataSource by calling the liftlog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale). The server
// identifies the caller, so the userID arguments are ignored.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, apiError(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

// apiError extracts the {"error": ...} message the API writes, falling back
// to the raw body.
func apiError(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

func atParams(at time.Time) url.Values {
	v := url.Values{}
	if !at.IsZero() {
		v.Set("at", at.Format(time.RFC3339))
	}
	return v
}

func (c *HTTPClient) RecoveryMap(ctx context.Context, _ int, at time.Time) ([]recovery.MuscleState, error) {
	var states []recovery.MuscleState
	if err := c.get(ctx, "/api/v1/recovery", atParams(at), &states); err != nil {
		return nil, err
	}
	return states, nil
}

func (c *HTTPClient) MuscleRecovery(ctx context.Context, _ int, muscle string, at time.Time) (recovery.MuscleState, error) {
	var state recovery.MuscleState
	err := c.get(ctx, "/api/v1/recovery/"+url.PathEscape(muscle), atParams(at), &state)
	return state, err
}

func (c *HTTPClient) Recommend(ctx context.Context, _ int, exercise string) (overload.Recommendation, error) {
	var rec overload.Recommendation
	err := c.get(ctx, "/api/v1/recommendations/"+url.PathEscape(exercise), nil, &rec)
	return rec, err
}

func (c *HTTPClient) QueryWorkoutSets(ctx context.Context, start, end time.Time, _ int, exercise string) ([]models.WorkoutSet, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	if exercise != "" {
		params.Set("exercise", exercise)
	}

	var sets []models.WorkoutSet
	if err := c.get(ctx, "/api/v1/sets", params, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (c *HTTPClient) Exercises(ctx context.Context, muscle string) ([]models.ExerciseDefinition, error) {
	params := url.Values{}
	if muscle != "" {
		params.Set("muscle", muscle)
	}

	var defs []models.ExerciseDefinition
	if err := c.get(ctx, "/api/v1/exercises", params, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}
