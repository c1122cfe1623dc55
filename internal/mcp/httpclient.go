package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/tinylifts/internal/models"
	"github.com/meltforce/tinylifts/internal/progress"
	"github.com/meltforce/tinylifts/internal/storage"
)

// HTTPClient implements DataSource by calling the TinyLifts REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale), and by the
// report command.
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

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	var workouts []models.Workout
	if err := c.get(ctx, "/api/v1/workouts", nil, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	var exercises []models.Exercise
	if err := c.get(ctx, "/api/v1/exercises", nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

func (c *HTTPClient) ExerciseHistory(ctx context.Context, exerciseID string, count int) ([]progress.SessionSummary, error) {
	params := url.Values{}
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}
	var history []progress.SessionSummary
	if err := c.get(ctx, "/api/v1/exercises/"+url.PathEscape(exerciseID)+"/history", params, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *HTTPClient) Progression(ctx context.Context, exerciseID string) (progress.PlateauResult, error) {
	var res progress.PlateauResult
	if err := c.get(ctx, "/api/v1/exercises/"+url.PathEscape(exerciseID)+"/progression", nil, &res); err != nil {
		return progress.PlateauResult{}, err
	}
	return res, nil
}

func (c *HTTPClient) SessionVolume(ctx context.Context, sessionID string) (progress.VolumeInfo, error) {
	var info progress.VolumeInfo
	if err := c.get(ctx, "/api/v1/sessions/"+url.PathEscape(sessionID)+"/volume", nil, &info); err != nil {
		return progress.VolumeInfo{}, err
	}
	return info, nil
}

func (c *HTTPClient) ListSessions(ctx context.Context, limit int) ([]progress.SessionListItem, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var list []progress.SessionListItem
	if err := c.get(ctx, "/api/v1/sessions", params, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *HTTPClient) Stats(ctx context.Context) (progress.DataStats, error) {
	var st progress.DataStats
	if err := c.get(ctx, "/api/v1/stats", nil, &st); err != nil {
		return progress.DataStats{}, err
	}
	return st, nil
}
