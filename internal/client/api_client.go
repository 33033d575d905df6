package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"Mansoor88-6/pulse-tracker/internal/analytics"
	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/models"

	"go.uber.org/zap"
)

// APIClient talks to a pulse server on behalf of one user.
type APIClient struct {
	baseURL    string
	userID     string
	role       string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL, userID string, timeout time.Duration, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SetRole sets the role header sent with every request.
func (c *APIClient) SetRole(role string) {
	c.role = role
}

// HealthCheck checks if the server is reachable
func (c *APIClient) HealthCheck(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *APIClient) StartPulse(ctx context.Context, req models.StartPulseRequest) (*models.Pulse, error) {
	var pulse models.Pulse
	if err := c.do(ctx, http.MethodPost, "/api/v1/pulses/start", req, &pulse); err != nil {
		return nil, err
	}
	return &pulse, nil
}

// CurrentPulse returns the running or paused pulse, or nil when there is none.
func (c *APIClient) CurrentPulse(ctx context.Context) (*models.Pulse, error) {
	var pulse *models.Pulse
	if err := c.do(ctx, http.MethodGet, "/api/v1/pulses/current", nil, &pulse); err != nil {
		return nil, err
	}
	return pulse, nil
}

func (c *APIClient) PausePulse(ctx context.Context, id string) (*models.Pulse, error) {
	return c.pulseAction(ctx, id, "pause", nil)
}

func (c *APIClient) ResumePulse(ctx context.Context, id string) (*models.Pulse, error) {
	return c.pulseAction(ctx, id, "resume", nil)
}

func (c *APIClient) StopPulse(ctx context.Context, id string, req models.StopPulseRequest) (*models.Pulse, error) {
	return c.pulseAction(ctx, id, "stop", req)
}

func (c *APIClient) AddBreak(ctx context.Context, id string, req models.AddBreakRequest) (*models.Pulse, error) {
	return c.pulseAction(ctx, id, "breaks", req)
}

func (c *APIClient) pulseAction(ctx context.Context, id, action string, body any) (*models.Pulse, error) {
	var pulse models.Pulse
	path := fmt.Sprintf("/api/v1/pulses/%s/%s", url.PathEscape(id), action)
	if err := c.do(ctx, http.MethodPost, path, body, &pulse); err != nil {
		return nil, err
	}
	return &pulse, nil
}

// Summary fetches analytics for a named period, optionally with comparison.
func (c *APIClient) Summary(ctx context.Context, period string, compare bool) (*analytics.Summary, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	if compare {
		q.Set("compare", "true")
	}
	var summary analytics.Summary
	if err := c.do(ctx, http.MethodGet, "/api/v1/analytics?"+q.Encode(), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", c.userID)
	if c.role != "" {
		req.Header.Set("X-User-Role", c.role)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("duration", duration),
		)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// decodeError turns the server's error body back into an *apperrors.Error so
// callers can branch on the kind.
func decodeError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Kind    apperrors.Kind `json:"kind"`
			Message string         `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Kind == "" {
		return &apperrors.Error{
			Kind:    kindForStatus(status),
			Message: fmt.Sprintf("server returned status %d: %s", status, bytes.TrimSpace(body)),
		}
	}
	return &apperrors.Error{Kind: payload.Error.Kind, Message: payload.Error.Message}
}

func kindForStatus(status int) apperrors.Kind {
	switch status {
	case http.StatusNotFound:
		return apperrors.KindNotFound
	case http.StatusConflict:
		return apperrors.KindConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.KindForbidden
	case http.StatusBadRequest:
		return apperrors.KindValidation
	}
	return apperrors.KindInternal
}
