// Package backend talks to the booking engine: a single action/payload
// endpoint that answers every request with a JSON object carrying either a
// success payload or an error string. Reservations, notification email and
// waitlist promotion all live behind it; the console never reimplements
// them, it only submits actions and re-fetches the snapshot afterwards.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studio-torajirou/kanrigamen/internal/config"
	"github.com/studio-torajirou/kanrigamen/internal/logging"
	"github.com/studio-torajirou/kanrigamen/internal/metrics"
	"github.com/studio-torajirou/kanrigamen/internal/models"
	"github.com/studio-torajirou/kanrigamen/internal/record"
)

// Backend action names, fixed by the booking engine's dispatcher.
const (
	ActionAdminInit    = "apiGetAdminInit"
	ActionSaveSlot     = "apiSaveSlot"
	ActionSaveTemplate = "apiSavePackage"
	ActionForceCancel  = "apiAdminForceCancel"
	ActionSaveSettings = "apiSaveSettings"
)

var (
	// ErrAuthRejected: the backend refused our credential; retrying with
	// the same token is pointless.
	ErrAuthRejected = errors.New("backend rejected auth token")
)

// BackendError is a logical failure reported inside a 200 response.
type BackendError struct {
	Action  string
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend action %s failed: %s", e.Action, e.Message)
}

type Client struct {
	url    string
	token  string
	client *http.Client
	logger zerolog.Logger
}

func NewClient(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = models.DefaultBackendTimeout * time.Second
	}
	return &Client{
		url:    cfg.URL,
		token:  cfg.AuthToken,
		client: &http.Client{Timeout: timeout},
		logger: logging.WithComponent(logger, "backend"),
	}
}

// Call submits one action. The auth token and the action name are merged
// into the payload body, matching the backend's dispatcher convention.
// A non-empty "error" field in the response is a logical failure even
// under HTTP 200.
func (c *Client) Call(ctx context.Context, action string, payload map[string]any) (map[string]any, error) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["action"] = action
	if c.token != "" {
		body["auth"] = c.token
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.IncBackend(action, "error")
		return nil, fmt.Errorf("backend action %s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.IncBackend(action, "error")
		return nil, fmt.Errorf("backend action %s: unexpected status %d", action, resp.StatusCode)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.IncBackend(action, "error")
		return nil, fmt.Errorf("decode response for %s: %w", action, err)
	}

	if msg, ok := result["error"].(string); ok && msg != "" {
		metrics.IncBackend(action, "rejected")
		c.logger.Warn().
			Str("action", action).
			Str("request_id", requestID).
			Str("error", msg).
			Msg("backend rejected action")
		if isAuthError(msg) {
			return nil, fmt.Errorf("%w: %s", ErrAuthRejected, msg)
		}
		return nil, &BackendError{Action: action, Message: msg}
	}

	metrics.IncBackend(action, "ok")
	c.logger.Debug().
		Str("action", action).
		Str("request_id", requestID).
		Dur("duration", time.Since(start)).
		Msg("backend action ok")

	return result, nil
}

// FetchSnapshot loads the full admin state in one atomic round trip and
// normalizes it into canonical records.
func (c *Client) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	payload, err := c.Call(ctx, ActionAdminInit, nil)
	if err != nil {
		return nil, err
	}

	snap := record.SnapshotFromPayload(payload, time.Now())
	c.logger.Info().
		Int("slots", len(snap.Slots)).
		Int("templates", len(snap.Templates)).
		Int("customers", len(snap.Customers)).
		Msg("snapshot fetched")

	return snap, nil
}

// The backend reports auth failures only as message text.
func isAuthError(msg string) bool {
	return strings.Contains(msg, "認証エラー") || strings.Contains(strings.ToLower(msg), "auth")
}
