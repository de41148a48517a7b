// Package calclient talks to the calendar JSON API.
package calclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/pkg/logger"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
)

// Client is a calendar API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger
	now     func() time.Time
}

// New returns a client for the calendar rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the calendar root URL.
func (c *Client) BaseURL() string { return c.baseURL }

type envelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Error   string        `json:"error"`
	Errors  []string      `json:"errors"`
	Event   *model.Event  `json:"event"`
	Events  []model.Event `json:"events"`
	Total   int           `json:"total"`
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// ListEvents returns every stored event in insertion order.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/api/events", nil, &env); err != nil {
		return nil, err
	}
	return env.Events, nil
}

// GetEvent fetches one event.
func (c *Client) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	return c.event(ctx, http.MethodGet, eventPath(id), nil)
}

// CreateEvent submits fields to POST /api/events.
func (c *Client) CreateEvent(ctx context.Context, fields model.Fields) (model.Event, error) {
	return c.event(ctx, http.MethodPost, "/api/events", fields)
}

// AutoSchedule asks the calendar to place an automatic DR test.
func (c *Client) AutoSchedule(ctx context.Context) (model.Event, error) {
	return c.CreateEvent(ctx, model.Fields{model.FieldScheduleType: string(model.KindAuto)})
}

// UpdateEvent sends a partial update.
func (c *Client) UpdateEvent(ctx context.Context, id int64, fields model.Fields) (model.Event, error) {
	return c.event(ctx, http.MethodPut, eventPath(id), fields)
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, eventPath(id), nil, nil)
}

// ScheduleDRTest creates a manual DR test starting at start. An empty
// description is derived from the title.
func (c *Client) ScheduleDRTest(ctx context.Context, title string, start time.Time, duration time.Duration, description string) (model.Event, error) {
	if description == "" {
		description = "Disaster Recovery Test: " + title
	}
	return c.CreateEvent(ctx, model.Fields{
		model.FieldScheduleType: string(model.KindManual),
		model.FieldTitle:        title,
		model.FieldStart:        start.Format(model.TimeLayout),
		model.FieldEnd:          start.Add(duration).Format(model.TimeLayout),
		model.FieldDescription:  description,
	})
}

func eventPath(id int64) string {
	return "/api/events/" + strconv.FormatInt(id, 10)
}

func (c *Client) event(ctx context.Context, method, path string, body any) (model.Event, error) {
	var env envelope
	if err := c.do(ctx, method, path, body, &env); err != nil {
		return model.Event{}, err
	}
	if env.Event == nil {
		return model.Event{}, fmt.Errorf("%w: %s %s: no event in reply", ErrDecode, method, path)
	}
	return *env.Event, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn(ctx, "failed to close response body", logger.Error(err))
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	c.logger.Debug(ctx, "calendar request",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env envelope
		if json.Unmarshal(data, &env) == nil {
			if env.Error != "" {
				apiErr.Message = env.Error
			}
			apiErr.Errors = env.Errors
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrDecode, method, path, err)
	}
	return nil
}
