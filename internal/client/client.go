// Package client drives a running daemon over its HTTP API.
package client

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/taskfocus/taskfocus/internal/focus"
	"github.com/taskfocus/taskfocus/internal/models"
)

// ErrNotRunning is returned when no daemon answers at the address
var ErrNotRunning = errors.New("daemon is not running")

// CallerHeader names the window on whose behalf the CLI acts
const CallerHeader = "X-Window-Label"

type Client struct {
	resty *resty.Client
}

type apiError struct {
	Error string `json:"error"`
}

// New creates a client for the daemon at baseURL (e.g. http://127.0.0.1:10000)
func New(baseURL string, timeout time.Duration) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "taskfocus-cli").
		SetHeader(CallerHeader, focus.PrimaryLabel).
		SetError(&apiError{})
	return &Client{resty: r}
}

// Health reports whether the daemon answers its health check
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "/health", nil, nil)
	return err
}

func (c *Client) Version(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	_, err := c.get(ctx, "/api/version", nil, &out)
	return out, err
}

func (c *Client) Status(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	_, err := c.get(ctx, "/api/status", nil, &out)
	return out, err
}

func (c *Client) Sessions(ctx context.Context) ([]focus.SessionInfo, error) {
	var out []focus.SessionInfo
	_, err := c.get(ctx, "/api/focus/sessions", nil, &out)
	return out, err
}

// Report fetches the report of a period
func (c *Client) Report(ctx context.Context, period string) (*models.Report, error) {
	var out models.Report
	if _, err := c.get(ctx, "/api/report", map[string]string{"period": period}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReportText fetches the report of a period already formatted as text
func (c *Client) ReportText(ctx context.Context, period string) (string, error) {
	resp, err := c.get(ctx, "/api/report", map[string]string{"period": period, "format": "text"}, nil)
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

func (c *Client) Journal(ctx context.Context, limit int) ([]models.SessionEvent, error) {
	var out []models.SessionEvent
	_, err := c.get(ctx, "/api/journal", map[string]string{"limit": strconv.Itoa(limit)}, &out)
	return out, err
}

func (c *Client) Open(ctx context.Context, req focus.OpenRequest) error {
	return c.post(ctx, "/api/focus/open", req)
}

func (c *Client) Home(ctx context.Context, req focus.HomeRequest) error {
	return c.post(ctx, "/api/focus/home", req)
}

func (c *Client) Close(ctx context.Context, taskID string) error {
	return c.post(ctx, "/api/focus/close", focus.CloseRequest{TaskID: taskID})
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out interface{}) (*resty.Response, error) {
	req := c.resty.R().SetContext(ctx).SetQueryParams(query)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Get(path)
	return resp, check(resp, err, path)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	return check(resp, err, path)
}

func check(resp *resty.Response, err error, path string) error {
	if err != nil {
		if isConnRefused(err) {
			return ErrNotRunning
		}
		return errors.Wrapf(err, "request %s", path)
	}
	if resp.StatusCode() == http.StatusOK {
		return nil
	}
	if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
		return errors.Errorf("%s: %s", path, e.Error)
	}
	return errors.Errorf("%s: unexpected status %s", path, resp.Status())
}

func isConnRefused(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
