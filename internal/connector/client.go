// Package connector drives the external reminders connector: a process
// invoked with a verb and positional arguments that prints either the
// expected JSON or an {"error": "..."} object.
package connector

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/taskfocus/taskfocus/internal/config"
)

var (
	// ErrPermissionDenied marks connector failures caused by missing
	// Reminders access
	ErrPermissionDenied = errors.New("reminders permission denied")
	// ErrUnavailable is returned when the connector executable is missing
	ErrUnavailable = errors.New("reminders connector not available")
)

const privacySettingsURL = "x-apple.systempreferences:com.apple.preference.security?Privacy_Reminders"

type permissionError struct {
	err error
}

func (e *permissionError) Error() string { return e.err.Error() }
func (e *permissionError) Unwrap() error { return e.err }
func (e *permissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// classify tags permission failures so callers can test with errors.Is
func classify(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "permission denied") {
		return &permissionError{err: err}
	}
	return err
}

// Client runs connector verbs
type Client struct {
	path        string
	runner      Runner
	timeout     time.Duration
	fallback    bool
	development bool
	logger      *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithRunner replaces the process runner
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client from the connector configuration
func New(cfg config.ConnectorConfig, opts ...Option) *Client {
	c := &Client{
		path:        cfg.Path,
		runner:      ExecRunner{},
		timeout:     cfg.Timeout,
		fallback:    cfg.Fallback,
		development: cfg.Development,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("connector")
	return c
}

// Lists returns all reminders lists
func (c *Client) Lists(ctx context.Context) ([]List, error) {
	return runArray[List](ctx, c, "reminders lists", "lists")
}

// Tasks returns the reminders of one list
func (c *Client) Tasks(ctx context.Context, listID string) ([]Task, error) {
	return runArray[Task](ctx, c, "reminders tasks", "tasks", listID)
}

func (c *Client) UpdateStatus(ctx context.Context, taskID string, completed bool) (Result, error) {
	return c.runResult(ctx, "update reminders status", "update-status", taskID, strconv.FormatBool(completed))
}

func (c *Client) UpdateTitle(ctx context.Context, taskID, title string) (Result, error) {
	return c.runResult(ctx, "update reminders title", "update-title", taskID, title)
}

func (c *Client) UpdateNotes(ctx context.Context, taskID, notes string) (Result, error) {
	return c.runResult(ctx, "update reminders notes", "update-notes", taskID, notes)
}

func (c *Client) DeleteTask(ctx context.Context, taskID string) (Result, error) {
	return c.runResult(ctx, "delete reminders task", "delete-task", taskID)
}

func (c *Client) CreateTask(ctx context.Context, listID, title string) (Result, error) {
	return c.runResult(ctx, "create reminders task", "create-task", listID, title)
}

// OpenPrivacySettings opens the system page granting Reminders access
func (c *Client) OpenPrivacySettings(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, err := c.runner.Run(ctx, "open", privacySettingsURL); err != nil {
		return errors.Wrap(err, "failed to open Reminders privacy settings")
	}
	return nil
}

func runArray[T any](ctx context.Context, c *Client, what, verb string, args ...string) ([]T, error) {
	out, err := c.run(ctx, verb, args...)
	var items []T
	if err == nil {
		items, err = parseArray[T](out, what)
	}
	if err == nil || !c.shouldFallback(err) {
		return items, err
	}

	out, ferr := c.runScript(ctx, verb, args)
	if ferr != nil {
		return nil, ferr
	}
	return parseArray[T](out, what+" (script)")
}

func (c *Client) runResult(ctx context.Context, what, verb string, args ...string) (Result, error) {
	out, err := c.run(ctx, verb, args...)
	var res Result
	if err == nil {
		res, err = parseResult(out, what)
	}
	if err == nil || !c.shouldFallback(err) {
		return res, err
	}

	out, ferr := c.runScript(ctx, verb, args)
	if ferr != nil {
		return Result{}, ferr
	}
	return parseResult(out, what+" (script)")
}

func (c *Client) run(ctx context.Context, verb string, args ...string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.runner.Run(ctx, c.path, append([]string{verb}, args...)...)
	if err != nil {
		c.logger.Warn("connector failed", zap.String("verb", verb), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (c *Client) runScript(ctx context.Context, verb string, args []string) ([]byte, error) {
	src, ok := script(verb, args)
	if !ok {
		return nil, errors.Errorf("no scripted fallback for %q", verb)
	}

	c.logger.Info("using scripted fallback", zap.String("verb", verb))

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.runner.Run(ctx, scriptInterpreter, "-l", "JavaScript", "-e", src)
	if err != nil {
		return nil, errors.Wrap(err, "scripted fallback failed")
	}
	return out, nil
}

func (c *Client) shouldFallback(err error) bool {
	return c.fallback && c.development && errors.Is(err, ErrPermissionDenied)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
