package connector

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfocus/taskfocus/internal/config"
)

type call struct {
	name string
	args []string
}

type reply struct {
	out string
	err error
}

// fakeRunner answers by program name: the connector first, then osascript
type fakeRunner struct {
	calls   []call
	replies map[string]reply
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	r := f.replies[name]
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.out), nil
}

func newTestClient(development bool, replies map[string]reply) (*Client, *fakeRunner) {
	fr := &fakeRunner{replies: replies}
	cfg := config.ConnectorConfig{
		Path:        "reminders-connector",
		Fallback:    true,
		Development: development,
		Timeout:     time.Second,
	}
	return New(cfg, WithRunner(fr)), fr
}

func TestListsArray(t *testing.T) {
	c, fr := newTestClient(false, map[string]reply{
		"reminders-connector": {out: `[{"id":"l1","name":"Inbox"},{"id":"l2","name":"Work"}]`},
	})

	lists, err := c.Lists(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []List{{ID: "l1", Name: "Inbox"}, {ID: "l2", Name: "Work"}}, lists)
	require.Len(t, fr.calls, 1)
	assert.Equal(t, []string{"lists"}, fr.calls[0].args)
}

func TestTasksWrappedObject(t *testing.T) {
	c, fr := newTestClient(false, map[string]reply{
		"reminders-connector": {out: `{"tasks":[{"id":"t1","name":"Ship","completed":true,"notes":"","creationDate":1700000000,"completionDate":0,"lastModifiedDate":0}]}`},
	})

	tasks, err := c.Tasks(context.Background(), "l1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Ship", tasks[0].Name)
	assert.True(t, tasks[0].Completed)
	assert.Equal(t, float64(1700000000), tasks[0].CreationDate)
	assert.Equal(t, []string{"tasks", "l1"}, fr.calls[0].args)
}

func TestEmptyArray(t *testing.T) {
	c, _ := newTestClient(false, map[string]reply{"reminders-connector": {out: `[]`}})

	lists, err := c.Lists(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, lists)
	assert.Empty(t, lists)
}

func TestErrorObject(t *testing.T) {
	c, fr := newTestClient(false, map[string]reply{
		"reminders-connector": {out: `{"error":"list not found"}`},
	})

	_, err := c.Tasks(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reminders connector error: list not found")
	assert.False(t, errors.Is(err, ErrPermissionDenied))
	assert.Len(t, fr.calls, 1)
}

func TestUnexpectedFormat(t *testing.T) {
	c, _ := newTestClient(false, map[string]reply{"reminders-connector": {out: `{"items":[]}`}})

	_, err := c.Lists(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected reminders lists format")

	c, _ = newTestClient(false, map[string]reply{"reminders-connector": {out: `not json`}})
	_, err = c.Lists(context.Background())
	assert.Error(t, err)
}

func TestPermissionDeniedFallsBackInDevelopment(t *testing.T) {
	c, fr := newTestClient(true, map[string]reply{
		"reminders-connector": {out: `{"error":"Permission denied for Reminders"}`},
		"osascript":           {out: `{"success":true,"id":"new-1"}`},
	})

	res, err := c.CreateTask(context.Background(), "l1", `say "hi"`)
	require.NoError(t, err)
	require.NotNil(t, res.ID)
	assert.Equal(t, "new-1", *res.ID)

	require.Len(t, fr.calls, 2)
	assert.Equal(t, []string{"create-task", "l1", `say "hi"`}, fr.calls[0].args)
	assert.Equal(t, "osascript", fr.calls[1].name)
	assert.Equal(t, []string{"-l", "JavaScript", "-e"}, fr.calls[1].args[:3])
	assert.Contains(t, fr.calls[1].args[3], `app.Reminder({ name: "say \"hi\"" })`)
}

func TestPermissionDeniedWithoutDevelopment(t *testing.T) {
	c, fr := newTestClient(false, map[string]reply{
		"reminders-connector": {out: `{"error":"permission denied"}`},
	})

	_, err := c.Lists(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Len(t, fr.calls, 1)
}

func TestProcessFailurePermissionFallsBack(t *testing.T) {
	c, fr := newTestClient(true, map[string]reply{
		"reminders-connector": {err: classify(errors.New("reminders-connector failed: Permission Denied"))},
		"osascript":           {out: `[{"id":"l1","name":"Inbox"}]`},
	})

	lists, err := c.Lists(context.Background())
	require.NoError(t, err)
	assert.Len(t, lists, 1)
	assert.Len(t, fr.calls, 2)
}

func TestFallbackFailureIsReported(t *testing.T) {
	c, _ := newTestClient(true, map[string]reply{
		"reminders-connector": {out: `{"error":"permission denied"}`},
		"osascript":           {err: errors.New("osascript failed: not allowed")},
	})

	_, err := c.DeleteTask(context.Background(), "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scripted fallback failed")
}

func TestUpdateVerbsArguments(t *testing.T) {
	c, fr := newTestClient(false, map[string]reply{
		"reminders-connector": {out: `{"success":true}`},
	})
	ctx := context.Background()

	_, err := c.UpdateStatus(ctx, "t1", true)
	require.NoError(t, err)
	_, err = c.UpdateTitle(ctx, "t1", "New title")
	require.NoError(t, err)
	_, err = c.UpdateNotes(ctx, "t1", "line one\nline two")
	require.NoError(t, err)
	res, err := c.DeleteTask(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, res.Success)
	assert.True(t, *res.Success)

	got := make([]string, 0, len(fr.calls))
	for _, c := range fr.calls {
		got = append(got, strings.Join(c.args, "|"))
	}
	assert.Equal(t, []string{
		"update-status|t1|true",
		"update-title|t1|New title",
		"update-notes|t1|line one\nline two",
		"delete-task|t1",
	}, got)
}

func TestScriptsQuoteArguments(t *testing.T) {
	src, ok := script("update-title", []string{"id'1", "a\"b"})
	require.True(t, ok)
	assert.Contains(t, src, `byId("id'1")`)
	assert.Contains(t, src, `task.name = "a\"b";`)

	src, ok = script("update-status", []string{"t1", "true"})
	require.True(t, ok)
	assert.Contains(t, src, "task.completed = true;")

	_, ok = script("bogus", nil)
	assert.False(t, ok)
}

func TestUnsupported(t *testing.T) {
	res := Unsupported("not available")
	require.NotNil(t, res.Success)
	assert.False(t, *res.Success)
	assert.Equal(t, "not available", *res.Error)
}
