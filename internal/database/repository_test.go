package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfocus/taskfocus/internal/config"
	"github.com/taskfocus/taskfocus/internal/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := Connect(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "journal.db")})
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db)
}

func event(at time.Time, taskID, op string) *models.SessionEvent {
	return &models.SessionEvent{
		Timestamp: at,
		TaskID:    taskID,
		Operation: op,
		FromState: "closed",
		ToState:   "panel-open",
		Tier:      "rich",
	}
}

func TestCreateAndGetByID(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now()

	e := event(now, "task-1", "open")
	e.TaskName = "Write report"
	require.NoError(t, repo.Create(e))
	require.NotZero(t, e.ID)

	got, err := repo.GetByID(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.TaskID)
	assert.Equal(t, "Write report", got.TaskName)
	assert.Equal(t, "open", got.Operation)
}

func TestGetEventsSinceIsOrdered(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Now().Add(-time.Hour)

	require.NoError(t, repo.Create(event(base.Add(-2*time.Hour), "old", "open")))
	require.NoError(t, repo.Create(event(base.Add(10*time.Minute), "b", "close")))
	require.NoError(t, repo.Create(event(base.Add(5*time.Minute), "a", "open")))

	events, err := repo.GetEventsSince(base)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].TaskID)
	assert.Equal(t, "b", events[1].TaskID)
}

func TestGetTaskSummarySince(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Now().Add(-time.Hour)

	open := event(base.Add(time.Minute), "task-a", "open")
	open.TaskName = "Alpha"
	require.NoError(t, repo.Create(open))

	home := event(base.Add(2*time.Minute), "task-a", "exit-to-home")
	home.ElapsedMs = 90_000
	home.CompleteOnHome = true
	require.NoError(t, repo.Create(home))

	require.NoError(t, repo.Create(event(base.Add(3*time.Minute), "task-b", "open")))
	homeB := event(base.Add(4*time.Minute), "task-b", "exit-to-home")
	homeB.ElapsedMs = 30_000
	require.NoError(t, repo.Create(homeB))
	require.NoError(t, repo.Create(event(base.Add(5*time.Minute), "task-b", "open")))

	// Events without a task are not attributed to anyone.
	require.NoError(t, repo.Create(event(base.Add(6*time.Minute), "", "close")))

	summaries, err := repo.GetTaskSummarySince(base)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "task-a", summaries[0].TaskID)
	assert.Equal(t, "Alpha", summaries[0].TaskName)
	assert.Equal(t, int64(90_000), summaries[0].TotalMs)
	assert.Equal(t, 1, summaries[0].Sessions)
	assert.Equal(t, 1, summaries[0].Completed)

	assert.Equal(t, "task-b", summaries[1].TaskID)
	assert.Equal(t, int64(30_000), summaries[1].TotalMs)
	assert.Equal(t, 2, summaries[1].Sessions)
	assert.Equal(t, 0, summaries[1].Completed)
}

func TestGetLatestAndRecent(t *testing.T) {
	repo := newTestRepository(t)

	latest, err := repo.GetLatest()
	require.NoError(t, err)
	assert.Nil(t, latest)

	now := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(event(now.Add(time.Duration(i)*time.Second), id, "open")))
	}

	latest, err = repo.GetLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "c", latest.TaskID)

	recent, err := repo.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].TaskID)
	assert.Equal(t, "b", recent[1].TaskID)
}

func TestDeleteOldEvents(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now()

	require.NoError(t, repo.Create(event(now.Add(-48*time.Hour), "old", "open")))
	require.NoError(t, repo.Create(event(now, "new", "open")))

	n, err := repo.DeleteOldEvents(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, err := repo.GetEventsSince(now.Add(-72 * time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].TaskID)
}

func TestErrorLogsAndClear(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now()

	require.NoError(t, repo.CreateErrorLog(&models.ErrorLog{
		Timestamp: now,
		Operation: "open",
		TaskID:    "task-1",
		ErrorMsg:  "create surface \"focus-task-1\": boom",
	}))
	require.NoError(t, repo.Create(event(now, "task-1", "open")))

	logs, err := repo.GetErrorLogsSince(now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "open", logs[0].Operation)

	require.NoError(t, repo.Clear())

	logs, err = repo.GetErrorLogsSince(now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, logs)

	latest, err := repo.GetLatest()
	require.NoError(t, err)
	assert.Nil(t, latest)
}
