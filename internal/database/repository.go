package database

import (
	"time"

	"github.com/taskfocus/taskfocus/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for the session journal
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new session event into the database
func (r *Repository) Create(event *models.SessionEvent) error {
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert session event")
	}
	return nil
}

// GetByID retrieves a session event by its ID
func (r *Repository) GetByID(id uint) (*models.SessionEvent, error) {
	var event models.SessionEvent
	result := r.db.First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get session event")
	}
	return &event, nil
}

// GetEventsSince retrieves all session events since a given time, oldest first
func (r *Repository) GetEventsSince(since time.Time) ([]*models.SessionEvent, error) {
	var events []*models.SessionEvent
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC, id ASC").Find(&events)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query session events")
	}

	return events, nil
}

// GetRecent returns the newest events, newest first
func (r *Repository) GetRecent(limit int) ([]*models.SessionEvent, error) {
	var events []*models.SessionEvent
	result := r.db.Order("timestamp DESC, id DESC").Limit(limit).Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query recent events")
	}
	return events, nil
}

// GetTaskSummarySince aggregates focus time per task since a given time.
// Elapsed time comes from exit-to-home events; sessions count opens.
func (r *Repository) GetTaskSummarySince(since time.Time) ([]models.TaskSummary, error) {
	var summaries []models.TaskSummary

	result := r.db.Model(&models.SessionEvent{}).
		Select(`task_id,
			MAX(task_name) as task_name,
			SUM(elapsed_ms) as total_ms,
			SUM(CASE WHEN operation = 'open' THEN 1 ELSE 0 END) as sessions,
			SUM(CASE WHEN complete_on_home THEN 1 ELSE 0 END) as completed`).
		Where("timestamp >= ? AND task_id <> ''", since).
		Group("task_id").
		Order("total_ms DESC, task_id ASC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query task summary")
	}

	return summaries, nil
}

// DeleteOldEvents deletes events older than a specified date (soft delete)
func (r *Repository) DeleteOldEvents(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.SessionEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old events")
	}
	return result.RowsAffected, nil
}

// GetLatest retrieves the most recent session event
func (r *Repository) GetLatest() (*models.SessionEvent, error) {
	var event models.SessionEvent
	result := r.db.Order("timestamp DESC, id DESC").First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest event")
	}
	return &event, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetErrorLogsSince returns failed transitions since a given time, oldest first
func (r *Repository) GetErrorLogsSince(since time.Time) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC, id ASC").Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all journal entries from the database
func (r *Repository) Clear() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM session_events").Error; err != nil {
			return errors.Wrap(err, "failed to clear session events")
		}
		if err := tx.Exec("DELETE FROM error_logs").Error; err != nil {
			return errors.Wrap(err, "failed to clear error logs")
		}
		return nil
	})
}
