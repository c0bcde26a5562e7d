package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionEvent is one journaled focus transition
type SessionEvent struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time      `gorm:"not null;index" json:"timestamp"`
	TaskID         string         `gorm:"not null;index" json:"task_id"`
	TaskName       string         `gorm:"not null;default:''" json:"task_name,omitempty"`
	Operation      string         `gorm:"not null;index" json:"operation"`
	FromState      string         `gorm:"not null" json:"from_state"`
	ToState        string         `gorm:"not null" json:"to_state"`
	Tier           string         `gorm:"not null" json:"tier"` // "rich" or "plain"
	ElapsedMs      int64          `gorm:"not null;default:0" json:"elapsed_ms"`
	CompleteOnHome bool           `gorm:"not null;default:false" json:"complete_on_home"`
	DurationMs     int64          `gorm:"not null;default:0" json:"duration_ms"` // Time the transition took
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

type TaskSummary struct {
	TaskID       string  `json:"task_id"`
	TaskName     string  `json:"task_name,omitempty"`
	TotalMs      int64   `json:"total_ms"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	Sessions     int     `json:"sessions"`
	Completed    int     `json:"completed"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period       ReportPeriod  `json:"period"`
	Tasks        []TaskSummary `json:"tasks"`
	TotalMs      int64         `json:"total_ms"`
	TotalMinutes float64       `json:"total_minutes"`
	TotalHours   float64       `json:"total_hours"`
	Completed    int           `json:"completed"`
	GeneratedAt  time.Time     `json:"generated_at"`
}
