package models

import (
	"time"

	"gorm.io/gorm"
)

// ErrorLog records a failed focus transition
type ErrorLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Operation string         `gorm:"not null;default:''" json:"operation"`
	TaskID    string         `gorm:"not null;default:''" json:"task_id"`
	ErrorMsg  string         `gorm:"not null" json:"error_msg"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
