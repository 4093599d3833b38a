package models

import "time"

// UserProgress records how often a user has performed a task. One row per
// (user, task) pair ever attempted; the unique index is what serializes
// concurrent first attempts for the same pair.
type UserProgress struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;uniqueIndex:idx_user_task" json:"user_id"`
	TaskID          uint       `gorm:"not null;uniqueIndex:idx_user_task" json:"task_id"`
	SetNumber       int        `gorm:"not null" json:"set_number"`
	TaskNumber      int        `gorm:"not null" json:"task_number"`
	CompletionCount int        `gorm:"default:0" json:"completion_count"`
	IsCompleted     bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}
