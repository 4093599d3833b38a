package models

import "time"

type Task struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Title              string    `gorm:"type:varchar(100);not null" json:"title"`
	Description        string    `gorm:"type:text" json:"description"`
	TaskType           string    `gorm:"size:10;default:'regular'" json:"task_type"`
	SetNumber          int       `gorm:"not null;uniqueIndex:idx_set_task" json:"set_number"`
	TaskNumber         int       `gorm:"not null;uniqueIndex:idx_set_task" json:"task_number"`
	Position           int       `gorm:"default:0" json:"position"`
	RequiredCompletion int       `gorm:"default:1" json:"required_completion"`
	RewardAmount       float64   `gorm:"type:decimal(15,2);not null" json:"reward_amount"`
	// no column default: gorm would skip a zero value on insert and the
	// DB default would override an explicit false
	IsActive           bool      `gorm:"not null" json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
