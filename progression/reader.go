package progression

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/akivalo0017-dot/travelsite/models"
)

// Reader assembles read-only snapshots of a user's progression state. It never
// mutates anything; all reads for one snapshot run inside a single transaction
// so a concurrent completion is reflected entirely or not at all.
type Reader struct {
	db *gorm.DB
}

func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

type ProfileInfo struct {
	ID            uint    `json:"id"`
	FullName      string  `json:"full_name"`
	WalletBalance float64 `json:"wallet_balance"`
	CurrentSet    int     `json:"current_set"`
	CurrentTask   int     `json:"current_task"`
}

// ProgressEntry is a user_progress row annotated with its task's metadata.
type ProgressEntry struct {
	TaskID             uint       `json:"task_id"`
	SetNumber          int        `json:"set_number"`
	TaskNumber         int        `json:"task_number"`
	CompletionCount    int        `json:"completion_count"`
	IsCompleted        bool       `json:"is_completed"`
	CompletedAt        *time.Time `json:"completed_at"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	TaskType           string     `json:"task_type"`
	RewardAmount       float64    `json:"reward_amount"`
	RequiredCompletion int        `json:"required_completion"`
}

type SnapshotStats struct {
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	CompletionRate int     `json:"completion_rate"`
	TotalEarned    float64 `json:"total_earned"`
}

type UserSnapshot struct {
	User           ProfileInfo     `json:"user"`
	Progress       []ProgressEntry `json:"progress"`
	AvailableTasks []models.Task   `json:"available_tasks"`
	Stats          SnapshotStats   `json:"stats"`
}

// GetUserSnapshot returns the user's profile subset, every progress row joined
// with task metadata in (set_number, task_number) order, the active tasks at
// the user's exact pointer position that have no completed row yet, and
// aggregate stats. Returns ErrNotFound when the user does not exist.
func (r *Reader) GetUserSnapshot(ctx context.Context, userID uint) (*UserSnapshot, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	var snap UserSnapshot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		snap.User = ProfileInfo{
			ID:            user.ID,
			FullName:      user.FullName,
			WalletBalance: user.WalletBalance,
			CurrentSet:    user.CurrentSet,
			CurrentTask:   user.CurrentTask,
		}

		err := tx.Table("user_progress").
			Select("user_progress.task_id, user_progress.set_number, user_progress.task_number, "+
				"user_progress.completion_count, user_progress.is_completed, user_progress.completed_at, "+
				"tasks.title, tasks.description, tasks.task_type, tasks.reward_amount, tasks.required_completion").
			Joins("JOIN tasks ON user_progress.task_id = tasks.id").
			Where("user_progress.user_id = ?", userID).
			Order("user_progress.set_number, user_progress.task_number").
			Find(&snap.Progress).Error
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}

		// Normally at most one task sits at the pointer; zero (content gap) or
		// several (duplicate task_number) are tolerated, not failures.
		err = tx.Model(&models.Task{}).
			Where("set_number = ? AND task_number = ? AND is_active = ?", user.CurrentSet, user.CurrentTask, true).
			Where("NOT EXISTS (SELECT 1 FROM user_progress up WHERE up.user_id = ? AND up.task_id = tasks.id AND up.is_completed = ?)", userID, true).
			Find(&snap.AvailableTasks).Error
		if err != nil {
			return fmt.Errorf("load available tasks: %w", err)
		}

		var agg struct {
			TotalTasks     int
			CompletedTasks int
			TotalEarned    float64
		}
		err = tx.Table("user_progress").
			Select("COUNT(*) AS total_tasks, "+
				"COALESCE(SUM(CASE WHEN user_progress.is_completed THEN 1 ELSE 0 END), 0) AS completed_tasks, "+
				"COALESCE(SUM(CASE WHEN user_progress.is_completed THEN tasks.reward_amount ELSE 0 END), 0) AS total_earned").
			Joins("JOIN tasks ON user_progress.task_id = tasks.id").
			Where("user_progress.user_id = ?", userID).
			Scan(&agg).Error
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		snap.Stats = SnapshotStats{
			TotalTasks:     agg.TotalTasks,
			CompletedTasks: agg.CompletedTasks,
			TotalEarned:    agg.TotalEarned,
		}
		if agg.TotalTasks > 0 {
			snap.Stats.CompletionRate = int(math.Round(float64(agg.CompletedTasks) / float64(agg.TotalTasks) * 100))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
