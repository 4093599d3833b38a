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

// Engine advances a user's completion state for a task. All mutation of
// users.wallet_balance, users.current_set/current_task and user_progress goes
// through CompleteTaskAttempt; nothing else in the application writes them.
type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

type Progress struct {
	Current    int `json:"current"`
	Required   int `json:"required"`
	Percentage int `json:"percentage"`
}

type CompletionResult struct {
	Completed bool     `json:"completed"`
	Reward    float64  `json:"reward"`
	Progress  Progress `json:"progress"`
}

// taskAttempt is the joined view of a task and the caller's progress row, read
// in a single statement so the guard never races a separate progress lookup.
type taskAttempt struct {
	ID                 uint
	SetNumber          int
	TaskNumber         int
	RequiredCompletion int
	RewardAmount       float64
	ProgressUserID     *uint
	CompletionCount    *int
}

// CompleteTaskAttempt records one attempt at a task inside a single
// transaction: load task + progress, check the idempotence guard, apply the
// guarded increment (or insert), and on the transition to completed credit the
// reward and advance the user's pointer. Any failure rolls the whole call
// back.
//
// Repeating the call after completion returns ErrAlreadyCompleted with no
// writes; callers retrying after an ambiguous commit should treat that as the
// expected benign outcome, not an error.
func (e *Engine) CompleteTaskAttempt(ctx context.Context, userID, taskID uint) (*CompletionResult, error) {
	if userID == 0 || taskID == 0 {
		return nil, ErrInvalidInput
	}

	var result *CompletionResult
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var uid uint
		if err := tx.Model(&models.User{}).Select("id").Where("id = ?", userID).Take(&uid).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		var att taskAttempt
		err := tx.Table("tasks").
			Select("tasks.id, tasks.set_number, tasks.task_number, tasks.required_completion, tasks.reward_amount, up.user_id AS progress_user_id, up.completion_count").
			Joins("LEFT JOIN user_progress up ON up.task_id = tasks.id AND up.user_id = ?", userID).
			Where("tasks.id = ?", taskID).
			Take(&att).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load task: %w", err)
		}

		required := att.RequiredCompletion
		if required < 1 {
			required = 1
		}
		currentCount := 0
		hasRow := att.ProgressUserID != nil
		if hasRow && att.CompletionCount != nil {
			currentCount = *att.CompletionCount
		}

		// Idempotence guard: no writes once the task is complete.
		if currentCount >= required {
			return ErrAlreadyCompleted
		}

		now := time.Now()
		newCount := currentCount + 1
		nowCompleted := newCount >= required

		if hasRow {
			newCount, err = e.incrementProgress(tx, userID, taskID, required, now)
			if err != nil {
				return err
			}
			nowCompleted = newCount >= required
		} else {
			var completedAt *time.Time
			if nowCompleted {
				completedAt = &now
			}
			row := models.UserProgress{
				UserID:          userID,
				TaskID:          taskID,
				SetNumber:       att.SetNumber,
				TaskNumber:      att.TaskNumber,
				CompletionCount: newCount,
				IsCompleted:     nowCompleted,
				CompletedAt:     completedAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				if !errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("insert progress: %w", err)
				}
				// A concurrent transaction inserted the first row for this
				// pair; retry as a guarded update against the committed row.
				newCount, err = e.incrementProgress(tx, userID, taskID, required, now)
				if err != nil {
					return err
				}
				nowCompleted = newCount >= required
			}
		}

		reward := 0.0
		if nowCompleted {
			reward = att.RewardAmount
			if err := tx.Model(&models.User{}).Where("id = ?", userID).
				Update("wallet_balance", gorm.Expr("wallet_balance + ?", reward)).Error; err != nil {
				return fmt.Errorf("credit wallet: %w", err)
			}
			if err := e.advancePointer(tx, userID, att.SetNumber, att.TaskNumber); err != nil {
				return err
			}
		}

		result = &CompletionResult{
			Completed: nowCompleted,
			Reward:    reward,
			Progress: Progress{
				Current:    newCount,
				Required:   required,
				Percentage: int(math.Round(float64(newCount) / float64(required) * 100)),
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// incrementProgress applies the attempt as one guarded UPDATE. The
// completion_count < required predicate re-checks the idempotence guard at
// write time, so of any number of racing transactions exactly one performs
// each increment and the rest observe ErrAlreadyCompleted. Column order
// matters: is_completed and completed_at are computed from the pre-increment
// count before completion_count itself is bumped.
func (e *Engine) incrementProgress(tx *gorm.DB, userID, taskID uint, required int, now time.Time) (int, error) {
	res := tx.Exec(`UPDATE user_progress
		SET is_completed = completion_count + 1 >= ?,
		    completed_at = CASE WHEN completion_count + 1 >= ? THEN ? ELSE completed_at END,
		    completion_count = completion_count + 1,
		    updated_at = ?
		WHERE user_id = ? AND task_id = ? AND completion_count < ?`,
		required, required, now, now, userID, taskID, required)
	if res.Error != nil {
		return 0, fmt.Errorf("update progress: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrAlreadyCompleted
	}

	// Re-read inside the transaction for the authoritative count; under a
	// race the snapshot read above may be stale.
	var row models.UserProgress
	if err := tx.Where("user_id = ? AND task_id = ?", userID, taskID).Take(&row).Error; err != nil {
		return 0, fmt.Errorf("reload progress: %w", err)
	}
	return row.CompletionCount, nil
}

// advancePointer moves (current_set, current_task) to the next active task
// after the one just completed: first the smallest higher task_number in the
// same set, else task 1 of the smallest higher set. No candidate means the
// user has exhausted all content; the pointer stays put and that is not an
// error.
func (e *Engine) advancePointer(tx *gorm.DB, userID uint, setNumber, taskNumber int) error {
	var next models.Task
	err := tx.Where("set_number = ? AND task_number > ? AND is_active = ?", setNumber, taskNumber, true).
		Order("task_number ASC").First(&next).Error
	if err == nil {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("current_task", next.TaskNumber).Error; err != nil {
			return fmt.Errorf("advance task pointer: %w", err)
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("find next task: %w", err)
	}

	var nextSet models.Task
	err = tx.Where("set_number > ? AND task_number = 1 AND is_active = ?", setNumber, true).
		Order("set_number ASC").First(&nextSet).Error
	if err == nil {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Updates(map[string]interface{}{"current_set": nextSet.SetNumber, "current_task": 1}).Error; err != nil {
			return fmt.Errorf("advance set pointer: %w", err)
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("find next set: %w", err)
	}
	// Terminal: no content left.
	return nil
}
