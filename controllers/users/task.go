package users

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/akivalo0017-dot/travelsite/middleware"
	"github.com/akivalo0017-dot/travelsite/progression"
	"github.com/akivalo0017-dot/travelsite/utils"
)

type taskRow struct {
	ID                 uint       `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	TaskType           string     `json:"task_type"`
	SetNumber          int        `json:"set_number"`
	TaskNumber         int        `json:"task_number"`
	Position           int        `json:"position"`
	RewardAmount       float64    `json:"reward_amount"`
	RequiredCompletion int        `json:"required_completion"`
	CompletionCount    *int       `json:"completion_count"`
	IsCompleted        *bool      `json:"is_completed"`
	CompletedAt        *time.Time `json:"completed_at"`
	Percent            int        `json:"percent" gorm:"-"`
}

// Tasks lists every active task joined with the caller's own progress,
// ordered by ladder position.
func (c *UserController) Tasks(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var rows []taskRow
	err := c.DB.Table("tasks").
		Select("tasks.id, tasks.title, tasks.description, tasks.task_type, tasks.set_number, tasks.task_number, "+
			"tasks.position, tasks.reward_amount, tasks.required_completion, "+
			"up.completion_count, up.is_completed, up.completed_at").
		Joins("LEFT JOIN user_progress up ON up.task_id = tasks.id AND up.user_id = ?", uid).
		Where("tasks.is_active = ?", true).
		Order("tasks.position").
		Find(&rows).Error
	if err != nil {
		log.Printf("[tasks] DB error listing tasks for user %d: %v", uid, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Database error"})
		return
	}

	for i := range rows {
		count := 0
		if rows[i].CompletionCount != nil {
			count = *rows[i].CompletionCount
		}
		rows[i].Percent = utils.Percent(count, rows[i].RequiredCompletion)
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Tasks fetched",
		Data:    map[string]interface{}{"tasks": rows},
	})
}

type CompleteTaskRequest struct {
	TaskID uint `json:"task_id"`
}

// CompleteTask records one attempt against a task for the caller. Reward
// crediting and pointer advancement happen atomically inside the engine.
func (c *UserController) CompleteTask(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req CompleteTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	result, err := c.Engine.CompleteTaskAttempt(r.Context(), uid, req.TaskID)
	if err != nil {
		switch {
		case errors.Is(err, progression.ErrInvalidInput):
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Task ID is required"})
		case errors.Is(err, progression.ErrNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Task not found"})
		case errors.Is(err, progression.ErrAlreadyCompleted):
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Task already completed"})
		default:
			log.Printf("[tasks] completion error for user %d task %d: %v", uid, req.TaskID, err)
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Internal server error"})
		}
		return
	}

	message := "Progress updated"
	if result.Completed {
		message = "Task completed!"
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: message,
		Data: map[string]interface{}{
			"completed": result.Completed,
			"reward":    result.Reward,
			"progress":  result.Progress,
		},
	})
}
