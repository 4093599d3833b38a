package admins

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akivalo0017-dot/travelsite/middleware"
	"github.com/akivalo0017-dot/travelsite/models"
	"github.com/akivalo0017-dot/travelsite/utils"

	"gorm.io/gorm"
)

type adminUserRow struct {
	ID                 uint      `json:"id"`
	Username           string    `json:"username"`
	PhoneNumber        string    `json:"phone_number"`
	FullName           string    `json:"full_name"`
	Role               string    `json:"role"`
	IsApproved         bool      `json:"is_approved"`
	WalletBalance      float64   `json:"wallet_balance"`
	CurrentSet         int       `json:"current_set"`
	CurrentTask        int       `json:"current_task"`
	TotalTasksAssigned int       `json:"total_tasks_assigned"`
	CompletedTasks     int       `json:"completed_tasks"`
	CompletionRate     int       `json:"completion_rate" gorm:"-"`
	TotalEarnings      float64   `json:"total_earnings"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

var allowedSortColumns = map[string]string{
	"created_at":     "u.created_at",
	"updated_at":     "u.updated_at",
	"username":       "u.username",
	"full_name":      "u.full_name",
	"wallet_balance": "u.wallet_balance",
}

// ListUsers returns a paginated user listing with per-user progress
// aggregates. Supports search, role and approval filters.
func (c *AdminController) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	sortCol, ok := allowedSortColumns[q.Get("sort_by")]
	if !ok {
		sortCol = "u.created_at"
	}
	sortDir := "DESC"
	if strings.EqualFold(q.Get("sort_order"), "asc") {
		sortDir = "ASC"
	}

	base := c.DB.Table("users u")
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		like := "%" + search + "%"
		base = base.Where("u.username LIKE ? OR u.full_name LIKE ? OR u.phone_number LIKE ?", like, like, like)
	}
	if role := q.Get("role"); role != "" {
		base = base.Where("u.role = ?", role)
	}
	if approved := q.Get("approved"); approved != "" {
		base = base.Where("u.is_approved = ?", approved == "true")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		log.Printf("[admin] DB error counting users: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Database error"})
		return
	}

	var rows []adminUserRow
	err := base.
		Select("u.id, u.username, u.phone_number, u.full_name, u.role, u.is_approved, u.wallet_balance, "+
			"u.current_set, u.current_task, u.created_at, u.updated_at, "+
			"COUNT(DISTINCT up.task_id) AS total_tasks_assigned, "+
			"COUNT(DISTINCT CASE WHEN up.is_completed = ? THEN up.task_id END) AS completed_tasks, "+
			"COALESCE(SUM(CASE WHEN up.is_completed = ? THEN t.reward_amount ELSE 0 END), 0) AS total_earnings",
			true, true).
		Joins("LEFT JOIN user_progress up ON up.user_id = u.id").
		Joins("LEFT JOIN tasks t ON t.id = up.task_id").
		Group("u.id").
		Order(sortCol + " " + sortDir).
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		log.Printf("[admin] DB error listing users: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Database error"})
		return
	}

	for i := range rows {
		rows[i].CompletionRate = utils.Percent(rows[i].CompletedTasks, rows[i].TotalTasksAssigned)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Users fetched",
		Data: map[string]interface{}{
			"users": rows,
			"pagination": map[string]interface{}{
				"current_page": page,
				"total_pages":  totalPages,
				"total_users":  total,
				"has_next":     page < totalPages,
				"has_prev":     page > 1,
			},
		},
	})
}

type ApproveUserRequest struct {
	UserID  uint  `json:"user_id"`
	Approve *bool `json:"approve"`
}

// ApproveUser flips a user's approval flag.
func (c *AdminController) ApproveUser(w http.ResponseWriter, r *http.Request) {
	var req ApproveUserRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if req.UserID == 0 || req.Approve == nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "user_id and approve are required"})
		return
	}

	res := c.DB.Model(&models.User{}).Where("id = ?", req.UserID).Update("is_approved", *req.Approve)
	if res.Error != nil {
		log.Printf("[admin] DB error approving user %d: %v", req.UserID, res.Error)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Database error"})
		return
	}
	if res.RowsAffected == 0 {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "User not found"})
		return
	}

	message := "User rejected successfully"
	if *req.Approve {
		message = "User approved successfully"
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: message})
}
