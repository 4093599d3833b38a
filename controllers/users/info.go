package users

import (
	"errors"
	"net/http"

	"github.com/akivalo0017-dot/travelsite/models"
	"github.com/akivalo0017-dot/travelsite/utils"

	"gorm.io/gorm"
)

func (c *UserController) Info(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var user models.User
	if err := c.DB.First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "User not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Database error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "User info fetched",
		Data: map[string]interface{}{
			"user": map[string]interface{}{
				"id":             user.ID,
				"username":       user.Username,
				"phone_number":   user.PhoneNumber,
				"full_name":      user.FullName,
				"role":           user.Role,
				"is_approved":    user.IsApproved,
				"wallet_balance": user.WalletBalance,
				"current_set":    user.CurrentSet,
				"current_task":   user.CurrentTask,
				"profile":        user.Profile,
			},
		},
	})
}
