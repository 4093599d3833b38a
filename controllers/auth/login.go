package auth

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/akivalo0017-dot/travelsite/middleware"
	"github.com/akivalo0017-dot/travelsite/models"
	"github.com/akivalo0017-dot/travelsite/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthController struct {
	DB *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{DB: db}
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	Password    string `json:"password" validate:"required,pwdmin"`
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	var user models.User
	if err := c.DB.Where("phone_number = ?", req.PhoneNumber).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid phone number or password"})
			return
		}
		log.Printf("[login] DB error fetching user: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	// Pending accounts cannot log in; admins bypass the approval gate.
	if !user.IsApproved && user.Role != "admin" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Account pending admin approval"})
		return
	}

	if locked, retry := middleware.IsAccountLocked(user.ID); locked {
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
			Success: false,
			Message: "Too many login attempts. Try again later.",
			Data:    map[string]interface{}{"retry_after_seconds": int(retry.Seconds())},
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		middleware.RecordFailedLogin(user.ID)
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid phone number or password"})
		return
	}

	middleware.ResetFailedLogin(user.ID)

	tokenExpiry := 15 * time.Minute
	exp := time.Now().Add(tokenExpiry)

	accessToken, err := utils.GenerateAccessTokenWithExpiry(user.ID, user.Role, tokenExpiry)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Login failed"})
		return
	}
	refreshID, err := utils.GenerateRefreshToken(c.DB, user.ID)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to store refresh token"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Login successful",
		Data: map[string]interface{}{
			"access_token":  accessToken,
			"access_expire": exp.UTC().Format(time.RFC3339),
			"refresh_token": refreshID,
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
