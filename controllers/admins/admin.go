package admins

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/akivalo0017-dot/travelsite/middleware"
	"github.com/akivalo0017-dot/travelsite/models"
	"github.com/akivalo0017-dot/travelsite/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateAdminRequest struct {
	Username    string `json:"username" validate:"required,username"`
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	Password    string `json:"password" validate:"required,pwdmin"`
	FullName    string `json:"full_name"`
}

// CreateAdmin bootstraps the single admin account. The endpoint is gated
// by the X-Admin-Key header matching ADMIN_SETUP_KEY and refuses to run
// once an admin exists.
func (c *AdminController) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	setupKey := os.Getenv("ADMIN_SETUP_KEY")
	provided := r.Header.Get("X-Admin-Key")
	if setupKey == "" || subtle.ConstantTimeCompare([]byte(setupKey), []byte(provided)) != 1 {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req CreateAdminRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		req.FullName = req.Username
	}

	var count int64
	if err := c.DB.Model(&models.User{}).Where("role = ?", "admin").Count(&count).Error; err != nil {
		log.Printf("[admin] DB error counting admins: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Database error"})
		return
	}
	if count > 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Admin account already exists"})
		return
	}

	var existing models.User
	if err := c.DB.Select("id").Where("phone_number = ?", req.PhoneNumber).First(&existing).Error; err == nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Phone number already registered"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[admin] DB error checking phone number: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Database error"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	admin := models.User{
		Username:       req.Username,
		PhoneNumber:    req.PhoneNumber,
		Password:       string(hashed),
		FullName:       req.FullName,
		InvitationCode: "ADMIN",
		Role:           "admin",
		IsApproved:     true,
		CurrentSet:     1,
		CurrentTask:    1,
	}
	if err := c.DB.Create(&admin).Error; err != nil {
		log.Printf("[admin] DB error creating admin: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to create admin"})
		return
	}

	log.Printf("[admin] admin account created: %s (ID: %d)", admin.Username, admin.ID)
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Admin account created successfully",
		Data: map[string]interface{}{
			"admin": map[string]interface{}{
				"id":           admin.ID,
				"username":     admin.Username,
				"phone_number": admin.PhoneNumber,
				"role":         admin.Role,
			},
		},
	})
}
