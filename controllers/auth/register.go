package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/akivalo0017-dot/travelsite/middleware"
	"github.com/akivalo0017-dot/travelsite/models"
	"github.com/akivalo0017-dot/travelsite/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username             string `json:"username" validate:"required,username"`
	PhoneNumber          string `json:"phone_number" validate:"required,phone"`
	Password             string `json:"password" validate:"required,pwdmin"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	FullName             string `json:"full_name" validate:"nameok"`
	InvitationCode       string `json:"invitation_code" validate:"required"`
}

// Register creates a new account in pending state and seeds its progress
// rows for every active regular task. The account cannot log in until an
// admin approves it.
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.FullName = strings.TrimSpace(req.FullName)
	req.InvitationCode = strings.TrimSpace(req.InvitationCode)
	if req.FullName == "" {
		req.FullName = req.Username
	}
	if req.InvitationCode == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invitation code is required"})
		return
	}

	db := c.DB

	// Ensure unique phone number
	var existing models.User
	if err := db.Select("id").Where("phone_number = ?", req.PhoneNumber).First(&existing).Error; err == nil {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "User with this phone number already exists"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[register] DB error checking phone number: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	if err := db.Select("id").Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Username is already taken"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[register] DB error checking username: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	newUser := models.User{
		Username:       req.Username,
		PhoneNumber:    req.PhoneNumber,
		Password:       string(hashed),
		FullName:       req.FullName,
		InvitationCode: req.InvitationCode,
		Role:           "user",
		IsApproved:     false,
		WalletBalance:  0,
		CurrentSet:     1,
		CurrentTask:    1,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newUser).Error; err != nil {
			return err
		}

		// Seed a zero-count progress row for every active regular task so
		// the snapshot endpoints see the full ladder from day one.
		var regular []models.Task
		if err := tx.Where("task_type = ? AND is_active = ?", "regular", true).
			Order("set_number, task_number").
			Find(&regular).Error; err != nil {
			return err
		}
		if len(regular) == 0 {
			return nil
		}
		rows := make([]models.UserProgress, 0, len(regular))
		for _, t := range regular {
			rows = append(rows, models.UserProgress{
				UserID:          newUser.ID,
				TaskID:          t.ID,
				SetNumber:       t.SetNumber,
				TaskNumber:      t.TaskNumber,
				CompletionCount: 0,
				IsCompleted:     false,
			})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "User with this phone number already exists"})
			return
		}
		log.Printf("[register] DB create error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Registration failed, please try again"})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "User registered successfully. Waiting for admin approval.",
		Data:    map[string]interface{}{"user_id": newUser.ID},
	})
}
