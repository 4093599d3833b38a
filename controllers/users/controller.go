package users

import (
	"github.com/akivalo0017-dot/travelsite/progression"

	"gorm.io/gorm"
)

type UserController struct {
	DB     *gorm.DB
	Engine *progression.Engine
	Reader *progression.Reader
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{
		DB:     db,
		Engine: progression.NewEngine(db),
		Reader: progression.NewReader(db),
	}
}
