package models

import "time"

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PhoneNumber    string    `gorm:"size:20;uniqueIndex;not null" json:"phone_number"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	FullName       string    `gorm:"size:100;not null" json:"full_name"`
	InvitationCode string    `gorm:"size:20;not null" json:"invitation_code"`
	Role           string    `gorm:"size:10;default:'user'" json:"role"`
	IsApproved     bool      `gorm:"default:false" json:"is_approved"`
	WalletBalance  float64   `gorm:"type:decimal(15,2);default:0" json:"wallet_balance"`
	CurrentSet     int       `gorm:"default:1" json:"current_set"`
	CurrentTask    int       `gorm:"default:1" json:"current_task"`
	Profile        *string   `gorm:"type:varchar(255);null" json:"profile,omitempty"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}
