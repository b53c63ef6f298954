package models

import (
	"time"

	"github.com/tierbill/tierbill/pkg/types"
)

// User is the local projection of the identity store. Identity management
// itself lives elsewhere; this service only reads users and never creates
// them.
type User struct {
	ID        string         `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Username  string         `gorm:"column:username;type:varchar(128);not null" json:"username"`
	Email     string         `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	Role      types.UserRole `gorm:"column:role;type:varchar(32);not null;default:'user'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}
