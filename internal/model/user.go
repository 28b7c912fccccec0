package model

import (
	"time"
)

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

// OAuthPassword is stored instead of a bcrypt hash for accounts created through Google sign-in.
const OAuthPassword = "oauth:google"

// swagger:model User
type User struct {
	BaseModel
	FullName           string     `gorm:"size:100;not null" json:"fullName"`
	Email              string     `gorm:"size:100;unique;not null" json:"email"`
	Password           string     `gorm:"size:100;not null" json:"-"`
	Role               UserRole   `gorm:"type:enum('user','moderator','admin');default:'user'" json:"role"`
	GoogleID           *string    `gorm:"size:64;uniqueIndex" json:"-"`
	IsVerified         bool       `gorm:"default:false" json:"isVerified"`
	VerificationToken  string     `gorm:"size:64;index" json:"-"`
	VerificationExpiry *time.Time `json:"-"`
	ResetToken         string     `gorm:"size:64;index" json:"-"`
	ResetExpiry        *time.Time `json:"-"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsOAuthOnly() bool {
	return u.Password == OAuthPassword
}

func (r UserRole) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}
