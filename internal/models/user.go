package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account
type User struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Password            string     `json:"-"`
	EmailVerified       bool       `json:"email_verified"`
	LastLoginAt         *time.Time `json:"last_login_at"`
	LastFailedLogin     *time.Time `json:"last_failed_login,omitempty"`
	FailedLoginAttempts int        `json:"-"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// CreateUserRequest represents the request to register a new user
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=50,nospaces"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}
