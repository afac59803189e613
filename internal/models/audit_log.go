package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action performed
type AuditAction string

const (
	AuditActionSignIn          AuditAction = "sign_in"
	AuditActionSignUp          AuditAction = "sign_up"
	AuditActionContextMismatch AuditAction = "context_mismatch"
	AuditActionContextBlocked  AuditAction = "context_blocked"
	AuditActionContextApproved AuditAction = "context_approved"
	AuditActionEmailVerified   AuditAction = "email_verified"
)

// AuditLog represents a record of security-relevant activity
type AuditLog struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	UserID      *uuid.UUID  `json:"user_id" db:"user_id"` // Optional: action might be system-generated
	Action      AuditAction `json:"action" db:"action"`
	EntityType  string      `json:"entity_type" db:"entity_type"`
	EntityID    string      `json:"entity_id" db:"entity_id"`
	Description string      `json:"description" db:"description"`
	Metadata    string      `json:"metadata" db:"metadata"` // JSON string containing additional context
	IPAddress   string      `json:"ip_address" db:"ip_address"`
	UserAgent   string      `json:"user_agent" db:"user_agent"`
	Level       string      `json:"level" db:"level"` // info, warn or error
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// CreateAuditLogRequest represents the request to create a new audit log entry
type CreateAuditLogRequest struct {
	UserID      *uuid.UUID  `json:"user_id"`
	Action      AuditAction `json:"action" binding:"required"`
	EntityType  string      `json:"entity_type" binding:"required"`
	EntityID    string      `json:"entity_id"`
	Description string      `json:"description" binding:"required"`
	Metadata    string      `json:"metadata"`
	IPAddress   string      `json:"ip_address"`
	UserAgent   string      `json:"user_agent"`
	Level       string      `json:"level"`
}
