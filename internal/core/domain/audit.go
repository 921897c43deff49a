package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited API action.
type AuditAction string

const (
	AuditActionCreateEscrow AuditAction = "CREATE_ESCROW"
	AuditActionFund         AuditAction = "FUND"
	AuditActionExtract      AuditAction = "EXTRACT"
	AuditActionSpin         AuditAction = "SPIN"
	AuditActionSettle       AuditAction = "SETTLE"
	AuditActionClaim        AuditAction = "CLAIM"
	AuditActionCancel       AuditAction = "CANCEL"
	AuditActionSync         AuditAction = "SYNC"
	AuditActionReconcile    AuditAction = "RECONCILE"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       string      `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
