package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionUpdate   AuditAction = "update"
	AuditActionAdjust   AuditAction = "adjust"
	AuditActionFinalize AuditAction = "finalize"
	AuditActionApprove  AuditAction = "approve"
	AuditActionReject   AuditAction = "reject"
)

// AuditLog is the global, append-only record of mutating operations. It is
// written in the same transaction as the change it describes.
type AuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Role   UserRole  `gorm:"size:20" json:"role"`

	// e.g. "order", "inventory_entry", "material"
	EntityType string    `gorm:"size:50;index" json:"entity_type"`
	EntityID   uuid.UUID `gorm:"type:uuid;index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
