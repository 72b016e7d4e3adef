package models

import (
	"time"

	"github.com/google/uuid"
)

type Supplier struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Phone         string         `gorm:"size:30" json:"phone,omitempty"`
	Email         string         `gorm:"size:100" json:"email,omitempty"`
	ContactPerson string         `gorm:"size:100" json:"contact_person,omitempty"`
	Notes         string         `gorm:"type:text" json:"notes,omitempty"`
	Status        SupplierStatus `gorm:"size:20;not null;default:active" json:"status"`
	CreatedBy     *uuid.UUID     `gorm:"type:uuid;index" json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
