package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CustomerType string

const (
	CustomerRetail    CustomerType = "retail"
	CustomerWholesale CustomerType = "wholesale"
)

func (t CustomerType) Valid() bool {
	return t == CustomerRetail || t == CustomerWholesale
}

// Customer is identified by phone number; orders link to one.
type Customer struct {
	ID            uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string                          `gorm:"size:150;not null" json:"name"`
	Phone         string                          `gorm:"size:30;not null;uniqueIndex" json:"phone"`
	Email         string                          `gorm:"size:100" json:"email,omitempty"`
	Company       string                          `gorm:"size:150" json:"company,omitempty"`
	GSTNumber     string                          `gorm:"size:30" json:"gst_number,omitempty"`
	CustomerType  CustomerType                    `gorm:"size:20;not null;default:retail" json:"customer_type"`
	IsActive      bool                            `gorm:"not null;default:true" json:"is_active"`
	CreatedBy     uuid.UUID                       `gorm:"type:uuid;not null;index" json:"created_by"`
	UpdateHistory datatypes.JSONSlice[TrailEntry] `gorm:"type:jsonb" json:"update_history"`
	CreatedAt     time.Time                       `json:"created_at"`
	UpdatedAt     time.Time                       `json:"updated_at"`
}
