package models

import (
	"time"

	"designhouse-backend/internal/units"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// EntryCategory is the kind of receipt an inventory entry records.
type EntryCategory string

const (
	EntryPaper   EntryCategory = "paper"
	EntryPlastic EntryCategory = "plastic"
	EntryStones  EntryCategory = "stones"
	EntryTape    EntryCategory = "tape"
	EntryMixed   EntryCategory = "mixed"
)

func (c EntryCategory) Valid() bool {
	switch c {
	case EntryPaper, EntryPlastic, EntryStones, EntryTape, EntryMixed:
		return true
	}
	return false
}

// Accepts reports whether items of material category m belong in an entry of
// this category.
func (c EntryCategory) Accepts(m MaterialCategory) bool {
	switch c {
	case EntryMixed:
		return m.Valid()
	case EntryStones:
		return m == CategoryStone
	case EntryPaper:
		return m == CategoryPaper
	case EntryPlastic:
		return m == CategoryPlastic
	case EntryTape:
		return m == CategoryTape
	}
	return false
}

type EntryItem struct {
	Category   MaterialCategory `json:"category"`
	MaterialID uuid.UUID        `json:"material_id"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Unit       units.Unit       `json:"unit"`
}

// InventoryEntry is a proposed material receipt. It credits stock only when
// approved.
type InventoryEntry struct {
	ID            uuid.UUID                      `gorm:"type:uuid;primaryKey" json:"id"`
	InventoryType EntryCategory                  `gorm:"size:20;not null;index" json:"inventory_type"`
	Items         datatypes.JSONSlice[EntryItem] `gorm:"type:jsonb;not null" json:"items"`
	SupplierID    *uuid.UUID                     `gorm:"type:uuid;index" json:"supplier_id"`
	BillNumber    string                         `gorm:"size:100" json:"bill_number,omitempty"`
	BillDate      *time.Time                     `gorm:"type:date" json:"bill_date"`
	SourceOrderID *uuid.UUID                     `gorm:"type:uuid;index" json:"source_order_id"`
	Status        EntryStatus                    `gorm:"size:20;not null;default:pending;index" json:"status"`
	EnteredBy     uuid.UUID                      `gorm:"type:uuid;not null;index" json:"entered_by"`
	ApprovedBy    *uuid.UUID                     `gorm:"type:uuid;index" json:"approved_by"`
	DecidedAt     *time.Time                     `json:"decided_at"`
	Notes         string                         `gorm:"type:text" json:"notes,omitempty"`

	UpdateHistory datatypes.JSONSlice[TrailEntry] `gorm:"type:jsonb" json:"update_history"`
	CreatedAt     time.Time                       `json:"created_at"`
	UpdatedAt     time.Time                       `json:"updated_at"`
}
