package models

import (
	"time"

	"designhouse-backend/internal/units"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MaterialStock is one stock row: a stone variant, a paper type, a plastic
// type or the tape pool. Quantity changes only through the ledger.
type MaterialStock struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Category      MaterialCategory `gorm:"size:20;not null;uniqueIndex:idx_material_identity" json:"category"`
	Name          string           `gorm:"size:150;not null" json:"name"`
	Number        string           `gorm:"size:100;not null;uniqueIndex:idx_material_identity" json:"number"`
	Color         string           `gorm:"size:50" json:"color,omitempty"`
	Size          string           `gorm:"size:50" json:"size,omitempty"`
	Width         decimal.Decimal  `gorm:"type:numeric(20,4);default:0" json:"width"`
	PiecesPerRoll decimal.Decimal  `gorm:"type:numeric(20,4);default:0" json:"pieces_per_roll"`
	// WeightPerPiece is in grams and only meaningful for pcs stock.
	WeightPerPiece decimal.Decimal `gorm:"type:numeric(20,4);default:0" json:"weight_per_piece"`
	Quantity       decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0;check:chk_material_quantity_non_negative,quantity >= 0" json:"quantity"`
	Unit           units.Unit      `gorm:"size:10;not null" json:"unit"`
	InventoryType  InventoryType   `gorm:"size:20;not null;default:internal;uniqueIndex:idx_material_identity" json:"inventory_type"`

	UpdateHistory datatypes.JSONSlice[TrailEntry] `gorm:"type:jsonb" json:"update_history"`
	CreatedAt     time.Time                       `json:"created_at"`
	UpdatedAt     time.Time                       `json:"updated_at"`
}
