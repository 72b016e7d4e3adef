package models

import (
	"time"

	"designhouse-backend/internal/units"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PriceTier applies UnitPrice from MinQuantity units upwards.
type PriceTier struct {
	MinQuantity int             `json:"min_quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// RecipeItem is the amount of one material consumed per unit of a design.
type RecipeItem struct {
	Category   MaterialCategory `json:"category"`
	MaterialID uuid.UUID        `json:"material_id"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Unit       units.Unit       `json:"unit"`
	// WeightPerPiece is snapshotted from the material when an order is placed.
	WeightPerPiece decimal.Decimal `json:"weight_per_piece"`
}

type Design struct {
	ID               uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string                          `gorm:"size:150;not null" json:"name"`
	Number           string                          `gorm:"size:100;not null;uniqueIndex" json:"number"`
	ImageURL         string                          `gorm:"size:500" json:"image_url"`
	Prices           datatypes.JSONSlice[PriceTier]  `gorm:"type:jsonb;not null" json:"prices"`
	DefaultMaterials datatypes.JSONSlice[RecipeItem] `gorm:"type:jsonb;not null" json:"default_materials"`
	CreatedBy        uuid.UUID                       `gorm:"type:uuid;not null;index" json:"created_by"`
	UpdatedBy        *uuid.UUID                      `gorm:"type:uuid" json:"updated_by"`
	UpdateHistory    datatypes.JSONSlice[TrailEntry] `gorm:"type:jsonb" json:"update_history"`
	CreatedAt        time.Time                       `json:"created_at"`
	UpdatedAt        time.Time                       `json:"updated_at"`
}
