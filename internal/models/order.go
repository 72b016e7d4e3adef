package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DesignLineItem is one design-and-quantity entry of an order. Price tiers and
// the material recipe are snapshots taken when the order was placed.
type DesignLineItem struct {
	DesignID     uuid.UUID       `json:"design_id"`
	DesignNumber string          `json:"design_number"`
	DesignName   string          `json:"design_name"`
	Quantity     int             `json:"quantity"`
	PriceTiers   []PriceTier     `json:"price_tiers"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineAmount   decimal.Decimal `json:"line_amount"`
	Materials    []RecipeItem    `json:"materials"`
}

type Order struct {
	ID           uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	Type         OrderType                           `gorm:"size:20;not null;index" json:"type"`
	CustomerID   *uuid.UUID                          `gorm:"type:uuid;index" json:"customer_id"`
	CustomerName string                              `gorm:"size:150;not null" json:"customer_name"`
	Phone        string                              `gorm:"size:30;not null" json:"phone"`
	GSTNumber    string                              `gorm:"size:30" json:"gst_number,omitempty"`
	DesignOrders datatypes.JSONSlice[DesignLineItem] `gorm:"type:jsonb;not null" json:"design_orders"`

	ModeOfPayment    PaymentMode     `gorm:"size:10;not null;default:cash" json:"mode_of_payment"`
	PaymentStatus    PaymentStatus   `gorm:"size:20;not null;default:pending" json:"payment_status"`
	DiscountType     DiscountType    `gorm:"size:20;not null;default:percentage" json:"discount_type"`
	DiscountValue    decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"discount_value"`
	GrossAmount      decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"gross_amount"`
	DiscountedAmount decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"discounted_amount"`
	FinalAmount      decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"final_amount"`
	Notes            string          `gorm:"type:text" json:"notes,omitempty"`

	Status      OrderStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	IsFinalized bool        `gorm:"not null;default:false" json:"is_finalized"`
	FinalizedAt *time.Time  `json:"finalized_at"`

	// Written once at finalization, null before.
	CalculatedWeight      decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"calculated_weight"`
	FinalTotalWeight      decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"final_total_weight"`
	WeightDiscrepancy     decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"weight_discrepancy"`
	DiscrepancyPercentage decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"discrepancy_percentage"`
	DiscrepancyFlagged    bool                `gorm:"not null;default:false" json:"discrepancy_flagged"`

	CreatedBy     uuid.UUID                       `gorm:"type:uuid;not null;index" json:"created_by"`
	UpdatedBy     *uuid.UUID                      `gorm:"type:uuid;index" json:"updated_by"`
	UpdateHistory datatypes.JSONSlice[TrailEntry] `gorm:"type:jsonb" json:"update_history"`
	CreatedAt     time.Time                       `json:"created_at"`
	UpdatedAt     time.Time                       `json:"updated_at"`
}
