package orders

import (
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/httpx"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/pricing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderLineRequest struct {
	DesignID uuid.UUID `json:"design_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	Type          models.OrderType     `json:"type" validate:"omitempty,oneof=internal out"`
	CustomerID    *uuid.UUID           `json:"customer_id"`
	CustomerName  string               `json:"customer_name" validate:"required_without=CustomerID,max=150"`
	Phone         string               `json:"phone" validate:"required_without=CustomerID,max=30"`
	GSTNumber     string               `json:"gst_number" validate:"max=30"`
	DesignOrders  []OrderLineRequest   `json:"design_orders" validate:"required,min=1,dive"`
	ModeOfPayment models.PaymentMode   `json:"mode_of_payment" validate:"omitempty,oneof=cash UPI card"`
	PaymentStatus models.PaymentStatus `json:"payment_status" validate:"omitempty,oneof=pending partial completed overdue"`
	DiscountType  models.DiscountType  `json:"discount_type"`
	DiscountValue decimal.Decimal      `json:"discount_value"`
	Notes         string               `json:"notes"`
}

type FinalizeOrderRequest struct {
	// Grams.
	FinalTotalWeight *decimal.Decimal `json:"final_total_weight" validate:"required"`
}

// POST /api/orders
func CreateOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		discountType := body.DiscountType
		if discountType == "" {
			discountType = models.DiscountPercentage
		}
		lines := make([]NewLine, 0, len(body.DesignOrders))
		for _, l := range body.DesignOrders {
			lines = append(lines, NewLine{DesignID: l.DesignID, Quantity: l.Quantity})
		}

		o, err := svc.Create(c.UserContext(), NewOrder{
			Type:          body.Type,
			CustomerID:    body.CustomerID,
			CustomerName:  body.CustomerName,
			Phone:         body.Phone,
			GSTNumber:     body.GSTNumber,
			Lines:         lines,
			ModeOfPayment: body.ModeOfPayment,
			PaymentStatus: body.PaymentStatus,
			Discount:      pricing.Discount{Type: discountType, Value: body.DiscountValue},
			Notes:         body.Notes,
		}, auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(o)
	}
}

// GET /api/orders/:id
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		o, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(o)
	}
}

// POST /api/orders/:id/finalize
func FinalizeOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body FinalizeOrderRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		o, err := svc.Finalize(c.UserContext(), id, *body.FinalTotalWeight, auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(o)
	}
}
