package catalog

import (
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/httpx"
	"designhouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateDesignRequest struct {
	Name             string              `json:"name" validate:"required,max=150"`
	Number           string              `json:"number" validate:"required,max=100"`
	ImageURL         string              `json:"image_url" validate:"omitempty,url"`
	Prices           []models.PriceTier  `json:"prices" validate:"required,min=1"`
	DefaultMaterials []models.RecipeItem `json:"default_materials"`
}

type CreateCustomerRequest struct {
	Name         string              `json:"name" validate:"max=150"`
	Phone        string              `json:"phone" validate:"required,max=30"`
	Email        string              `json:"email" validate:"omitempty,email"`
	Company      string              `json:"company" validate:"max=150"`
	GSTNumber    string              `json:"gst_number" validate:"max=30"`
	CustomerType models.CustomerType `json:"customer_type" validate:"omitempty,oneof=retail wholesale"`
}

func (r CreateCustomerRequest) toNew() NewCustomer {
	return NewCustomer{
		Name:         r.Name,
		Phone:        r.Phone,
		Email:        r.Email,
		Company:      r.Company,
		GSTNumber:    r.GSTNumber,
		CustomerType: r.CustomerType,
	}
}

type CreateSupplierRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Phone         string `json:"phone" validate:"max=30"`
	Email         string `json:"email" validate:"omitempty,email"`
	ContactPerson string `json:"contact_person" validate:"max=100"`
	Notes         string `json:"notes"`
}

// POST /api/designs
func CreateDesignHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateDesignRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		d, err := svc.CreateDesign(c.UserContext(), NewDesign{
			Name:             body.Name,
			Number:           body.Number,
			ImageURL:         body.ImageURL,
			Prices:           body.Prices,
			DefaultMaterials: body.DefaultMaterials,
		}, auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

// PUT /api/designs/:id
func UpdateDesignHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body CreateDesignRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		d, err := svc.UpdateDesign(c.UserContext(), id, NewDesign{
			Name:             body.Name,
			Number:           body.Number,
			ImageURL:         body.ImageURL,
			Prices:           body.Prices,
			DefaultMaterials: body.DefaultMaterials,
		}, auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(d)
	}
}

// POST /api/customers
func CreateCustomerHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCustomerRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		cust, err := svc.CreateCustomer(c.UserContext(), body.toNew(), auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(cust)
	}
}

// POST /api/customers/find-or-create
func FindOrCreateCustomerHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCustomerRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		cust, created, err := svc.FindOrCreateCustomer(c.UserContext(), body.toNew(), auth.ActorFrom(c))
		if err != nil {
			return err
		}
		if created {
			c.Status(fiber.StatusCreated)
		}
		return c.JSON(cust)
	}
}

// GET /api/customers/:id
func GetCustomerHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		cust, err := svc.GetCustomer(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(cust)
	}
}

// POST /api/suppliers
func CreateSupplierHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSupplierRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		sup, err := svc.CreateSupplier(c.UserContext(), NewSupplier{
			Name:          body.Name,
			Phone:         body.Phone,
			Email:         body.Email,
			ContactPerson: body.ContactPerson,
			Notes:         body.Notes,
		}, auth.ActorFrom(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(sup)
	}
}
