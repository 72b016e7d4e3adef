// Package store is the persistence contract the inventory core runs on. A
// Store executes units of work; everything the core reads or writes goes
// through the Tx handed to that unit of work.
package store

import (
	"context"
	"errors"

	"designhouse-backend/internal/models"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique key is already taken.
var ErrDuplicate = errors.New("duplicate record")

type Store interface {
	// InTx runs fn in one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise; an aborted commit is returned as
	// an error and nothing fn did is visible.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Materials
	Orders
	Entries
	Designs
	Suppliers
	Customers
	Users
	AuditLogs
}

type MaterialFilter struct {
	Category      models.MaterialCategory
	InventoryType models.InventoryType
}

type Materials interface {
	// LockMaterials loads and row-locks the given materials in ascending id
	// order. Ids that do not exist are absent from the result.
	LockMaterials(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.MaterialStock, error)
	GetMaterials(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.MaterialStock, error)
	SaveMaterialQuantity(ctx context.Context, m *models.MaterialStock) error
	// SaveMaterialHistory writes only the material's update history.
	SaveMaterialHistory(ctx context.Context, m *models.MaterialStock) error
	CreateMaterial(ctx context.Context, m *models.MaterialStock) error
	ListMaterials(ctx context.Context, f MaterialFilter) ([]models.MaterialStock, error)
}

type Orders interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	// GetOrder returns ErrNotFound when absent. forUpdate row-locks the order
	// until the transaction ends.
	GetOrder(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Order, error)
	SaveOrder(ctx context.Context, o *models.Order) error
}

type Entries interface {
	CreateEntry(ctx context.Context, e *models.InventoryEntry) error
	GetEntry(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.InventoryEntry, error)
	SaveEntry(ctx context.Context, e *models.InventoryEntry) error
}

type Designs interface {
	CreateDesign(ctx context.Context, d *models.Design) error
	GetDesigns(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Design, error)
	GetDesign(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Design, error)
	SaveDesign(ctx context.Context, d *models.Design) error
}

type Suppliers interface {
	CreateSupplier(ctx context.Context, s *models.Supplier) error
	GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}

type Customers interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	// GetCustomerByPhone returns ErrNotFound when no customer has phone.
	GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
}

type Users interface {
	// LockRole serializes writers that check and then add users of role
	// until the transaction ends.
	LockRole(ctx context.Context, role models.UserRole) error
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsersByRole(ctx context.Context, role models.UserRole) (int64, error)
}

type AuditLogFilter struct {
	EntityType string
	EntityID   uuid.UUID
	UserID     uuid.UUID
	Limit      int
}

type AuditLogs interface {
	AppendAuditLog(ctx context.Context, l *models.AuditLog) error
	ListAuditLogs(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, error)
}
