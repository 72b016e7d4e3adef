package models

type MaterialCategory string

const (
	CategoryStone   MaterialCategory = "stone"
	CategoryPaper   MaterialCategory = "paper"
	CategoryPlastic MaterialCategory = "plastic"
	CategoryTape    MaterialCategory = "tape"
)

func (c MaterialCategory) Valid() bool {
	switch c {
	case CategoryStone, CategoryPaper, CategoryPlastic, CategoryTape:
		return true
	}
	return false
}

// InventoryType partitions stock owned internally from stock tracked for out jobs.
type InventoryType string

const (
	InventoryInternal InventoryType = "internal"
	InventoryOut      InventoryType = "out"
)

func (t InventoryType) Valid() bool {
	return t == InventoryInternal || t == InventoryOut
}

type OrderType string

const (
	OrderInternal OrderType = "internal"
	OrderOut      OrderType = "out"
)

func (t OrderType) Valid() bool {
	return t == OrderInternal || t == OrderOut
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
	PaymentOverdue   PaymentStatus = "overdue"
)

type PaymentMode string

const (
	PaymentCash PaymentMode = "cash"
	PaymentUPI  PaymentMode = "UPI"
	PaymentCard PaymentMode = "card"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleEmployee UserRole = "employee"
)

type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserBlocked UserStatus = "blocked"
)

type SupplierStatus string

const (
	SupplierActive   SupplierStatus = "active"
	SupplierInactive SupplierStatus = "inactive"
	SupplierBlocked  SupplierStatus = "blocked"
)
