// Package gormstore implements store.Store on PostgreSQL through gorm. Row
// locks (SELECT ... FOR UPDATE) taken inside a transaction serialize
// concurrent writers across every process sharing the database.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

// New wraps db. A positive timeout bounds every transaction; when it expires
// the transaction is rolled back and the operation fails as a whole.
func New(db *gorm.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&txn{db: db})
	})
}

type txn struct {
	db *gorm.DB
}

func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (t *txn) locked(forUpdate bool) *gorm.DB {
	if forUpdate {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

// --- materials ---

func (t *txn) LockMaterials(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.MaterialStock, error) {
	return t.findMaterials(ctx, ids, true)
}

func (t *txn) GetMaterials(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.MaterialStock, error) {
	return t.findMaterials(ctx, ids, false)
}

func (t *txn) findMaterials(ctx context.Context, ids []uuid.UUID, forUpdate bool) (map[uuid.UUID]*models.MaterialStock, error) {
	out := make(map[uuid.UUID]*models.MaterialStock, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.MaterialStock
	// ORDER BY id makes every locker acquire rows in the same order.
	if err := t.locked(forUpdate).WithContext(ctx).
		Where("id IN ?", ids).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, translate("find materials", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (t *txn) SaveMaterialQuantity(ctx context.Context, m *models.MaterialStock) error {
	res := t.db.WithContext(ctx).Model(&models.MaterialStock{}).
		Where("id = ?", m.ID).
		Updates(map[string]interface{}{
			"quantity":   m.Quantity,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate("save material quantity", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *txn) SaveMaterialHistory(ctx context.Context, m *models.MaterialStock) error {
	res := t.db.WithContext(ctx).Model(&models.MaterialStock{}).
		Where("id = ?", m.ID).
		Update("update_history", m.UpdateHistory)
	if res.Error != nil {
		return translate("save material history", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *txn) CreateMaterial(ctx context.Context, m *models.MaterialStock) error {
	return translate("create material", t.db.WithContext(ctx).Create(m).Error)
}

func (t *txn) ListMaterials(ctx context.Context, f store.MaterialFilter) ([]models.MaterialStock, error) {
	q := t.db.WithContext(ctx).Model(&models.MaterialStock{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.InventoryType != "" {
		q = q.Where("inventory_type = ?", f.InventoryType)
	}
	var rows []models.MaterialStock
	if err := q.Order("category, name").Find(&rows).Error; err != nil {
		return nil, translate("list materials", err)
	}
	return rows, nil
}

// --- orders ---

func (t *txn) CreateOrder(ctx context.Context, o *models.Order) error {
	return translate("create order", t.db.WithContext(ctx).Create(o).Error)
}

func (t *txn) GetOrder(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Order, error) {
	var o models.Order
	if err := t.locked(forUpdate).WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate("get order", err)
	}
	return &o, nil
}

func (t *txn) SaveOrder(ctx context.Context, o *models.Order) error {
	return translate("save order", t.db.WithContext(ctx).Save(o).Error)
}

// --- inventory entries ---

func (t *txn) CreateEntry(ctx context.Context, e *models.InventoryEntry) error {
	return translate("create inventory entry", t.db.WithContext(ctx).Create(e).Error)
}

func (t *txn) GetEntry(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.InventoryEntry, error) {
	var e models.InventoryEntry
	if err := t.locked(forUpdate).WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, translate("get inventory entry", err)
	}
	return &e, nil
}

func (t *txn) SaveEntry(ctx context.Context, e *models.InventoryEntry) error {
	return translate("save inventory entry", t.db.WithContext(ctx).Save(e).Error)
}

// --- designs ---

func (t *txn) CreateDesign(ctx context.Context, d *models.Design) error {
	return translate("create design", t.db.WithContext(ctx).Create(d).Error)
}

func (t *txn) GetDesigns(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Design, error) {
	out := make(map[uuid.UUID]*models.Design, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Design
	if err := t.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, translate("get designs", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (t *txn) GetDesign(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Design, error) {
	var d models.Design
	if err := t.locked(forUpdate).WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate("get design", err)
	}
	return &d, nil
}

func (t *txn) SaveDesign(ctx context.Context, d *models.Design) error {
	return translate("save design", t.db.WithContext(ctx).Save(d).Error)
}

// --- suppliers ---

func (t *txn) CreateSupplier(ctx context.Context, s *models.Supplier) error {
	return translate("create supplier", t.db.WithContext(ctx).Create(s).Error)
}

func (t *txn) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var s models.Supplier
	if err := t.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate("get supplier", err)
	}
	return &s, nil
}

// --- customers ---

func (t *txn) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return translate("create customer", t.db.WithContext(ctx).Create(c).Error)
}

func (t *txn) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	if err := t.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate("get customer", err)
	}
	return &c, nil
}

func (t *txn) GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var c models.Customer
	if err := t.db.WithContext(ctx).Where("phone = ?", phone).First(&c).Error; err != nil {
		return nil, translate("get customer by phone", err)
	}
	return &c, nil
}

// --- users ---

// LockRole takes a transaction-scoped advisory lock keyed by role. Row locks
// cannot guard an insert that a count decided on.
func (t *txn) LockRole(ctx context.Context, role models.UserRole) error {
	err := t.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "users:role:"+string(role)).Error
	return translate("lock role", err)
}

func (t *txn) CreateUser(ctx context.Context, u *models.User) error {
	return translate("create user", t.db.WithContext(ctx).Create(u).Error)
}

func (t *txn) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := t.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate("get user", err)
	}
	return &u, nil
}

func (t *txn) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := t.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate("get user by email", err)
	}
	return &u, nil
}

func (t *txn) CountUsersByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var count int64
	err := t.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, translate("count users", err)
}

// --- audit logs ---

func (t *txn) AppendAuditLog(ctx context.Context, l *models.AuditLog) error {
	return translate("append audit log", t.db.WithContext(ctx).Create(l).Error)
}

func (t *txn) ListAuditLogs(ctx context.Context, f store.AuditLogFilter) ([]models.AuditLog, error) {
	q := t.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != uuid.Nil {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != uuid.Nil {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var logs []models.AuditLog
	if err := q.Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, translate("list audit logs", err)
	}
	return logs, nil
}
