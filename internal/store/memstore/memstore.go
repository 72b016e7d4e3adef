// Package memstore is an in-process store.Store for tests and local demos.
// Transactions are serialized by one mutex and work on a copy of the data
// that replaces the committed state only when the transaction succeeds.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"

	"github.com/google/uuid"
)

type Store struct {
	mu   sync.Mutex
	data *state
}

type state struct {
	materials map[uuid.UUID]models.MaterialStock
	orders    map[uuid.UUID]models.Order
	entries   map[uuid.UUID]models.InventoryEntry
	designs   map[uuid.UUID]models.Design
	suppliers map[uuid.UUID]models.Supplier
	customers map[uuid.UUID]models.Customer
	users     map[uuid.UUID]models.User
	auditLogs []models.AuditLog
}

func New() *Store {
	return &Store{data: &state{
		materials: map[uuid.UUID]models.MaterialStock{},
		orders:    map[uuid.UUID]models.Order{},
		entries:   map[uuid.UUID]models.InventoryEntry{},
		designs:   map[uuid.UUID]models.Design{},
		suppliers: map[uuid.UUID]models.Supplier{},
		customers: map[uuid.UUID]models.Customer{},
		users:     map[uuid.UUID]models.User{},
	}}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(&txn{st: work}); err != nil {
		return err
	}
	// A context cancelled mid-transaction aborts the commit.
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (st *state) clone() *state {
	out := &state{
		materials: make(map[uuid.UUID]models.MaterialStock, len(st.materials)),
		orders:    make(map[uuid.UUID]models.Order, len(st.orders)),
		entries:   make(map[uuid.UUID]models.InventoryEntry, len(st.entries)),
		designs:   make(map[uuid.UUID]models.Design, len(st.designs)),
		suppliers: make(map[uuid.UUID]models.Supplier, len(st.suppliers)),
		customers: make(map[uuid.UUID]models.Customer, len(st.customers)),
		users:     make(map[uuid.UUID]models.User, len(st.users)),
		auditLogs: slices.Clone(st.auditLogs),
	}
	for k, v := range st.materials {
		out.materials[k] = copyMaterial(v)
	}
	for k, v := range st.orders {
		out.orders[k] = copyOrder(v)
	}
	for k, v := range st.entries {
		out.entries[k] = copyEntry(v)
	}
	for k, v := range st.designs {
		out.designs[k] = copyDesign(v)
	}
	for k, v := range st.suppliers {
		out.suppliers[k] = v
	}
	for k, v := range st.customers {
		v.UpdateHistory = slices.Clone(v.UpdateHistory)
		out.customers[k] = v
	}
	for k, v := range st.users {
		out.users[k] = v
	}
	return out
}

func copyMaterial(m models.MaterialStock) models.MaterialStock {
	m.UpdateHistory = slices.Clone(m.UpdateHistory)
	return m
}

func copyOrder(o models.Order) models.Order {
	o.DesignOrders = slices.Clone(o.DesignOrders)
	for i := range o.DesignOrders {
		o.DesignOrders[i].PriceTiers = slices.Clone(o.DesignOrders[i].PriceTiers)
		o.DesignOrders[i].Materials = slices.Clone(o.DesignOrders[i].Materials)
	}
	o.UpdateHistory = slices.Clone(o.UpdateHistory)
	return o
}

func copyEntry(e models.InventoryEntry) models.InventoryEntry {
	e.Items = slices.Clone(e.Items)
	e.UpdateHistory = slices.Clone(e.UpdateHistory)
	return e
}

func copyDesign(d models.Design) models.Design {
	d.Prices = slices.Clone(d.Prices)
	d.DefaultMaterials = slices.Clone(d.DefaultMaterials)
	d.UpdateHistory = slices.Clone(d.UpdateHistory)
	return d
}

type txn struct {
	st *state
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// --- materials ---

func (t *txn) LockMaterials(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.MaterialStock, error) {
	return t.GetMaterials(ctx, ids)
}

func (t *txn) GetMaterials(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.MaterialStock, error) {
	out := make(map[uuid.UUID]*models.MaterialStock, len(ids))
	for _, id := range ids {
		if m, ok := t.st.materials[id]; ok {
			c := copyMaterial(m)
			out[id] = &c
		}
	}
	return out, nil
}

func (t *txn) SaveMaterialQuantity(_ context.Context, m *models.MaterialStock) error {
	cur, ok := t.st.materials[m.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.Quantity = m.Quantity
	cur.UpdatedAt = time.Now()
	t.st.materials[m.ID] = cur
	return nil
}

func (t *txn) SaveMaterialHistory(_ context.Context, m *models.MaterialStock) error {
	cur, ok := t.st.materials[m.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.UpdateHistory = slices.Clone(m.UpdateHistory)
	cur.UpdatedAt = time.Now()
	t.st.materials[m.ID] = cur
	return nil
}

func (t *txn) CreateMaterial(_ context.Context, m *models.MaterialStock) error {
	if _, ok := t.st.materials[m.ID]; ok {
		return store.ErrDuplicate
	}
	for _, other := range t.st.materials {
		if other.Category == m.Category && other.Number == m.Number && other.InventoryType == m.InventoryType {
			return store.ErrDuplicate
		}
	}
	stamp(&m.CreatedAt, &m.UpdatedAt)
	t.st.materials[m.ID] = copyMaterial(*m)
	return nil
}

func (t *txn) ListMaterials(_ context.Context, f store.MaterialFilter) ([]models.MaterialStock, error) {
	out := make([]models.MaterialStock, 0, len(t.st.materials))
	for _, m := range t.st.materials {
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		if f.InventoryType != "" && m.InventoryType != f.InventoryType {
			continue
		}
		out = append(out, copyMaterial(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// --- orders ---

func (t *txn) CreateOrder(_ context.Context, o *models.Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return store.ErrDuplicate
	}
	stamp(&o.CreatedAt, &o.UpdatedAt)
	t.st.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *txn) GetOrder(_ context.Context, id uuid.UUID, _ bool) (*models.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := copyOrder(o)
	return &c, nil
}

func (t *txn) SaveOrder(_ context.Context, o *models.Order) error {
	if _, ok := t.st.orders[o.ID]; !ok {
		return store.ErrNotFound
	}
	o.UpdatedAt = time.Now()
	t.st.orders[o.ID] = copyOrder(*o)
	return nil
}

// --- inventory entries ---

func (t *txn) CreateEntry(_ context.Context, e *models.InventoryEntry) error {
	if _, ok := t.st.entries[e.ID]; ok {
		return store.ErrDuplicate
	}
	stamp(&e.CreatedAt, &e.UpdatedAt)
	t.st.entries[e.ID] = copyEntry(*e)
	return nil
}

func (t *txn) GetEntry(_ context.Context, id uuid.UUID, _ bool) (*models.InventoryEntry, error) {
	e, ok := t.st.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := copyEntry(e)
	return &c, nil
}

func (t *txn) SaveEntry(_ context.Context, e *models.InventoryEntry) error {
	if _, ok := t.st.entries[e.ID]; !ok {
		return store.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	t.st.entries[e.ID] = copyEntry(*e)
	return nil
}

// --- designs ---

func (t *txn) CreateDesign(_ context.Context, d *models.Design) error {
	for _, other := range t.st.designs {
		if other.ID == d.ID || other.Number == d.Number {
			return store.ErrDuplicate
		}
	}
	stamp(&d.CreatedAt, &d.UpdatedAt)
	t.st.designs[d.ID] = copyDesign(*d)
	return nil
}

func (t *txn) GetDesigns(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Design, error) {
	out := make(map[uuid.UUID]*models.Design, len(ids))
	for _, id := range ids {
		if d, ok := t.st.designs[id]; ok {
			c := copyDesign(d)
			out[id] = &c
		}
	}
	return out, nil
}

func (t *txn) GetDesign(_ context.Context, id uuid.UUID, _ bool) (*models.Design, error) {
	d, ok := t.st.designs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := copyDesign(d)
	return &c, nil
}

func (t *txn) SaveDesign(_ context.Context, d *models.Design) error {
	if _, ok := t.st.designs[d.ID]; !ok {
		return store.ErrNotFound
	}
	for _, other := range t.st.designs {
		if other.ID != d.ID && other.Number == d.Number {
			return store.ErrDuplicate
		}
	}
	d.UpdatedAt = time.Now()
	t.st.designs[d.ID] = copyDesign(*d)
	return nil
}

// --- suppliers ---

func (t *txn) CreateSupplier(_ context.Context, s *models.Supplier) error {
	for _, other := range t.st.suppliers {
		if other.ID == s.ID || other.Name == s.Name {
			return store.ErrDuplicate
		}
	}
	stamp(&s.CreatedAt, &s.UpdatedAt)
	t.st.suppliers[s.ID] = *s
	return nil
}

func (t *txn) GetSupplier(_ context.Context, id uuid.UUID) (*models.Supplier, error) {
	s, ok := t.st.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

// --- customers ---

func (t *txn) CreateCustomer(_ context.Context, c *models.Customer) error {
	for _, other := range t.st.customers {
		if other.ID == c.ID || other.Phone == c.Phone {
			return store.ErrDuplicate
		}
	}
	stamp(&c.CreatedAt, &c.UpdatedAt)
	v := *c
	v.UpdateHistory = slices.Clone(c.UpdateHistory)
	t.st.customers[c.ID] = v
	return nil
}

func (t *txn) GetCustomer(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.UpdateHistory = slices.Clone(c.UpdateHistory)
	return &c, nil
}

func (t *txn) GetCustomerByPhone(_ context.Context, phone string) (*models.Customer, error) {
	for _, c := range t.st.customers {
		if c.Phone == phone {
			c.UpdateHistory = slices.Clone(c.UpdateHistory)
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

// --- users ---

// LockRole is a no-op: transactions are already serialized.
func (t *txn) LockRole(context.Context, models.UserRole) error {
	return nil
}

func (t *txn) CreateUser(_ context.Context, u *models.User) error {
	for _, other := range t.st.users {
		if other.ID == u.ID || other.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	t.st.users[u.ID] = *u
	return nil
}

func (t *txn) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (t *txn) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range t.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *txn) CountUsersByRole(_ context.Context, role models.UserRole) (int64, error) {
	var n int64
	for _, u := range t.st.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// --- audit logs ---

func (t *txn) AppendAuditLog(_ context.Context, l *models.AuditLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	t.st.auditLogs = append(t.st.auditLogs, *l)
	return nil
}

func (t *txn) ListAuditLogs(_ context.Context, f store.AuditLogFilter) ([]models.AuditLog, error) {
	out := make([]models.AuditLog, 0)
	for i := len(t.st.auditLogs) - 1; i >= 0; i-- {
		l := t.st.auditLogs[i]
		if f.EntityType != "" && l.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != uuid.Nil && l.EntityID != f.EntityID {
			continue
		}
		if f.UserID != uuid.Nil && l.UserID != f.UserID {
			continue
		}
		out = append(out, l)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
