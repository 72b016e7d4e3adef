package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/catalog"
	"designhouse-backend/internal/config"
	"designhouse-backend/internal/entries"
	"designhouse-backend/internal/inventory"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/orders"
	"designhouse-backend/internal/pricing"
	"designhouse-backend/internal/store/memstore"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const testSecret = "test-secret-test-secret-test-secret"

type harness struct {
	t   *testing.T
	app *fiber.App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{JWTSecret: testSecret, CORSOrigins: "*"}
	st := memstore.New()
	inv := inventory.NewService(st, nil)
	ldg := inv.Ledger()
	app := NewApp(Deps{
		Config:    cfg,
		Store:     st,
		Orders:    orders.NewService(orders.Deps{Store: st, Ledger: ldg, Pricing: pricing.New(pricing.DefaultPolicy())}),
		Entries:   entries.NewService(entries.Deps{Store: st, Ledger: ldg}),
		Inventory: inv,
		Catalog:   catalog.NewService(st),
	})
	return &harness{t: t, app: app}
}

func (h *harness) do(method, path, token string, body any) (int, map[string]any) {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	if err != nil {
		h.t.Fatal(err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (h *harness) adminToken() string {
	h.t.Helper()
	status, _ := h.do(http.MethodPost, "/api/auth/bootstrap-admin", "", map[string]any{
		"name": "Owner", "email": "owner@example.com", "password": "password123",
	})
	if status != fiber.StatusCreated {
		h.t.Fatalf("bootstrap admin: %d", status)
	}
	status, body := h.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "OWNER@example.com", "password": "password123",
	})
	if status != fiber.StatusOK {
		h.t.Fatalf("login: %d %v", status, body)
	}
	return body["token"].(string)
}

func employeeToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, &models.User{ID: uuid.New(), Email: "e@example.com", Role: models.RoleEmployee})
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin := h.adminToken()

	status, stone := h.do(http.MethodPost, "/api/materials", admin, map[string]any{
		"category": "stone", "name": "Kundan", "number": "K-1", "unit": "g",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create material: %d %v", status, stone)
	}
	stoneID := stone["id"].(string)

	status, entry := h.do(http.MethodPost, "/api/inventory-entries", employeeToken(t), map[string]any{
		"inventory_type": "stones",
		"status":         "approved",
		"items":          []map[string]any{{"category": "stone", "material_id": stoneID, "quantity": "100", "unit": "g"}},
	})
	if status != fiber.StatusCreated || entry["status"] != "pending" {
		t.Fatalf("create entry: %d %v", status, entry)
	}
	entryID := entry["id"].(string)

	if status, _ := h.do(http.MethodPost, "/api/inventory-entries/"+entryID+"/approve", employeeToken(t), nil); status != fiber.StatusForbidden {
		t.Fatalf("employee approve: %d", status)
	}
	if status, body := h.do(http.MethodPost, "/api/inventory-entries/"+entryID+"/approve", admin, nil); status != fiber.StatusOK {
		t.Fatalf("approve: %d %v", status, body)
	}
	if status, _ := h.do(http.MethodPost, "/api/inventory-entries/"+entryID+"/reject", admin, nil); status != fiber.StatusConflict {
		t.Fatalf("reject after approve: %d", status)
	}

	status, design := h.do(http.MethodPost, "/api/designs", admin, map[string]any{
		"name": "Peacock", "number": "D-7",
		"prices":            []map[string]any{{"min_quantity": 1, "unit_price": "100"}},
		"default_materials": []map[string]any{{"category": "stone", "material_id": stoneID, "quantity": "150", "unit": "g"}},
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create design: %d %v", status, design)
	}

	status, order := h.do(http.MethodPost, "/api/orders", employeeToken(t), map[string]any{
		"customer_name": "Asha", "phone": "99999",
		"design_orders":  []map[string]any{{"design_id": design["id"], "quantity": 1}},
		"discount_type":  "percentage",
		"discount_value": "10",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create order: %d %v", status, order)
	}
	if order["final_amount"] != "90" {
		t.Fatalf("final amount = %v", order["final_amount"])
	}
	orderID := order["id"].(string)

	// 100 g in stock, 150 g needed.
	status, body := h.do(http.MethodPost, "/api/orders/"+orderID+"/finalize", admin, map[string]any{"final_total_weight": 150})
	if status != fiber.StatusUnprocessableEntity || body["kind"] != "insufficient_stock" {
		t.Fatalf("finalize: %d %v", status, body)
	}

	status, got := h.do(http.MethodGet, "/api/orders/"+orderID, admin, nil)
	if status != fiber.StatusOK || got["is_finalized"] != false {
		t.Fatalf("order after failed finalize: %d %v", status, got)
	}

	status, report := h.do(http.MethodGet, "/api/inventory/stock", admin, nil)
	if status != fiber.StatusOK {
		t.Fatalf("stock: %d", status)
	}
	rows := report["rows"].([]any)
	if q := rows[0].(map[string]any)["quantity"]; q != "100" {
		t.Fatalf("stock quantity = %v", q)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t)
	admin := h.adminToken()

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"no token", http.MethodGet, "/api/orders/" + uuid.NewString(), "", nil, fiber.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/orders/" + uuid.NewString(), "nope", nil, fiber.StatusUnauthorized},
		{"missing order", http.MethodGet, "/api/orders/" + uuid.NewString(), admin, nil, fiber.StatusNotFound},
		{"bad id", http.MethodGet, "/api/orders/123", admin, nil, fiber.StatusBadRequest},
		{"missing weight", http.MethodPost, "/api/orders/" + uuid.NewString() + "/finalize", admin, map[string]any{}, fiber.StatusBadRequest},
		{"negative weight", http.MethodPost, "/api/orders/" + uuid.NewString() + "/finalize", admin, map[string]any{"final_total_weight": -5}, fiber.StatusBadRequest},
		{"audit logs need admin", http.MethodGet, "/api/audit-logs", employeeToken(t), nil, fiber.StatusForbidden},
		{"second admin", http.MethodPost, "/api/auth/bootstrap-admin", "", map[string]any{"name": "X", "email": "x@example.com", "password": "password123"}, fiber.StatusConflict},
		{"wrong password", http.MethodPost, "/api/auth/login", "", map[string]any{"email": "owner@example.com", "password": "wrong"}, fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := h.do(tc.method, tc.path, tc.token, tc.body)
			if status != tc.want {
				t.Fatalf("status = %d, want %d (%v)", status, tc.want, body)
			}
			if _, ok := body["error"]; !ok {
				t.Fatalf("missing error message: %v", body)
			}
		})
	}
}

func TestAuditLogsListed(t *testing.T) {
	h := newHarness(t)
	admin := h.adminToken()

	if status, _ := h.do(http.MethodPost, "/api/suppliers", admin, map[string]any{"name": "Gupta Traders"}); status != fiber.StatusCreated {
		t.Fatalf("create supplier: %d", status)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/audit-logs?entity_type=supplier", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := h.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var logs []models.AuditLog
	if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Action != models.AuditActionCreate {
		t.Fatalf("unexpected logs %+v", logs)
	}
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	admin := h.adminToken()
	status, body := h.do(http.MethodGet, "/api/auth/me", admin, nil)
	if status != fiber.StatusOK || body["email"] != "owner@example.com" || body["role"] != "admin" {
		t.Fatalf("me: %d %v", status, body)
	}
}

func TestAdjustMaterialQuantity(t *testing.T) {
	h := newHarness(t)
	admin := h.adminToken()

	status, stone := h.do(http.MethodPost, "/api/materials", admin, map[string]any{
		"category": "stone", "name": "Kundan", "number": "K-1", "unit": "g",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create material: %d %v", status, stone)
	}
	path := "/api/materials/" + stone["id"].(string) + "/quantity"

	cases := []struct {
		name     string
		token    string
		body     map[string]any
		want     int
		kind     string
		quantity string
	}{
		{"employee", employeeToken(t), map[string]any{"delta": "5", "reason": "recount"}, fiber.StatusForbidden, "", ""},
		{"credit in kg", admin, map[string]any{"delta": "0.25", "unit": "kg", "reason": "opening count"}, fiber.StatusOK, "", "250"},
		{"debit", admin, map[string]any{"delta": "-50", "reason": "damaged"}, fiber.StatusOK, "", "200"},
		{"below zero", admin, map[string]any{"delta": "-201", "reason": "recount"}, fiber.StatusUnprocessableEntity, "insufficient_stock", ""},
		{"no reason", admin, map[string]any{"delta": "1"}, fiber.StatusBadRequest, "", ""},
		{"no delta", admin, map[string]any{"reason": "recount"}, fiber.StatusBadRequest, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := h.do(http.MethodPatch, path, tc.token, tc.body)
			if status != tc.want {
				t.Fatalf("status = %d, want %d (%v)", status, tc.want, body)
			}
			if tc.kind != "" && body["kind"] != tc.kind {
				t.Fatalf("kind = %v, want %s", body["kind"], tc.kind)
			}
			if tc.quantity != "" && body["quantity"] != tc.quantity {
				t.Fatalf("quantity = %v, want %s", body["quantity"], tc.quantity)
			}
		})
	}

	if status, _ := h.do(http.MethodPatch, "/api/materials/"+uuid.NewString()+"/quantity", admin, map[string]any{"delta": "1", "reason": "x"}); status != fiber.StatusNotFound {
		t.Fatalf("missing material: %d", status)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/audit-logs?entity_type=material&entity_id="+stone["id"].(string), nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := h.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var logs []models.AuditLog
	if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
		t.Fatal(err)
	}
	adjusts := 0
	for _, l := range logs {
		if l.Action == models.AuditActionAdjust {
			adjusts++
		}
	}
	if adjusts != 2 {
		t.Fatalf("adjust audit logs = %d, want 2", adjusts)
	}
}

func TestCreateUserOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin := h.adminToken()
	user := map[string]any{"name": "Ravi", "email": "Ravi@example.com", "password": "password123", "role": "manager"}

	if status, _ := h.do(http.MethodPost, "/api/users", employeeToken(t), user); status != fiber.StatusForbidden {
		t.Fatalf("employee create user: %d", status)
	}
	status, body := h.do(http.MethodPost, "/api/users", admin, user)
	if status != fiber.StatusCreated || body["email"] != "ravi@example.com" || body["role"] != "manager" {
		t.Fatalf("create user: %d %v", status, body)
	}
	if status, _ := h.do(http.MethodPost, "/api/users", admin, user); status != fiber.StatusConflict {
		t.Fatalf("duplicate user: %d", status)
	}

	status, body = h.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ravi@example.com", "password": "password123"})
	if status != fiber.StatusOK {
		t.Fatalf("login as new user: %d %v", status, body)
	}
	status, me := h.do(http.MethodGet, "/api/auth/me", body["token"].(string), nil)
	if status != fiber.StatusOK || me["role"] != "manager" {
		t.Fatalf("me: %d %v", status, me)
	}
}

func TestFindOrCreateCustomerOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin := h.adminToken()
	tok := employeeToken(t)

	status, first := h.do(http.MethodPost, "/api/customers/find-or-create", tok, map[string]any{"name": "Asha", "phone": "99999"})
	if status != fiber.StatusCreated {
		t.Fatalf("first call: %d %v", status, first)
	}
	status, second := h.do(http.MethodPost, "/api/customers/find-or-create", tok, map[string]any{"phone": "99999"})
	if status != fiber.StatusOK || second["id"] != first["id"] {
		t.Fatalf("second call: %d %v", status, second)
	}

	status, got := h.do(http.MethodGet, "/api/customers/"+first["id"].(string), admin, nil)
	if status != fiber.StatusOK || got["name"] != "Asha" {
		t.Fatalf("get customer: %d %v", status, got)
	}
	if status, _ := h.do(http.MethodPost, "/api/customers", tok, map[string]any{"name": "Other", "phone": "99999"}); status != fiber.StatusConflict {
		t.Fatalf("duplicate phone: %d", status)
	}
}
