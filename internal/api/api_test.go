package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sankethhn/Farmlink/internal/db"
	"github.com/Sankethhn/Farmlink/internal/model"
	"github.com/Sankethhn/Farmlink/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(Config{
		DB:        database,
		JWTSecret: testJWTSecret,
		MediaDir:  t.TempDir(),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// registerAndLogin creates an account through the API and returns its token.
func registerAndLogin(t *testing.T, server *httptest.Server, email, role string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"email":     email,
		"password":  "password123",
		"full_name": "Test " + role,
		"role":      role,
	})
	resp, err := http.Post(server.URL+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: %d", resp.StatusCode)
	}

	body, _ = json.Marshal(map[string]string{
		"email":    email,
		"password": "password123",
		"role":     role,
	})
	resp, err = http.Post(server.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		AccessToken string `json:"access_token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.AccessToken == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.AccessToken
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func createProduct(t *testing.T, server *httptest.Server, token string, quantity, price float64) model.Product {
	t.Helper()
	resp := doJSON(t, "POST", server.URL+"/products", token, map[string]any{
		"name":     "Organic Apples",
		"quantity": quantity,
		"price":    price,
		"unit":     "kg",
		"organic":  true,
		"category": "Fruits",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d", resp.StatusCode)
	}
	return decodeBody[model.Product](t, resp)
}

func TestLoginFailures(t *testing.T) {
	server := setupTestServer(t)
	registerAndLogin(t, server, "farmer@example.com", model.RoleFarmer)

	// Wrong password.
	body, _ := json.Marshal(map[string]string{
		"email": "farmer@example.com", "password": "wrong", "role": model.RoleFarmer,
	})
	resp, _ := http.Post(server.URL+"/auth/login", "application/json", bytes.NewReader(body))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}

	// Right password, wrong role.
	body, _ = json.Marshal(map[string]string{
		"email": "farmer@example.com", "password": "password123", "role": model.RoleBusiness,
	})
	resp, _ = http.Post(server.URL+"/auth/login", "application/json", bytes.NewReader(body))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong role, got %d", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	server := setupTestServer(t)

	cases := []map[string]string{
		{"email": "bad", "password": "password123", "full_name": "Valid Name", "role": "farmer"},
		{"email": "ok@example.com", "password": "short", "full_name": "Valid Name", "role": "farmer"},
		{"email": "ok@example.com", "password": "password123", "full_name": "x", "role": "farmer"},
		{"email": "ok@example.com", "password": "password123", "full_name": "Valid Name", "role": "admin"},
	}
	for i, c := range cases {
		body, _ := json.Marshal(c)
		resp, _ := http.Post(server.URL+"/auth/register", "application/json", bytes.NewReader(body))
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("case %d: expected 400, got %d", i, resp.StatusCode)
		}
	}

	// Duplicate email.
	registerAndLogin(t, server, "taken@example.com", model.RoleFarmer)
	body, _ := json.Marshal(map[string]string{
		"email": "taken@example.com", "password": "password123", "full_name": "Valid Name", "role": "business",
	})
	resp, _ := http.Post(server.URL+"/auth/register", "application/json", bytes.NewReader(body))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate email, got %d", resp.StatusCode)
	}
}

func TestMeEndpoint(t *testing.T) {
	server := setupTestServer(t)
	token := registerAndLogin(t, server, "farmer@example.com", model.RoleFarmer)

	resp := doJSON(t, "GET", server.URL+"/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	user := decodeBody[model.User](t, resp)
	if user.Email != "farmer@example.com" {
		t.Errorf("expected own profile, got %q", user.Email)
	}

	// Anonymous is rejected.
	resp = doJSON(t, "GET", server.URL+"/auth/me", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	// A garbage token is rejected, not treated as anonymous.
	resp = doJSON(t, "GET", server.URL+"/products", "garbage", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for malformed token, got %d", resp.StatusCode)
	}
}

func TestAnonymousBrowsing(t *testing.T) {
	server := setupTestServer(t)
	token := registerAndLogin(t, server, "farmer@example.com", model.RoleFarmer)
	product := createProduct(t, server, token, 100, 2.5)

	// No token at all: browsing works.
	resp, err := http.Get(server.URL + "/products")
	if err != nil {
		t.Fatalf("GET /products: %v", err)
	}
	products := decodeBody[[]model.Product](t, resp)
	if len(products) != 1 {
		t.Errorf("expected 1 product, got %d", len(products))
	}

	resp, _ = http.Get(fmt.Sprintf("%s/products/%d", server.URL, product.ID))
	got := decodeBody[model.Product](t, resp)
	if got.ID != product.ID {
		t.Errorf("expected product %d, got %d", product.ID, got.ID)
	}
}

func TestProductRoleEnforcement(t *testing.T) {
	server := setupTestServer(t)
	bizToken := registerAndLogin(t, server, "biz@example.com", model.RoleBusiness)

	resp := doJSON(t, "POST", server.URL+"/products", bizToken, map[string]any{
		"name": "Sneaky Produce", "quantity": 10.0, "price": 1.0,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for business creating a product, got %d", resp.StatusCode)
	}
}

func TestOrderRoleEnforcement(t *testing.T) {
	server := setupTestServer(t)
	farmerToken := registerAndLogin(t, server, "farmer@example.com", model.RoleFarmer)
	product := createProduct(t, server, farmerToken, 100, 2.5)

	resp := doJSON(t, "POST", server.URL+"/orders", farmerToken, map[string]any{
		"product_id": product.ID, "quantity": 1.0, "delivery_address": "addr",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for farmer placing an order, got %d", resp.StatusCode)
	}
}

func TestProductUpdateOwnership(t *testing.T) {
	server := setupTestServer(t)
	ownerToken := registerAndLogin(t, server, "owner@example.com", model.RoleFarmer)
	otherToken := registerAndLogin(t, server, "other@example.com", model.RoleFarmer)
	product := createProduct(t, server, ownerToken, 100, 2.5)

	url := fmt.Sprintf("%s/products/%d", server.URL, product.ID)

	resp := doJSON(t, "PUT", url, otherToken, map[string]any{"price": 9.0})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign farmer, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "PUT", url, ownerToken, map[string]any{"price": 9.0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", resp.StatusCode)
	}
	updated := decodeBody[model.Product](t, resp)
	if updated.Price != 9.0 {
		t.Errorf("expected price 9.0, got %g", updated.Price)
	}
}

// TestMarketplaceFlow runs the end-to-end scenario: a farmer lists 500 kg
// at 2.5, a business orders 100 then 400, a third order fails, and
// deleting the second order revives the listing.
func TestMarketplaceFlow(t *testing.T) {
	server := setupTestServer(t)
	farmerToken := registerAndLogin(t, server, "farmer@example.com", model.RoleFarmer)
	bizToken := registerAndLogin(t, server, "biz@example.com", model.RoleBusiness)

	product := createProduct(t, server, farmerToken, 500, 2.5)

	// First order: 100 kg -> total 250, stock 400.
	resp := doJSON(t, "POST", server.URL+"/orders", bizToken, map[string]any{
		"product_id": product.ID, "quantity": 100.0, "delivery_address": "456 Market St",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first order: expected 201, got %d", resp.StatusCode)
	}
	first := decodeBody[model.Order](t, resp)
	if first.TotalPrice != 250.0 {
		t.Errorf("expected total 250.0, got %g", first.TotalPrice)
	}

	resp, _ = http.Get(fmt.Sprintf("%s/products/%d", server.URL, product.ID))
	p := decodeBody[model.Product](t, resp)
	if p.Quantity != 400 || p.Status != model.ProductStatusAvailable {
		t.Errorf("expected 400 Available, got %g %q", p.Quantity, p.Status)
	}

	// Second order drains the stock.
	resp = doJSON(t, "POST", server.URL+"/orders", bizToken, map[string]any{
		"product_id": product.ID, "quantity": 400.0, "delivery_address": "456 Market St",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("second order: expected 201, got %d", resp.StatusCode)
	}
	second := decodeBody[model.Order](t, resp)

	resp, _ = http.Get(fmt.Sprintf("%s/products/%d", server.URL, product.ID))
	p = decodeBody[model.Product](t, resp)
	if p.Quantity != 0 || p.Status != model.ProductStatusSoldOut {
		t.Errorf("expected 0 'Sold Out', got %g %q", p.Quantity, p.Status)
	}

	// A third order fails with no side effects.
	resp = doJSON(t, "POST", server.URL+"/orders", bizToken, map[string]any{
		"product_id": product.ID, "quantity": 1.0, "delivery_address": "456 Market St",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for exhausted stock, got %d", resp.StatusCode)
	}

	// Both parties see the orders.
	resp = doJSON(t, "GET", server.URL+"/orders", farmerToken, nil)
	farmerOrders := decodeBody[[]model.Order](t, resp)
	if len(farmerOrders) != 2 {
		t.Errorf("expected farmer to see 2 orders, got %d", len(farmerOrders))
	}

	// Business cancels (deletes) the Pending 400 kg order: stock returns.
	resp = doJSON(t, "DELETE", fmt.Sprintf("%s/orders/%d", server.URL, second.ID), bizToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete order: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(fmt.Sprintf("%s/products/%d", server.URL, product.ID))
	p = decodeBody[model.Product](t, resp)
	if p.Quantity != 400 || p.Status != model.ProductStatusAvailable {
		t.Errorf("expected stock restored to 400 Available, got %g %q", p.Quantity, p.Status)
	}
}

func TestOrderStatusLifecycle(t *testing.T) {
	server := setupTestServer(t)
	farmerToken := registerAndLogin(t, server, "farmer@example.com", model.RoleFarmer)
	bizToken := registerAndLogin(t, server, "biz@example.com", model.RoleBusiness)

	product := createProduct(t, server, farmerToken, 100, 2.5)
	resp := doJSON(t, "POST", server.URL+"/orders", bizToken, map[string]any{
		"product_id": product.ID, "quantity": 10.0, "delivery_address": "addr",
	})
	order := decodeBody[model.Order](t, resp)

	url := fmt.Sprintf("%s/orders/%d", server.URL, order.ID)

	// Farmer confirms.
	resp = doJSON(t, "PATCH", url, farmerToken, map[string]string{"status": "Confirmed"})
	updated := decodeBody[model.Order](t, resp)
	if updated.Status != model.OrderStatusConfirmed {
		t.Errorf("expected Confirmed, got %q", updated.Status)
	}

	// Unknown status is rejected at the boundary.
	resp = doJSON(t, "PATCH", url, farmerToken, map[string]string{"status": "Teleported"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", resp.StatusCode)
	}

	// Business cancels; the order is then frozen.
	resp = doJSON(t, "PATCH", url, bizToken, map[string]string{"status": "Cancelled"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "PATCH", url, bizToken, map[string]string{"status": "Pending"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for updating a cancelled order, got %d", resp.StatusCode)
	}
}

func TestDeleteProductWithOpenOrdersRejected(t *testing.T) {
	server := setupTestServer(t)
	farmerToken := registerAndLogin(t, server, "farmer@example.com", model.RoleFarmer)
	bizToken := registerAndLogin(t, server, "biz@example.com", model.RoleBusiness)

	product := createProduct(t, server, farmerToken, 100, 2.5)
	resp := doJSON(t, "POST", server.URL+"/orders", bizToken, map[string]any{
		"product_id": product.ID, "quantity": 10.0, "delivery_address": "addr",
	})
	resp.Body.Close()

	resp = doJSON(t, "DELETE", fmt.Sprintf("%s/products/%d", server.URL, product.ID), farmerToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for deleting a product with open orders, got %d", resp.StatusCode)
	}
}

func TestAnalyticsDashboard(t *testing.T) {
	server := setupTestServer(t)
	farmerToken := registerAndLogin(t, server, "farmer@example.com", model.RoleFarmer)
	bizToken := registerAndLogin(t, server, "biz@example.com", model.RoleBusiness)

	product := createProduct(t, server, farmerToken, 500, 2.5)
	resp := doJSON(t, "POST", server.URL+"/orders", bizToken, map[string]any{
		"product_id": product.ID, "quantity": 100.0, "delivery_address": "addr",
	})
	resp.Body.Close()

	resp = doJSON(t, "GET", server.URL+"/analytics/dashboard", farmerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	dashboard := decodeBody[store.Dashboard](t, resp)
	if dashboard.TotalProducts != 1 || dashboard.TotalOrders != 1 || dashboard.TotalSales != 250.0 {
		t.Errorf("unexpected dashboard: %+v", dashboard)
	}

	// Businesses have no dashboard.
	resp = doJSON(t, "GET", server.URL+"/analytics/dashboard", bizToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for business, got %d", resp.StatusCode)
	}
}

func TestHealthAndRoot(t *testing.T) {
	server := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/health")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(server.URL + "/")
	banner := decodeBody[map[string]string](t, resp)
	if banner["message"] == "" {
		t.Error("expected a service banner at /")
	}
}
