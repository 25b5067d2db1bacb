package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Sankethhn/Farmlink/internal/model"
	"github.com/Sankethhn/Farmlink/internal/store"
)

// OrdersHandler handles order endpoints.
type OrdersHandler struct {
	DB *sql.DB
}

type createOrderRequest struct {
	ProductID       int64   `json:"product_id"`
	Quantity        float64 `json:"quantity"`
	DeliveryAddress string  `json:"delivery_address"`
	DeliveryDate    string  `json:"delivery_date"`
	Notes           string  `json:"notes"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// Create handles POST /orders (business only).
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductID <= 0 || req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "product_id and a positive quantity required")
		return
	}
	if req.DeliveryAddress == "" {
		jsonError(w, http.StatusBadRequest, "delivery_address required")
		return
	}

	claims := GetClaims(r.Context())
	order, err := store.PlaceOrder(r.Context(), h.DB, claims.UserID, req.ProductID,
		req.Quantity, req.DeliveryAddress, req.DeliveryDate, req.Notes)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("order placed", "business", claims.Email,
		"product", order.ProductName, "quantity", order.Quantity, "total", order.TotalPrice)
	jsonResponse(w, http.StatusCreated, order)
}

// List handles GET /orders. Farmers see orders against their products,
// businesses see the orders they placed.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		storeError(w, err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !model.ValidOrderStatus(statusFilter) {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, err := store.ListOrdersForUser(r.Context(), h.DB, user, statusFilter, skip, limit)
	if err != nil {
		storeError(w, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	jsonResponse(w, http.StatusOK, orders)
}

// UpdateStatus handles PATCH /orders/{id}. The status value is checked
// against the enumeration before it reaches the store.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidOrderStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	actor, err := h.actor(r)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	order, err := store.UpdateOrderStatus(r.Context(), h.DB, id, actor, req.Status)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("order status updated", "actor", actor.Email, "order_id", id, "status", req.Status)
	jsonResponse(w, http.StatusOK, order)
}

// Delete handles DELETE /orders/{id}. Deleting a Pending or Confirmed
// order returns its quantity to the product.
func (h *OrdersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	actor, err := h.actor(r)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	if err := store.DeleteOrder(r.Context(), h.DB, id, actor); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("order deleted", "actor", actor.Email, "order_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

// actor loads the authenticated user behind the request's claims.
func (h *OrdersHandler) actor(r *http.Request) (*model.User, error) {
	claims := GetClaims(r.Context())
	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, sql.ErrNoRows
	}
	return user, nil
}
