package model

import "time"

// Order represents a business's purchase claim against a product. The
// total price is frozen at placement time and never recomputed.
type Order struct {
	ID              int64     `json:"id"`
	ProductID       int64     `json:"product_id"`
	BusinessID      int64     `json:"business_id"`
	Quantity        float64   `json:"quantity"`
	TotalPrice      float64   `json:"total_price"`
	Status          string    `json:"status"`
	DeliveryAddress string    `json:"delivery_address"`
	DeliveryDate    string    `json:"delivery_date,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ProductName  string `json:"product_name,omitempty"`
	ProductUnit  string `json:"product_unit,omitempty"`
	FarmerName   string `json:"farmer_name,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
}

// Order statuses. Cancelled is terminal; quantity is only restored when a
// Pending or Confirmed order is deleted.
const (
	OrderStatusPending   = "Pending"
	OrderStatusConfirmed = "Confirmed"
	OrderStatusShipped   = "Shipped"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderRestoresStock reports whether deleting an order in this status
// returns its quantity to the product.
func OrderRestoresStock(status string) bool {
	return status == OrderStatusPending || status == OrderStatusConfirmed
}
