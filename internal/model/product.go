package model

import (
	"fmt"
	"time"
)

// Product represents a farmer's produce listing. Status is derived from
// quantity: Available iff quantity > 0. Every quantity mutation must
// recompute it in the same statement.
type Product struct {
	ID          int64     `json:"id"`
	FarmerID    int64     `json:"farmer_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	Unit        string    `json:"unit"`
	Organic     bool      `json:"organic"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`

	// Joined fields (not always populated).
	FarmerName  string `json:"farmer_name,omitempty"`
	FarmerEmail string `json:"farmer_email,omitempty"`
}

// Product statuses. The literals match what the frontend expects.
const (
	ProductStatusAvailable = "Available"
	ProductStatusSoldOut   = "Sold Out"
)

// ProductStatusFor returns the derived status for a quantity.
func ProductStatusFor(quantity float64) string {
	if quantity > 0 {
		return ProductStatusAvailable
	}
	return ProductStatusSoldOut
}

// ProductUpdate is a partial update: nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	Price       *float64 `json:"price"`
	Unit        *string  `json:"unit"`
	Organic     *bool    `json:"organic"`
	Category    *string  `json:"category"`
}

// Validate checks the supplied fields of a partial update.
func (u *ProductUpdate) Validate() error {
	if u.Name != nil {
		if err := ValidateProductName(*u.Name); err != nil {
			return err
		}
	}
	if u.Quantity != nil && *u.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	if u.Price != nil && *u.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return nil
}

// ValidateProductName checks listing name length.
func ValidateProductName(name string) error {
	if len(name) < 2 || len(name) > 100 {
		return fmt.Errorf("name must be 2-100 characters")
	}
	return nil
}
