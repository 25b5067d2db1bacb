package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sankethhn/Farmlink/internal/model"
)

// ProductFilter narrows ListProducts results. Nil pointer fields are
// not applied.
type ProductFilter struct {
	Category      string
	Organic       *bool
	MinPrice      *float64
	MaxPrice      *float64
	AvailableOnly bool
	FarmerID      int64
	Skip          int
	Limit         int
}

const productColumns = `p.id, p.farmer_id, p.name, p.description, p.quantity, p.price,
	        p.unit, p.organic, p.category, p.image_url, p.status, p.created_at,
	        u.full_name AS farmer_name, u.email AS farmer_email`

// CreateProduct creates a new listing. Status is derived from the
// initial quantity.
func CreateProduct(ctx context.Context, db *sql.DB, farmerID int64, name, description string,
	quantity, price float64, unit string, organic bool, category, imageURL string) (*model.Product, error) {

	if unit == "" {
		unit = "kg"
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO products (farmer_id, name, description, quantity, price, unit, organic, category, image_url, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		farmerID, name, nullable(description), quantity, price, unit, organic,
		nullable(category), nullable(imageURL), model.ProductStatusFor(quantity),
	)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product id: %w", err)
	}

	return GetProduct(ctx, db, id)
}

// GetProduct returns a product by ID with farmer details joined.
func GetProduct(ctx context.Context, db *sql.DB, id int64) (*model.Product, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+`
		 FROM products p JOIN users u ON u.id = p.farmer_id
		 WHERE p.id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	return &products[0], nil
}

// ListProducts returns products matching the filter, in insertion order.
func ListProducts(ctx context.Context, db *sql.DB, f ProductFilter) ([]model.Product, error) {
	query := `SELECT ` + productColumns + `
	          FROM products p JOIN users u ON u.id = p.farmer_id
	          WHERE 1=1`
	var args []any

	if f.AvailableOnly {
		query += ` AND p.status = ?`
		args = append(args, model.ProductStatusAvailable)
	}
	if f.Category != "" {
		query += ` AND p.category = ?`
		args = append(args, f.Category)
	}
	if f.Organic != nil {
		query += ` AND p.organic = ?`
		args = append(args, *f.Organic)
	}
	if f.MinPrice != nil {
		query += ` AND p.price >= ?`
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query += ` AND p.price <= ?`
		args = append(args, *f.MaxPrice)
	}
	if f.FarmerID > 0 {
		query += ` AND p.farmer_id = ?`
		args = append(args, f.FarmerID)
	}

	query += ` ORDER BY p.id`

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, f.Skip)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// UpdateProduct applies a partial update to a product owned by farmerID.
// Only non-nil fields change; a quantity change recomputes status in the
// same statement so the two can never diverge.
func UpdateProduct(ctx context.Context, db *sql.DB, id, farmerID int64, upd model.ProductUpdate) (*model.Product, error) {
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		var ownerID int64
		err := tx.QueryRowContext(ctx,
			`SELECT farmer_id FROM products WHERE id = ?`, id,
		).Scan(&ownerID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("loading product: %w", err)
		}
		if ownerID != farmerID {
			return fmt.Errorf("%w: can only update your own products", ErrForbidden)
		}

		query := `UPDATE products SET id = id`
		var args []any

		if upd.Name != nil {
			query += `, name = ?`
			args = append(args, *upd.Name)
		}
		if upd.Description != nil {
			query += `, description = ?`
			args = append(args, nullable(*upd.Description))
		}
		if upd.Quantity != nil {
			query += `, quantity = ?, status = ?`
			args = append(args, *upd.Quantity, model.ProductStatusFor(*upd.Quantity))
		}
		if upd.Price != nil {
			query += `, price = ?`
			args = append(args, *upd.Price)
		}
		if upd.Unit != nil {
			query += `, unit = ?`
			args = append(args, *upd.Unit)
		}
		if upd.Organic != nil {
			query += `, organic = ?`
			args = append(args, *upd.Organic)
		}
		if upd.Category != nil {
			query += `, category = ?`
			args = append(args, nullable(*upd.Category))
		}

		query += ` WHERE id = ?`
		args = append(args, id)

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("updating product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetProduct(ctx, db, id)
}

// SetProductImage stores the media URL for a product's image.
func SetProductImage(ctx context.Context, db *sql.DB, id, farmerID int64, imageURL string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products SET image_url = ? WHERE id = ? AND farmer_id = ?`,
		imageURL, id, farmerID,
	)
	if err != nil {
		return fmt.Errorf("setting product image: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return nil
}

// DeleteProduct removes a product owned by farmerID. Deletion is refused
// while any referencing order is still open (Pending, Confirmed, or
// Shipped) so those orders are not orphaned.
func DeleteProduct(ctx context.Context, db *sql.DB, id, farmerID int64) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		var ownerID int64
		err := tx.QueryRowContext(ctx,
			`SELECT farmer_id FROM products WHERE id = ?`, id,
		).Scan(&ownerID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("loading product: %w", err)
		}
		if ownerID != farmerID {
			return fmt.Errorf("%w: can only delete your own products", ErrForbidden)
		}

		var open int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM orders WHERE product_id = ? AND status IN (?, ?, ?)`,
			id, model.OrderStatusPending, model.OrderStatusConfirmed, model.OrderStatusShipped,
		).Scan(&open)
		if err != nil {
			return fmt.Errorf("checking open orders: %w", err)
		}
		if open > 0 {
			return fmt.Errorf("%w: %d open orders reference this product", ErrHasOpenOrders, open)
		}

		// Any remaining orders are settled (Delivered/Cancelled); they go
		// with the product to satisfy the foreign key.
		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE product_id = ?`, id); err != nil {
			return fmt.Errorf("deleting product orders: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting product: %w", err)
		}
		return nil
	})
}

func scanProducts(rows *sql.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		var p model.Product
		var description, category, imageURL sql.NullString
		if err := rows.Scan(&p.ID, &p.FarmerID, &p.Name, &description, &p.Quantity, &p.Price,
			&p.Unit, &p.Organic, &category, &imageURL, &p.Status, &p.CreatedAt,
			&p.FarmerName, &p.FarmerEmail); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		p.Description = description.String
		p.Category = category.String
		p.ImageURL = imageURL.String
		products = append(products, p)
	}
	return products, rows.Err()
}
