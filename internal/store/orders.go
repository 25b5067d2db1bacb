package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sankethhn/Farmlink/internal/model"
)

const orderColumns = `o.id, o.product_id, o.business_id, o.quantity, o.total_price, o.status,
	        o.delivery_address, o.delivery_date, o.notes, o.created_at,
	        p.name AS product_name, p.unit AS product_unit,
	        f.full_name AS farmer_name, b.full_name AS business_name`

const orderJoins = ` FROM orders o
	 JOIN products p ON p.id = o.product_id
	 JOIN users f ON f.id = p.farmer_id
	 JOIN users b ON b.id = o.business_id`

// PlaceOrder creates an order against a product, deducting the ordered
// quantity in the same transaction. The total price is a snapshot of the
// product price at placement time. The decrement is guarded by a
// quantity check in the UPDATE itself, so two concurrent placements can
// never deduct past zero even if both passed the earlier read.
func PlaceOrder(ctx context.Context, db *sql.DB, businessID, productID int64,
	quantity float64, deliveryAddress, deliveryDate, notes string) (*model.Order, error) {

	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	var orderID int64
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		var available, price float64
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT quantity, price, status FROM products WHERE id = ?`, productID,
		).Scan(&available, &price, &status)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		if err != nil {
			return fmt.Errorf("loading product: %w", err)
		}

		if quantity > available {
			return fmt.Errorf("%w: have %g, need %g", ErrInsufficientQuantity, available, quantity)
		}
		if status != model.ProductStatusAvailable {
			return fmt.Errorf("%w: status %q", ErrNotAvailable, status)
		}

		total := price * quantity

		// Guarded decrement: re-checks quantity so no interleaving can
		// overdraw, and recomputes status alongside it.
		result, err := tx.ExecContext(ctx,
			`UPDATE products
			 SET quantity = quantity - ?,
			     status = CASE WHEN quantity - ? > 0 THEN ? ELSE ? END
			 WHERE id = ? AND quantity >= ?`,
			quantity, quantity, model.ProductStatusAvailable, model.ProductStatusSoldOut,
			productID, quantity,
		)
		if err != nil {
			return fmt.Errorf("deducting quantity: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: concurrent order took the stock", ErrInsufficientQuantity)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO orders (product_id, business_id, quantity, total_price, delivery_address, delivery_date, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			productID, businessID, quantity, total, deliveryAddress,
			nullable(deliveryDate), nullable(notes),
		)
		if err != nil {
			return fmt.Errorf("recording order: %w", err)
		}

		orderID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting order id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, orderID)
}

// GetOrder returns an order by ID with product and party names joined.
func GetOrder(ctx context.Context, db *sql.DB, id int64) (*model.Order, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+orderColumns+orderJoins+` WHERE o.id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

// ListOrdersForUser returns the orders visible to a user: businesses see
// orders they placed, farmers see orders against their products.
func ListOrdersForUser(ctx context.Context, db *sql.DB, user *model.User, statusFilter string, skip, limit int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + orderJoins
	var args []any

	if user.Role == model.RoleFarmer {
		query += ` WHERE p.farmer_id = ?`
	} else {
		query += ` WHERE o.business_id = ?`
	}
	args = append(args, user.ID)

	if statusFilter != "" {
		query += ` AND o.status = ?`
		args = append(args, statusFilter)
	}

	query += ` ORDER BY o.id`

	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// UpdateOrderStatus sets an order's status. The actor must be the farmer
// owning the referenced product or the business that placed the order.
// Cancelled is terminal; any other transition is accepted, including
// backwards ones.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, id int64, actor *model.User, newStatus string) (*model.Order, error) {
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		var businessID, farmerID int64
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT o.business_id, p.farmer_id, o.status
			 FROM orders o JOIN products p ON p.id = o.product_id
			 WHERE o.id = ?`, id,
		).Scan(&businessID, &farmerID, &current)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("loading order: %w", err)
		}

		if err := authorizeOrderActor(actor, farmerID, businessID); err != nil {
			return err
		}

		if current == model.OrderStatusCancelled {
			return fmt.Errorf("%w: cannot update a cancelled order", ErrAlreadyCancelled)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = ? WHERE id = ?`, newStatus, id,
		); err != nil {
			return fmt.Errorf("updating order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetOrder(ctx, db, id)
}

// DeleteOrder removes an order. If the order is still Pending or
// Confirmed its quantity is returned to the product, flipping the product
// back to Available when stock becomes positive again. Restoration and
// deletion commit together or not at all.
func DeleteOrder(ctx context.Context, db *sql.DB, id int64, actor *model.User) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		var productID, businessID, farmerID int64
		var quantity float64
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT o.product_id, o.business_id, p.farmer_id, o.quantity, o.status
			 FROM orders o JOIN products p ON p.id = o.product_id
			 WHERE o.id = ?`, id,
		).Scan(&productID, &businessID, &farmerID, &quantity, &status)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("loading order: %w", err)
		}

		if err := authorizeOrderActor(actor, farmerID, businessID); err != nil {
			return err
		}

		if model.OrderRestoresStock(status) {
			if _, err := tx.ExecContext(ctx,
				`UPDATE products
				 SET quantity = quantity + ?,
				     status = CASE WHEN quantity + ? > 0 THEN ? ELSE ? END
				 WHERE id = ?`,
				quantity, quantity, model.ProductStatusAvailable, model.ProductStatusSoldOut,
				productID,
			); err != nil {
				return fmt.Errorf("restoring product quantity: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting order: %w", err)
		}
		return nil
	})
}

// authorizeOrderActor allows the owning farmer or the ordering business.
func authorizeOrderActor(actor *model.User, farmerID, businessID int64) error {
	if actor.Role == model.RoleFarmer && actor.ID == farmerID {
		return nil
	}
	if actor.Role == model.RoleBusiness && actor.ID == businessID {
		return nil
	}
	return fmt.Errorf("%w: not your order", ErrForbidden)
}

func scanOrders(rows *sql.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var deliveryDate, notes sql.NullString
		if err := rows.Scan(&o.ID, &o.ProductID, &o.BusinessID, &o.Quantity, &o.TotalPrice, &o.Status,
			&o.DeliveryAddress, &deliveryDate, &notes, &o.CreatedAt,
			&o.ProductName, &o.ProductUnit, &o.FarmerName, &o.BusinessName); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		o.DeliveryDate = deliveryDate.String
		o.Notes = notes.String
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
