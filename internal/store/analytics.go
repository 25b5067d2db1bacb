package store

import (
	"context"
	"database/sql"
	"fmt"
)

// StatusCount is one row of the dashboard's per-status breakdown.
type StatusCount struct {
	Status string  `json:"status"`
	Count  int64   `json:"count"`
	Total  float64 `json:"total"`
}

// Dashboard aggregates a farmer's sales figures. Computed fresh on every
// call; there is no caching layer.
type Dashboard struct {
	TotalProducts   int64         `json:"total_products"`
	TotalOrders     int64         `json:"total_orders"`
	TotalSales      float64       `json:"total_sales"`
	StatusBreakdown []StatusCount `json:"status_breakdown"`
}

// GetDashboard returns sales analytics for one farmer: product count,
// order count and revenue over orders referencing the farmer's products,
// and a per-status breakdown of those orders.
func GetDashboard(ctx context.Context, db *sql.DB, farmerID int64) (*Dashboard, error) {
	d := &Dashboard{StatusBreakdown: []StatusCount{}}

	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE farmer_id = ?`, farmerID,
	).Scan(&d.TotalProducts)
	if err != nil {
		return nil, fmt.Errorf("counting products: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(o.total_price), 0)
		 FROM orders o JOIN products p ON p.id = o.product_id
		 WHERE p.farmer_id = ?`, farmerID,
	).Scan(&d.TotalOrders, &d.TotalSales)
	if err != nil {
		return nil, fmt.Errorf("summing orders: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT o.status, COUNT(*), COALESCE(SUM(o.total_price), 0)
		 FROM orders o JOIN products p ON p.id = o.product_id
		 WHERE p.farmer_id = ?
		 GROUP BY o.status
		 ORDER BY o.status`, farmerID,
	)
	if err != nil {
		return nil, fmt.Errorf("grouping orders by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.Total); err != nil {
			return nil, fmt.Errorf("scanning status breakdown: %w", err)
		}
		d.StatusBreakdown = append(d.StatusBreakdown, sc)
	}
	return d, rows.Err()
}
