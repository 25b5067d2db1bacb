package store

import (
	"context"
	"testing"

	"github.com/Sankethhn/Farmlink/internal/db"
	"github.com/Sankethhn/Farmlink/internal/model"
)

func TestDashboardEmpty(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	farmer := createTestFarmer(t, database)

	d, err := GetDashboard(ctx, database, farmer.ID)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	if d.TotalProducts != 0 || d.TotalOrders != 0 || d.TotalSales != 0 {
		t.Errorf("expected empty dashboard, got %+v", d)
	}
	if d.StatusBreakdown == nil || len(d.StatusBreakdown) != 0 {
		t.Errorf("expected empty (non-nil) breakdown, got %+v", d.StatusBreakdown)
	}
}

func TestDashboardAggregates(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	farmer := createTestFarmer(t, database)
	business := createTestBusiness(t, database)

	apples := createTestProduct(t, database, farmer.ID, 500, 2.5)
	wheat, _ := CreateProduct(ctx, database, farmer.ID, "Wheat", "", 1000, 0.8, "kg", true, "Grains", "")

	first, _ := PlaceOrder(ctx, database, business.ID, apples.ID, 100, "addr", "", "")  // 250.0
	PlaceOrder(ctx, database, business.ID, wheat.ID, 200, "addr", "", "")              // 160.0
	PlaceOrder(ctx, database, business.ID, apples.ID, 40, "addr", "", "")              // 100.0

	UpdateOrderStatus(ctx, database, first.ID, farmer, model.OrderStatusDelivered)

	d, err := GetDashboard(ctx, database, farmer.ID)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}

	if d.TotalProducts != 2 {
		t.Errorf("expected 2 products, got %d", d.TotalProducts)
	}
	if d.TotalOrders != 3 {
		t.Errorf("expected 3 orders, got %d", d.TotalOrders)
	}
	if d.TotalSales != 510.0 {
		t.Errorf("expected total sales 510.0, got %g", d.TotalSales)
	}

	byStatus := map[string]StatusCount{}
	for _, sc := range d.StatusBreakdown {
		byStatus[sc.Status] = sc
	}
	if sc := byStatus[model.OrderStatusPending]; sc.Count != 2 || sc.Total != 260.0 {
		t.Errorf("expected 2 pending totalling 260.0, got %+v", sc)
	}
	if sc := byStatus[model.OrderStatusDelivered]; sc.Count != 1 || sc.Total != 250.0 {
		t.Errorf("expected 1 delivered totalling 250.0, got %+v", sc)
	}
}

func TestDashboardScopedToFarmer(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	farmer := createTestFarmer(t, database)
	other, _ := CreateUser(ctx, database, "other@farm.example", "hash", "Other Farmer", model.RoleFarmer, "", "")
	business := createTestBusiness(t, database)

	mine := createTestProduct(t, database, farmer.ID, 100, 2.5)
	theirs, _ := CreateProduct(ctx, database, other.ID, "Their Corn", "", 100, 1.0, "kg", false, "", "")

	PlaceOrder(ctx, database, business.ID, mine.ID, 10, "addr", "", "")
	PlaceOrder(ctx, database, business.ID, theirs.ID, 10, "addr", "", "")

	d, _ := GetDashboard(ctx, database, farmer.ID)
	if d.TotalProducts != 1 || d.TotalOrders != 1 || d.TotalSales != 25.0 {
		t.Errorf("expected only own sales counted, got %+v", d)
	}
}
