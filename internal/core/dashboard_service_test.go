package core_test

import (
	"context"
	"testing"
	"time"

	"procurement-flow/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	issued := func(supplierID int, at time.Time, total string) core.PurchaseOrder {
		return core.PurchaseOrder{SupplierID: supplierID, Status: core.StatusIssued, IssueDate: &at, Total: dec(total)}
	}
	orders := []core.PurchaseOrder{
		{Status: core.StatusDraft},
		issued(1, fixedNow.AddDate(0, 0, -3), "100"),
		issued(2, fixedNow.AddDate(0, 0, -20), "300"),
		issued(3, fixedNow.AddDate(0, 0, -40), "900"),
		issued(4, fixedNow.AddDate(0, 0, -1), "50"),
		issued(5, fixedNow.AddDate(0, 0, -2), "60"),
		{Status: core.StatusReceiving, ExpectedDate: date(2027, 10, 14)},
		{Status: core.StatusIssued, ExpectedDate: date(2027, 10, 15)},
		{Status: core.StatusIssued, ExpectedDate: date(2027, 10, 22)},
		{Status: core.StatusIssued, ExpectedDate: date(2027, 10, 23)},
		{Status: core.StatusClosed, ExpectedDate: date(2027, 10, 1)},
		{Status: core.StatusCanceled},
	}
	materials := []core.Material{
		{ID: 1, SKU: "A", CurrentStock: dec("4"), SafetyStock: dec("10")},
		{ID: 2, SKU: "B", CurrentStock: dec("8"), SafetyStock: dec("10")},
		{ID: 3, SKU: "C", CurrentStock: dec("20"), SafetyStock: dec("10")},
		{ID: 4, SKU: "D", ManageByLot: true, CurrentStock: dec("99"), SafetyStock: dec("10")},
		{ID: 5, SKU: "E", CurrentStock: dec("0")},
	}
	lots := []core.MaterialLot{
		{MaterialID: 4, QtyOnHand: dec("1")},
		{MaterialID: 4, QtyOnHand: dec("2")},
	}
	suppliers := []core.Supplier{{ID: 1, Name: "One"}, {ID: 2, Name: "Two"}, {ID: 5, Name: "Five"}}

	got := core.Summarize(fixedNow, orders, materials, lots, suppliers)

	assert.Equal(t, 10, got.OpenPOCount)
	assert.Equal(t, 1, got.OverduePOCount)
	assert.Equal(t, 2, got.UpcomingPOCount7d, "today through seven days ahead")
	assert.True(t, got.ThisMonthTotal.Equal(dec("210")), got.ThisMonthTotal.String())

	require.Len(t, got.LowStocks, 3)
	assert.Equal(t, "D", got.LowStocks[0].SKU, "lot-managed stock comes from lots")
	assert.True(t, got.LowStocks[0].Stock.Equal(dec("3")))
	assert.Equal(t, "A", got.LowStocks[1].SKU)
	assert.Equal(t, 2, got.LowStockCritical)

	require.Len(t, got.TopSuppliers, 3)
	assert.Equal(t, "Two", got.TopSuppliers[0].Name)
	assert.Equal(t, "One", got.TopSuppliers[1].Name)
	assert.Equal(t, "Five", got.TopSuppliers[2].Name)
}

type memoryDashboardCache struct {
	value *core.DashboardSummary
	sets  int
}

func (c *memoryDashboardCache) Get(context.Context) (*core.DashboardSummary, bool) {
	return c.value, c.value != nil
}

func (c *memoryDashboardCache) Set(_ context.Context, s *core.DashboardSummary) {
	c.value = s
	c.sets++
}

func TestDashboardService_UsesCache(t *testing.T) {
	f := newFixture(t)
	sup := f.supplier()
	f.issuedOrder(sup.ID, nil, "2")

	cache := &memoryDashboardCache{}
	svc := core.NewDashboardService(f.store, cache, nil, func() time.Time { return fixedNow })

	first, err := svc.Summary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.OpenPOCount)
	assert.True(t, first.ThisMonthTotal.Equal(dec("220")))

	f.issuedOrder(sup.ID, nil, "1")
	second, err := svc.Summary(f.ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.sets)
}
