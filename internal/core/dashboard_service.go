package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DashboardSummary is the procurement overview.
type DashboardSummary struct {
	OpenPOCount       int             `json:"open_po_count"`
	ThisMonthTotal    decimal.Decimal `json:"this_month_total"`
	OverduePOCount    int             `json:"overdue_po_count"`
	UpcomingPOCount7d int             `json:"upcoming_po_count_7d"`
	LowStocks         []LowStock      `json:"low_stocks"`
	LowStockCritical  int             `json:"low_stock_critical_count"`
	TopSuppliers      []SupplierSpend `json:"top_suppliers"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// LowStock is a material whose stock is below its safety stock.
type LowStock struct {
	MaterialID  int             `json:"material_id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Stock       decimal.Decimal `json:"stock"`
	SafetyStock decimal.Decimal `json:"safety_stock"`
}

// SupplierSpend is the issued order total of a supplier over the last 30 days.
type SupplierSpend struct {
	SupplierID int             `json:"supplier_id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
}

// DashboardCache stores computed summaries. Implementations decide expiry.
type DashboardCache interface {
	Get(ctx context.Context) (*DashboardSummary, bool)
	Set(ctx context.Context, s *DashboardSummary)
}

const (
	lowStockLimit    = 10
	topSupplierLimit = 3
)

// DashboardService computes the overview, optionally through a cache.
type DashboardService struct {
	store  Store
	cache  DashboardCache
	logger *zap.Logger
	now    func() time.Time
}

func NewDashboardService(store Store, cache DashboardCache, logger *zap.Logger, clock func() time.Time) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &DashboardService{store: store, cache: cache, logger: logger, now: clock}
}

func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx); ok {
			return cached, nil
		}
	}
	var (
		orders    []PurchaseOrder
		materials []Material
		lots      []MaterialLot
		suppliers []Supplier
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if orders, err = tx.ListPurchaseOrders(ctx, PurchaseOrderFilter{}); err != nil {
			return fmt.Errorf("list purchase orders: %w", err)
		}
		if materials, err = tx.ListMaterials(ctx); err != nil {
			return fmt.Errorf("list materials: %w", err)
		}
		if lots, err = tx.ListLots(ctx, nil); err != nil {
			return fmt.Errorf("list lots: %w", err)
		}
		if suppliers, err = tx.ListSuppliers(ctx); err != nil {
			return fmt.Errorf("list suppliers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sum := Summarize(s.now(), orders, materials, lots, suppliers)
	if s.cache != nil {
		s.cache.Set(ctx, sum)
	}
	return sum, nil
}

// Summarize computes the overview from raw rows as of now.
func Summarize(now time.Time, orders []PurchaseOrder, materials []Material, lots []MaterialLot, suppliers []Supplier) *DashboardSummary {
	out := &DashboardSummary{GeneratedAt: now, LowStocks: []LowStock{}, TopSuppliers: []SupplierSpend{}}

	today := dateOnly(now)
	upcomingEnd := today.AddDate(0, 0, 8)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	spendSince := now.AddDate(0, 0, -30)
	spend := map[int]decimal.Decimal{}

	for _, po := range orders {
		switch po.Status {
		case StatusDraft, StatusIssued, StatusReceiving:
			out.OpenPOCount++
		}
		if po.Status.IsOpen() && po.ExpectedDate != nil {
			due := dateOnly(*po.ExpectedDate)
			if due.Before(today) {
				out.OverduePOCount++
			} else if due.Before(upcomingEnd) {
				out.UpcomingPOCount7d++
			}
		}
		if po.IssueDate != nil {
			issued := dateOnly(*po.IssueDate)
			if !issued.Before(monthStart) && issued.Before(monthEnd) {
				out.ThisMonthTotal = out.ThisMonthTotal.Add(po.Total)
			}
			if !po.IssueDate.Before(spendSince) {
				spend[po.SupplierID] = spend[po.SupplierID].Add(po.Total)
			}
		}
	}

	lotSums := LotStock(lots)
	half := decimal.NewFromFloat(0.5)
	for _, m := range materials {
		if !m.SafetyStock.IsPositive() {
			continue
		}
		stock := m.CurrentStock
		if m.ManageByLot {
			stock = lotSums[m.ID]
		}
		if stock.LessThan(m.SafetyStock) {
			out.LowStocks = append(out.LowStocks, LowStock{
				MaterialID: m.ID, SKU: m.SKU, Name: m.Name, Stock: stock, SafetyStock: m.SafetyStock,
			})
		}
		if stock.LessThanOrEqual(m.SafetyStock.Mul(half)) {
			out.LowStockCritical++
		}
	}
	sort.SliceStable(out.LowStocks, func(i, j int) bool {
		return out.LowStocks[i].Stock.LessThan(out.LowStocks[j].Stock)
	})
	if len(out.LowStocks) > lowStockLimit {
		out.LowStocks = out.LowStocks[:lowStockLimit]
	}

	names := make(map[int]string, len(suppliers))
	for _, sup := range suppliers {
		names[sup.ID] = sup.Name
	}
	for id, total := range spend {
		out.TopSuppliers = append(out.TopSuppliers, SupplierSpend{SupplierID: id, Name: names[id], Total: total})
	}
	sort.Slice(out.TopSuppliers, func(i, j int) bool {
		a, b := out.TopSuppliers[i], out.TopSuppliers[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.SupplierID < b.SupplierID
	})
	if len(out.TopSuppliers) > topSupplierLimit {
		out.TopSuppliers = out.TopSuppliers[:topSupplierLimit]
	}
	return out
}
