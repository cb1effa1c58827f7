package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"procurement-flow/internal/core"
	"procurement-flow/internal/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2027, 10, 15, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int { return &i }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fakeApprovals struct {
	registered []core.ApprovalTask
	canceled   []int
	err        error
}

func (f *fakeApprovals) RegisterTask(_ context.Context, task core.ApprovalTask) error {
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, task)
	return nil
}

func (f *fakeApprovals) CancelTask(_ context.Context, _ string, subjectID, _ int, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.canceled = append(f.canceled, subjectID)
	return nil
}

type fakeNotifier struct {
	sent []core.Notification
	err  error
}

func (f *fakeNotifier) Enqueue(_ context.Context, n core.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

// fixture wires every core service over a fresh memory store.
type fixture struct {
	t         *testing.T
	ctx       context.Context
	store     *memory.Store
	settings  core.Settings
	approvals *fakeApprovals
	notifier  *fakeNotifier

	catalog   *core.CatalogService
	factory   *core.PurchaseOrderFactory
	orders    core.PurchaseOrderService
	receiving core.ReceivingService
	ordering  *core.OrderingService
	tokens    *core.OrderingTokenService
}

func newFixture(t *testing.T, mutate ...func(*core.Settings)) *fixture {
	t.Helper()
	s := core.DefaultSettings()
	s.ItemTax.DefaultRate = decPtr("0.10")
	s.Shipping.TaxRate = decPtr("0.10")
	s.ApprovalFlowID = 1
	s.DeliveryLocation = "Main warehouse"
	for _, m := range mutate {
		m(&s)
	}
	src := core.StaticSettings(s)
	clock := func() time.Time { return fixedNow }

	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		store:     memory.New(),
		settings:  s,
		approvals: &fakeApprovals{},
		notifier:  &fakeNotifier{},
	}
	f.catalog = core.NewCatalogService(f.store)

	factory, err := core.NewPurchaseOrderFactory(core.FactoryDeps{
		Store:    f.store,
		Tax:      core.NewTaxResolver(src),
		Delivery: core.NewDeliveryLocationResolver(src),
		Clock:    clock,
	})
	require.NoError(t, err)
	f.factory = factory

	registrar := core.NewApprovalFlowRegistrar(f.approvals, src, "https://procurement.example", nil)
	f.orders, err = core.NewPurchaseOrderService(core.PurchaseOrderDeps{
		Store:     f.store,
		Approvals: registrar,
		Notifier:  f.notifier,
		Clock:     clock,
	})
	require.NoError(t, err)
	f.receiving = core.NewReceivingService(f.store, nil, nil, clock)
	f.ordering, err = core.NewOrderingService(core.OrderingDeps{
		Store:     f.store,
		Factory:   factory,
		Approvals: registrar,
		Clock:     clock,
	})
	require.NoError(t, err)
	f.tokens = core.NewOrderingTokenService(f.store, clock)
	return f
}

func (f *fixture) supplier(mut ...func(*core.Supplier)) *core.Supplier {
	s := core.Supplier{Name: "Acme Chemicals", IsActive: true}
	for _, m := range mut {
		m(&s)
	}
	out, err := f.catalog.CreateSupplier(f.ctx, s)
	require.NoError(f.t, err)
	return out
}

func (f *fixture) material(sku string, mut ...func(*core.Material)) *core.Material {
	m := core.Material{
		SKU:                 sku,
		Name:                "Material " + sku,
		UnitStock:           "each",
		UnitPurchaseDefault: "each",
		UnitPrice:           dec("100"),
		IsActive:            true,
	}
	for _, fn := range mut {
		fn(&m)
	}
	out, err := f.catalog.CreateMaterial(f.ctx, m)
	require.NoError(f.t, err)
	return out
}

// issuedOrder creates and issues a one-line order of qty units at 100.
func (f *fixture) issuedOrder(supplierID int, materialID *int, qty string) *core.PurchaseOrder {
	po, err := f.factory.Create(f.ctx, core.CreatePurchaseOrderInput{
		SupplierID: supplierID,
		Items: []core.PurchaseOrderItemInput{{
			MaterialID:  materialID,
			Description: "line",
			QtyOrdered:  dec(qty),
			PriceUnit:   dec("100"),
		}},
	}, false)
	require.NoError(f.t, err)
	res, err := f.orders.Issue(f.ctx, po.ID)
	require.NoError(f.t, err)
	require.True(f.t, res.Issued)
	return res.Order
}

func (f *fixture) order(id int) *core.PurchaseOrder {
	d, err := f.orders.GetPurchaseOrder(f.ctx, id)
	require.NoError(f.t, err)
	return d.Order
}

func (f *fixture) countOrders() int {
	list, err := f.orders.ListPurchaseOrders(f.ctx, core.PurchaseOrderFilter{})
	require.NoError(f.t, err)
	return len(list)
}

// requireTotalsInvariant checks total == subtotal + tax and the per-line
// qty_canceled bounds.
func requireTotalsInvariant(t *testing.T, po *core.PurchaseOrder) {
	t.Helper()
	require.True(t, po.Total.Equal(po.Subtotal.Add(po.Tax)),
		"total %s != subtotal %s + tax %s", po.Total, po.Subtotal, po.Tax)
	for _, it := range po.Items {
		require.False(t, it.QtyCanceled.IsNegative(), "item %d qty_canceled negative", it.ID)
		require.True(t, it.QtyCanceled.LessThanOrEqual(it.QtyOrdered), "item %d over-canceled", it.ID)
	}
}

func errorCode(err error) string {
	var pe *core.PreconditionError
	var ve *core.ValidationError
	var ce *core.ConflictError
	switch {
	case errors.As(err, &pe):
		return pe.Code
	case errors.As(err, &ve):
		return ve.Code
	case errors.As(err, &ce):
		return ce.Code
	}
	return ""
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}
