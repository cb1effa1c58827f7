package core_test

import (
	"testing"
	"time"

	"procurement-flow/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceive_PartialThenFull(t *testing.T) {
	f := newFixture(t)
	sup := f.supplier()
	mat := f.material("R-1")
	po := f.issuedOrder(sup.ID, &mat.ID, "10")
	itemID := po.Items[0].ID

	res, err := f.receiving.Receive(f.ctx, core.ReceiveInput{
		PurchaseOrderID: po.ID,
		ReferenceNumber: "DN-1",
		Lines:           []core.ReceiveLineInput{{PurchaseOrderItemID: itemID, Qty: dec("4")}},
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusReceiving, res.Order.Status)
	assert.Equal(t, fixedNow, res.Receiving.ReceivedAt)

	res, err = f.receiving.Receive(f.ctx, core.ReceiveInput{
		PurchaseOrderID: po.ID,
		Lines:           []core.ReceiveLineInput{{PurchaseOrderItemID: itemID, Qty: dec("6")}},
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusClosed, res.Order.Status)

	stored, err := f.catalog.GetMaterial(f.ctx, mat.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentStock.Equal(dec("10")), stored.CurrentStock.String())

	moves := f.store.StockMovements()
	require.Len(t, moves, 2)
	assert.Equal(t, "receiving", moves[0].SourceType)
	assert.True(t, moves[1].QtyBase.Equal(dec("6")))

	_, err = f.receiving.Receive(f.ctx, core.ReceiveInput{
		PurchaseOrderID: po.ID,
		Lines:           []core.ReceiveLineInput{{PurchaseOrderItemID: itemID, Qty: dec("1")}},
	})
	require.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, "ORDER_NOT_RECEIVABLE", errorCode(err))
}

func TestReceive_Validation(t *testing.T) {
	f := newFixture(t)
	sup := f.supplier()
	mat := f.material("R-2", shippingMaterial)
	po, err := f.factory.Create(f.ctx, core.CreatePurchaseOrderInput{
		SupplierID: sup.ID,
		Items:      []core.PurchaseOrderItemInput{{MaterialID: &mat.ID, QtyOrdered: dec("5"), PriceUnit: dec("1")}},
	}, true)
	require.NoError(t, err)

	_, err = f.receiving.Receive(f.ctx, core.ReceiveInput{
		PurchaseOrderID: po.ID,
		Lines:           []core.ReceiveLineInput{{PurchaseOrderItemID: po.Items[0].ID, Qty: dec("1")}},
	})
	assert.Equal(t, "ORDER_NOT_RECEIVABLE", errorCode(err), "drafts are not receivable")

	_, err = f.orders.Issue(f.ctx, po.ID)
	require.NoError(t, err)

	tests := []struct {
		name string
		line core.ReceiveLineInput
		code string
	}{
		{"unknown item", core.ReceiveLineInput{PurchaseOrderItemID: 9999, Qty: dec("1")}, "ITEM_NOT_ON_ORDER"},
		{"shipping line", core.ReceiveLineInput{PurchaseOrderItemID: po.Items[1].ID, Qty: dec("1")}, "SHIPPING_LINE_NOT_RECEIVABLE"},
		{"zero qty", core.ReceiveLineInput{PurchaseOrderItemID: po.Items[0].ID, Qty: dec("0")}, "INVALID_QUANTITY"},
		{"over receipt", core.ReceiveLineInput{PurchaseOrderItemID: po.Items[0].ID, Qty: dec("5.5")}, "OVER_RECEIPT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.receiving.Receive(f.ctx, core.ReceiveInput{
				PurchaseOrderID: po.ID,
				Lines:           []core.ReceiveLineInput{tt.line},
			})
			require.ErrorIs(t, err, core.ErrValidation)
			assert.Equal(t, tt.code, errorCode(err))
		})
	}

	_, err = f.receiving.Receive(f.ctx, core.ReceiveInput{PurchaseOrderID: po.ID})
	assert.Equal(t, "LINES_REQUIRED", errorCode(err))
	assert.Empty(t, f.store.StockMovements(), "rejected receipts book nothing")
}

func TestReceive_LotManagedMaterial(t *testing.T) {
	f := newFixture(t)
	sup := f.supplier()
	mat := f.material("LOT-1", func(m *core.Material) {
		m.ManageByLot = true
		m.UnitStock = "kg"
		m.UnitPurchaseDefault = "drum"
	})
	require.NoError(t, f.catalog.SetUnitConversion(f.ctx, core.UnitConversion{
		MaterialID: mat.ID, FromUnit: "kg", ToUnit: "drum", Factor: dec("0.005"),
	}))
	po := f.issuedOrder(sup.ID, &mat.ID, "2")
	itemID := po.Items[0].ID

	_, err := f.receiving.Receive(f.ctx, core.ReceiveInput{
		PurchaseOrderID: po.ID,
		Lines:           []core.ReceiveLineInput{{PurchaseOrderItemID: itemID, Qty: dec("1")}},
	})
	assert.Equal(t, "LOT_REQUIRED", errorCode(err))

	expiry := time.Date(2028, 6, 30, 0, 0, 0, 0, time.UTC)
	res, err := f.receiving.Receive(f.ctx, core.ReceiveInput{
		PurchaseOrderID: po.ID,
		Lines: []core.ReceiveLineInput{{
			PurchaseOrderItemID: itemID, Qty: dec("1"), LotNo: " L-42 ", ExpiryDate: &expiry,
		}},
	})
	require.NoError(t, err)
	// drum -> kg uses the inverse of the stored kg -> drum factor
	assert.True(t, res.Receiving.Items[0].QtyBase.Equal(dec("200")), res.Receiving.Items[0].QtyBase.String())
	assert.Equal(t, "L-42", res.Receiving.Items[0].LotNo)

	moves := f.store.StockMovements()
	require.Len(t, moves, 1)
	require.NotNil(t, moves[0].LotID)
	assert.Equal(t, "kg", moves[0].Unit)
}

func TestAssessDelivery(t *testing.T) {
	po := &core.PurchaseOrder{
		ExpectedDate: date(2027, 10, 20),
		Items: []core.PurchaseOrderItem{
			{ID: 1, QtyOrdered: dec("10"), UnitPurchase: "each"},
			{ID: 2, QtyOrdered: dec("5"), QtyCanceled: dec("2"), UnitPurchase: "each", ExpectedDate: date(2027, 10, 10)},
			{ID: 3, QtyOrdered: dec("4"), UnitPurchase: "each"},
			{ID: 4, QtyOrdered: dec("1"), UnitPurchase: core.UnitShipping},
		},
	}
	receivings := []core.Receiving{
		{ReceivedAt: time.Date(2027, 10, 20, 17, 0, 0, 0, time.UTC), Items: []core.ReceivingItem{
			{PurchaseOrderItemID: 1, QtyReceived: dec("6")},
		}},
		{ReceivedAt: time.Date(2027, 10, 12, 8, 0, 0, 0, time.UTC), Items: []core.ReceivingItem{
			{PurchaseOrderItemID: 1, QtyReceived: dec("4")},
			{PurchaseOrderItemID: 2, QtyReceived: dec("3")},
			{PurchaseOrderItemID: 3, QtyReceived: dec("1")},
		}},
	}

	got := core.AssessDelivery(po, receivings)
	require.Len(t, got, 3, "shipping lines are not assessed")

	assert.True(t, got[0].InFull)
	assert.True(t, got[0].OnTime, "received on the due date")
	assert.Equal(t, 20, got[0].LastReceivedAt.Day())

	assert.True(t, got[1].InFull, "canceled quantity is not owed")
	assert.False(t, got[1].OnTime, "line date overrides the order date")

	assert.False(t, got[2].InFull)
	assert.False(t, got[2].OnTime)
}
