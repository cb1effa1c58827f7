package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"procurement-flow/internal/core"
	"procurement-flow/internal/store/postgres"
	"procurement-flow/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../../.env")

	// Use a dedicated TEST database: the tables are truncated.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(pool.Close)

	_, err = migrations.Apply(ctx, pool, zap.NewNop())
	require.NoError(t, err, "apply migrations")

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE receiving_items, receivings, stock_movements, material_lots,
			purchase_order_item_options, purchase_order_items, purchase_orders,
			ordering_tokens, unit_conversions, options, option_groups, materials, suppliers,
			document_sequences, app_settings
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "clean test database")
	return pool
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStore_PurchaseOrderRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.New(pool)
	ctx := context.Background()

	var poID int
	err := store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		sup := &core.Supplier{Code: "ACME", Name: "Acme", EmailCC: "a@x.example", IsActive: true}
		require.NoError(t, tx.CreateSupplier(ctx, sup))
		mat := &core.Material{SKU: "M-1", Name: "Solvent", UnitStock: "l", UnitPrice: dec("12.5"), IsActive: true}
		require.NoError(t, tx.CreateMaterial(ctx, mat))

		po := &core.PurchaseOrder{SupplierID: sup.ID, Status: core.StatusDraft, CreatedAt: time.Now()}
		require.NoError(t, tx.InsertPurchaseOrder(ctx, po))
		it := &core.PurchaseOrderItem{
			PurchaseOrderID: po.ID, MaterialID: &mat.ID, Description: "Solvent", UnitPurchase: "l",
			QtyOrdered: dec("4"), PriceUnit: dec("12.5"), TaxRate: dec("0.1"), LineTotal: dec("50"),
		}
		require.NoError(t, tx.InsertItem(ctx, it))
		poID = po.ID
		return nil
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		po, err := tx.LockPurchaseOrder(ctx, poID)
		require.NoError(t, err)
		assert.Equal(t, core.StatusDraft, po.Status)

		items, err := tx.ListItems(ctx, poID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.True(t, items[0].LineTotal.Equal(dec("50")))

		items[0].QtyCanceled = dec("5")
		return tx.UpdateItem(ctx, &items[0])
	})
	assert.ErrorIs(t, err, core.ErrConflict, "qty_canceled above qty_ordered violates the check")

	err = store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.GetPurchaseOrder(ctx, 99999)
		assert.ErrorIs(t, err, core.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_FractionalQuantitiesSurviveReload(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.New(pool)
	ctx := context.Background()

	// One third of a box received, the rest canceled.
	received := dec("1").DivRound(dec("3"), 12)
	canceled := dec("1").Sub(received)

	var itemID, poID int
	err := store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		sup := &core.Supplier{Code: "FRAC", Name: "Fraction Supply", IsActive: true}
		require.NoError(t, tx.CreateSupplier(ctx, sup))
		po := &core.PurchaseOrder{SupplierID: sup.ID, Status: core.StatusReceiving, CreatedAt: time.Now()}
		require.NoError(t, tx.InsertPurchaseOrder(ctx, po))
		it := &core.PurchaseOrderItem{
			PurchaseOrderID: po.ID, Description: "Gloves", UnitPurchase: "box",
			QtyOrdered: dec("1"), PriceUnit: dec("30"), LineTotal: dec("30"),
		}
		require.NoError(t, tx.InsertItem(ctx, it))
		it.QtyCanceled = canceled
		it.LineTotal = received.Mul(dec("30"))
		require.NoError(t, tx.UpdateItem(ctx, it))
		itemID, poID = it.ID, po.ID
		return nil
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		items, err := tx.ListItems(ctx, poID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, itemID, items[0].ID)
		assert.True(t, items[0].QtyCanceled.Equal(canceled), "qty_canceled %s", items[0].QtyCanceled)
		open := items[0].EffectiveQty().Sub(received)
		assert.True(t, open.Abs().LessThanOrEqual(core.Epsilon), "open %s", open)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_NextPONumberIsGapless(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.New(pool)
	ctx := context.Background()

	// A rolled back allocation does not consume a number.
	_ = store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.NextPONumber(ctx, 2027)
		require.NoError(t, err)
		return assert.AnError
	})

	const workers = 8
	var (
		mu  sync.Mutex
		got = map[string]bool{}
		wg  sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
				n, err := tx.NextPONumber(ctx, 2027)
				if err != nil {
					return err
				}
				mu.Lock()
				got[n] = true
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, got, workers)
	assert.True(t, got["PO-2027-00001"])
	assert.True(t, got["PO-2027-00008"])
}

func TestStore_LotsAndSettings(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.New(pool)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		mat := &core.Material{SKU: "LOT", Name: "Resin", UnitStock: "kg", ManageByLot: true, IsActive: true}
		require.NoError(t, tx.CreateMaterial(ctx, mat))
		for range 2 {
			lot := &core.MaterialLot{MaterialID: mat.ID, LotNo: "L1", QtyOnHand: dec("2.5"), Unit: "kg"}
			require.NoError(t, tx.UpsertLot(ctx, lot))
		}
		lots, err := tx.ListLots(ctx, &mat.ID)
		require.NoError(t, err)
		require.Len(t, lots, 1)
		assert.True(t, lots[0].QtyOnHand.Equal(dec("5")))

		_, ok, err := tx.GetSetting(ctx, "tax.item")
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, tx.PutSetting(ctx, "tax.item", `{"default_rate":0.1}`))
		v, ok, err := tx.GetSetting(ctx, "tax.item")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"default_rate":0.1}`, v)
		return nil
	})
	require.NoError(t, err)
}
