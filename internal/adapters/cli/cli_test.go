package cli

import (
	"bytes"
	"context"
	"testing"

	"procurement-flow/internal/app"
	"procurement-flow/internal/core"
	"procurement-flow/internal/settings"
	"procurement-flow/internal/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) app.ApplicationService {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	provider := settings.NewProvider(store, nil)
	require.NoError(t, provider.Put(ctx, settings.KeyApprovalFlowID, "1"))
	svc, err := app.NewAppService(app.Deps{Store: store, Settings: provider})
	require.NoError(t, err)
	return svc
}

func run(t *testing.T, svc app.ApplicationService, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Run(context.Background(), svc, Config{JWTSecret: "s"}, args, &out)
	return out.String(), err
}

func TestRun_UnknownCommand(t *testing.T) {
	svc := newService(t)
	_, err := run(t, svc)
	require.ErrorIs(t, err, ErrUsage)
	_, err = run(t, svc, "propose")
	require.ErrorIs(t, err, ErrUsage)
	_, err = run(t, svc, "approve")
	require.ErrorIs(t, err, ErrUsage)
}

func TestRun_OrdersAndApprove(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	out, err := run(t, svc, "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "No purchase orders found.")

	sup, err := svc.CreateSupplier(ctx, app.CreateSupplierRequest{Code: "S", Name: "Acme"})
	require.NoError(t, err)
	placed, err := svc.PlaceOrder(ctx, app.PlaceOrderRequest{Order: core.PlaceOrderInput{
		SupplierID: sup.ID,
		Items: []core.PurchaseOrderItemInput{{
			Description: "gloves", QtyOrdered: decimal.NewFromInt(2), PriceUnit: decimal.NewFromInt(3),
		}},
	}})
	require.NoError(t, err)
	id := placed.Orders[0].Order.ID

	out, err = run(t, svc, "orders", "draft")
	require.NoError(t, err)
	assert.Contains(t, out, "draft")

	out, err = run(t, svc, "approve", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Issued PO-")
	assert.Contains(t, out, "supplier.notify: skipped")

	out, err = run(t, svc, "approve", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to issue")
	assert.Equal(t, 1, id)
}

func TestRun_Settings(t *testing.T) {
	svc := newService(t)

	out, err := run(t, svc, "settings", "get", settings.KeyDeliveryLocation)
	require.NoError(t, err)
	assert.Contains(t, out, "is not set")

	_, err = run(t, svc, "settings", "set", settings.KeyDeliveryLocation, "Dock", "3")
	require.NoError(t, err)
	out, err = run(t, svc, "settings", "get", settings.KeyDeliveryLocation)
	require.NoError(t, err)
	assert.Contains(t, out, "= Dock 3")
}

func TestRun_SignJWT(t *testing.T) {
	out, err := run(t, newService(t), "sign-jwt", "5", "admin", "1h")
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte(".")))
}
