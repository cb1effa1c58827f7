package settings_test

import (
	"context"
	"testing"
	"time"

	"procurement-flow/internal/core"
	"procurement-flow/internal/settings"
	"procurement-flow/internal/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	s, warnings, err := settings.Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.True(t, s.Shipping.Taxable)
	assert.Nil(t, s.ItemTax.DefaultRate)
	assert.Zero(t, s.ApprovalFlowID)
}

func TestParse_SortsScheduleAndWarns(t *testing.T) {
	s, warnings, err := settings.Parse(map[string]string{
		settings.KeyItemTax: `{"default_rate":0.10,"rates":{"reduced":0.08},"schedule":[
			{"effective_from":"2029-04-01","default_rate":0.15},
			{"effective_from":"2027-10-01","default_rate":0.12,"rates":{"reduced":0.09}}]}`,
	})
	require.NoError(t, err)
	require.Len(t, s.ItemTax.Schedule, 2)
	assert.Len(t, warnings, 1)
	assert.Equal(t, time.Date(2027, 10, 1, 0, 0, 0, 0, time.UTC), s.ItemTax.Schedule[0].EffectiveFrom)
	assert.True(t, s.ItemTax.Schedule[1].DefaultRate.Equal(decimal.RequireFromString("0.15")))

	// After sorting, the later entry wins for dates past both.
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rate := core.NewTaxResolver(core.StaticSettings(s)).ResolveRate(nil, &at)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.15")), rate.String())
}

func TestParse_ShippingAndFlow(t *testing.T) {
	s, warnings, err := settings.Parse(map[string]string{
		settings.KeyShippingTax:      `{"taxable":false,"tax_rate":0.1}`,
		settings.KeyApprovalFlowID:   "abc",
		settings.KeyDeliveryLocation: "Dock 2",
	})
	require.NoError(t, err)
	assert.False(t, s.Shipping.Taxable)
	assert.Zero(t, s.ApprovalFlowID)
	assert.Len(t, warnings, 1)
	assert.Equal(t, "Dock 2", s.DeliveryLocation)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, _, err := settings.Parse(map[string]string{settings.KeyItemTax: `{`})
	assert.Error(t, err)
}

func TestProvider_Refresh(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := settings.NewProvider(store, nil)
	assert.Zero(t, p.Current().ApprovalFlowID)

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		return tx.PutSetting(ctx, settings.KeyApprovalFlowID, "7")
	}))
	assert.Zero(t, p.Current().ApprovalFlowID, "snapshot changes only on refresh")

	require.NoError(t, p.Refresh(ctx))
	assert.Equal(t, 7, p.Current().ApprovalFlowID)

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		return tx.PutSetting(ctx, settings.KeyItemTax, "not json")
	}))
	assert.Error(t, p.Refresh(ctx))
	assert.Equal(t, 7, p.Current().ApprovalFlowID, "failed refresh keeps previous snapshot")
}

func TestProvider_PutValidatesAndRefreshes(t *testing.T) {
	store := memory.New()
	p := settings.NewProvider(store, nil)
	ctx := context.Background()

	err := p.Put(ctx, settings.KeyItemTax, `{"default_rate":`)
	require.ErrorIs(t, err, core.ErrValidation)
	_, ok, err := p.Get(ctx, settings.KeyItemTax)
	require.NoError(t, err)
	assert.False(t, ok, "rejected value is not stored")

	require.NoError(t, p.Put(ctx, settings.KeyApprovalFlowID, "9"))
	assert.Equal(t, 9, p.Current().ApprovalFlowID)

	err = p.Put(ctx, "smtp.password", "x")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
