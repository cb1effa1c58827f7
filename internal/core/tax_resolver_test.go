package core_test

import (
	"testing"

	"procurement-flow/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTaxResolver_ResolveRate(t *testing.T) {
	reduced := "reduced"
	unknown := "unknown"
	cfg := core.Settings{ItemTax: core.ItemTaxConfig{
		DefaultRate: decPtr("0.10"),
		Rates:       map[string]decimal.Decimal{"reduced": dec("0.08")},
		Schedule: []core.TaxScheduleEntry{
			{EffectiveFrom: *date(2027, 10, 1), DefaultRate: decPtr("0.12")},
			{EffectiveFrom: *date(2029, 4, 1), Rates: map[string]decimal.Decimal{"reduced": dec("0.05")}},
		},
	}}
	r := core.NewTaxResolver(core.StaticSettings(cfg))

	tests := []struct {
		name     string
		material *core.Material
		at       string
		want     string
	}{
		{"no date ignores schedule", nil, "", "0.10"},
		{"before first entry", nil, "2027-09-30", "0.10"},
		{"on effective date", &core.Material{}, "2027-10-01", "0.12"},
		{"named code before override", &core.Material{TaxCode: &reduced}, "2027-10-01", "0.08"},
		{"later entry merges named rate", &core.Material{TaxCode: &reduced}, "2029-04-01", "0.05"},
		{"earlier default survives later entry", &core.Material{}, "2030-01-01", "0.12"},
		{"unknown code falls back to default", &core.Material{TaxCode: &unknown}, "2030-01-01", "0.12"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got decimal.Decimal
			if tc.at == "" {
				got = r.ResolveRate(tc.material, nil)
			} else {
				at := mustDate(t, tc.at)
				got = r.ResolveRate(tc.material, &at)
			}
			assert.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestTaxResolver_ScheduledDefaultWithoutTaxCode(t *testing.T) {
	r := core.NewTaxResolver(core.StaticSettings(core.Settings{ItemTax: core.ItemTaxConfig{
		DefaultRate: decPtr("0.10"),
		Schedule:    []core.TaxScheduleEntry{{EffectiveFrom: *date(2027, 10, 1), DefaultRate: decPtr("0.12")}},
	}}))
	got := r.ResolveRate(&core.Material{TaxCode: nil}, date(2027, 10, 1))
	assert.True(t, got.Equal(dec("0.12")), got.String())
}

func TestTaxResolver_Fallbacks(t *testing.T) {
	assert.True(t, core.NewTaxResolver(nil).ResolveRate(nil, nil).Equal(dec("0.10")))
	assert.True(t, core.NewTaxResolver(core.StaticSettings{}).ResolveRate(nil, nil).Equal(dec("0.10")))

	untaxed := core.NewTaxResolver(core.StaticSettings(core.Settings{
		Shipping: core.ShippingConfig{Taxable: false, TaxRate: decPtr("0.10")},
	}))
	assert.True(t, untaxed.ShippingRate().IsZero())

	defaulted := core.NewTaxResolver(core.StaticSettings(core.DefaultSettings()))
	assert.True(t, defaulted.ShippingRate().Equal(dec("0.10")))
}
