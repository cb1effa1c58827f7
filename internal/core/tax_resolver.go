package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxResolver resolves line tax rates against the configured schedule.
type TaxResolver struct {
	settings SettingsSource
}

func NewTaxResolver(settings SettingsSource) *TaxResolver {
	return &TaxResolver{settings: settings}
}

// ResolveRate returns the rate for material as of at. Schedule entries whose
// EffectiveFrom is not after at replace the default rate and merge their
// named rates, later entries winning. A material tax code found in the
// resulting map overrides the default. Nil material and nil at are allowed.
func (r *TaxResolver) ResolveRate(material *Material, at *time.Time) decimal.Decimal {
	cfg := r.itemTax()

	rate := FallbackTaxRate
	if cfg.DefaultRate != nil {
		rate = *cfg.DefaultRate
	}
	rates := make(map[string]decimal.Decimal, len(cfg.Rates))
	for k, v := range cfg.Rates {
		rates[k] = v
	}

	if at != nil {
		for _, entry := range cfg.Schedule {
			if entry.EffectiveFrom.After(*at) {
				continue
			}
			if entry.DefaultRate != nil {
				rate = *entry.DefaultRate
			}
			for k, v := range entry.Rates {
				rates[k] = v
			}
		}
	}

	if material != nil && material.TaxCode != nil && *material.TaxCode != "" {
		if named, ok := rates[*material.TaxCode]; ok {
			return named
		}
	}
	return rate
}

// ShippingRate is the tax rate for generated shipping lines, zero when
// shipping is not taxable.
func (r *TaxResolver) ShippingRate() decimal.Decimal {
	if r.settings == nil {
		return FallbackTaxRate
	}
	cfg := r.settings.Current().Shipping
	if !cfg.Taxable {
		return decimal.Zero
	}
	if cfg.TaxRate != nil {
		return *cfg.TaxRate
	}
	return FallbackTaxRate
}

func (r *TaxResolver) itemTax() ItemTaxConfig {
	if r.settings == nil {
		return ItemTaxConfig{}
	}
	return r.settings.Current().ItemTax
}
