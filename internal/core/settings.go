package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// FallbackTaxRate applies when no item or shipping tax rate is configured.
var FallbackTaxRate = decimal.NewFromFloat(0.10)

// TaxScheduleEntry overrides the default rate and merges named rates from
// EffectiveFrom onward.
type TaxScheduleEntry struct {
	EffectiveFrom time.Time
	DefaultRate   *decimal.Decimal
	Rates         map[string]decimal.Decimal
}

// ItemTaxConfig is the item tax configuration. Schedule entries are applied
// in slice order.
type ItemTaxConfig struct {
	DefaultRate *decimal.Decimal
	Rates       map[string]decimal.Decimal
	Schedule    []TaxScheduleEntry
}

// ShippingConfig controls the tax rate of generated shipping lines.
type ShippingConfig struct {
	Taxable bool
	TaxRate *decimal.Decimal
}

// Settings is an immutable snapshot of the business configuration the core
// consults. A new snapshot replaces the old one on refresh.
type Settings struct {
	ItemTax          ItemTaxConfig
	Shipping         ShippingConfig
	DeliveryLocation string
	// ApprovalFlowID is zero when no purchase order approval flow is configured.
	ApprovalFlowID int
}

// DefaultSettings returns the configuration used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{Shipping: ShippingConfig{Taxable: true}}
}

// SettingsSource hands out the current settings snapshot.
type SettingsSource interface {
	Current() Settings
}

// StaticSettings is a SettingsSource that never changes.
type StaticSettings Settings

func (s StaticSettings) Current() Settings { return Settings(s) }
