package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderingToken is a pre-authorized scan-to-order shortcut bound to one material.
type OrderingToken struct {
	ID           int             `json:"id"`
	Token        string          `json:"token"`
	MaterialID   int             `json:"material_id"`
	UnitPurchase *string         `json:"unit_purchase,omitempty"`
	DefaultQty   decimal.Decimal `json:"default_qty"`
	Enabled      bool            `json:"enabled"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Expired reports whether now is past the token's expiry. A token is still
// usable at the exact expiry instant.
func (t *OrderingToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
