package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a catalog item that can be ordered and stocked.
type Material struct {
	ID                  int             `json:"id"`
	SKU                 string          `json:"sku"`
	Name                string          `json:"name"`
	TaxCode             *string         `json:"tax_code,omitempty"`
	UnitStock           string          `json:"unit_stock"`
	UnitPurchaseDefault string          `json:"unit_purchase_default,omitempty"`
	MOQ                 decimal.Decimal `json:"moq"`
	PackSize            decimal.Decimal `json:"pack_size"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	PreferredSupplierID *int            `json:"preferred_supplier_id,omitempty"`
	SeparateShipping    bool            `json:"separate_shipping"`
	ShippingFeePerOrder decimal.Decimal `json:"shipping_fee_per_order"`
	ManageByLot         bool            `json:"manage_by_lot"`
	IsActive            bool            `json:"is_active"`
	ManufacturerName    string          `json:"manufacturer_name,omitempty"`
	CurrentStock        decimal.Decimal `json:"current_stock"`
	SafetyStock         decimal.Decimal `json:"safety_stock"`
}

// NeedsShippingLine reports whether ordering the material adds a shipping charge.
func (m *Material) NeedsShippingLine() bool {
	return m.SeparateShipping && m.ShippingFeePerOrder.IsPositive()
}

// PurchaseUnit is the material's default purchase unit, falling back to DefaultPurchaseUnit.
func (m *Material) PurchaseUnit() string {
	if m.UnitPurchaseDefault != "" {
		return m.UnitPurchaseDefault
	}
	return DefaultPurchaseUnit
}

// UnitConversion converts quantities of a material between units: 1 FromUnit = Factor ToUnit.
type UnitConversion struct {
	MaterialID int             `json:"material_id"`
	FromUnit   string          `json:"from_unit"`
	ToUnit     string          `json:"to_unit"`
	Factor     decimal.Decimal `json:"factor"`
}

// MaterialLot tracks on-hand stock of a lot-managed material.
type MaterialLot struct {
	ID              int             `json:"id"`
	MaterialID      int             `json:"material_id"`
	LotNo           string          `json:"lot_no"`
	QtyOnHand       decimal.Decimal `json:"qty_on_hand"`
	Unit            string          `json:"unit"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
	SupplierID      *int            `json:"supplier_id,omitempty"`
	PurchaseOrderID *int            `json:"purchase_order_id,omitempty"`
}

// StockMovement is an append-only inbound/outbound stock record in stock units.
type StockMovement struct {
	ID         int             `json:"id"`
	MaterialID int             `json:"material_id"`
	LotID      *int            `json:"lot_id,omitempty"`
	Type       string          `json:"type"`
	SourceType string          `json:"source_type"`
	SourceID   int             `json:"source_id"`
	QtyBase    decimal.Decimal `json:"qty_base"`
	Unit       string          `json:"unit"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedBy  *int            `json:"created_by,omitempty"`
}

// Supplier is a vendor purchase orders are placed with.
type Supplier struct {
	ID         int    `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	EmailCC    string `json:"email_cc,omitempty"`
	AutoSendPO bool   `json:"auto_send_po"`
	IsActive   bool   `json:"is_active"`
}
