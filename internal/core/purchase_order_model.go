package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitShipping marks a line as a shipping charge. Shipping lines are never
// discounted, canceled or checked against MOQ and pack size.
const UnitShipping = "shipping"

// DefaultPurchaseUnit is used when neither the caller nor the material names a unit.
const DefaultPurchaseUnit = "each"

// PurchaseOrder is the order header plus its lines.
type PurchaseOrder struct {
	ID               int             `json:"id"`
	PONumber         *string         `json:"po_number,omitempty"`
	SupplierID       int             `json:"supplier_id"`
	Status           POStatus        `json:"status"`
	IssueDate        *time.Time      `json:"issue_date,omitempty"`
	ExpectedDate     *time.Time      `json:"expected_date,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingTotal    decimal.Decimal `json:"shipping_total"`
	ShippingTaxTotal decimal.Decimal `json:"shipping_tax_total"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	DeliveryLocation string          `json:"delivery_location"`
	CreatedBy        *int            `json:"created_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`

	Items []PurchaseOrderItem `json:"items,omitempty"`
}

// PurchaseOrderItem is one order line. MaterialID nil means an ad-hoc line.
type PurchaseOrderItem struct {
	ID                int             `json:"id"`
	PurchaseOrderID   int             `json:"purchase_order_id"`
	MaterialID        *int            `json:"material_id,omitempty"`
	Description       string          `json:"description"`
	Manufacturer      string          `json:"manufacturer,omitempty"`
	UnitPurchase      string          `json:"unit_purchase"`
	QtyOrdered        decimal.Decimal `json:"qty_ordered"`
	QtyCanceled       decimal.Decimal `json:"qty_canceled"`
	PriceUnit         decimal.Decimal `json:"price_unit"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
	LineTotal         decimal.Decimal `json:"line_total"`
	DesiredDate       *time.Time      `json:"desired_date,omitempty"`
	ExpectedDate      *time.Time      `json:"expected_date,omitempty"`
	Note              string          `json:"note,omitempty"`
	ShippingForItemID *int            `json:"shipping_for_item_id,omitempty"`
	CanceledAt        *time.Time      `json:"canceled_at,omitempty"`
	CanceledReason    string          `json:"canceled_reason,omitempty"`

	// Options maps option group id to the selected option id. Loaded on read.
	Options map[int]int `json:"options,omitempty"`
}

// IsShipping reports whether the line is a shipping charge.
func (it PurchaseOrderItem) IsShipping() bool {
	return it.UnitPurchase == UnitShipping
}

// EffectiveQty is qty_ordered minus qty_canceled, floored at zero.
func (it PurchaseOrderItem) EffectiveQty() decimal.Decimal {
	q := it.QtyOrdered.Sub(it.QtyCanceled)
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}

// FullyCanceled reports qty_canceled >= qty_ordered within Epsilon.
func (it PurchaseOrderItem) FullyCanceled() bool {
	return it.QtyCanceled.GreaterThanOrEqual(it.QtyOrdered.Sub(Epsilon))
}

// CreatePurchaseOrderInput is the factory input.
type CreatePurchaseOrderInput struct {
	SupplierID       int
	ExpectedDate     *time.Time
	DeliveryLocation string
	CreatedBy        *int
	Items            []PurchaseOrderItemInput
}

// PurchaseOrderItemInput describes one requested line. TaxRate nil means
// "resolve from the tax schedule".
type PurchaseOrderItemInput struct {
	MaterialID   *int
	Description  string
	Manufacturer string
	UnitPurchase string
	QtyOrdered   decimal.Decimal
	PriceUnit    decimal.Decimal
	TaxRate      *decimal.Decimal
	DesiredDate  *time.Time
	ExpectedDate *time.Time
	Note         string
	Options      map[int]*int
}

// PurchaseOrderFilter narrows ListPurchaseOrders.
type PurchaseOrderFilter struct {
	Status     *POStatus
	SupplierID *int
	Limit      int
}
