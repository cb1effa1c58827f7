package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receiving is one goods-receipt event against a purchase order.
type Receiving struct {
	ID              int             `json:"id"`
	PurchaseOrderID int             `json:"purchase_order_id"`
	ReceivedAt      time.Time       `json:"received_at"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       *int            `json:"created_by,omitempty"`
	Items           []ReceivingItem `json:"items"`
}

// ReceivingItem records a quantity received for one order line. QtyReceived
// is in the line's purchase unit, QtyBase in the material's stock unit.
type ReceivingItem struct {
	ID                  int             `json:"id"`
	ReceivingID         int             `json:"receiving_id"`
	PurchaseOrderItemID int             `json:"purchase_order_item_id"`
	MaterialID          *int            `json:"material_id,omitempty"`
	UnitPurchase        string          `json:"unit_purchase"`
	QtyReceived         decimal.Decimal `json:"qty_received"`
	QtyBase             decimal.Decimal `json:"qty_base"`
	LotNo               string          `json:"lot_no,omitempty"`
}

// ReceiveInput records a receiving event.
type ReceiveInput struct {
	PurchaseOrderID int
	ReceivedAt      *time.Time
	ReferenceNumber string
	Notes           string
	CreatedBy       *int
	Lines           []ReceiveLineInput
}

// ReceiveLineInput is a quantity in the line's purchase unit.
type ReceiveLineInput struct {
	PurchaseOrderItemID int
	Qty                 decimal.Decimal
	LotNo               string
	ExpiryDate          *time.Time
}
