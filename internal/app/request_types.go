package app

import (
	"time"

	"procurement-flow/internal/core"

	"github.com/shopspring/decimal"
)

// CreateSupplierRequest is the input for creating a supplier.
type CreateSupplierRequest struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	EmailCC    string `json:"email_cc"`
	AutoSendPO bool   `json:"auto_send_po"`
}

// CreateMaterialRequest is the input for creating a material. Zero decimals
// mean "no constraint" for MOQ and pack size.
type CreateMaterialRequest struct {
	SKU                 string          `json:"sku"`
	Name                string          `json:"name"`
	TaxCode             *string         `json:"tax_code"`
	UnitStock           string          `json:"unit_stock"`
	UnitPurchaseDefault string          `json:"unit_purchase_default"`
	MOQ                 decimal.Decimal `json:"moq"`
	PackSize            decimal.Decimal `json:"pack_size"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	PreferredSupplierID *int            `json:"preferred_supplier_id"`
	SeparateShipping    bool            `json:"separate_shipping"`
	ShippingFeePerOrder decimal.Decimal `json:"shipping_fee_per_order"`
	ManageByLot         bool            `json:"manage_by_lot"`
	ManufacturerName    string          `json:"manufacturer_name"`
	SafetyStock         decimal.Decimal `json:"safety_stock"`
	Inactive            bool            `json:"inactive"`
}

func (r CreateMaterialRequest) material() core.Material {
	return core.Material{
		SKU:                 r.SKU,
		Name:                r.Name,
		TaxCode:             r.TaxCode,
		UnitStock:           r.UnitStock,
		UnitPurchaseDefault: r.UnitPurchaseDefault,
		MOQ:                 r.MOQ,
		PackSize:            r.PackSize,
		UnitPrice:           r.UnitPrice,
		PreferredSupplierID: r.PreferredSupplierID,
		SeparateShipping:    r.SeparateShipping,
		ShippingFeePerOrder: r.ShippingFeePerOrder,
		ManageByLot:         r.ManageByLot,
		ManufacturerName:    r.ManufacturerName,
		SafetyStock:         r.SafetyStock,
		IsActive:            !r.Inactive,
	}
}

// UnitConversionRequest sets 1 FromUnit = Factor ToUnit for a material.
type UnitConversionRequest struct {
	MaterialID int             `json:"material_id"`
	FromUnit   string          `json:"from_unit"`
	ToUnit     string          `json:"to_unit"`
	Factor     decimal.Decimal `json:"factor"`
}

type CreateOptionGroupRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	Inactive  bool   `json:"inactive"`
}

type CreateOptionRequest struct {
	GroupID   int    `json:"group_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	Inactive  bool   `json:"inactive"`
}

// PlaceOrderRequest is the manual order form. ActorID is the authenticated user.
type PlaceOrderRequest struct {
	Order   core.PlaceOrderInput
	ActorID *int
}

// ScanOrderRequest is a token scan submitted by ActorID.
type ScanOrderRequest struct {
	Scan    core.ScanOrderInput
	ActorID *int
}

// CancelOrderRequest cancels a whole purchase order.
type CancelOrderRequest struct {
	PurchaseOrderID int
	ActorID         *int
	Comment         string
}

// CancelItemRequest cancels the open remainder of one line.
type CancelItemRequest struct {
	ItemID int
	Reason string
}

// UpdateExpectedDateRequest changes a line's expected delivery date; nil clears it.
type UpdateExpectedDateRequest struct {
	ItemID int
	Date   *time.Time
}
