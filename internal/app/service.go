package app

import (
	"context"

	"procurement-flow/internal/core"
)

// ApplicationService is the single interface the HTTP adapter calls.
// It decouples transport from business logic: implementations return domain
// values and typed errors, never HTTP status codes.
type ApplicationService interface {
	// ListSuppliers returns every supplier ordered by name.
	ListSuppliers(ctx context.Context) (*SupplierListResult, error)

	// CreateSupplier stores a new supplier.
	CreateSupplier(ctx context.Context, req CreateSupplierRequest) (*core.Supplier, error)

	// ListMaterials returns every material with its current stock.
	ListMaterials(ctx context.Context) (*MaterialListResult, error)

	// GetMaterial returns one material.
	GetMaterial(ctx context.Context, id int) (*core.Material, error)

	// CreateMaterial stores a new material.
	CreateMaterial(ctx context.Context, req CreateMaterialRequest) (*core.Material, error)

	// SetUnitConversion upserts a material's unit conversion factor.
	SetUnitConversion(ctx context.Context, req UnitConversionRequest) error

	// GetOptionCatalog returns the active option groups and their options.
	GetOptionCatalog(ctx context.Context) (*OptionCatalogResult, error)

	CreateOptionGroup(ctx context.Context, req CreateOptionGroupRequest) (*core.OptionGroup, error)
	CreateOption(ctx context.Context, req CreateOptionRequest) (*core.Option, error)

	// ListPurchaseOrders returns orders newest first.
	ListPurchaseOrders(ctx context.Context, filter core.PurchaseOrderFilter) (*PurchaseOrderListResult, error)

	// GetPurchaseOrder returns an order with its receivings and delivery assessment.
	GetPurchaseOrder(ctx context.Context, id int) (*core.PurchaseOrderDetail, error)

	// PlaceOrder creates one draft per supplier from the manual order form and
	// registers each with the approval engine.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error)

	// ScanOrder creates a one-line draft from an ordering token scan.
	ScanOrder(ctx context.Context, req ScanOrderRequest) (*PlaceOrderResult, error)

	// IssuePurchaseOrder is the approval completion hook: it moves a draft to
	// Issued with a gapless PO number and notifies the supplier.
	IssuePurchaseOrder(ctx context.Context, id int) (*core.IssueResult, error)

	// CancelPurchaseOrder cancels a draft or issued order and withdraws its approval task.
	CancelPurchaseOrder(ctx context.Context, req CancelOrderRequest) (*core.CancelOrderResult, error)

	// CancelItem cancels the unreceived remainder of one line.
	CancelItem(ctx context.Context, req CancelItemRequest) (*core.CancelItemResult, error)

	UpdateItemExpectedDate(ctx context.Context, req UpdateExpectedDateRequest) (*core.PurchaseOrderItem, error)

	// RecomputeTotals recalculates and stores an order's totals.
	RecomputeTotals(ctx context.Context, id int) (*core.PurchaseOrder, error)

	// ReceivePurchaseOrder records a receiving event and books stock.
	ReceivePurchaseOrder(ctx context.Context, req core.ReceiveInput) (*core.ReceiveResult, error)

	ListOrderingTokens(ctx context.Context) (*OrderingTokenListResult, error)
	IssueOrderingToken(ctx context.Context, req core.IssueTokenInput) (*core.OrderingToken, error)
	SetOrderingTokenEnabled(ctx context.Context, id int, enabled bool) error

	// GetSetting returns the stored raw value of a known setting key.
	GetSetting(ctx context.Context, key string) (*SettingResult, error)

	// PutSetting validates and stores a setting, then reloads the live settings.
	PutSetting(ctx context.Context, key, value string) (*SettingResult, error)

	// Dashboard returns the procurement overview.
	Dashboard(ctx context.Context) (*core.DashboardSummary, error)
}
