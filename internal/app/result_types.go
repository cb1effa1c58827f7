package app

import "procurement-flow/internal/core"

// SupplierListResult is returned by ListSuppliers.
type SupplierListResult struct {
	Suppliers []core.Supplier `json:"suppliers"`
}

// MaterialListResult is returned by ListMaterials.
type MaterialListResult struct {
	Materials []core.Material `json:"materials"`
}

// OptionCatalogResult is the active option catalog shown on order forms.
// Options is keyed by group ID.
type OptionCatalogResult struct {
	Groups  []core.OptionGroup    `json:"groups"`
	Options map[int][]core.Option `json:"options"`
}

// PurchaseOrderListResult is returned by ListPurchaseOrders.
type PurchaseOrderListResult struct {
	Orders []core.PurchaseOrder `json:"orders"`
}

// PlaceOrderResult is returned by PlaceOrder and ScanOrder.
type PlaceOrderResult struct {
	Orders []core.PlacedOrder `json:"orders"`
}

// OrderingTokenListResult is returned by ListOrderingTokens.
type OrderingTokenListResult struct {
	Tokens []core.OrderingToken `json:"tokens"`
}

// SettingResult is one stored setting.
type SettingResult struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}
