package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store runs fn inside a single transaction. If fn returns an error every
// write made through tx is discarded.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the persistence surface the core needs. Lookups of missing rows
// return an error wrapping ErrNotFound.
type Tx interface {
	SupplierRepo
	MaterialRepo
	OptionRepo
	PurchaseOrderRepo
	ReceivingRepo
	OrderingTokenRepo
	SettingsRepo
}

type SupplierRepo interface {
	CreateSupplier(ctx context.Context, s *Supplier) error
	GetSupplier(ctx context.Context, id int) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
}

type MaterialRepo interface {
	CreateMaterial(ctx context.Context, m *Material) error
	GetMaterial(ctx context.Context, id int) (*Material, error)
	ListMaterials(ctx context.Context) ([]Material, error)
	AdjustMaterialStock(ctx context.Context, materialID int, delta decimal.Decimal) error
	UpsertUnitConversion(ctx context.Context, c UnitConversion) error
	FindUnitConversion(ctx context.Context, materialID int, from, to string) (*UnitConversion, error)
	UpsertLot(ctx context.Context, lot *MaterialLot) error
	ListLots(ctx context.Context, materialID *int) ([]MaterialLot, error)
	InsertStockMovement(ctx context.Context, mv *StockMovement) error
}

// OptionRepo lists groups and options that are not soft-deleted, active or not.
type OptionRepo interface {
	CreateOptionGroup(ctx context.Context, g *OptionGroup) error
	ListOptionGroups(ctx context.Context) ([]OptionGroup, error)
	CreateOption(ctx context.Context, o *Option) error
	GetOption(ctx context.Context, id int) (*Option, error)
	ListOptions(ctx context.Context) ([]Option, error)
	UpsertItemOption(ctx context.Context, itemID, groupID, optionID int) error
	ListItemOptions(ctx context.Context, itemIDs []int) (map[int]map[int]int, error)
}

type PurchaseOrderRepo interface {
	InsertPurchaseOrder(ctx context.Context, po *PurchaseOrder) error
	UpdatePurchaseOrder(ctx context.Context, po *PurchaseOrder) error
	GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error)
	// LockPurchaseOrder is GetPurchaseOrder plus a row lock held until the
	// transaction ends.
	LockPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, f PurchaseOrderFilter) ([]PurchaseOrder, error)
	InsertItem(ctx context.Context, it *PurchaseOrderItem) error
	UpdateItem(ctx context.Context, it *PurchaseOrderItem) error
	GetItem(ctx context.Context, id int) (*PurchaseOrderItem, error)
	ListItems(ctx context.Context, purchaseOrderID int) ([]PurchaseOrderItem, error)
	// NextPONumber allocates the next gapless order number for year.
	NextPONumber(ctx context.Context, year int) (string, error)
}

type ReceivingRepo interface {
	InsertReceiving(ctx context.Context, r *Receiving) error
	ListReceivings(ctx context.Context, purchaseOrderID int) ([]Receiving, error)
}

type OrderingTokenRepo interface {
	CreateOrderingToken(ctx context.Context, t *OrderingToken) error
	GetOrderingTokenByValue(ctx context.Context, token string) (*OrderingToken, error)
	ListOrderingTokens(ctx context.Context) ([]OrderingToken, error)
	SetOrderingTokenEnabled(ctx context.Context, id int, enabled bool) error
}

// SettingsRepo is the generic key/value application settings store.
type SettingsRepo interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}
