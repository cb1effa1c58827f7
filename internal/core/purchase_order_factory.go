package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FactoryDeps are the collaborators of PurchaseOrderFactory.
type FactoryDeps struct {
	Store    Store
	Tax      *TaxResolver
	Options  *OptionSelectionService
	Sync     *OptionSyncService
	Delivery *DeliveryLocationResolver
	Logger   *zap.Logger
	Clock    func() time.Time
}

// PurchaseOrderFactory builds complete draft orders atomically.
type PurchaseOrderFactory struct {
	store    Store
	tax      *TaxResolver
	options  *OptionSelectionService
	sync     *OptionSyncService
	delivery *DeliveryLocationResolver
	logger   *zap.Logger
	now      func() time.Time
}

func NewPurchaseOrderFactory(deps FactoryDeps) (*PurchaseOrderFactory, error) {
	if deps.Store == nil || deps.Tax == nil || deps.Delivery == nil {
		return nil, fmt.Errorf("purchase order factory: store, tax resolver and delivery resolver are required")
	}
	if deps.Options == nil {
		deps.Options = NewOptionSelectionService(deps.Store)
	}
	if deps.Sync == nil {
		deps.Sync = NewOptionSyncService()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &PurchaseOrderFactory{
		store:    deps.Store,
		tax:      deps.Tax,
		options:  deps.Options,
		sync:     deps.Sync,
		delivery: deps.Delivery,
		logger:   deps.Logger,
		now:      deps.Clock,
	}, nil
}

// Create persists a draft order with its lines, generated shipping lines and
// totals in one transaction. Nothing is persisted if any line fails.
func (f *PurchaseOrderFactory) Create(ctx context.Context, in CreatePurchaseOrderInput, generateShippingPerLine bool) (*PurchaseOrder, error) {
	var po *PurchaseOrder
	err := f.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		po, err = f.CreateTx(ctx, tx, in, generateShippingPerLine)
		return err
	})
	if err != nil {
		return nil, err
	}
	f.logger.Info("purchase order created",
		zap.Int("purchase_order_id", po.ID),
		zap.Int("lines", len(po.Items)),
		zap.String("total", po.Total.String()))
	return po, nil
}

// CreateTx is Create inside the caller's transaction.
func (f *PurchaseOrderFactory) CreateTx(ctx context.Context, tx Tx, in CreatePurchaseOrderInput, generateShippingPerLine bool) (*PurchaseOrder, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}
	if _, err := tx.GetSupplier(ctx, in.SupplierID); err != nil {
		return nil, fmt.Errorf("supplier: %w", err)
	}
	materials, err := loadLineMaterials(ctx, tx, in.Items)
	if err != nil {
		return nil, err
	}

	po := &PurchaseOrder{
		SupplierID:       in.SupplierID,
		Status:           StatusDraft,
		ExpectedDate:     in.ExpectedDate,
		DeliveryLocation: f.delivery.Resolve(in.DeliveryLocation),
		CreatedBy:        in.CreatedBy,
		CreatedAt:        f.now(),
	}
	if err := tx.InsertPurchaseOrder(ctx, po); err != nil {
		return nil, fmt.Errorf("insert purchase order: %w", err)
	}

	var subtotal, tax decimal.Decimal
	for i, line := range in.Items {
		material := materials[i]
		lineSubtotal := line.QtyOrdered.Mul(line.PriceUnit)
		rate := f.lineRate(line, material, in.ExpectedDate)

		item := PurchaseOrderItem{
			PurchaseOrderID: po.ID,
			MaterialID:      line.MaterialID,
			Description:     lineDescription(line, material),
			Manufacturer:    line.Manufacturer,
			UnitPurchase:    lineUnit(line, material),
			QtyOrdered:      line.QtyOrdered,
			QtyCanceled:     decimal.Zero,
			PriceUnit:       line.PriceUnit,
			TaxRate:         rate,
			LineTotal:       lineSubtotal,
			DesiredDate:     line.DesiredDate,
			ExpectedDate:    line.ExpectedDate,
			Note:            line.Note,
		}
		if err := tx.InsertItem(ctx, &item); err != nil {
			return nil, fmt.Errorf("line %d: insert: %w", i+1, err)
		}

		selected, err := f.options.NormalizeAndValidateTx(ctx, tx, line.Options)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if len(selected) > 0 {
			if err := f.sync.SyncToItem(ctx, tx, item.ID, selected); err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			item.Options = selected
		}

		subtotal = subtotal.Add(lineSubtotal)
		tax = tax.Add(lineSubtotal.Mul(rate))
		po.Items = append(po.Items, item)

		if generateShippingPerLine && material != nil && material.NeedsShippingLine() {
			ship, err := f.insertShippingLine(ctx, tx, po.ID, item.ID, material)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			subtotal = subtotal.Add(ship.LineTotal)
			tax = tax.Add(ship.LineTotal.Mul(ship.TaxRate))
			po.Items = append(po.Items, *ship)
		}
	}

	po.Subtotal = subtotal
	po.Tax = tax
	po.Total = subtotal.Add(tax)
	if err := tx.UpdatePurchaseOrder(ctx, po); err != nil {
		return nil, fmt.Errorf("update purchase order totals: %w", err)
	}
	return po, nil
}

func (f *PurchaseOrderFactory) lineRate(line PurchaseOrderItemInput, material *Material, at *time.Time) decimal.Decimal {
	if line.TaxRate != nil {
		return *line.TaxRate
	}
	return f.tax.ResolveRate(material, at)
}

func (f *PurchaseOrderFactory) insertShippingLine(ctx context.Context, tx Tx, poID, forItemID int, material *Material) (*PurchaseOrderItem, error) {
	name := material.Name
	if name == "" {
		name = material.SKU
	}
	forID := forItemID
	ship := &PurchaseOrderItem{
		PurchaseOrderID:   poID,
		Description:       fmt.Sprintf("Shipping (%s)", name),
		UnitPurchase:      UnitShipping,
		QtyOrdered:        decimal.NewFromInt(1),
		QtyCanceled:       decimal.Zero,
		PriceUnit:         material.ShippingFeePerOrder,
		TaxRate:           f.tax.ShippingRate(),
		LineTotal:         material.ShippingFeePerOrder,
		ShippingForItemID: &forID,
	}
	if err := tx.InsertItem(ctx, ship); err != nil {
		return nil, fmt.Errorf("insert shipping line: %w", err)
	}
	return ship, nil
}

func validateCreateInput(in CreatePurchaseOrderInput) error {
	if in.SupplierID <= 0 {
		return invalid("supplier_id", "SUPPLIER_REQUIRED", "supplier is required")
	}
	if len(in.Items) == 0 {
		return invalid("items", "ITEMS_REQUIRED", "purchase order must have at least one line")
	}
	for i, line := range in.Items {
		field := fmt.Sprintf("items.%d", i)
		if line.MaterialID == nil && strings.TrimSpace(line.Description) == "" {
			return invalid(field+".description", "DESCRIPTION_REQUIRED", "ad-hoc line requires a description")
		}
		if !line.QtyOrdered.IsPositive() {
			return invalid(field+".qty_ordered", "INVALID_QUANTITY", "quantity must be greater than zero")
		}
		if line.PriceUnit.IsNegative() {
			return invalid(field+".price_unit", "INVALID_PRICE", "unit price must not be negative")
		}
		if line.TaxRate != nil && (line.TaxRate.IsNegative() || line.TaxRate.GreaterThan(decimal.NewFromInt(1))) {
			return invalid(field+".tax_rate", "INVALID_TAX_RATE", "tax rate must be between 0 and 1")
		}
	}
	return nil
}

// loadLineMaterials resolves every material-backed line before anything is
// written. Inactive materials cannot be ordered.
func loadLineMaterials(ctx context.Context, tx Tx, items []PurchaseOrderItemInput) ([]*Material, error) {
	out := make([]*Material, len(items))
	for i, line := range items {
		if line.MaterialID == nil {
			continue
		}
		m, err := tx.GetMaterial(ctx, *line.MaterialID)
		if err != nil {
			return nil, fmt.Errorf("line %d: material: %w", i+1, err)
		}
		if !m.IsActive {
			return nil, precondition("MATERIAL_INACTIVE",
				fmt.Sprintf("items.%d.material_id: material %s is inactive", i, m.SKU))
		}
		out[i] = m
	}
	return out, nil
}

func lineDescription(line PurchaseOrderItemInput, material *Material) string {
	if strings.TrimSpace(line.Description) != "" || material == nil {
		return line.Description
	}
	return material.Name
}

func lineUnit(line PurchaseOrderItemInput, material *Material) string {
	if line.UnitPurchase != "" {
		return line.UnitPurchase
	}
	if material != nil {
		return material.PurchaseUnit()
	}
	return DefaultPurchaseUnit
}
