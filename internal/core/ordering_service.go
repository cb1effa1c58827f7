package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlacedOrder is a newly created draft and the post-commit effects run for it.
type PlacedOrder struct {
	Order   *PurchaseOrder `json:"order"`
	Effects Effects        `json:"effects,omitempty"`
}

// PlaceOrderInput is a manual order. With SupplierID zero the lines are
// split into one order per material's preferred supplier.
type PlaceOrderInput struct {
	SupplierID       int
	ExpectedDate     *time.Time
	DeliveryLocation string
	Items            []PurchaseOrderItemInput
}

// ScanOrderInput is a token-triggered order request.
type ScanOrderInput struct {
	Token   string
	Qty     decimal.Decimal
	Note    string
	Options map[int]*int
}

// OrderingDeps are the collaborators of OrderingService.
type OrderingDeps struct {
	Store     Store
	Factory   *PurchaseOrderFactory
	Options   *OptionSelectionService
	Approvals *ApprovalFlowRegistrar
	Logger    *zap.Logger
	Clock     func() time.Time
}

// OrderingService is the entry point for creating orders from the manual
// form and from token scans. Both check the approval flow first.
type OrderingService struct {
	store     Store
	factory   *PurchaseOrderFactory
	options   *OptionSelectionService
	approvals *ApprovalFlowRegistrar
	logger    *zap.Logger
	now       func() time.Time
}

func NewOrderingService(deps OrderingDeps) (*OrderingService, error) {
	if deps.Store == nil || deps.Factory == nil || deps.Approvals == nil {
		return nil, fmt.Errorf("ordering service: store, factory and approval registrar are required")
	}
	if deps.Options == nil {
		deps.Options = NewOptionSelectionService(deps.Store)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &OrderingService{
		store:     deps.Store,
		factory:   deps.Factory,
		options:   deps.Options,
		approvals: deps.Approvals,
		logger:    deps.Logger,
		now:       deps.Clock,
	}, nil
}

// PlaceOrder creates one draft per supplier in a single transaction and then
// registers each with the approval engine.
func (s *OrderingService) PlaceOrder(ctx context.Context, in PlaceOrderInput, actorID *int) ([]PlacedOrder, error) {
	if _, err := s.approvals.RequireFlow(); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, invalid("items", "ITEMS_REQUIRED", "purchase order must have at least one line")
	}

	var created []*PurchaseOrder
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		groups, err := s.splitBySupplier(ctx, tx, in)
		if err != nil {
			return err
		}
		for _, g := range groups {
			po, err := s.factory.CreateTx(ctx, tx, CreatePurchaseOrderInput{
				SupplierID:       g.supplierID,
				ExpectedDate:     in.ExpectedDate,
				DeliveryLocation: in.DeliveryLocation,
				CreatedBy:        actorID,
				Items:            g.items,
			}, true)
			if err != nil {
				return err
			}
			created = append(created, po)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]PlacedOrder, 0, len(created))
	for _, po := range created {
		out = append(out, PlacedOrder{
			Order:   po,
			Effects: Effects{s.approvals.Register(ctx, po, actorID)},
		})
	}
	return out, nil
}

type supplierGroup struct {
	supplierID int
	items      []PurchaseOrderItemInput
}

func (s *OrderingService) splitBySupplier(ctx context.Context, tx Tx, in PlaceOrderInput) ([]supplierGroup, error) {
	if in.SupplierID > 0 {
		for i, line := range in.Items {
			if line.MaterialID == nil {
				continue
			}
			m, err := tx.GetMaterial(ctx, *line.MaterialID)
			if err != nil {
				return nil, fmt.Errorf("line %d: material: %w", i+1, err)
			}
			if m.PreferredSupplierID != nil && *m.PreferredSupplierID != in.SupplierID {
				return nil, invalid(fmt.Sprintf("items.%d.material_id", i), "SUPPLIER_MISMATCH",
					fmt.Sprintf("material %s is bought from another supplier", m.SKU))
			}
		}
		return []supplierGroup{{supplierID: in.SupplierID, items: in.Items}}, nil
	}
	bySupplier := map[int][]PurchaseOrderItemInput{}
	for i, line := range in.Items {
		field := fmt.Sprintf("items.%d.material_id", i)
		if line.MaterialID == nil {
			return nil, invalid(field, "SUPPLIER_REQUIRED", "ad-hoc lines require an explicit supplier")
		}
		m, err := tx.GetMaterial(ctx, *line.MaterialID)
		if err != nil {
			return nil, fmt.Errorf("line %d: material: %w", i+1, err)
		}
		if m.PreferredSupplierID == nil {
			return nil, invalid(field, "PREFERRED_SUPPLIER_MISSING",
				fmt.Sprintf("material %s has no preferred supplier", m.SKU))
		}
		bySupplier[*m.PreferredSupplierID] = append(bySupplier[*m.PreferredSupplierID], line)
	}
	ids := make([]int, 0, len(bySupplier))
	for id := range bySupplier {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	groups := make([]supplierGroup, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, supplierGroup{supplierID: id, items: bySupplier[id]})
	}
	return groups, nil
}

// CreateDraftFromScan validates a token scan and creates a one-line draft for
// the material's preferred supplier, with per-line shipping generation on.
func (s *OrderingService) CreateDraftFromScan(ctx context.Context, in ScanOrderInput, actorID *int) (*PlacedOrder, error) {
	if _, err := s.approvals.RequireFlow(); err != nil {
		return nil, err
	}
	token := strings.TrimSpace(in.Token)
	if token == "" || !in.Qty.IsPositive() {
		return nil, invalid("", "INVALID_INPUT", "invalid token or quantity")
	}

	var (
		tok      *OrderingToken
		material *Material
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		tok, err = tx.GetOrderingTokenByValue(ctx, token)
		if err != nil {
			if isNotFound(err) {
				return precondition("TOKEN_NOT_FOUND", "token not found")
			}
			return fmt.Errorf("load token: %w", err)
		}
		if !tok.Enabled {
			return precondition("TOKEN_DISABLED", "token is disabled")
		}
		if tok.Expired(s.now()) {
			return precondition("TOKEN_EXPIRED", "token expired")
		}
		material, err = tx.GetMaterial(ctx, tok.MaterialID)
		if err != nil {
			if isNotFound(err) {
				return precondition("MATERIAL_NOT_FOUND", "material not found")
			}
			return fmt.Errorf("load material: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !material.IsActive {
		return nil, precondition("MATERIAL_INACTIVE", "material is inactive")
	}
	if material.PreferredSupplierID == nil {
		return nil, precondition("PREFERRED_SUPPLIER_MISSING", "preferred supplier is not set for this material")
	}
	if err := CheckOrderQuantity(material, in.Qty); err != nil {
		return nil, err
	}
	selected, err := s.options.NormalizeAndValidate(ctx, in.Options)
	if err != nil {
		return nil, err
	}

	unit := material.PurchaseUnit()
	if tok.UnitPurchase != nil && *tok.UnitPurchase != "" {
		unit = *tok.UnitPurchase
	}
	raw := make(map[int]*int, len(selected))
	for g, o := range selected {
		raw[g] = &o
	}
	materialID := material.ID
	po, err := s.factory.Create(ctx, CreatePurchaseOrderInput{
		SupplierID: *material.PreferredSupplierID,
		CreatedBy:  actorID,
		Items: []PurchaseOrderItemInput{{
			MaterialID:   &materialID,
			Description:  material.Name,
			Manufacturer: material.ManufacturerName,
			UnitPurchase: unit,
			QtyOrdered:   in.Qty,
			PriceUnit:    material.UnitPrice,
			Note:         in.Note,
			Options:      raw,
		}},
	}, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("draft created from scan",
		zap.Int("purchase_order_id", po.ID), zap.Int("ordering_token_id", tok.ID))

	return &PlacedOrder{
		Order:   po,
		Effects: Effects{s.approvals.Register(ctx, po, actorID)},
	}, nil
}

// CheckOrderQuantity enforces the material's minimum order quantity and pack
// size. Pack multiples are checked with Epsilon tolerance.
func CheckOrderQuantity(m *Material, qty decimal.Decimal) error {
	if m.MOQ.IsPositive() && qty.LessThan(m.MOQ) {
		return invalid("qty", "BELOW_MOQ",
			fmt.Sprintf("quantity must be at least the minimum order quantity %s", m.MOQ))
	}
	if m.PackSize.IsPositive() {
		rem := qty.Mod(m.PackSize)
		if rem.GreaterThan(Epsilon) && m.PackSize.Sub(rem).GreaterThan(Epsilon) {
			return invalid("qty", "PACK_SIZE_MISMATCH",
				fmt.Sprintf("quantity must be a multiple of the pack size %s", m.PackSize))
		}
	}
	return nil
}
