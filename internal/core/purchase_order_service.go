package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PurchaseOrderService applies lifecycle transitions to existing orders.
type PurchaseOrderService interface {
	// GetPurchaseOrder returns the order with items, their options and receivings.
	GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrderDetail, error)
	ListPurchaseOrders(ctx context.Context, f PurchaseOrderFilter) ([]PurchaseOrder, error)

	// Issue is the approval completion hook. A draft gets its number and
	// becomes Issued; any other status is left untouched.
	Issue(ctx context.Context, id int) (*IssueResult, error)

	// CancelItem cancels whatever is neither received nor canceled yet.
	CancelItem(ctx context.Context, itemID int, reason string) (*CancelItemResult, error)

	// CancelPurchaseOrder cancels a draft order and withdraws its approval task.
	CancelPurchaseOrder(ctx context.Context, id int, actorID *int, comment string) (*CancelOrderResult, error)

	RecomputeTotals(ctx context.Context, id int) (*PurchaseOrder, error)
	UpdateItemExpectedDate(ctx context.Context, itemID int, date *time.Time) (*PurchaseOrderItem, error)
}

// PurchaseOrderDetail is an order with everything shown on its detail view.
type PurchaseOrderDetail struct {
	Order      *PurchaseOrder `json:"order"`
	Supplier   *Supplier      `json:"supplier,omitempty"`
	Receivings []Receiving    `json:"receivings"`
	Delivery   []LineDelivery `json:"delivery"`
}

// IssueResult is the outcome of Issue.
type IssueResult struct {
	Order   *PurchaseOrder `json:"order"`
	Issued  bool           `json:"issued"`
	Effects Effects        `json:"effects,omitempty"`
}

// CancelOutcome distinguishes the non-error results of CancelItem.
type CancelOutcome string

const (
	CancelApplied          CancelOutcome = "applied"
	CancelAlreadyCanceled  CancelOutcome = "already_canceled"
	CancelNothingRemaining CancelOutcome = "nothing_remaining"
)

// CancelItemResult is the outcome of CancelItem. Order is nil unless the
// cancellation was applied.
type CancelItemResult struct {
	Outcome     CancelOutcome      `json:"outcome"`
	Item        *PurchaseOrderItem `json:"item"`
	QtyCanceled decimal.Decimal    `json:"qty_canceled"`
	Order       *PurchaseOrder     `json:"order,omitempty"`
}

// CancelOrderResult is the outcome of CancelPurchaseOrder.
type CancelOrderResult struct {
	Order   *PurchaseOrder `json:"order"`
	Effects Effects        `json:"effects,omitempty"`
}

// PurchaseOrderDeps are the collaborators of the lifecycle service.
type PurchaseOrderDeps struct {
	Store     Store
	Units     *UnitConverter
	Approvals *ApprovalFlowRegistrar
	Notifier  Notifier
	Logger    *zap.Logger
	Clock     func() time.Time
}

type purchaseOrderService struct {
	store     Store
	units     *UnitConverter
	approvals *ApprovalFlowRegistrar
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewPurchaseOrderService constructs the order lifecycle service.
func NewPurchaseOrderService(deps PurchaseOrderDeps) (PurchaseOrderService, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("purchase order service: store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Units == nil {
		deps.Units = NewUnitConverter(deps.Logger)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &purchaseOrderService{
		store:     deps.Store,
		units:     deps.Units,
		approvals: deps.Approvals,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		now:       deps.Clock,
	}, nil
}

func (s *purchaseOrderService) GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrderDetail, error) {
	var d PurchaseOrderDetail
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		po, err := loadOrder(ctx, tx, id, false)
		if err != nil {
			return err
		}
		if err := attachItemOptions(ctx, tx, po.Items); err != nil {
			return err
		}
		d.Order = po
		if d.Supplier, err = tx.GetSupplier(ctx, po.SupplierID); err != nil {
			return fmt.Errorf("supplier: %w", err)
		}
		if d.Receivings, err = tx.ListReceivings(ctx, id); err != nil {
			return fmt.Errorf("list receivings: %w", err)
		}
		d.Delivery = AssessDelivery(po, d.Receivings)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *purchaseOrderService) ListPurchaseOrders(ctx context.Context, f PurchaseOrderFilter) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListPurchaseOrders(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	return out, nil
}

func (s *purchaseOrderService) Issue(ctx context.Context, id int) (*IssueResult, error) {
	res := &IssueResult{}
	var supplier *Supplier
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		po, err := loadOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		res.Order = po
		if po.Status != StatusDraft {
			return nil
		}

		now := s.now()
		number, err := tx.NextPONumber(ctx, now.Year())
		if err != nil {
			return fmt.Errorf("allocate po number: %w", err)
		}
		po.PONumber = &number
		po.Status = StatusIssued
		po.IssueDate = &now
		po.ShippingTotal = decimal.Zero
		po.ShippingTaxTotal = decimal.Zero
		if err := tx.UpdatePurchaseOrder(ctx, po); err != nil {
			return fmt.Errorf("issue purchase order %d: %w", id, err)
		}
		res.Issued = true

		if supplier, err = tx.GetSupplier(ctx, po.SupplierID); err != nil {
			return fmt.Errorf("supplier: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !res.Issued {
		return res, nil
	}

	s.logger.Info("purchase order issued",
		zap.Int("purchase_order_id", id), zap.String("po_number", *res.Order.PONumber))
	res.Effects = append(res.Effects, s.notifySupplier(ctx, supplier, res.Order))
	return res, nil
}

func (s *purchaseOrderService) notifySupplier(ctx context.Context, supplier *Supplier, po *PurchaseOrder) EffectOutcome {
	if s.notifier == nil || supplier == nil || !supplier.AutoSendPO || supplier.Email == "" {
		return effectSkipped(EffectSupplierNotify)
	}
	number := ""
	if po.PONumber != nil {
		number = *po.PONumber
	}
	err := s.notifier.Enqueue(ctx, Notification{
		To:       supplier.Email,
		CC:       ParseCCList(supplier.EmailCC),
		Subject:  fmt.Sprintf("Purchase order %s", number),
		Supplier: supplier,
		Order:    po,
	})
	if err != nil {
		s.logger.Warn("supplier notification failed", zap.Int("purchase_order_id", po.ID), zap.Error(err))
	}
	return effectDone(EffectSupplierNotify, err)
}

func (s *purchaseOrderService) CancelItem(ctx context.Context, itemID int, reason string) (*CancelItemResult, error) {
	var res *CancelItemResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		po, err := loadOrder(ctx, tx, item.PurchaseOrderID, true)
		if err != nil {
			return err
		}
		if !po.Status.IsOpen() {
			return conflict("ORDER_NOT_CANCELABLE",
				fmt.Sprintf("lines of a %s purchase order cannot be canceled", po.Status))
		}
		if item.IsShipping() {
			return conflict("SHIPPING_LINE_NOT_CANCELABLE", "shipping lines cannot be canceled")
		}
		if item.FullyCanceled() {
			res = &CancelItemResult{Outcome: CancelAlreadyCanceled, Item: item}
			return nil
		}

		receivings, err := tx.ListReceivings(ctx, po.ID)
		if err != nil {
			return fmt.Errorf("list receivings: %w", err)
		}
		received, err := s.receivedByItem(ctx, tx, po.Items, receivings)
		if err != nil {
			return err
		}

		remaining := item.QtyOrdered.Sub(received[item.ID]).Sub(item.QtyCanceled)
		if remaining.LessThanOrEqual(Epsilon) {
			res = &CancelItemResult{Outcome: CancelNothingRemaining, Item: item}
			return nil
		}

		now := s.now()
		for i := range po.Items {
			if po.Items[i].ID != item.ID {
				continue
			}
			it := &po.Items[i]
			it.QtyCanceled = it.QtyCanceled.Add(remaining)
			it.CanceledAt = &now
			if reason != "" {
				it.CanceledReason = reason
			}
		}

		ComputeTotals(po.Items).Apply(po)
		for i := range po.Items {
			if err := tx.UpdateItem(ctx, &po.Items[i]); err != nil {
				return fmt.Errorf("update item %d: %w", po.Items[i].ID, err)
			}
		}
		if openQuantity(po.Items, received).LessThanOrEqual(Epsilon) {
			if hasReceipts(receivings) {
				po.Status = StatusClosed
			} else {
				po.Status = StatusCanceled
			}
		}
		if err := tx.UpdatePurchaseOrder(ctx, po); err != nil {
			return fmt.Errorf("update purchase order %d: %w", po.ID, err)
		}

		for i := range po.Items {
			if po.Items[i].ID == item.ID {
				item = &po.Items[i]
			}
		}
		res = &CancelItemResult{Outcome: CancelApplied, Item: item, QtyCanceled: remaining, Order: po}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase order item cancel",
		zap.Int("item_id", itemID), zap.String("outcome", string(res.Outcome)))
	return res, nil
}

func (s *purchaseOrderService) CancelPurchaseOrder(ctx context.Context, id int, actorID *int, comment string) (*CancelOrderResult, error) {
	res := &CancelOrderResult{}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		po, err := loadOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if po.Status != StatusDraft {
			return conflict("ORDER_NOT_DRAFT",
				fmt.Sprintf("only draft purchase orders can be canceled, status is %s", po.Status))
		}
		po.Status = StatusCanceled
		if err := tx.UpdatePurchaseOrder(ctx, po); err != nil {
			return fmt.Errorf("cancel purchase order %d: %w", id, err)
		}
		res.Order = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.approvals != nil {
		res.Effects = append(res.Effects, s.approvals.Cancel(ctx, id, actorID, comment))
	}
	return res, nil
}

func (s *purchaseOrderService) RecomputeTotals(ctx context.Context, id int) (*PurchaseOrder, error) {
	var po *PurchaseOrder
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		po, err = loadOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		ComputeTotals(po.Items).Apply(po)
		for i := range po.Items {
			if err := tx.UpdateItem(ctx, &po.Items[i]); err != nil {
				return fmt.Errorf("update item %d: %w", po.Items[i].ID, err)
			}
		}
		return tx.UpdatePurchaseOrder(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *purchaseOrderService) UpdateItemExpectedDate(ctx context.Context, itemID int, date *time.Time) (*PurchaseOrderItem, error) {
	var item *PurchaseOrderItem
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		item, err = tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.IsShipping() {
			return conflict("SHIPPING_LINE_NOT_EDITABLE", "shipping lines have no expected date")
		}
		po, err := tx.LockPurchaseOrder(ctx, item.PurchaseOrderID)
		if err != nil {
			return err
		}
		if po.Status.IsTerminal() {
			return conflict("ORDER_CLOSED",
				fmt.Sprintf("expected dates of a %s purchase order cannot be changed", po.Status))
		}
		item.ExpectedDate = date
		return tx.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// receivedByItem sums received quantities per line in purchase units.
func (s *purchaseOrderService) receivedByItem(ctx context.Context, tx Tx, items []PurchaseOrderItem, receivings []Receiving) (map[int]decimal.Decimal, error) {
	return receivedInPurchaseUnits(ctx, tx, s.units, items, receivings)
}

func receivedInPurchaseUnits(ctx context.Context, tx Tx, units *UnitConverter, items []PurchaseOrderItem, receivings []Receiving) (map[int]decimal.Decimal, error) {
	base := make(map[int]decimal.Decimal)
	for _, r := range receivings {
		for _, ri := range r.Items {
			base[ri.PurchaseOrderItemID] = base[ri.PurchaseOrderItemID].Add(ri.QtyBase)
		}
	}
	out := make(map[int]decimal.Decimal, len(items))
	materials := map[int]*Material{}
	for _, it := range items {
		qty, ok := base[it.ID]
		if !ok {
			continue
		}
		if it.MaterialID == nil {
			out[it.ID] = qty
			continue
		}
		m, ok := materials[*it.MaterialID]
		if !ok {
			var err error
			if m, err = tx.GetMaterial(ctx, *it.MaterialID); err != nil {
				return nil, fmt.Errorf("material %d: %w", *it.MaterialID, err)
			}
			materials[m.ID] = m
		}
		factor, err := units.Factor(ctx, tx, m, it.UnitPurchase, m.UnitStock)
		if err != nil {
			return nil, err
		}
		if factor.IsPositive() {
			out[it.ID] = qty.DivRound(factor, 12)
		}
	}
	return out, nil
}

// openQuantity is the quantity still expected across non-shipping lines.
func openQuantity(items []PurchaseOrderItem, received map[int]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.IsShipping() {
			continue
		}
		open := it.EffectiveQty().Sub(received[it.ID])
		if open.IsPositive() {
			total = total.Add(open)
		}
	}
	return total
}

func hasReceipts(receivings []Receiving) bool {
	for _, r := range receivings {
		if len(r.Items) > 0 {
			return true
		}
	}
	return false
}

func loadOrder(ctx context.Context, tx Tx, id int, lock bool) (*PurchaseOrder, error) {
	var (
		po  *PurchaseOrder
		err error
	)
	if lock {
		po, err = tx.LockPurchaseOrder(ctx, id)
	} else {
		po, err = tx.GetPurchaseOrder(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if po.Items, err = tx.ListItems(ctx, id); err != nil {
		return nil, fmt.Errorf("list items of purchase order %d: %w", id, err)
	}
	return po, nil
}

func attachItemOptions(ctx context.Context, tx Tx, items []PurchaseOrderItem) error {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	opts, err := tx.ListItemOptions(ctx, ids)
	if err != nil {
		return fmt.Errorf("list item options: %w", err)
	}
	for i := range items {
		if sel, ok := opts[items[i].ID]; ok {
			items[i].Options = sel
		}
	}
	return nil
}
