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

// ReceivingService records goods receipts against issued orders and books
// the received stock.
type ReceivingService interface {
	Receive(ctx context.Context, in ReceiveInput) (*ReceiveResult, error)
}

// ReceiveResult is the stored receiving and the order's resulting state.
type ReceiveResult struct {
	Receiving *Receiving     `json:"receiving"`
	Order     *PurchaseOrder `json:"order"`
}

type receivingService struct {
	store  Store
	units  *UnitConverter
	logger *zap.Logger
	now    func() time.Time
}

func NewReceivingService(store Store, units *UnitConverter, logger *zap.Logger, clock func() time.Time) ReceivingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if units == nil {
		units = NewUnitConverter(logger)
	}
	if clock == nil {
		clock = time.Now
	}
	return &receivingService{store: store, units: units, logger: logger, now: clock}
}

// Receive stores one receiving event. Quantities are in each line's purchase
// unit and may not exceed what is still open on the line. Once nothing is
// open on any non-shipping line the order is Closed, otherwise Receiving.
func (s *receivingService) Receive(ctx context.Context, in ReceiveInput) (*ReceiveResult, error) {
	if len(in.Lines) == 0 {
		return nil, invalid("lines", "LINES_REQUIRED", "at least one received line is required")
	}

	res := &ReceiveResult{}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		po, err := loadOrder(ctx, tx, in.PurchaseOrderID, true)
		if err != nil {
			return err
		}
		if !po.Status.IsOpen() {
			return conflict("ORDER_NOT_RECEIVABLE",
				fmt.Sprintf("purchase order %d cannot be received: status is %s", po.ID, po.Status))
		}

		previous, err := tx.ListReceivings(ctx, po.ID)
		if err != nil {
			return fmt.Errorf("list receivings: %w", err)
		}
		received, err := receivedInPurchaseUnits(ctx, tx, s.units, po.Items, previous)
		if err != nil {
			return err
		}

		itemsByID := make(map[int]*PurchaseOrderItem, len(po.Items))
		for i := range po.Items {
			itemsByID[po.Items[i].ID] = &po.Items[i]
		}

		receivedAt := s.now()
		if in.ReceivedAt != nil {
			receivedAt = *in.ReceivedAt
		}
		rcv := &Receiving{
			PurchaseOrderID: po.ID,
			ReceivedAt:      receivedAt,
			ReferenceNumber: in.ReferenceNumber,
			Notes:           in.Notes,
			CreatedBy:       in.CreatedBy,
		}

		type booking struct {
			material *Material
			line     ReceiveLineInput
			qtyBase  decimal.Decimal
		}
		var bookings []booking

		for i, line := range in.Lines {
			field := fmt.Sprintf("lines.%d", i)
			item, ok := itemsByID[line.PurchaseOrderItemID]
			if !ok {
				return invalid(field+".purchase_order_item_id", "ITEM_NOT_ON_ORDER",
					fmt.Sprintf("item %d is not on purchase order %d", line.PurchaseOrderItemID, po.ID))
			}
			if item.IsShipping() {
				return invalid(field+".purchase_order_item_id", "SHIPPING_LINE_NOT_RECEIVABLE",
					"shipping lines cannot be received")
			}
			if !line.Qty.IsPositive() {
				return invalid(field+".qty", "INVALID_QUANTITY", "quantity must be greater than zero")
			}
			open := item.EffectiveQty().Sub(received[item.ID])
			if line.Qty.GreaterThan(open.Add(Epsilon)) {
				return invalid(field+".qty", "OVER_RECEIPT",
					fmt.Sprintf("quantity %s exceeds open quantity %s", line.Qty, open.Round(6)))
			}
			received[item.ID] = received[item.ID].Add(line.Qty)

			ri := ReceivingItem{
				PurchaseOrderItemID: item.ID,
				MaterialID:          item.MaterialID,
				UnitPurchase:        item.UnitPurchase,
				QtyReceived:         line.Qty,
				QtyBase:             line.Qty,
				LotNo:               strings.TrimSpace(line.LotNo),
			}
			if item.MaterialID != nil {
				m, err := tx.GetMaterial(ctx, *item.MaterialID)
				if err != nil {
					return fmt.Errorf("%s: material: %w", field, err)
				}
				if m.ManageByLot && ri.LotNo == "" {
					return invalid(field+".lot_no", "LOT_REQUIRED",
						fmt.Sprintf("material %s is managed by lot; lot number is required", m.SKU))
				}
				factor, err := s.units.Factor(ctx, tx, m, item.UnitPurchase, m.UnitStock)
				if err != nil {
					return err
				}
				ri.QtyBase = line.Qty.Mul(factor)
				bookings = append(bookings, booking{material: m, line: line, qtyBase: ri.QtyBase})
			}
			rcv.Items = append(rcv.Items, ri)
		}

		if err := tx.InsertReceiving(ctx, rcv); err != nil {
			return fmt.Errorf("insert receiving: %w", err)
		}

		for _, b := range bookings {
			if err := s.bookStock(ctx, tx, po, rcv, b.material, b.line, b.qtyBase); err != nil {
				return err
			}
		}

		if openQuantity(po.Items, received).LessThanOrEqual(Epsilon) {
			po.Status = StatusClosed
		} else {
			po.Status = StatusReceiving
		}
		if err := tx.UpdatePurchaseOrder(ctx, po); err != nil {
			return fmt.Errorf("update purchase order %d: %w", po.ID, err)
		}
		res.Receiving = rcv
		res.Order = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("receiving recorded",
		zap.Int("purchase_order_id", in.PurchaseOrderID),
		zap.Int("receiving_id", res.Receiving.ID),
		zap.String("status", string(res.Order.Status)))
	return res, nil
}

func (s *receivingService) bookStock(ctx context.Context, tx Tx, po *PurchaseOrder, rcv *Receiving, m *Material, line ReceiveLineInput, qtyBase decimal.Decimal) error {
	mv := &StockMovement{
		MaterialID: m.ID,
		Type:       "in",
		SourceType: "receiving",
		SourceID:   rcv.ID,
		QtyBase:    qtyBase,
		Unit:       m.UnitStock,
		OccurredAt: rcv.ReceivedAt,
		CreatedBy:  rcv.CreatedBy,
	}
	if m.ManageByLot {
		supplierID, poID := po.SupplierID, po.ID
		lot := &MaterialLot{
			MaterialID:      m.ID,
			LotNo:           strings.TrimSpace(line.LotNo),
			QtyOnHand:       qtyBase,
			Unit:            m.UnitStock,
			ExpiryDate:      line.ExpiryDate,
			SupplierID:      &supplierID,
			PurchaseOrderID: &poID,
		}
		if err := tx.UpsertLot(ctx, lot); err != nil {
			return fmt.Errorf("book lot %s: %w", lot.LotNo, err)
		}
		mv.LotID = &lot.ID
	} else if err := tx.AdjustMaterialStock(ctx, m.ID, qtyBase); err != nil {
		return fmt.Errorf("adjust stock of material %d: %w", m.ID, err)
	}
	if err := tx.InsertStockMovement(ctx, mv); err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// LineDelivery is the on-time/in-full assessment of one order line.
type LineDelivery struct {
	ItemID         int             `json:"item_id"`
	QtyOrdered     decimal.Decimal `json:"qty_ordered"`
	QtyCanceled    decimal.Decimal `json:"qty_canceled"`
	QtyReceived    decimal.Decimal `json:"qty_received"`
	LastReceivedAt *time.Time      `json:"last_received_at,omitempty"`
	InFull         bool            `json:"in_full"`
	OnTime         bool            `json:"on_time"`
}

// AssessDelivery evaluates every non-shipping line. A line is in full when the
// received quantity covers the effective quantity, and on time when it is in
// full and the last receipt falls on or before the line's expected date (or
// the order's, when the line has none). Lines without any due date count as
// on time once in full.
func AssessDelivery(po *PurchaseOrder, receivings []Receiving) []LineDelivery {
	type agg struct {
		qty  decimal.Decimal
		last *time.Time
	}
	byItem := map[int]*agg{}
	sorted := append([]Receiving(nil), receivings...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ReceivedAt.Before(sorted[j].ReceivedAt) })
	for _, r := range sorted {
		at := r.ReceivedAt
		for _, ri := range r.Items {
			a := byItem[ri.PurchaseOrderItemID]
			if a == nil {
				a = &agg{}
				byItem[ri.PurchaseOrderItemID] = a
			}
			a.qty = a.qty.Add(ri.QtyReceived)
			a.last = &at
		}
	}

	out := make([]LineDelivery, 0, len(po.Items))
	for _, it := range po.Items {
		if it.IsShipping() {
			continue
		}
		d := LineDelivery{ItemID: it.ID, QtyOrdered: it.QtyOrdered, QtyCanceled: it.QtyCanceled}
		if a := byItem[it.ID]; a != nil {
			d.QtyReceived = a.qty
			d.LastReceivedAt = a.last
		}
		d.InFull = d.QtyReceived.GreaterThanOrEqual(it.EffectiveQty().Sub(Epsilon))
		due := it.ExpectedDate
		if due == nil {
			due = po.ExpectedDate
		}
		switch {
		case !d.InFull || d.LastReceivedAt == nil:
			d.OnTime = false
		case due == nil:
			d.OnTime = true
		default:
			d.OnTime = !dateOnly(*d.LastReceivedAt).After(dateOnly(*due))
		}
		out = append(out, d)
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
