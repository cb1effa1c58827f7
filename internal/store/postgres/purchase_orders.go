package postgres

import (
	"context"
	"fmt"
	"strings"

	"procurement-flow/internal/core"

	"github.com/jackc/pgx/v5"
)

const poColumns = `
	id, po_number, supplier_id, status, issue_date, expected_date,
	subtotal, shipping_total, shipping_tax_total, tax, total,
	delivery_location, created_by, created_at`

func scanPurchaseOrder(row pgx.Row, po *core.PurchaseOrder) error {
	var status string
	err := row.Scan(
		&po.ID, &po.PONumber, &po.SupplierID, &status, &po.IssueDate, &po.ExpectedDate,
		&po.Subtotal, &po.ShippingTotal, &po.ShippingTaxTotal, &po.Tax, &po.Total,
		&po.DeliveryLocation, &po.CreatedBy, &po.CreatedAt,
	)
	if err != nil {
		return err
	}
	po.Status, err = core.ParseStatus(status)
	return err
}

func (t *tx) InsertPurchaseOrder(ctx context.Context, po *core.PurchaseOrder) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (supplier_id, status, expected_date, subtotal, shipping_total,
		                             shipping_tax_total, tax, total, delivery_location, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		po.SupplierID, string(po.Status), po.ExpectedDate, po.Subtotal, po.ShippingTotal,
		po.ShippingTaxTotal, po.Tax, po.Total, po.DeliveryLocation, po.CreatedBy, po.CreatedAt,
	).Scan(&po.ID)
	if err != nil {
		return writeErr(err, "insert purchase order")
	}
	return nil
}

func (t *tx) UpdatePurchaseOrder(ctx context.Context, po *core.PurchaseOrder) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE purchase_orders
		SET po_number = $1, status = $2, issue_date = $3, expected_date = $4,
		    subtotal = $5, shipping_total = $6, shipping_tax_total = $7, tax = $8, total = $9,
		    delivery_location = $10
		WHERE id = $11`,
		po.PONumber, string(po.Status), po.IssueDate, po.ExpectedDate,
		po.Subtotal, po.ShippingTotal, po.ShippingTaxTotal, po.Tax, po.Total,
		po.DeliveryLocation, po.ID)
	if err != nil {
		return writeErr(err, fmt.Sprintf("update purchase order %d", po.ID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase order %d: %w", po.ID, core.ErrNotFound)
	}
	return nil
}

func (t *tx) GetPurchaseOrder(ctx context.Context, id int) (*core.PurchaseOrder, error) {
	po := &core.PurchaseOrder{}
	if err := scanPurchaseOrder(t.tx.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id), po); err != nil {
		return nil, notFound(err, "purchase order", id)
	}
	return po, nil
}

func (t *tx) LockPurchaseOrder(ctx context.Context, id int) (*core.PurchaseOrder, error) {
	po := &core.PurchaseOrder{}
	err := scanPurchaseOrder(t.tx.QueryRow(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id), po)
	if err != nil {
		return nil, notFound(err, "purchase order", id)
	}
	return po, nil
}

func (t *tx) ListPurchaseOrders(ctx context.Context, f core.PurchaseOrderFilter) ([]core.PurchaseOrder, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.SupplierID != nil {
		args = append(args, *f.SupplierID)
		where = append(where, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	query := `SELECT ` + poColumns + ` FROM purchase_orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var out []core.PurchaseOrder
	for rows.Next() {
		var po core.PurchaseOrder
		if err := scanPurchaseOrder(rows, &po); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

const itemColumns = `
	id, purchase_order_id, material_id, description, COALESCE(manufacturer, ''), unit_purchase,
	qty_ordered, qty_canceled, price_unit, tax_rate, line_total, desired_date, expected_date,
	COALESCE(note, ''), shipping_for_item_id, canceled_at, COALESCE(canceled_reason, '')`

func scanItem(row pgx.Row, it *core.PurchaseOrderItem) error {
	return row.Scan(
		&it.ID, &it.PurchaseOrderID, &it.MaterialID, &it.Description, &it.Manufacturer, &it.UnitPurchase,
		&it.QtyOrdered, &it.QtyCanceled, &it.PriceUnit, &it.TaxRate, &it.LineTotal, &it.DesiredDate, &it.ExpectedDate,
		&it.Note, &it.ShippingForItemID, &it.CanceledAt, &it.CanceledReason,
	)
}

func (t *tx) InsertItem(ctx context.Context, it *core.PurchaseOrderItem) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO purchase_order_items (purchase_order_id, material_id, description, manufacturer, unit_purchase,
		                                  qty_ordered, qty_canceled, price_unit, tax_rate, line_total,
		                                  desired_date, expected_date, note, shipping_for_item_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		it.PurchaseOrderID, it.MaterialID, it.Description, nullIfEmpty(it.Manufacturer), it.UnitPurchase,
		it.QtyOrdered, it.QtyCanceled, it.PriceUnit, it.TaxRate, it.LineTotal,
		it.DesiredDate, it.ExpectedDate, nullIfEmpty(it.Note), it.ShippingForItemID,
	).Scan(&it.ID)
	if err != nil {
		return writeErr(err, "insert purchase order item")
	}
	return nil
}

func (t *tx) UpdateItem(ctx context.Context, it *core.PurchaseOrderItem) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE purchase_order_items
		SET qty_canceled = $1, line_total = $2, expected_date = $3, canceled_at = $4, canceled_reason = $5
		WHERE id = $6`,
		it.QtyCanceled, it.LineTotal, it.ExpectedDate, it.CanceledAt, nullIfEmpty(it.CanceledReason), it.ID)
	if err != nil {
		return writeErr(err, fmt.Sprintf("update item %d", it.ID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase order item %d: %w", it.ID, core.ErrNotFound)
	}
	return nil
}

func (t *tx) GetItem(ctx context.Context, id int) (*core.PurchaseOrderItem, error) {
	it := &core.PurchaseOrderItem{}
	if err := scanItem(t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM purchase_order_items WHERE id = $1`, id), it); err != nil {
		return nil, notFound(err, "purchase order item", id)
	}
	return it, nil
}

func (t *tx) ListItems(ctx context.Context, purchaseOrderID int) ([]core.PurchaseOrderItem, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+itemColumns+` FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY id`,
		purchaseOrderID)
	if err != nil {
		return nil, fmt.Errorf("list items of purchase order %d: %w", purchaseOrderID, err)
	}
	defer rows.Close()

	var out []core.PurchaseOrderItem
	for rows.Next() {
		var it core.PurchaseOrderItem
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("scan purchase order item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// poSequenceType is the document_sequences type code of purchase orders.
const poSequenceType = "PO"

// NextPONumber increments the per-year counter in the caller's transaction.
// The counter row stays locked until commit, so numbers are gapless and a
// rolled back issue returns its number.
func (t *tx) NextPONumber(ctx context.Context, year int) (string, error) {
	var last int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO document_sequences (type_code, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (type_code, year)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number`,
		poSequenceType, year,
	).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}
	return fmt.Sprintf("%s-%d-%05d", poSequenceType, year, last), nil
}
