package postgres

import (
	"context"
	"fmt"

	"procurement-flow/internal/core"
)

func (t *tx) InsertReceiving(ctx context.Context, r *core.Receiving) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO receivings (purchase_order_id, received_at, reference_number, notes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		r.PurchaseOrderID, r.ReceivedAt, nullIfEmpty(r.ReferenceNumber), nullIfEmpty(r.Notes), r.CreatedBy,
	).Scan(&r.ID)
	if err != nil {
		return writeErr(err, "insert receiving")
	}
	for i := range r.Items {
		ri := &r.Items[i]
		ri.ReceivingID = r.ID
		err := t.tx.QueryRow(ctx, `
			INSERT INTO receiving_items (receiving_id, purchase_order_item_id, material_id, unit_purchase,
			                             qty_received, qty_base, lot_no)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			r.ID, ri.PurchaseOrderItemID, ri.MaterialID, ri.UnitPurchase, ri.QtyReceived, ri.QtyBase, nullIfEmpty(ri.LotNo),
		).Scan(&ri.ID)
		if err != nil {
			return writeErr(err, fmt.Sprintf("insert receiving line %d", i+1))
		}
	}
	return nil
}

func (t *tx) ListReceivings(ctx context.Context, purchaseOrderID int) ([]core.Receiving, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, purchase_order_id, received_at, COALESCE(reference_number, ''), COALESCE(notes, ''), created_by
		FROM receivings
		WHERE purchase_order_id = $1
		ORDER BY received_at, id`, purchaseOrderID)
	if err != nil {
		return nil, fmt.Errorf("list receivings: %w", err)
	}
	var (
		out   []core.Receiving
		index = map[int]int{}
	)
	for rows.Next() {
		var r core.Receiving
		if err := rows.Scan(&r.ID, &r.PurchaseOrderID, &r.ReceivedAt, &r.ReferenceNumber, &r.Notes, &r.CreatedBy); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan receiving: %w", err)
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list receivings: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	lines, err := t.tx.Query(ctx, `
		SELECT ri.id, ri.receiving_id, ri.purchase_order_item_id, ri.material_id, ri.unit_purchase,
		       ri.qty_received, ri.qty_base, COALESCE(ri.lot_no, '')
		FROM receiving_items ri
		JOIN receivings r ON r.id = ri.receiving_id
		WHERE r.purchase_order_id = $1
		ORDER BY ri.id`, purchaseOrderID)
	if err != nil {
		return nil, fmt.Errorf("list receiving items: %w", err)
	}
	defer lines.Close()
	for lines.Next() {
		var ri core.ReceivingItem
		if err := lines.Scan(&ri.ID, &ri.ReceivingID, &ri.PurchaseOrderItemID, &ri.MaterialID, &ri.UnitPurchase,
			&ri.QtyReceived, &ri.QtyBase, &ri.LotNo); err != nil {
			return nil, fmt.Errorf("scan receiving item: %w", err)
		}
		if i, ok := index[ri.ReceivingID]; ok {
			out[i].Items = append(out[i].Items, ri)
		}
	}
	return out, lines.Err()
}

// ── ordering tokens ──────────────────────────────────────────────────────────

const tokenColumns = `id, token, material_id, unit_purchase, default_qty, enabled, expires_at, created_at`

func (t *tx) CreateOrderingToken(ctx context.Context, tok *core.OrderingToken) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO ordering_tokens (token, material_id, unit_purchase, default_qty, enabled, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		tok.Token, tok.MaterialID, tok.UnitPurchase, tok.DefaultQty, tok.Enabled, tok.ExpiresAt, tok.CreatedAt,
	).Scan(&tok.ID)
	if err != nil {
		return writeErr(err, "create ordering token")
	}
	return nil
}

func (t *tx) GetOrderingTokenByValue(ctx context.Context, token string) (*core.OrderingToken, error) {
	tok := &core.OrderingToken{}
	err := t.tx.QueryRow(ctx, `SELECT `+tokenColumns+` FROM ordering_tokens WHERE token = $1`, token).Scan(
		&tok.ID, &tok.Token, &tok.MaterialID, &tok.UnitPurchase, &tok.DefaultQty, &tok.Enabled, &tok.ExpiresAt, &tok.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "ordering token", token)
	}
	return tok, nil
}

func (t *tx) ListOrderingTokens(ctx context.Context) ([]core.OrderingToken, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+tokenColumns+` FROM ordering_tokens ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list ordering tokens: %w", err)
	}
	defer rows.Close()

	var out []core.OrderingToken
	for rows.Next() {
		var tok core.OrderingToken
		if err := rows.Scan(&tok.ID, &tok.Token, &tok.MaterialID, &tok.UnitPurchase, &tok.DefaultQty,
			&tok.Enabled, &tok.ExpiresAt, &tok.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ordering token: %w", err)
		}
		out = append(out, tok)
	}
	return out, rows.Err()
}

func (t *tx) SetOrderingTokenEnabled(ctx context.Context, id int, enabled bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE ordering_tokens SET enabled = $1 WHERE id = $2`, enabled, id)
	if err != nil {
		return fmt.Errorf("update ordering token %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ordering token %d: %w", id, core.ErrNotFound)
	}
	return nil
}
