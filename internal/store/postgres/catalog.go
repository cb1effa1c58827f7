package postgres

import (
	"context"
	"fmt"

	"procurement-flow/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ── suppliers ────────────────────────────────────────────────────────────────

const supplierColumns = `id, COALESCE(code, ''), name, COALESCE(email, ''), COALESCE(email_cc, ''), auto_send_po, is_active`

func scanSupplier(row pgx.Row, s *core.Supplier) error {
	return row.Scan(&s.ID, &s.Code, &s.Name, &s.Email, &s.EmailCC, &s.AutoSendPO, &s.IsActive)
}

func (t *tx) CreateSupplier(ctx context.Context, s *core.Supplier) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO suppliers (code, name, email, email_cc, auto_send_po, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		nullIfEmpty(s.Code), s.Name, nullIfEmpty(s.Email), nullIfEmpty(s.EmailCC), s.AutoSendPO, s.IsActive,
	).Scan(&s.ID)
	if err != nil {
		return writeErr(err, fmt.Sprintf("create supplier %q", s.Name))
	}
	return nil
}

func (t *tx) GetSupplier(ctx context.Context, id int) (*core.Supplier, error) {
	s := &core.Supplier{}
	err := scanSupplier(t.tx.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id), s)
	if err != nil {
		return nil, notFound(err, "supplier", id)
	}
	return s, nil
}

func (t *tx) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var out []core.Supplier
	for rows.Next() {
		var s core.Supplier
		if err := scanSupplier(rows, &s); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ── materials ────────────────────────────────────────────────────────────────

const materialColumns = `
	id, sku, name, tax_code, unit_stock, COALESCE(unit_purchase_default, ''),
	moq, pack_size, unit_price, preferred_supplier_id, separate_shipping, shipping_fee_per_order,
	manage_by_lot, is_active, COALESCE(manufacturer_name, ''), current_stock, safety_stock`

func scanMaterial(row pgx.Row, m *core.Material) error {
	return row.Scan(
		&m.ID, &m.SKU, &m.Name, &m.TaxCode, &m.UnitStock, &m.UnitPurchaseDefault,
		&m.MOQ, &m.PackSize, &m.UnitPrice, &m.PreferredSupplierID, &m.SeparateShipping, &m.ShippingFeePerOrder,
		&m.ManageByLot, &m.IsActive, &m.ManufacturerName, &m.CurrentStock, &m.SafetyStock,
	)
}

func (t *tx) CreateMaterial(ctx context.Context, m *core.Material) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO materials (sku, name, tax_code, unit_stock, unit_purchase_default,
		                       moq, pack_size, unit_price, preferred_supplier_id, separate_shipping,
		                       shipping_fee_per_order, manage_by_lot, is_active, manufacturer_name,
		                       current_stock, safety_stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		m.SKU, m.Name, m.TaxCode, m.UnitStock, nullIfEmpty(m.UnitPurchaseDefault),
		m.MOQ, m.PackSize, m.UnitPrice, m.PreferredSupplierID, m.SeparateShipping,
		m.ShippingFeePerOrder, m.ManageByLot, m.IsActive, nullIfEmpty(m.ManufacturerName),
		m.CurrentStock, m.SafetyStock,
	).Scan(&m.ID)
	if err != nil {
		return writeErr(err, fmt.Sprintf("create material %q", m.SKU))
	}
	return nil
}

func (t *tx) GetMaterial(ctx context.Context, id int) (*core.Material, error) {
	m := &core.Material{}
	if err := scanMaterial(t.tx.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id), m); err != nil {
		return nil, notFound(err, "material", id)
	}
	return m, nil
}

func (t *tx) ListMaterials(ctx context.Context) ([]core.Material, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+materialColumns+` FROM materials ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var out []core.Material
	for rows.Next() {
		var m core.Material
		if err := scanMaterial(rows, &m); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *tx) AdjustMaterialStock(ctx context.Context, materialID int, delta decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE materials SET current_stock = current_stock + $1 WHERE id = $2`, delta, materialID)
	if err != nil {
		return fmt.Errorf("adjust stock of material %d: %w", materialID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("material %d: %w", materialID, core.ErrNotFound)
	}
	return nil
}

func (t *tx) UpsertUnitConversion(ctx context.Context, c core.UnitConversion) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO unit_conversions (material_id, from_unit, to_unit, factor)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (material_id, from_unit, to_unit) DO UPDATE SET factor = EXCLUDED.factor`,
		c.MaterialID, c.FromUnit, c.ToUnit, c.Factor)
	if err != nil {
		return writeErr(err, "upsert unit conversion")
	}
	return nil
}

func (t *tx) FindUnitConversion(ctx context.Context, materialID int, from, to string) (*core.UnitConversion, error) {
	c := &core.UnitConversion{MaterialID: materialID, FromUnit: from, ToUnit: to}
	err := t.tx.QueryRow(ctx, `
		SELECT factor FROM unit_conversions
		WHERE material_id = $1 AND from_unit = $2 AND to_unit = $3`,
		materialID, from, to,
	).Scan(&c.Factor)
	if err != nil {
		return nil, notFound(err, "unit conversion", fmt.Sprintf("%d:%s->%s", materialID, from, to))
	}
	return c, nil
}

// UpsertLot adds lot.QtyOnHand to the (material, lot_no) row, creating it
// when missing, and loads the stored row back into lot.
func (t *tx) UpsertLot(ctx context.Context, lot *core.MaterialLot) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO material_lots (material_id, lot_no, qty_on_hand, unit, expiry_date, supplier_id, purchase_order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (material_id, lot_no) DO UPDATE
		SET qty_on_hand = material_lots.qty_on_hand + EXCLUDED.qty_on_hand,
		    expiry_date = COALESCE(EXCLUDED.expiry_date, material_lots.expiry_date)
		RETURNING id, qty_on_hand, expiry_date, supplier_id, purchase_order_id`,
		lot.MaterialID, lot.LotNo, lot.QtyOnHand, lot.Unit, lot.ExpiryDate, lot.SupplierID, lot.PurchaseOrderID,
	).Scan(&lot.ID, &lot.QtyOnHand, &lot.ExpiryDate, &lot.SupplierID, &lot.PurchaseOrderID)
	if err != nil {
		return writeErr(err, fmt.Sprintf("upsert lot %s", lot.LotNo))
	}
	return nil
}

func (t *tx) ListLots(ctx context.Context, materialID *int) ([]core.MaterialLot, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, material_id, lot_no, qty_on_hand, unit, expiry_date, supplier_id, purchase_order_id
		FROM material_lots
		WHERE $1::int IS NULL OR material_id = $1
		ORDER BY id`, materialID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	var out []core.MaterialLot
	for rows.Next() {
		var l core.MaterialLot
		if err := rows.Scan(&l.ID, &l.MaterialID, &l.LotNo, &l.QtyOnHand, &l.Unit,
			&l.ExpiryDate, &l.SupplierID, &l.PurchaseOrderID); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *tx) InsertStockMovement(ctx context.Context, mv *core.StockMovement) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO stock_movements (material_id, lot_id, type, source_type, source_id, qty_base, unit, occurred_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		mv.MaterialID, mv.LotID, mv.Type, mv.SourceType, mv.SourceID, mv.QtyBase, mv.Unit, mv.OccurredAt, mv.CreatedBy,
	).Scan(&mv.ID)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// ── options ──────────────────────────────────────────────────────────────────

func (t *tx) CreateOptionGroup(ctx context.Context, g *core.OptionGroup) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO option_groups (name, is_active, sort_order) VALUES ($1, $2, $3) RETURNING id`,
		g.Name, g.IsActive, g.SortOrder,
	).Scan(&g.ID)
	if err != nil {
		return writeErr(err, fmt.Sprintf("create option group %q", g.Name))
	}
	return nil
}

func (t *tx) ListOptionGroups(ctx context.Context) ([]core.OptionGroup, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, is_active, sort_order FROM option_groups
		WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list option groups: %w", err)
	}
	defer rows.Close()

	var out []core.OptionGroup
	for rows.Next() {
		var g core.OptionGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.IsActive, &g.SortOrder); err != nil {
			return nil, fmt.Errorf("scan option group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

const optionColumns = `id, group_id, COALESCE(code, ''), name, is_active, sort_order, deleted_at`

func scanOption(row pgx.Row, o *core.Option) error {
	return row.Scan(&o.ID, &o.GroupID, &o.Code, &o.Name, &o.IsActive, &o.SortOrder, &o.DeletedAt)
}

func (t *tx) CreateOption(ctx context.Context, o *core.Option) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO options (group_id, code, name, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		o.GroupID, nullIfEmpty(o.Code), o.Name, o.IsActive, o.SortOrder,
	).Scan(&o.ID)
	if err != nil {
		return writeErr(err, fmt.Sprintf("create option %q", o.Name))
	}
	return nil
}

func (t *tx) GetOption(ctx context.Context, id int) (*core.Option, error) {
	o := &core.Option{}
	err := scanOption(t.tx.QueryRow(ctx,
		`SELECT `+optionColumns+` FROM options WHERE id = $1 AND deleted_at IS NULL`, id), o)
	if err != nil {
		return nil, notFound(err, "option", id)
	}
	return o, nil
}

func (t *tx) ListOptions(ctx context.Context) ([]core.Option, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+optionColumns+` FROM options WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()

	var out []core.Option
	for rows.Next() {
		var o core.Option
		if err := scanOption(rows, &o); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (t *tx) UpsertItemOption(ctx context.Context, itemID, groupID, optionID int) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO purchase_order_item_options (purchase_order_item_id, option_group_id, option_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (purchase_order_item_id, option_group_id) DO UPDATE SET option_id = EXCLUDED.option_id`,
		itemID, groupID, optionID)
	if err != nil {
		return writeErr(err, fmt.Sprintf("store option of item %d", itemID))
	}
	return nil
}

func (t *tx) ListItemOptions(ctx context.Context, itemIDs []int) (map[int]map[int]int, error) {
	out := map[int]map[int]int{}
	if len(itemIDs) == 0 {
		return out, nil
	}
	rows, err := t.tx.Query(ctx, `
		SELECT purchase_order_item_id, option_group_id, option_id
		FROM purchase_order_item_options
		WHERE purchase_order_item_id = ANY($1)`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("list item options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID, groupID, optionID int
		if err := rows.Scan(&itemID, &groupID, &optionID); err != nil {
			return nil, fmt.Errorf("scan item option: %w", err)
		}
		if out[itemID] == nil {
			out[itemID] = map[int]int{}
		}
		out[itemID][groupID] = optionID
	}
	return out, rows.Err()
}
