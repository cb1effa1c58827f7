// Package memory is an in-process core.Store used by tests and local runs
// without a database. Each transaction works on a copy of the state that
// replaces the live state only when the callback succeeds.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"procurement-flow/internal/core"

	"github.com/shopspring/decimal"
)

type itemOptionKey struct{ item, group int }

type conversionKey struct {
	material int
	from, to string
}

type lotKey struct {
	material int
	lot      string
}

type state struct {
	seq         map[string]int
	poNumbers   map[int]int
	suppliers   map[int]core.Supplier
	materials   map[int]core.Material
	conversions map[conversionKey]core.UnitConversion
	lots        map[int]core.MaterialLot
	lotIndex    map[lotKey]int
	movements   []core.StockMovement
	groups      map[int]core.OptionGroup
	options     map[int]core.Option
	itemOptions map[itemOptionKey]int
	orders      map[int]core.PurchaseOrder
	items       map[int]core.PurchaseOrderItem
	receivings  map[int]core.Receiving
	tokens      map[int]core.OrderingToken
	settings    map[string]string
}

func newState() *state {
	return &state{
		seq:         map[string]int{},
		poNumbers:   map[int]int{},
		suppliers:   map[int]core.Supplier{},
		materials:   map[int]core.Material{},
		conversions: map[conversionKey]core.UnitConversion{},
		lots:        map[int]core.MaterialLot{},
		lotIndex:    map[lotKey]int{},
		groups:      map[int]core.OptionGroup{},
		options:     map[int]core.Option{},
		itemOptions: map[itemOptionKey]int{},
		orders:      map[int]core.PurchaseOrder{},
		items:       map[int]core.PurchaseOrderItem{},
		receivings:  map[int]core.Receiving{},
		tokens:      map[int]core.OrderingToken{},
		settings:    map[string]string{},
	}
}

func (s *state) clone() *state {
	c := &state{
		seq:         maps.Clone(s.seq),
		poNumbers:   maps.Clone(s.poNumbers),
		suppliers:   maps.Clone(s.suppliers),
		materials:   maps.Clone(s.materials),
		conversions: maps.Clone(s.conversions),
		lots:        maps.Clone(s.lots),
		lotIndex:    maps.Clone(s.lotIndex),
		movements:   slices.Clone(s.movements),
		groups:      maps.Clone(s.groups),
		options:     maps.Clone(s.options),
		itemOptions: maps.Clone(s.itemOptions),
		orders:      maps.Clone(s.orders),
		items:       maps.Clone(s.items),
		receivings:  make(map[int]core.Receiving, len(s.receivings)),
		tokens:      maps.Clone(s.tokens),
		settings:    maps.Clone(s.settings),
	}
	for id, r := range s.receivings {
		r.Items = slices.Clone(r.Items)
		c.receivings[id] = r
	}
	return c
}

func (s *state) next(name string) int {
	s.seq[name]++
	return s.seq[name]
}

// Store is a core.Store kept in memory. Transactions are serialized.
type Store struct {
	mu    sync.Mutex
	state *state
}

func New() *Store {
	return &Store{state: newState()}
}

// WithTx runs fn against a private copy of the state and publishes the copy
// only if fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type tx struct {
	st *state
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, core.ErrNotFound)
}

func duplicate(format string, args ...any) error {
	return &core.ConflictError{Code: "DUPLICATE", Message: fmt.Sprintf(format, args...)}
}

func sortedValues[V any](m map[int]V) []V {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// ── suppliers ────────────────────────────────────────────────────────────────

func (t *tx) CreateSupplier(_ context.Context, s *core.Supplier) error {
	if s.Code != "" {
		for _, existing := range t.st.suppliers {
			if existing.Code == s.Code {
				return duplicate("supplier code %q already exists", s.Code)
			}
		}
	}
	s.ID = t.st.next("suppliers")
	t.st.suppliers[s.ID] = *s
	return nil
}

func (t *tx) GetSupplier(_ context.Context, id int) (*core.Supplier, error) {
	s, ok := t.st.suppliers[id]
	if !ok {
		return nil, notFound("supplier", id)
	}
	return &s, nil
}

func (t *tx) ListSuppliers(context.Context) ([]core.Supplier, error) {
	return sortedValues(t.st.suppliers), nil
}

// ── materials ────────────────────────────────────────────────────────────────

func (t *tx) CreateMaterial(_ context.Context, m *core.Material) error {
	for _, existing := range t.st.materials {
		if existing.SKU == m.SKU {
			return duplicate("material sku %q already exists", m.SKU)
		}
	}
	m.ID = t.st.next("materials")
	t.st.materials[m.ID] = *m
	return nil
}

func (t *tx) GetMaterial(_ context.Context, id int) (*core.Material, error) {
	m, ok := t.st.materials[id]
	if !ok {
		return nil, notFound("material", id)
	}
	return &m, nil
}

func (t *tx) ListMaterials(context.Context) ([]core.Material, error) {
	return sortedValues(t.st.materials), nil
}

func (t *tx) AdjustMaterialStock(_ context.Context, materialID int, delta decimal.Decimal) error {
	m, ok := t.st.materials[materialID]
	if !ok {
		return notFound("material", materialID)
	}
	m.CurrentStock = m.CurrentStock.Add(delta)
	t.st.materials[materialID] = m
	return nil
}

func (t *tx) UpsertUnitConversion(_ context.Context, c core.UnitConversion) error {
	t.st.conversions[conversionKey{c.MaterialID, c.FromUnit, c.ToUnit}] = c
	return nil
}

func (t *tx) FindUnitConversion(_ context.Context, materialID int, from, to string) (*core.UnitConversion, error) {
	c, ok := t.st.conversions[conversionKey{materialID, from, to}]
	if !ok {
		return nil, notFound("unit conversion", fmt.Sprintf("%d:%s->%s", materialID, from, to))
	}
	return &c, nil
}

func (t *tx) UpsertLot(_ context.Context, lot *core.MaterialLot) error {
	key := lotKey{lot.MaterialID, lot.LotNo}
	if id, ok := t.st.lotIndex[key]; ok {
		existing := t.st.lots[id]
		existing.QtyOnHand = existing.QtyOnHand.Add(lot.QtyOnHand)
		if lot.ExpiryDate != nil {
			existing.ExpiryDate = lot.ExpiryDate
		}
		t.st.lots[id] = existing
		*lot = existing
		return nil
	}
	lot.ID = t.st.next("lots")
	t.st.lots[lot.ID] = *lot
	t.st.lotIndex[key] = lot.ID
	return nil
}

func (t *tx) ListLots(_ context.Context, materialID *int) ([]core.MaterialLot, error) {
	var out []core.MaterialLot
	for _, l := range sortedValues(t.st.lots) {
		if materialID == nil || l.MaterialID == *materialID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (t *tx) InsertStockMovement(_ context.Context, mv *core.StockMovement) error {
	mv.ID = t.st.next("movements")
	t.st.movements = append(t.st.movements, *mv)
	return nil
}

// ── options ──────────────────────────────────────────────────────────────────

func (t *tx) CreateOptionGroup(_ context.Context, g *core.OptionGroup) error {
	g.ID = t.st.next("groups")
	t.st.groups[g.ID] = *g
	return nil
}

func (t *tx) ListOptionGroups(context.Context) ([]core.OptionGroup, error) {
	return sortedValues(t.st.groups), nil
}

func (t *tx) CreateOption(_ context.Context, o *core.Option) error {
	o.ID = t.st.next("options")
	t.st.options[o.ID] = *o
	return nil
}

func (t *tx) GetOption(_ context.Context, id int) (*core.Option, error) {
	o, ok := t.st.options[id]
	if !ok || o.DeletedAt != nil {
		return nil, notFound("option", id)
	}
	return &o, nil
}

func (t *tx) ListOptions(context.Context) ([]core.Option, error) {
	var out []core.Option
	for _, o := range sortedValues(t.st.options) {
		if o.DeletedAt == nil {
			out = append(out, o)
		}
	}
	return out, nil
}

func (t *tx) UpsertItemOption(_ context.Context, itemID, groupID, optionID int) error {
	if _, ok := t.st.items[itemID]; !ok {
		return notFound("purchase order item", itemID)
	}
	t.st.itemOptions[itemOptionKey{itemID, groupID}] = optionID
	return nil
}

func (t *tx) ListItemOptions(_ context.Context, itemIDs []int) (map[int]map[int]int, error) {
	want := make(map[int]bool, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = true
	}
	out := map[int]map[int]int{}
	for k, optionID := range t.st.itemOptions {
		if !want[k.item] {
			continue
		}
		if out[k.item] == nil {
			out[k.item] = map[int]int{}
		}
		out[k.item][k.group] = optionID
	}
	return out, nil
}

// ── purchase orders ──────────────────────────────────────────────────────────

func (t *tx) InsertPurchaseOrder(_ context.Context, po *core.PurchaseOrder) error {
	po.ID = t.st.next("orders")
	t.st.orders[po.ID] = headerOnly(po)
	return nil
}

func (t *tx) UpdatePurchaseOrder(_ context.Context, po *core.PurchaseOrder) error {
	if _, ok := t.st.orders[po.ID]; !ok {
		return notFound("purchase order", po.ID)
	}
	if po.PONumber != nil {
		for id, other := range t.st.orders {
			if id != po.ID && other.PONumber != nil && *other.PONumber == *po.PONumber {
				return duplicate("po number %q already used", *po.PONumber)
			}
		}
	}
	t.st.orders[po.ID] = headerOnly(po)
	return nil
}

func headerOnly(po *core.PurchaseOrder) core.PurchaseOrder {
	h := *po
	h.Items = nil
	return h
}

func (t *tx) GetPurchaseOrder(_ context.Context, id int) (*core.PurchaseOrder, error) {
	po, ok := t.st.orders[id]
	if !ok {
		return nil, notFound("purchase order", id)
	}
	return &po, nil
}

// LockPurchaseOrder needs no row lock: transactions already run one at a time.
func (t *tx) LockPurchaseOrder(ctx context.Context, id int) (*core.PurchaseOrder, error) {
	return t.GetPurchaseOrder(ctx, id)
}

func (t *tx) ListPurchaseOrders(_ context.Context, f core.PurchaseOrderFilter) ([]core.PurchaseOrder, error) {
	all := sortedValues(t.st.orders)
	slices.Reverse(all)
	var out []core.PurchaseOrder
	for _, po := range all {
		if f.Status != nil && po.Status != *f.Status {
			continue
		}
		if f.SupplierID != nil && po.SupplierID != *f.SupplierID {
			continue
		}
		out = append(out, po)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (t *tx) InsertItem(_ context.Context, it *core.PurchaseOrderItem) error {
	if _, ok := t.st.orders[it.PurchaseOrderID]; !ok {
		return notFound("purchase order", it.PurchaseOrderID)
	}
	it.ID = t.st.next("items")
	t.st.items[it.ID] = itemOnly(it)
	return nil
}

func (t *tx) UpdateItem(_ context.Context, it *core.PurchaseOrderItem) error {
	if _, ok := t.st.items[it.ID]; !ok {
		return notFound("purchase order item", it.ID)
	}
	if it.QtyCanceled.IsNegative() || it.QtyCanceled.GreaterThan(it.QtyOrdered) {
		return &core.ConflictError{Code: "CONSTRAINT_VIOLATION", Message: fmt.Sprintf("item %d: qty_canceled %s outside [0, %s]", it.ID, it.QtyCanceled, it.QtyOrdered)}
	}
	t.st.items[it.ID] = itemOnly(it)
	return nil
}

func itemOnly(it *core.PurchaseOrderItem) core.PurchaseOrderItem {
	c := *it
	c.Options = nil
	return c
}

func (t *tx) GetItem(_ context.Context, id int) (*core.PurchaseOrderItem, error) {
	it, ok := t.st.items[id]
	if !ok {
		return nil, notFound("purchase order item", id)
	}
	return &it, nil
}

func (t *tx) ListItems(_ context.Context, purchaseOrderID int) ([]core.PurchaseOrderItem, error) {
	var out []core.PurchaseOrderItem
	for _, it := range sortedValues(t.st.items) {
		if it.PurchaseOrderID == purchaseOrderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (t *tx) NextPONumber(_ context.Context, year int) (string, error) {
	t.st.poNumbers[year]++
	return fmt.Sprintf("PO-%d-%05d", year, t.st.poNumbers[year]), nil
}

// ── receivings ───────────────────────────────────────────────────────────────

func (t *tx) InsertReceiving(_ context.Context, r *core.Receiving) error {
	r.ID = t.st.next("receivings")
	for i := range r.Items {
		r.Items[i].ID = t.st.next("receiving_items")
		r.Items[i].ReceivingID = r.ID
	}
	stored := *r
	stored.Items = slices.Clone(r.Items)
	t.st.receivings[r.ID] = stored
	return nil
}

func (t *tx) ListReceivings(_ context.Context, purchaseOrderID int) ([]core.Receiving, error) {
	var out []core.Receiving
	for _, r := range sortedValues(t.st.receivings) {
		if r.PurchaseOrderID == purchaseOrderID {
			r.Items = slices.Clone(r.Items)
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return out, nil
}

// ── ordering tokens ──────────────────────────────────────────────────────────

func (t *tx) CreateOrderingToken(_ context.Context, tok *core.OrderingToken) error {
	for _, existing := range t.st.tokens {
		if existing.Token == tok.Token {
			return duplicate("ordering token %q already exists", tok.Token)
		}
	}
	tok.ID = t.st.next("tokens")
	t.st.tokens[tok.ID] = *tok
	return nil
}

func (t *tx) GetOrderingTokenByValue(_ context.Context, token string) (*core.OrderingToken, error) {
	for _, tok := range t.st.tokens {
		if tok.Token == token {
			return &tok, nil
		}
	}
	return nil, notFound("ordering token", strings.TrimSpace(token))
}

func (t *tx) ListOrderingTokens(context.Context) ([]core.OrderingToken, error) {
	return sortedValues(t.st.tokens), nil
}

func (t *tx) SetOrderingTokenEnabled(_ context.Context, id int, enabled bool) error {
	tok, ok := t.st.tokens[id]
	if !ok {
		return notFound("ordering token", id)
	}
	tok.Enabled = enabled
	t.st.tokens[id] = tok
	return nil
}

// ── settings ─────────────────────────────────────────────────────────────────

func (t *tx) GetSetting(_ context.Context, key string) (string, bool, error) {
	v, ok := t.st.settings[key]
	return v, ok, nil
}

func (t *tx) PutSetting(_ context.Context, key, value string) error {
	t.st.settings[key] = value
	return nil
}

// StockMovements returns every recorded stock movement. Intended for tests.
func (s *Store) StockMovements() []core.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.movements)
}
