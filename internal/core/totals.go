package core

import "github.com/shopspring/decimal"

// Totals are the order-level money sums.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals refreshes each line's LineTotal in place and sums the order.
// Shipping lines count at their full ordered quantity; other lines at their
// effective (ordered minus canceled) quantity.
func ComputeTotals(items []PurchaseOrderItem) Totals {
	var t Totals
	for i := range items {
		it := &items[i]
		qty := it.EffectiveQty()
		if it.IsShipping() {
			qty = it.QtyOrdered
		}
		it.LineTotal = qty.Mul(it.PriceUnit)
		t.Subtotal = t.Subtotal.Add(it.LineTotal)
		t.Tax = t.Tax.Add(it.LineTotal.Mul(it.TaxRate))
	}
	t.Total = t.Subtotal.Add(t.Tax)
	return t
}

// Apply copies the totals onto the order header.
func (t Totals) Apply(po *PurchaseOrder) {
	po.Subtotal = t.Subtotal
	po.Tax = t.Tax
	po.Total = t.Total
}
