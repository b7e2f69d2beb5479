package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is the fixed sales tax applied to every order subtotal.
var TaxRate = decimal.NewFromFloat(0.0825)

// PickupWindow is how long a ready order waits before it can be expired to
// no-show.
const PickupWindow = 60 * time.Minute

// RecomputeTotals derives subtotal, tax and total from a set of line items.
// Every path that touches items or their prices must go through this; the
// three totals are never independently mutable.
func RecomputeTotals(items []OrderItem) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for i := range items {
		line := items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)
	tax = subtotal.Mul(TaxRate).Round(2)
	total = subtotal.Add(tax).Round(2)
	return subtotal, tax, total
}

// RecalculateTotals refreshes each item's line total and the order's derived
// money fields in place.
func (o *Order) RecalculateTotals() {
	for i := range o.Items {
		o.Items[i].LineTotal = o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity))).Round(2)
	}
	o.Subtotal, o.Tax, o.Total = RecomputeTotals(o.Items)
}
