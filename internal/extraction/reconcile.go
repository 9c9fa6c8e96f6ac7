package extraction

import (
	"log/slog"

	"github.com/shopspring/decimal"
)

var (
	subtotalMatchWindow = decimal.NewFromInt(1)
	implausibleSumRatio = decimal.NewFromInt(2)
	spuriousItemRatio   = decimal.RequireFromString("1.5")
)

// reconcile cross-checks the item list against the printed amounts. The
// passes run in a fixed order and each may use what the previous one set
func reconcile(items []LineItem, amounts Amounts) ([]LineItem, Amounts) {
	amounts = subtotalFromItems(items, amounts)
	amounts = totalFromComponents(amounts)
	return dropSpuriousItems(items, amounts)
}

// subtotalFromItems fills in or corrects the subtotal from the item sum,
// unless the sum is so far above the total that the items are suspect
func subtotalFromItems(items []LineItem, amounts Amounts) Amounts {
	if len(items) == 0 {
		return amounts
	}
	sum := sumItems(items)
	switch {
	case present(amounts.Total) && sum.GreaterThan(amounts.Total.Mul(implausibleSumRatio)):
		// Leave the subtotal alone
	case amounts.Subtotal == nil:
		amounts.Subtotal = ptr(sum.RoundBank(2))
	case sum.Sub(*amounts.Subtotal).Abs().LessThan(subtotalMatchWindow):
		amounts.Subtotal = ptr(sum.RoundBank(2))
	}
	return amounts
}

// totalFromComponents derives a missing total from the subtotal and charges
func totalFromComponents(amounts Amounts) Amounts {
	if amounts.Total != nil || amounts.Subtotal == nil {
		return amounts
	}
	total := *amounts.Subtotal
	for _, part := range []*decimal.Decimal{amounts.ServiceCharge, amounts.SST, amounts.Rounding} {
		if present(part) {
			total = total.Add(*part)
		}
	}
	amounts.Total = ptr(total.RoundBank(2))
	return amounts
}

// dropSpuriousItems discards items priced above the total when the item
// sum is well over it, which usually means a summary line was read as an item
func dropSpuriousItems(items []LineItem, amounts Amounts) ([]LineItem, Amounts) {
	if len(items) == 0 || !present(amounts.Total) {
		return items, amounts
	}
	total := *amounts.Total
	if !sumItems(items).GreaterThan(total.Mul(spuriousItemRatio)) {
		return items, amounts
	}

	kept := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.UnitPrice.LessThanOrEqual(total) {
			kept = append(kept, item)
		}
	}
	slog.Debug("Dropped items priced above total", "dropped", len(items)-len(kept), "total", total)
	if len(kept) > 0 {
		amounts.Subtotal = ptr(sumItems(kept).RoundBank(2))
	}
	return kept, amounts
}

func sumItems(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.TotalPrice)
	}
	return sum
}

// present treats zero like a missing value
func present(d *decimal.Decimal) bool {
	return d != nil && !d.IsZero()
}
