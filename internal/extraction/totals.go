package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ringgitAmount = regexp.MustCompile(`(?i)rm\s*(\d+\.\d{2})`)
	percentRate   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
)

var (
	qrTotalFloor       = decimal.NewFromInt(10)
	fallbackTotalFloor = decimal.NewFromInt(1)
)

// amountOccurrence is one "RM<amount>" found in the text
type amountOccurrence struct {
	amount decimal.Decimal
	line   int
	text   string
	lower  string
}

// amountRule claims an occurrence when matches returns true. apply may still
// decide to leave the amounts unchanged
type amountRule struct {
	name    string
	matches func(o amountOccurrence) bool
	apply   func(a *Amounts, o amountOccurrence)
}

// Only the first rule that matches an occurrence is applied
var amountRules = []amountRule{
	{
		name:    "subtotal",
		matches: keywordRule("subtotal", "sub total", "sub-total"),
		apply: func(a *Amounts, o amountOccurrence) {
			a.Subtotal = ptr(o.amount)
		},
	},
	{
		name: "service-charge",
		matches: func(o amountOccurrence) bool {
			return strings.Contains(o.lower, "service") && strings.Contains(o.lower, "charge")
		},
		apply: func(a *Amounts, o amountOccurrence) {
			a.ServiceCharge = ptr(o.amount)
			if rate := rateOf(o.text); rate != nil {
				a.ServiceChargeRate = rate
			}
		},
	},
	{
		name:    "sst",
		matches: keywordRule("sst", "tax", "gst", "cukai"),
		apply: func(a *Amounts, o amountOccurrence) {
			a.SST = ptr(o.amount)
			if rate := rateOf(o.text); rate != nil {
				a.SSTRate = rate
			}
		},
	},
	{
		name:    "rounding",
		matches: keywordRule("rounding", "round"),
		apply: func(a *Amounts, o amountOccurrence) {
			a.Rounding = ptr(o.amount)
		},
	},
	{
		name: "total",
		matches: keywordRule("total", "jumlah", "grand total", "net total",
			"amount payable", "total amount", "amount due", "sa ota"),
		apply: func(a *Amounts, o amountOccurrence) {
			if strings.Contains(o.lower, "sub") {
				return
			}
			if a.Total == nil || o.amount.GreaterThan(*a.Total) {
				a.Total = ptr(o.amount)
			}
		},
	},
	{
		name: "qr-total",
		matches: func(o amountOccurrence) bool {
			return strings.Contains(o.lower, "qr") && o.amount.GreaterThan(qrTotalFloor)
		},
		apply: func(a *Amounts, o amountOccurrence) {
			if a.Total == nil || o.amount.GreaterThanOrEqual(*a.Total) {
				a.Total = ptr(o.amount)
			}
		},
	},
	{
		name:    "cash",
		matches: keywordRule("cash", "tunai", "paid", "bayar"),
		apply: func(a *Amounts, o amountOccurrence) {
			if strings.Contains(o.lower, "cashier") || strings.Contains(o.lower, "kasir") {
				return
			}
			a.Cash = ptr(o.amount)
		},
	},
	{
		name:    "change",
		matches: keywordRule("change", "balance", "baki"),
		apply: func(a *Amounts, o amountOccurrence) {
			a.Change = ptr(o.amount)
		},
	},
}

func keywordRule(keywords ...string) func(amountOccurrence) bool {
	return func(o amountOccurrence) bool {
		return containsAny(o.lower, keywords)
	}
}

func rateOf(line string) *decimal.Decimal {
	m := percentRate.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	rate, err := decimal.NewFromString(m[1])
	if err != nil {
		return nil
	}
	return &rate
}

func amountOccurrences(lines []string) []amountOccurrence {
	var found []amountOccurrence
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, m := range ringgitAmount.FindAllStringSubmatch(line, -1) {
			amount, err := decimal.NewFromString(m[1])
			if err != nil {
				continue
			}
			found = append(found, amountOccurrence{amount: amount, line: i, text: line, lower: lower})
		}
	}
	return found
}

func extractAmounts(raw RawText) Amounts {
	lines := raw.Lines()
	occurrences := amountOccurrences(lines)

	var amounts Amounts
	for _, o := range occurrences {
		for _, rule := range amountRules {
			if rule.matches(o) {
				rule.apply(&amounts, o)
				break
			}
		}
	}

	if amounts.Total == nil {
		amounts.Total = fallbackTotal(occurrences, len(lines))
	}
	return amounts
}

// fallbackTotal picks the largest amount in the last fifth of the receipt
func fallbackTotal(occurrences []amountOccurrence, lineCount int) *decimal.Decimal {
	start := lineCount * 8 / 10
	var best *decimal.Decimal
	for _, o := range occurrences {
		if o.line < start {
			continue
		}
		if best == nil || o.amount.GreaterThan(*best) {
			best = ptr(o.amount)
		}
	}
	if best == nil || !best.GreaterThan(fallbackTotalFloor) {
		return nil
	}
	return best
}
