package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const quantityLookahead = 3

var (
	priceTolerance = decimal.RequireFromString("0.05")
	maxUnitPrice   = decimal.NewFromInt(200)
)

var nonItemKeywords = []string{
	"order:", "employee:", "cashier:", "table:", "meja:",
	"waktu operasi", "setiap hari", "self pickup", "pre order",
	"terima kasih", "jika baik", "http", "www", "total", "subtotal",
	"cash", "change", "balance", "thank you", "powered by", "tel:", "phone:",
	"jumpa lagi", "beritahu", "pos:", "dine in", "tempahan", "melalui", "laman web",
}

var summaryKeywords = []string{
	"total", "subtotal", "sub total", "tax", "sst", "gst", "service", "charge",
	"change", "balance", "cash", "card", "payment", "paid", "amount",
	"grand total", "net total", "rounding", "discount",
}

var (
	dateTimeLine = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}\s+\d{1,2}:\d{2}`)
	quantityLine = regexp.MustCompile(`(?i)^(\d+)\s*x\s+RM\s*(\d+[.,]\d{2})`)
	hasLetter    = regexp.MustCompile(`[a-zA-Z]`)
)

var invalidNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[0-9\s]+x?$`),
	regexp.MustCompile(`(?i)^[|I!l]\s*x$`),
	regexp.MustCompile(`(?i)^[^\w\s]+$`),
	regexp.MustCompile(`(?i)^(sa|ota|qr|pg|sp|bh|pos)$`),
	regexp.MustCompile(`(?i)^\d+\.\d+$`),
	regexp.MustCompile(`(?i)^RM\d`),
	regexp.MustCompile(`(?i)^dine\s*in$`),
}

var (
	codeWithSeparator = regexp.MustCompile(`(?i)^[A-Z]{2,4}\d{1,3}\s*[>:]\s*`)
	bareUpperCode     = regexp.MustCompile(`^[A-Z]{2,4}\d{0,3}\s+`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
	trailingArtifacts = regexp.MustCompile(`\s*[\[|f=]+\s*$`)
)

// The item rules, tried in this order on every line
var itemRules = []itemRule{
	{
		name:    "code-separator-name-price",
		pattern: regexp.MustCompile(`(?i)^([A-Z]{2,4}\d{1,3})\s*[>:]\s*(.+?)\s*[_\s]*RM\s*(\d+\.\d{2})\s*[|]*$`),
		build:   verifiedByQuantity(2, 3, nil),
	},
	{
		name:    "code-name-price",
		pattern: regexp.MustCompile(`(?i)^([A-Z]{2,4}\d{1,3})\s+(.+?)\s+RM\s*(\d+\.\d{2})\s*[|]*$`),
		build:   verifiedByQuantity(2, 3, nil),
	},
	{
		name:    "short-code-name-price",
		pattern: regexp.MustCompile(`(?i)^([A-Z]{2})\s+(.+?)\s+RM\s*(\d+\.\d{2})\s*[\[|]*`),
		build:   verifiedByQuantity(2, 3, nil),
	},
	{
		name:    "name-price",
		pattern: regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z0-9\s\-+]+?)\s+RM\s*(\d+\.\d{2})\s*[\[|f=]*$`),
		build: verifiedByQuantity(1, 2, func(name string) bool {
			return isValidItemName(name) && !isSummaryLine(name)
		}),
	},
	{
		name:    "code-separator-name",
		pattern: regexp.MustCompile(`(?i)^([A-Z]{2,4}\d{1,3})\s*[>:]\s*(.+?)$`),
		build:   pricedByQuantity(2),
	},
	{
		name:    "code-name",
		pattern: regexp.MustCompile(`(?i)^([A-Z]{2,4}\d{1,3})\s+(.+?)$`),
		build:   pricedByQuantity(2),
	},
	{
		name:    "inline-quantity",
		pattern: regexp.MustCompile(`(?i)^(\d+)\s*x\s+([A-Z]{2,4}\d{1,3}\s*[>:]\s*)?(.+?)\s+RM\s*(\d+\.\d{2})$`),
		build:   inlineQuantity,
	},
}

// itemRule turns a line matched by pattern into an item. build sees the
// submatches, the whole document and the current line index so it can look
// ahead for a quantity line
type itemRule struct {
	name    string
	pattern *regexp.Regexp
	build   func(m []string, lines []string, i int) (itemMatch, bool)
}

type itemMatch struct {
	rawName  string
	item     LineItem
	consumed int
}

type quantity struct {
	count     int
	unitPrice decimal.Decimal
	offset    int
}

// verifiedByQuantity handles lines that carry a total price. The item is
// accepted only when a following quantity line multiplies out to that total
func verifiedByQuantity(nameGroup, priceGroup int, accept func(string) bool) func([]string, []string, int) (itemMatch, bool) {
	return func(m []string, lines []string, i int) (itemMatch, bool) {
		name := m[nameGroup]
		if accept != nil && !accept(name) {
			return itemMatch{}, false
		}
		total, err := decimal.NewFromString(m[priceGroup])
		if err != nil {
			return itemMatch{}, false
		}
		q, ok := findQuantityLine(lines, i)
		if !ok {
			return itemMatch{}, false
		}
		expected := q.unitPrice.Mul(decimal.NewFromInt(int64(q.count)))
		if expected.Sub(total).Abs().GreaterThanOrEqual(priceTolerance) {
			return itemMatch{}, false
		}
		return itemMatch{
			rawName: name,
			item: LineItem{
				Name:       cleanItemName(name),
				Quantity:   q.count,
				UnitPrice:  q.unitPrice,
				TotalPrice: total,
			},
			consumed: q.offset + 1,
		}, true
	}
}

// pricedByQuantity handles a product line with no price of its own. The
// following quantity line supplies the unit price and the total is derived
func pricedByQuantity(nameGroup int) func([]string, []string, int) (itemMatch, bool) {
	return func(m []string, lines []string, i int) (itemMatch, bool) {
		name := m[nameGroup]
		if strings.Contains(strings.ToUpper(name), "RM") || !isValidItemName(name) {
			return itemMatch{}, false
		}
		q, ok := findQuantityLine(lines, i)
		if !ok {
			return itemMatch{}, false
		}
		return itemMatch{
			rawName: name,
			item: LineItem{
				Name:       cleanItemName(name),
				Quantity:   q.count,
				UnitPrice:  q.unitPrice,
				TotalPrice: q.unitPrice.Mul(decimal.NewFromInt(int64(q.count))).RoundBank(2),
				Derived:    true,
			},
			consumed: q.offset + 1,
		}, true
	}
}

// inlineQuantity handles "2 x Nasi Lemak RM17.00", where the unit price is
// derived from the total
func inlineQuantity(m []string, _ []string, _ int) (itemMatch, bool) {
	count, err := strconv.Atoi(m[1])
	if err != nil || count < 1 {
		return itemMatch{}, false
	}
	name := m[3]
	if !isValidItemName(name) {
		return itemMatch{}, false
	}
	total, err := decimal.NewFromString(m[4])
	if err != nil {
		return itemMatch{}, false
	}
	return itemMatch{
		rawName: name,
		item: LineItem{
			Name:       cleanItemName(name),
			Quantity:   count,
			UnitPrice:  total.Div(decimal.NewFromInt(int64(count))).RoundBank(2),
			TotalPrice: total,
			Derived:    true,
		},
		consumed: 1,
	}, true
}

// findQuantityLine looks at most three lines past i for "<n> x RM<price>",
// skipping blank, very short and separator lines
func findQuantityLine(lines []string, i int) (quantity, bool) {
	for offset := 1; offset <= quantityLookahead; offset++ {
		if i+offset >= len(lines) {
			break
		}
		next := NormalizeQuantityLine(strings.TrimSpace(lines[i+offset]))
		if len(next) < 3 || isSymbolOnly(next) {
			continue
		}
		m := quantityLine.FindStringSubmatch(next)
		if m == nil {
			continue
		}
		count, err := strconv.Atoi(m[1])
		if err != nil || count < 1 {
			continue
		}
		unit, err := decimal.NewFromString(strings.Replace(m[2], ",", ".", 1))
		if err != nil {
			continue
		}
		return quantity{count: count, unitPrice: unit, offset: offset}, true
	}
	return quantity{}, false
}

func isNonItemLine(line string) bool {
	lower := strings.ToLower(line)
	if containsAny(lower, nonItemKeywords) {
		return true
	}
	return dateTimeLine.MatchString(line) || isSymbolOnly(line)
}

func isSummaryLine(name string) bool {
	return containsAny(strings.ToLower(name), summaryKeywords)
}

func isValidItemName(name string) bool {
	if len(name) < 2 {
		return false
	}
	clean := cleanItemName(name)
	for _, re := range invalidNamePatterns {
		if re.MatchString(clean) {
			return false
		}
	}
	return hasLetter.MatchString(clean)
}

// cleanItemName strips item codes, separators and trailing OCR artifacts
func cleanItemName(name string) string {
	name = codeWithSeparator.ReplaceAllString(name, "")
	name = bareUpperCode.ReplaceAllString(name, "")
	name = strings.Trim(name, " -_>:|")
	name = whitespaceRun.ReplaceAllString(name, " ")
	return trailingArtifacts.ReplaceAllString(name, "")
}
