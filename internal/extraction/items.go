package extraction

import (
	"log/slog"
	"strings"
)

type itemKey struct {
	line       int
	name       string
	unitPrice  string
	totalPrice string
}

// itemParser walks the lines with a cursor. A line that starts an item may
// consume the quantity line that follows it
type itemParser struct {
	lines []string
	rules []itemRule
	pos   int
	items []LineItem
	seen  map[itemKey]struct{}
}

func newItemParser(lines []string, rules []itemRule) *itemParser {
	return &itemParser{
		lines: lines,
		rules: rules,
		items: []LineItem{},
		seen:  make(map[itemKey]struct{}),
	}
}

// step examines the line under the cursor and reports how many lines it used
func (p *itemParser) step() (*itemMatch, int) {
	line := strings.TrimSpace(p.lines[p.pos])
	if len(line) < 3 || isNonItemLine(line) {
		return nil, 1
	}
	for _, rule := range p.rules {
		m := rule.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if match, ok := rule.build(m, p.lines, p.pos); ok {
			return &match, match.consumed
		}
	}
	return nil, 1
}

func (p *itemParser) run() []LineItem {
	for p.pos < len(p.lines) {
		match, consumed := p.step()
		if match != nil {
			p.record(*match)
		}
		p.pos += consumed
	}
	return p.items
}

func (p *itemParser) record(m itemMatch) {
	key := itemKey{
		line:       p.pos,
		name:       m.rawName,
		unitPrice:  m.item.UnitPrice.String(),
		totalPrice: m.item.TotalPrice.String(),
	}
	if _, dup := p.seen[key]; dup {
		return
	}
	p.seen[key] = struct{}{}
	p.items = append(p.items, m.item)
}

// extractItems parses every line item and drops those that fail the
// sanity checks on price and name
func extractItems(raw RawText) []LineItem {
	parsed := newItemParser(raw.Lines(), itemRules).run()
	items := make([]LineItem, 0, len(parsed))
	for _, item := range parsed {
		if item.UnitPrice.GreaterThan(maxUnitPrice) || !isValidItemName(item.Name) {
			slog.Debug("Dropping implausible item", "name", item.Name, "unit_price", item.UnitPrice)
			continue
		}
		items = append(items, item)
	}
	return items
}
