// Package extraction turns the OCR text of a Malaysian receipt into a
// structured record of merchant, receipt identifiers, line items and totals
package extraction

// Extractor runs the field extractors, item parser and totals extractor over
// one receipt and reconciles their output. It holds no mutable state and is
// safe for concurrent use
type Extractor struct {
	maxLines int
}

// NewExtractor returns an Extractor that analyses at most maxLines lines of
// each receipt. Zero means no limit
func NewExtractor(maxLines int) *Extractor {
	return &Extractor{maxLines: maxLines}
}

// Extract never fails. Fields that cannot be found are left empty
func (e *Extractor) Extract(text string) *Result {
	raw := NewRawText(text).truncate(e.maxLines)

	items, amounts := reconcile(extractItems(raw), extractAmounts(raw))
	return &Result{
		Merchant:      extractMerchant(raw),
		Receipt:       extractReceiptMeta(raw),
		Items:         items,
		Amounts:       amounts,
		PaymentMethod: paymentMethod(raw),
		RawText:       text,
	}
}

// Extract runs an unbounded Extractor over text
func Extract(text string) *Result {
	return NewExtractor(0).Extract(text)
}
