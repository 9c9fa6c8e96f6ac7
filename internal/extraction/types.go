package extraction

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go out as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// UnknownMerchant is reported when no line of the receipt looks like a business name
const UnknownMerchant = "Unknown Merchant"

// UnknownPayment is reported when no payment keyword appears anywhere in the text
const UnknownPayment = "Unknown"

// RawText is the OCR output split into lines. Blank lines are kept because
// several heuristics depend on line position
type RawText struct {
	text  string
	lines []string
}

// NewRawText normalises line endings and splits text into lines
func NewRawText(text string) RawText {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return RawText{text: text, lines: strings.Split(text, "\n")}
}

// String returns the full text
func (r RawText) String() string {
	return r.text
}

// Lines returns the lines of the text. Callers must not modify the slice
func (r RawText) Lines() []string {
	return r.lines
}

// truncate keeps at most max lines. A max of zero keeps everything
func (r RawText) truncate(max int) RawText {
	if max <= 0 || len(r.lines) <= max {
		return r
	}
	lines := r.lines[:max]
	return RawText{text: strings.Join(lines, "\n"), lines: lines}
}

// Merchant identifies the business that issued the receipt
type Merchant struct {
	Name               string  `json:"name"`
	RegistrationNumber *string `json:"registration_number"`
	Address            *string `json:"address"`
	Phone              *string `json:"phone"`
}

// ReceiptMeta holds identifiers exactly as printed. Dates and times are not parsed
type ReceiptMeta struct {
	Number *string `json:"number"`
	Date   *string `json:"date"`
	Time   *string `json:"time"`
}

// LineItem is one purchased product
type LineItem struct {
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`

	// Derived is set when one of the two prices was computed from the other
	// instead of being read from the receipt and cross-checked
	Derived bool `json:"-"`
}

// Amounts are the monetary summary fields. Nil means the field was not found
type Amounts struct {
	Subtotal          *decimal.Decimal `json:"subtotal"`
	ServiceCharge     *decimal.Decimal `json:"service_charge"`
	ServiceChargeRate *decimal.Decimal `json:"service_charge_rate"`
	SST               *decimal.Decimal `json:"sst"`
	SSTRate           *decimal.Decimal `json:"sst_rate"`
	Rounding          *decimal.Decimal `json:"rounding"`
	Total             *decimal.Decimal `json:"total"`
	Cash              *decimal.Decimal `json:"cash"`
	Change            *decimal.Decimal `json:"change"`
}

// Result is the structured record extracted from one receipt
type Result struct {
	Merchant      Merchant    `json:"merchant"`
	Receipt       ReceiptMeta `json:"receipt"`
	Items         []LineItem  `json:"items"`
	Amounts       Amounts     `json:"amounts"`
	PaymentMethod string      `json:"payment_method"`
	RawText       string      `json:"raw_text"`
}

func ptr[T any](v T) *T {
	return &v
}
