package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/resit/internal/extraction"
)

// Receipt is the archived summary of an uploaded receipt. The full
// extraction result is not stored; it can be produced again from the file
type Receipt struct {
	ID            string    `json:"id"`
	Merchant      string    `json:"merchant"`
	Number        string    `json:"number,omitempty"`
	Date          string    `json:"date,omitempty"` // as printed on the receipt
	Amount        int       `json:"amount"`         // Amount in sen
	PaymentMethod string    `json:"payment_method"`
	ItemCount     int       `json:"item_count"`
	Filename      string    `json:"filename"`
	ContentType   string    `json:"content_type"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// summarize copies the fields worth keeping out of an extraction result
func summarize(r *Receipt, result *extraction.Result) {
	r.Merchant = result.Merchant.Name
	r.Number = deref(result.Receipt.Number)
	r.Date = deref(result.Receipt.Date)
	r.Amount = toSen(result.Amounts.Total)
	r.PaymentMethod = result.PaymentMethod
	r.ItemCount = len(result.Items)
}

func toSen(amount *decimal.Decimal) int {
	if amount == nil {
		return 0
	}
	return int(amount.Shift(2).Round(0).IntPart())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
