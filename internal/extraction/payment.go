package extraction

import "strings"

type paymentRule struct {
	method   string
	keywords []string
}

// Checked in order; the first rule with a keyword anywhere in the text wins
var paymentRules = []paymentRule{
	{method: "QR Payment", keywords: []string{"qr"}},
	{method: "Cash", keywords: []string{"cash"}},
	{method: "Card", keywords: []string{"card", "credit", "debit", "visa", "mastercard"}},
	{method: "Touch n Go", keywords: []string{"tng", "touch n go", "touchngo"}},
	{method: "GrabPay", keywords: []string{"grabpay"}},
	{method: "Boost", keywords: []string{"boost"}},
	{method: "ShopeePay", keywords: []string{"shopee"}},
	{method: "Online Transfer", keywords: []string{"online", "transfer"}},
}

func paymentMethod(raw RawText) string {
	lower := strings.ToLower(raw.String())
	for _, rule := range paymentRules {
		if containsAny(lower, rule.keywords) {
			return rule.method
		}
	}
	return UnknownPayment
}
