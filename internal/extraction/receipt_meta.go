package extraction

import (
	"regexp"
	"strings"
	"unicode"
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:Jan|Feb|Mac|Apr|Mei|Jun|Jul|Ogo|Sep|Okt|Nov|Dis)[a-z]*\s+\d{2,4})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4})\b`),
}

var timePattern = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}(?::\d{2})?)\s*(?:AM|PM|PTG|PG)?\b`)

var receiptNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`#\s*(\d+-\d+)`),
	regexp.MustCompile(`(?i)(?:RECEIPT|INVOICE|BILL|NO|Resit|Invois)[:\s#]+([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)\b(?:REC|INV|BIL)\s*[:#]?\s*([A-Z0-9-]+)`),
}

// A date fragment is a day and month with an optional separator after it,
// e.g. "12/05" or "12/05/". "8-37833" is not one
var dateFragment = regexp.MustCompile(`^\d{1,2}[/-]\d{1,2}(?:[/-]|$)`)

func extractReceiptMeta(raw RawText) ReceiptMeta {
	text := raw.String()
	meta := ReceiptMeta{Number: receiptNumber(text)}
	for _, re := range datePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			meta.Date = ptr(m[1])
			break
		}
	}
	if m := timePattern.FindString(text); m != "" {
		meta.Time = ptr(m)
	}
	return meta
}

// receiptNumber tries each pattern's first match in order. A rejected
// candidate moves on to the next pattern
func receiptNumber(text string) *string {
	for _, re := range receiptNumberPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if acceptReceiptNumber(m[1]) {
			return ptr(m[1])
		}
	}
	return nil
}

func acceptReceiptNumber(candidate string) bool {
	if len(candidate) < 3 || dateFragment.MatchString(candidate) {
		return false
	}
	digits := strings.ReplaceAll(candidate, "-", "")
	if allDigits(digits) && len(digits) > 7 {
		return false
	}
	// Five bare digits are almost always a postcode
	if allDigits(candidate) && len(candidate) == 5 {
		return false
	}
	return true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
