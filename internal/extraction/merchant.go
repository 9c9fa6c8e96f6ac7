package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	merchantScanLines     = 15
	merchantFallbackLines = 10
)

var businessKeywords = []string{
	"sdn bhd", "sdn. bhd.", "sendirian berhad", "berhad",
	"enterprise", "restaurant", "cafe", "kedai", "restoran", "kopitiam",
}

var (
	contactMarkers     = []string{"http", "www", "@", "tel:", "phone:"}
	operationalPhrases = []string{"waktu operasi", "setiap hari", "order:", "employee:"}
)

var (
	paddedCodeLine = regexp.MustCompile(`^\s*\([0-9A-Z-]+\)\s*$`)
	bareCodeLine   = regexp.MustCompile(`^\([0-9A-Z-]+\)$`)
	upperCaseLine  = regexp.MustCompile(`^[A-Z\s]+$`)
)

var registrationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{12}\b`),
	regexp.MustCompile(`(?i)\b\d{7}-[A-Z]\b`),
	regexp.MustCompile(`(?i)(?:SSM|REG|NO)[:\s]*([0-9A-Z-]+)`),
}

var postcode = regexp.MustCompile(`\b\d{5}\b`)

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b0\d{1,2}[-\s]?\d{7,8}\b`),
	regexp.MustCompile(`\b01\d[-\s]?\d{7,8}\b`),
	regexp.MustCompile(`\+?60\d{1,2}[-\s]?\d{7,8}\b`),
}

type merchantCandidate struct {
	position int
	text     string
	score    int
}

// better orders candidates by score, then by how early they appear
func (c merchantCandidate) better(other merchantCandidate) bool {
	if c.score != other.score {
		return c.score > other.score
	}
	return c.position < other.position
}

func extractMerchant(raw RawText) Merchant {
	return Merchant{
		Name:               merchantName(raw.Lines()),
		RegistrationNumber: registrationNumber(raw.String()),
		Address:            address(raw.Lines()),
		Phone:              firstMatch(phonePatterns, raw.String()),
	}
}

func merchantName(lines []string) string {
	var best *merchantCandidate
	for i, line := range head(lines, merchantScanLines) {
		c, ok := scoreMerchantLine(i, strings.TrimSpace(line))
		if !ok {
			continue
		}
		if best == nil || c.better(*best) {
			best = &c
		}
	}
	if best != nil {
		return best.text
	}

	for _, line := range head(lines, merchantFallbackLines) {
		clean := strings.TrimSpace(line)
		if utf8.RuneCountInString(clean) > 5 && !bareCodeLine.MatchString(clean) {
			return clean
		}
	}
	return UnknownMerchant
}

func scoreMerchantLine(position int, clean string) (merchantCandidate, bool) {
	if utf8.RuneCountInString(clean) < 3 || paddedCodeLine.MatchString(clean) {
		return merchantCandidate{}, false
	}
	lower := strings.ToLower(clean)
	if containsAny(lower, contactMarkers) || containsAny(lower, operationalPhrases) {
		return merchantCandidate{}, false
	}

	c := merchantCandidate{position: position, text: clean}
	first, _ := utf8.DecodeRuneInString(clean)
	switch {
	case containsAny(lower, businessKeywords):
		c.score = 10
	case unicode.IsUpper(first) && len(strings.Fields(clean)) > 1:
		if !upperCaseLine.MatchString(clean) {
			c.score = 5
		} else if strings.Contains(lower, "restaurant") || strings.Contains(lower, "restoran") {
			c.score = 8
		}
	}
	if c.score == 0 {
		return merchantCandidate{}, false
	}
	return c, true
}

func registrationNumber(text string) *string {
	for _, re := range registrationPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return ptr(m[1])
		}
		return ptr(m[0])
	}
	return nil
}

// address takes the first line holding a postcode together with the two
// lines above it and the one below
func address(lines []string) *string {
	for i, line := range lines {
		if !postcode.MatchString(line) {
			continue
		}
		start := max(0, i-2)
		end := min(len(lines), i+2)
		var parts []string
		for _, l := range lines[start:end] {
			if l = strings.TrimSpace(l); l != "" {
				parts = append(parts, l)
			}
		}
		return ptr(strings.Join(parts, ", "))
	}
	return nil
}

func firstMatch(patterns []*regexp.Regexp, text string) *string {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return ptr(m)
		}
	}
	return nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func head(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}
