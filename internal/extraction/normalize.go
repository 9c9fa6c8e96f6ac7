package extraction

import (
	"regexp"
	"strings"
)

var (
	leadingOneMisread = regexp.MustCompile(`^[Il|]\s*x`)
	trailingBarNoise  = regexp.MustCompile(`\s*[|l]{1,3}\s*[|l]{0,3}\s*$`)
	trailingJunk      = regexp.MustCompile(`[\s_|]+$`)
	symbolOnlyLine    = regexp.MustCompile(`^[\s\-_=<>|]+$`)
)

// NormalizeQuantityLine repairs the common OCR damage seen on quantity lines:
// a leading "1" read as I, l or |, and trailing table borders picked up as
// bars. Applying it twice gives the same result as applying it once
func NormalizeQuantityLine(line string) string {
	for {
		next := normalizeOnce(line)
		if next == line {
			return next
		}
		line = next
	}
}

func normalizeOnce(line string) string {
	line = leadingOneMisread.ReplaceAllString(line, "1 x")
	line = trailingBarNoise.ReplaceAllString(line, "")
	line = trailingJunk.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

// isSymbolOnly reports lines made only of separators such as "-----" or "===="
func isSymbolOnly(line string) bool {
	return symbolOnlyLine.MatchString(line)
}
