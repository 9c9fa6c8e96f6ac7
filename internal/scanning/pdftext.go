package scanning

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// minTextLayerChars is the least amount of non-space text a PDF must carry
// before its text layer is trusted over OCR
const minTextLayerChars = 20

// pdfTextScanner reads the text layer of digital PDF receipts and only falls
// back to the wrapped scanner for images and scanned PDFs
type pdfTextScanner struct {
	next Scanner
}

// WithPDFText wraps next so PDFs that already carry text skip OCR
func WithPDFText(next Scanner) Scanner {
	return &pdfTextScanner{next: next}
}

func (p *pdfTextScanner) ScanText(imageData []byte, contentType string) (string, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if isPDF(imageData, mimeType) {
		text, err := pdfTextLayer(imageData)
		switch {
		case err != nil:
			slog.Debug("Reading PDF text layer failed, falling back to OCR", "error", err)
		case len(strings.Join(strings.Fields(text), "")) < minTextLayerChars:
			slog.Debug("PDF has no usable text layer, falling back to OCR")
		case strings.Count(strings.TrimSpace(text), "\n") == 0:
			// A receipt is never one line; the layout was lost
			slog.Debug("PDF text layer has a single line, falling back to OCR")
		default:
			return text, nil
		}
	}
	return p.next.ScanText(imageData, contentType)
}

func (p *pdfTextScanner) Close() error {
	return p.next.Close()
}

// pdfTextLayer returns the text of every page, one printed row per line
func pdfTextLayer(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, row := range textRows(page.Content().Text) {
			sb.WriteString(row)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// textRows groups glyphs sharing a baseline into rows, top of the page
// first. Runs on the same row are separated by a space when there is a
// visible gap between them
func textRows(glyphs []pdf.Text) []string {
	byLine := make(map[float64][]pdf.Text)
	for _, g := range glyphs {
		y := math.Round(g.Y)
		byLine[y] = append(byLine[y], g)
	}

	ys := make([]float64, 0, len(byLine))
	for y := range byLine {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))

	rows := make([]string, 0, len(ys))
	for _, y := range ys {
		line := byLine[y]
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

		var sb strings.Builder
		for i, g := range line {
			if i > 0 {
				prev := line[i-1]
				gap := g.X - (prev.X + prev.W)
				if gap > math.Max(prev.W, 0.5) && prev.S != " " && g.S != " " {
					sb.WriteString(" ")
				}
			}
			sb.WriteString(g.S)
		}
		if row := strings.TrimSpace(sb.String()); row != "" {
			rows = append(rows, row)
		}
	}
	return rows
}
