package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// transcribePrompt is the shared prompt used by the vision model providers
const transcribePrompt = `You are reading a printed retail receipt from Malaysia. Transcribe every line of text exactly as printed, from top to bottom.

Rules:
- Output one printed line per output line, in the same order as the receipt
- Keep item codes, prices (e.g. RM3.50), quantities (e.g. 2 x RM1.00), dates and times exactly as shown
- Keep Malay and English words as printed; do not translate or correct spelling
- Do not summarize, reorder, or add any commentary
- Return plain text only, without markdown code blocks`

const (
	pdfRenderDPI     = 300
	contrastBoostPct = 50 // roughly doubles contrast
)

// renderPDFPage renders the first page of a PDF (most receipts are single page)
func renderPDFPage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("%w: opening PDF: %v", ErrInvalidImage, err)
	}
	defer doc.Close()

	img, err := doc.ImageDPI(0, pdfRenderDPI)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// decodeImage decodes a receipt upload of any supported format
func decodeImage(imageData []byte, mimeType string) (image.Image, error) {
	if isPDF(imageData, mimeType) {
		return renderPDFPage(imageData)
	}

	// Go's standard image package doesn't support HEIC (common on iPhones)
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC/HEIF image: %v", ErrInvalidImage, err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: supported formats are JPEG, PNG, GIF, HEIC, HEIF and PDF: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// preprocess converts to grayscale and boosts contrast, which helps OCR on
// thermal paper receipts
func preprocess(img image.Image) image.Image {
	return imaging.AdjustContrast(imaging.Grayscale(img), contrastBoostPct)
}

// isHEICFormat checks the ftyp box brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

func isPDF(data []byte, mimeType string) bool {
	return mimeType == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF-"))
}

// prepareImageData decodes the upload, preprocesses it and re-encodes it as PNG
func prepareImageData(imageData []byte, contentType string) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	img, err := decodeImage(imageData, mimeType)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, preprocess(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
