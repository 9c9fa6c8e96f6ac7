package scanning

import (
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguages are the Tesseract models used for Malaysian receipts
var DefaultLanguages = []string{"eng", "msa"}

// Tesseract implements the Scanner interface with a local Tesseract install
type Tesseract struct {
	tessdataPrefix string
	languages      []string
}

// NewTesseract creates a Tesseract scanner. An empty tessdataPrefix uses
// Tesseract's own lookup (TESSDATA_PREFIX or the install default)
func NewTesseract(tessdataPrefix string, languages []string) (*Tesseract, error) {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	slog.Info("Using Tesseract OCR", "version", gosseract.Version(), "languages", languages)
	return &Tesseract{
		tessdataPrefix: tessdataPrefix,
		languages:      languages,
	}, nil
}

// ScanText runs OCR over a preprocessed copy of the image
func (t *Tesseract) ScanText(imageData []byte, contentType string) (string, error) {
	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	// gosseract clients are not safe for concurrent use, so each scan gets its own
	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		client.SetTessdataPrefix(t.tessdataPrefix)
	}
	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("setting OCR languages: %w", err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("loading image into tesseract: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("running tesseract: %w", err)
	}
	return text, nil
}

// Close is a no-op; clients are closed after each scan
func (t *Tesseract) Close() error {
	return nil
}
