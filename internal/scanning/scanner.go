package scanning

import "errors"

// ErrInvalidImage is returned when the uploaded bytes cannot be decoded as a
// receipt image or document
var ErrInvalidImage = errors.New("invalid image")

// Scanner defines the interface for turning a receipt image into text
type Scanner interface {
	// ScanText reads a receipt image/PDF and returns its text, one printed line per line
	ScanText(imageData []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}
