package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/zombor/resit/internal/extraction"
	"github.com/zombor/resit/internal/scanning"
)

const apiName = "Malaysian Receipt Data Extraction API"

// extractResponse is the envelope for the extraction endpoints
type extractResponse struct {
	Success bool               `json:"success"`
	Data    *extraction.Result `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

type extractImageRequest struct {
	ImageBase64 string `json:"image_base64"`
}

type extractTextRequest struct {
	Text string `json:"text"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeExtractError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, extractResponse{Success: false, Error: message})
}

// handleIndex describes the API
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    apiName,
		"version": s.version,
		"endpoints": map[string]string{
			"GET /health":                 "Health check",
			"POST /extract":               "Extract data from a receipt image (multipart 'image' or JSON 'image_base64')",
			"POST /extract/text":          "Extract data from receipt OCR text (JSON 'text' or text/plain body)",
			"GET /api/receipts":           "List archived receipts",
			"POST /api/receipts":          "Upload and archive a receipt (multipart 'file')",
			"GET /api/receipts/export":    "Download archived receipts as XLSX",
			"GET /api/receipts/{id}":      "Get an archived receipt",
			"GET /api/receipts/{id}/file": "Download the original upload",
			"DELETE /api/receipts/{id}":   "Delete an archived receipt",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleExtract runs OCR and extraction on an image without storing anything
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := readImage(r)
	if err != nil {
		slog.Info("Rejected extraction request", "error", err)
		writeExtractError(w, http.StatusBadRequest, badRequestMessage(err))
		return
	}

	result, err := s.service.ExtractImage(data, contentType)
	if err != nil {
		if errors.Is(err, scanning.ErrInvalidImage) {
			writeExtractError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Error extracting receipt", "content_type", contentType, "error", err)
		writeExtractError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{Success: true, Data: result})
}

// handleExtractText runs extraction on text the client already has
func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	text, err := readText(r)
	if err != nil {
		writeExtractError(w, http.StatusBadRequest, badRequestMessage(err))
		return
	}

	result, err := s.service.ExtractText(text)
	if err != nil {
		slog.Error("Error extracting receipt text", "error", err)
		writeExtractError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{Success: true, Data: result})
}

// readImage accepts either a multipart "image" field or a JSON body with a
// base64 image, optionally written as a data URL
func readImage(r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		up, err := readMultipartFile(r, "image")
		if err != nil {
			return nil, "", err
		}
		return up.data, up.contentType, nil
	case "application/json":
		var req extractImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, "", wrapBodyError(err, "invalid JSON body")
		}
		if req.ImageBase64 == "" {
			return nil, "", badRequest("No image provided")
		}
		return decodeDataURL(req.ImageBase64)
	default:
		return nil, "", badRequest("No image provided")
	}
}

func readText(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var text string
	switch mediaType {
	case "application/json":
		var req extractTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", wrapBodyError(err, "invalid JSON body")
		}
		text = req.Text
	case "text/plain":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return "", wrapBodyError(err, "error reading body")
		}
		text = string(body)
	}
	if strings.TrimSpace(text) == "" {
		return "", badRequest("No text provided")
	}
	return text, nil
}

// decodeDataURL decodes "data:<mime>;base64,<payload>" or a bare base64 payload
func decodeDataURL(encoded string) ([]byte, string, error) {
	contentType := ""
	if prefix, payload, found := strings.Cut(encoded, ","); found {
		if mediaType, _, ok := strings.Cut(strings.TrimPrefix(prefix, "data:"), ";"); ok {
			contentType = mediaType
		}
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, "", badRequest("Invalid base64 image")
	}
	if len(data) == 0 {
		return nil, "", badRequest("No image provided")
	}
	return data, detectContentType("", contentType, data), nil
}

// upload is a file read from a multipart form
type upload struct {
	filename    string
	contentType string
	data        []byte
}

func readMultipartFile(r *http.Request, field string) (*upload, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, badRequest("No " + field + " provided")
		}
		return nil, wrapBodyError(err, "Error parsing form")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, wrapBodyError(err, "Error reading file")
	}
	if len(data) == 0 {
		return nil, badRequest("No " + field + " provided")
	}
	return &upload{
		filename:    header.Filename,
		contentType: detectContentType(header.Filename, header.Header.Get("Content-Type"), data),
		data:        data,
	}, nil
}

// detectContentType prefers the declared type, then the file extension, then sniffing
func detectContentType(filename, declared string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return strings.ToLower(mediaType)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}

	// HEIC is not known to http.DetectContentType; the scanner checks its magic bytes itself
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mediaType
}

func badRequest(message string) error {
	return &requestError{message: message}
}

func wrapBodyError(err error, message string) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &requestError{message: "File is too large. Please compress or resize your image.", err: err}
	}
	return &requestError{message: message, err: err}
}

// requestError carries the message shown to the client for bad input
type requestError struct {
	message string
	err     error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *requestError) Unwrap() error {
	return e.err
}

func badRequestMessage(err error) string {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.message
	}
	return err.Error()
}

// handleListReceipts returns all archived receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleUploadReceipt stores, extracts and archives an uploaded receipt
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	up, err := readMultipartFile(r, "file")
	if err != nil {
		slog.Info("Rejected upload", "error", err)
		writeError(w, http.StatusBadRequest, badRequestMessage(err))
		return
	}

	receipt, err := s.service.ProcessReceipt(up.filename, up.data, up.contentType)
	if err != nil {
		slog.Error("Error processing receipt", "filename", up.filename, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, scanning.ErrInvalidImage) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the original upload
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt and its file
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportReceipts downloads the archive as a spreadsheet
func (s *Server) handleExportReceipts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportReceipts(&buf); err != nil {
		slog.Error("Error exporting receipts", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	w.Write(buf.Bytes())
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Receipt not found")
		return
	}
	slog.Error("Error reading receipt", "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
