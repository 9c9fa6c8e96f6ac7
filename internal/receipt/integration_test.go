package receipt_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/resit/internal/extraction"
	"github.com/zombor/resit/internal/receipt"
	"github.com/zombor/resit/internal/scanning"
)

const restaurantReceipt = `RESTORAN SRI PELITA
Jalan Ampang
Kuala Lumpur

Nasi Lemak Ayam RM12.00
1 x RM12.00
Teh Tarik RM6.00
2 x RM3.00

Service Charge 10% RM1.80
TOTAL RM19.80
VISA RM19.80
`

// textScanner stands in for an OCR engine
type textScanner struct {
	text string
}

func (s *textScanner) ScanText(imageData []byte, contentType string) (string, error) {
	return s.text, nil
}

func (s *textScanner) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		db       *receipt.BoltDB
		store    *receipt.LocalStorage
		server   *receipt.Server
		ghServer *ghttp.Server
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		var err error
		db, err = receipt.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = receipt.NewLocalStorage(filepath.Join(tempDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())

		scanner := scanning.WithPDFText(&textScanner{text: restaurantReceipt})
		service := receipt.NewService(db, scanner, store, extraction.NewExtractor(2000))
		server = receipt.NewServer(service, receipt.Config{Version: "test"}) // No auth for testing convenience

		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		if ghServer != nil {
			ghServer.Close()
		}
		if db != nil {
			db.Close()
		}
	})

	It("should upload a receipt, archive it and export it", func() {
		// Register the server handler once per request
		ghServer.AppendHandlers(
			server.ServeHTTP, // upload
			server.ServeHTTP, // export
		)

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "pelita.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("\xff\xd8\xff\xe0 fake jpeg"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/receipts", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created receipt.Receipt
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		Expect(created.Merchant).To(Equal("RESTORAN SRI PELITA"))
		Expect(created.Amount).To(Equal(1980))
		Expect(created.PaymentMethod).To(Equal("Card"))
		Expect(created.ContentType).To(Equal("image/jpeg"))

		// The upload and the record are both on disk
		_, err = store.Get(created.Filename)
		Expect(err).NotTo(HaveOccurred())
		saved, err := db.GetReceipt(created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Amount).To(Equal(1980))

		exportResp, err := http.Get(ghServer.URL() + "/api/receipts/export")
		Expect(err).NotTo(HaveOccurred())
		defer exportResp.Body.Close()
		Expect(exportResp.StatusCode).To(Equal(http.StatusOK))

		data, err := io.ReadAll(exportResp.Body)
		Expect(err).NotTo(HaveOccurred())
		f, err := excelize.OpenReader(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		rows, err := f.GetRows("Receipts")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[1][0]).To(Equal(created.ID))
		Expect(rows[1][4]).To(Equal("19.8"))
	})
})
