package receipt

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("writeWorkbook", func() {
	readRows := func(data []byte) [][]string {
		f, err := excelize.OpenReader(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		rows, err := f.GetRows(exportSheet)
		Expect(err).NotTo(HaveOccurred())
		return rows
	}

	It("should write a header row when there are no receipts", func() {
		var buf bytes.Buffer
		Expect(writeWorkbook(&buf, nil)).To(Succeed())

		rows := readRows(buf.Bytes())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0]).To(Equal(exportColumns))
	})

	It("should write one row per receipt with the amount in ringgit", func() {
		receipts := []*Receipt{
			{
				ID:            "id1",
				Merchant:      "KEDAI RUNCIT AH SENG SDN BHD",
				Number:        "A10023",
				Date:          "14 Mac 2024",
				Amount:        1285,
				PaymentMethod: "Cash",
				ItemCount:     2,
				CreatedAt:     time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC),
			},
			{
				ID:            "id2",
				Merchant:      "Khun Mae Thai Muslim Seri Kembangan",
				Amount:        9770,
				PaymentMethod: "QR Payment",
				ItemCount:     10,
				CreatedAt:     time.Date(2025, 12, 5, 21, 28, 0, 0, time.UTC),
			},
		}

		var buf bytes.Buffer
		Expect(writeWorkbook(&buf, receipts)).To(Succeed())

		rows := readRows(buf.Bytes())
		Expect(rows).To(HaveLen(3))
		Expect(rows[1]).To(Equal([]string{
			"id1", "KEDAI RUNCIT AH SENG SDN BHD", "A10023", "14 Mac 2024", "12.85", "Cash", "2", "2024-03-14T10:00:00Z",
		}))
		Expect(rows[2][0]).To(Equal("id2"))
		Expect(rows[2][4]).To(Equal("97.7"))
	})
})
