package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// receiptImage builds a small colored image in the given format
func receiptImage(encode func(*bytes.Buffer, image.Image) error) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 200, B: uint8(y * 20), A: 255})
		}
	}
	var buf bytes.Buffer
	Expect(encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func encodePNG(buf *bytes.Buffer, img image.Image) error {
	return png.Encode(buf, img)
}

func encodeJPEG(buf *bytes.Buffer, img image.Image) error {
	return jpeg.Encode(buf, img, nil)
}

var _ = Describe("Image preparation", func() {
	Describe("prepareImageData", func() {
		var (
			input       []byte
			contentType string
			output      []byte
			err         error
		)

		JustBeforeEach(func() {
			output, err = prepareImageData(input, contentType)
		})

		When("given a PNG", func() {
			BeforeEach(func() {
				input = receiptImage(encodePNG)
				contentType = "image/png"
			})

			It("returns a grayscale PNG of the same size", func() {
				Expect(err).NotTo(HaveOccurred())

				img, format, decodeErr := image.Decode(bytes.NewReader(output))
				Expect(decodeErr).NotTo(HaveOccurred())
				Expect(format).To(Equal("png"))
				Expect(img.Bounds().Dx()).To(Equal(8))
				Expect(img.Bounds().Dy()).To(Equal(8))

				r, g, b, _ := img.At(3, 5).RGBA()
				Expect(r).To(Equal(g))
				Expect(g).To(Equal(b))
			})
		})

		When("given a JPEG with a mismatched content type", func() {
			BeforeEach(func() {
				input = receiptImage(encodeJPEG)
				contentType = " IMAGE/PNG "
			})

			It("decodes by content", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(output).NotTo(BeEmpty())
			})
		})

		When("given bytes that are not an image", func() {
			BeforeEach(func() {
				input = []byte("definitely not an image")
				contentType = "image/jpeg"
			})

			It("returns ErrInvalidImage", func() {
				Expect(err).To(MatchError(ErrInvalidImage))
			})
		})

		When("given nothing", func() {
			BeforeEach(func() {
				input = nil
				contentType = "image/jpeg"
			})

			It("returns ErrInvalidImage", func() {
				Expect(err).To(MatchError(ErrInvalidImage))
			})
		})
	})

	Describe("format detection", func() {
		It("recognises HEIC brands", func() {
			data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
			Expect(isHEICFormat(data)).To(BeTrue())
			Expect(isHEICFormat([]byte("ftypheic"))).To(BeFalse())
			Expect(isHEICFormat(append([]byte{0, 0, 0, 24}, []byte("ftypisom0000")...))).To(BeFalse())
		})

		It("recognises HEIC content types", func() {
			Expect(isHEICMimeType("image/heic")).To(BeTrue())
			Expect(isHEICMimeType("image/heif-sequence")).To(BeTrue())
			Expect(isHEICMimeType("image/jpeg")).To(BeFalse())
		})

		It("recognises PDFs by content type or magic bytes", func() {
			Expect(isPDF(nil, "application/pdf")).To(BeTrue())
			Expect(isPDF([]byte("%PDF-1.7\n..."), "application/octet-stream")).To(BeTrue())
			Expect(isPDF([]byte("GIF89a"), "image/gif")).To(BeFalse())
		})
	})
})
