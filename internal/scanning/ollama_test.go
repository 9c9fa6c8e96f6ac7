package scanning

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		scanner *Ollama
		image   []byte
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		scanner, err = NewOllama(server.URL(), "qwen2.5vl:7b")
		Expect(err).NotTo(HaveOccurred())
		image = receiptImage(encodePNG)
	})

	AfterEach(func() {
		server.Close()
	})

	When("the model returns a transcript", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
					ghttp.VerifyContentType("application/json"),
					func(w http.ResponseWriter, r *http.Request) {
						body, err := io.ReadAll(r.Body)
						Expect(err).NotTo(HaveOccurred())

						var req ollamaChatRequest
						Expect(json.Unmarshal(body, &req)).To(Succeed())
						Expect(req.Model).To(Equal("qwen2.5vl:7b"))
						Expect(req.Stream).To(BeFalse())
						Expect(req.Messages).To(HaveLen(2))
						Expect(req.Messages[1].Images).To(HaveLen(1))

						png, err := base64.StdEncoding.DecodeString(req.Messages[1].Images[0])
						Expect(err).NotTo(HaveOccurred())
						Expect(png[:4]).To(Equal([]byte("\x89PNG")))
					},
					ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
						Message: ollamaMessage{Role: "assistant", Content: "```\nKEDAI AH SENG\nTOTAL RM12.85\n```"},
						Done:    true,
					}),
				),
			)
		})

		It("returns the cleaned transcript", func() {
			text, err := scanner.ScanText(image, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("KEDAI AH SENG\nTOTAL RM12.85"))
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("reports the status and body", func() {
			_, err := scanner.ScanText(image, "image/png")
			Expect(err).To(MatchError(ContainSubstring("status 500")))
			Expect(err).To(MatchError(ContainSubstring("model not loaded")))
		})
	})

	When("the image cannot be decoded", func() {
		It("fails before calling the API", func() {
			_, err := scanner.ScanText([]byte("nope"), "image/png")
			Expect(err).To(MatchError(ErrInvalidImage))
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})
})
