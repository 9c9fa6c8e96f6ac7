package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Item parsing", func() {
	parse := func(text string) []itemView {
		return viewItems(extractItems(NewRawText(text)))
	}

	DescribeTable("matches each line shape",
		func(text string, expected itemView) {
			Expect(parse(text)).To(Equal([]itemView{expected}))
		},
		Entry("code, separator, name and price",
			"NS02 > Nasi Set - Sup Berempah Daging RM14.90\n1x RM14.90",
			itemView{"Nasi Set - Sup Berempah Daging", 1, "14.90", "14.90"}),
		Entry("code and name without separator",
			"AM70 Kopi - Ais RM3.50\n1x RM3.50",
			itemView{"Kopi - Ais", 1, "3.50", "3.50"}),
		Entry("two letter code",
			"NP Nasi putih RM2.50\n1x RM2.50",
			itemView{"Nasi putih", 1, "2.50", "2.50"}),
		Entry("plain name and price",
			"Colek RM11.00\nI x RM11.00",
			itemView{"Colek", 1, "11.00", "11.00"}),
		Entry("code and name with the price on the quantity line",
			"NS03 > Nasi Goreng Kampung\n2 x RM9.50",
			itemView{"Nasi Goreng Kampung", 2, "9.50", "19.00"}),
		Entry("code and name without separator, priced below",
			"AM11 Milo Ais\n1 x RM4.00",
			itemView{"Milo Ais", 1, "4.00", "4.00"}),
		Entry("inline quantity with a code",
			"3 x AM04 > Teh Tarik RM7.50",
			itemView{"Teh Tarik", 3, "2.50", "7.50"}),
		Entry("inline quantity rounds an exact half to even",
			"8 x Teh Tarik RM1.00",
			itemView{"Teh Tarik", 8, "0.12", "1.00"}),
		Entry("quantity line after a blank line",
			"AM02 > Air Sirap RM2.00\n\n2 x RM1.00",
			itemView{"Air Sirap", 2, "1.00", "2.00"}),
		Entry("comma as the decimal point",
			"AM02 > Air Sirap RM2.00\n2 x RM1,00",
			itemView{"Air Sirap", 2, "1.00", "2.00"}),
	)

	It("marks items whose total was computed", func() {
		items := extractItems(NewRawText("NS03 > Nasi Goreng Kampung\n2 x RM9.50"))
		Expect(items).To(HaveLen(1))
		Expect(items[0].Derived).To(BeTrue())
	})

	It("rejects a price that does not match the quantity line", func() {
		Expect(parse("AM02 > Air Sirap RM5.00\n2 x RM1.00")).To(BeEmpty())
	})

	It("gives up on a quantity line more than three lines away", func() {
		Expect(parse("AM02 > Air Sirap RM2.00\nfoo\nbar\nbaz\n2 x RM1.00")).To(BeEmpty())
	})

	It("ignores summary lines that look like items", func() {
		Expect(parse("Service Charge RM1.20\n1 x RM1.20")).To(BeEmpty())
		Expect(parse("ROUNDING RM0.02")).To(BeEmpty())
	})

	It("drops items priced above the sanity limit", func() {
		Expect(parse("Kek Hari Jadi RM250.00\n1 x RM250.00")).To(BeEmpty())
	})

	It("consumes the quantity line", func() {
		Expect(parse("AM11 Milo Ais\n1 x RM4.00\nAM12 Teh Ais\n1 x RM3.00")).To(Equal([]itemView{
			{"Milo Ais", 1, "4.00", "4.00"},
			{"Teh Ais", 1, "3.00", "3.00"},
		}))
	})

	It("never produces a zero quantity", func() {
		Expect(parse("0 x Nasi Lemak RM17.00")).To(BeEmpty())
		Expect(parse("AM11 Milo Ais\n0 x RM4.00")).To(BeEmpty())
	})

	Describe("the cursor", func() {
		It("records the same line only once", func() {
			p := newItemParser([]string{"x"}, itemRules)
			m := itemMatch{
				rawName: "Teh O",
				item: LineItem{
					Name:       "Teh O",
					Quantity:   1,
					UnitPrice:  decimal.RequireFromString("3.00"),
					TotalPrice: decimal.RequireFromString("3.00"),
				},
				consumed: 1,
			}
			p.record(m)
			p.record(m)
			Expect(p.items).To(HaveLen(1))

			p.pos = 5
			p.record(m)
			Expect(p.items).To(HaveLen(2))
		})

		It("skips short and non-item lines one at a time", func() {
			p := newItemParser([]string{"ab", "Terima kasih RM1.00"}, itemRules)
			match, consumed := p.step()
			Expect(match).To(BeNil())
			Expect(consumed).To(Equal(1))

			p.pos = 1
			match, consumed = p.step()
			Expect(match).To(BeNil())
			Expect(consumed).To(Equal(1))
		})
	})

	Describe("item names", func() {
		DescribeTable("cleanItemName",
			func(input, expected string) {
				Expect(cleanItemName(input)).To(Equal(expected))
			},
			Entry("code with separator", "AM04 > Teh O", "Teh O"),
			Entry("code with colon and spacing", "NS02: Nasi   Lemak", "Nasi Lemak"),
			Entry("trailing bracket", "Ayam Goreng [", "Ayam Goreng"),
			Entry("stray separators", "- Roti Canai |", "Roti Canai"),
		)

		DescribeTable("isValidItemName",
			func(input string, valid bool) {
				Expect(isValidItemName(input)).To(Equal(valid))
			},
			Entry("ordinary name", "Nasi Lemak", true),
			Entry("single character", "x", false),
			Entry("quantity fragment", "2 x", false),
			Entry("payment label", "QR", false),
			Entry("bare amount", "12.50", false),
			Entry("amount with currency", "RM3.00", false),
			Entry("dine in marker", "Dine In", false),
			Entry("symbols only", "***", false),
		)
	})
})
