package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func item(name string, qty int, unit, total string) LineItem {
	return LineItem{
		Name:       name,
		Quantity:   qty,
		UnitPrice:  *money(unit),
		TotalPrice: *money(total),
	}
}

var _ = Describe("Reconciliation", func() {
	var items []LineItem

	BeforeEach(func() {
		items = []LineItem{
			item("Nasi Set", 1, "14.90", "14.90"),
			item("Mee Wantan", 1, "10.00", "10.00"),
			item("Colek", 1, "7.00", "7.00"),
		}
	})

	Describe("subtotal from items", func() {
		It("fills a missing subtotal from the item sum", func() {
			amounts := subtotalFromItems(items, Amounts{Total: money("97.70")})
			Expect(fixed(amounts.Subtotal)).To(Equal("31.90"))
		})

		It("leaves the subtotal alone when the items exceed twice the total", func() {
			amounts := subtotalFromItems(items, Amounts{Total: money("10.00")})
			Expect(amounts.Subtotal).To(BeNil())
		})

		It("corrects a subtotal within a ringgit of the item sum", func() {
			amounts := subtotalFromItems(items, Amounts{Subtotal: money("31.50")})
			Expect(fixed(amounts.Subtotal)).To(Equal("31.90"))
		})

		It("keeps a printed subtotal that is far from the item sum", func() {
			amounts := subtotalFromItems(items, Amounts{Subtotal: money("45.00")})
			Expect(fixed(amounts.Subtotal)).To(Equal("45.00"))
		})

		It("treats a zero total as missing", func() {
			amounts := subtotalFromItems(items, Amounts{Total: money("0.00")})
			Expect(fixed(amounts.Subtotal)).To(Equal("31.90"))
		})
	})

	Describe("total from components", func() {
		It("adds the charges to the subtotal", func() {
			amounts := totalFromComponents(Amounts{
				Subtotal:      money("12.10"),
				ServiceCharge: money("1.21"),
				SST:           money("0.73"),
				Rounding:      money("0.01"),
			})
			Expect(fixed(amounts.Total)).To(Equal("14.05"))
		})

		It("keeps a printed total", func() {
			amounts := totalFromComponents(Amounts{Subtotal: money("12.10"), Total: money("13.00")})
			Expect(fixed(amounts.Total)).To(Equal("13.00"))
		})

		It("does nothing without a subtotal", func() {
			Expect(totalFromComponents(Amounts{SST: money("0.73")}).Total).To(BeNil())
		})
	})

	Describe("spurious items", func() {
		It("drops items priced above the total when the sum is far too high", func() {
			items = append(items, item("Jumlah Besar", 1, "150.00", "150.00"))
			kept, amounts := dropSpuriousItems(items, Amounts{Total: money("20.00")})
			Expect(kept).To(HaveLen(3))
			Expect(fixed(amounts.Subtotal)).To(Equal("31.90"))
		})

		It("keeps everything when the sum is plausible", func() {
			kept, amounts := dropSpuriousItems(items, Amounts{Total: money("31.90")})
			Expect(kept).To(Equal(items))
			Expect(amounts.Subtotal).To(BeNil())
		})

		It("leaves the subtotal alone when nothing survives", func() {
			kept, amounts := dropSpuriousItems(items, Amounts{Total: money("5.00"), Subtotal: money("31.90")})
			Expect(kept).To(BeEmpty())
			Expect(fixed(amounts.Subtotal)).To(Equal("31.90"))
		})
	})

	It("runs the passes in order", func() {
		kept, amounts := reconcile(items, Amounts{SST: money("1.91")})
		Expect(kept).To(Equal(items))
		Expect(fixed(amounts.Subtotal)).To(Equal("31.90"))
		Expect(fixed(amounts.Total)).To(Equal("33.81"))
	})
})
