package collection

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ImportCSV", func() {
	var (
		input   string
		records []*Record
		err     error
	)

	JustBeforeEach(func() {
		records, err = ImportCSV(strings.NewReader(input))
	})

	When("the file has every column", func() {
		BeforeEach(func() {
			input = "Marca,Modelo,Ano do Modelo,Cor Principal,Cor(es) Segundária(s),Código,Fabricante,Notas/Tema\n" +
				"Nissan,Skyline GT-R,1999,Azul,Branco,JJJ26-N521 21A,Hot Wheels,JDM\n" +
				"Ford,Mustang,1967,Vermelho,,GHF12-M345,Hot Wheels,\n"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should read every row", func() {
			Expect(records).To(HaveLen(2))
		})

		It("should map the columns", func() {
			r := records[0]
			Expect(r.Marca).To(Equal("Nissan"))
			Expect(r.Modelo).To(Equal("Skyline GT-R"))
			Expect(r.AnoModelo).To(Equal("1999"))
			Expect(r.CorPrincipal).To(Equal("Azul"))
			Expect(r.CoresSecundarias).To(Equal("Branco"))
			Expect(r.Codigo).To(Equal("JJJ26-N521 21A"))
			Expect(r.Fabricante).To(Equal("Hot Wheels"))
			Expect(r.NotasTema).To(Equal("JDM"))
		})

		It("should derive collector numbers", func() {
			Expect(records[0].CollectorNumber).To(Equal("N521"))
			Expect(records[1].CollectorNumber).To(Equal("M345"))
		})
	})

	When("columns are reordered and some are missing", func() {
		BeforeEach(func() {
			input = "\ufeffCódigo,Modelo,Extra\n" +
				"HCT12-K123,Bone Shaker,ignored\n"
		})

		It("should match columns by header", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Modelo).To(Equal("Bone Shaker"))
			Expect(records[0].Codigo).To(Equal("HCT12-K123"))
			Expect(records[0].Marca).To(BeEmpty())
		})
	})

	When("there are blank rows", func() {
		BeforeEach(func() {
			input = "Marca,Modelo\n" +
				"Nissan,Skyline\n" +
				"\n" +
				",\n" +
				"Ford,Mustang\n"
		})

		It("should skip them", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[1].Marca).To(Equal("Ford"))
		})
	})

	When("a row is shorter than the header", func() {
		BeforeEach(func() {
			input = "Marca,Modelo,Código\nNissan\n"
		})

		It("should leave the missing fields empty", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Codigo).To(BeEmpty())
		})
	})

	When("the file is empty", func() {
		BeforeEach(func() {
			input = ""
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("a quoted field is malformed", func() {
		BeforeEach(func() {
			input = "Marca,Modelo\n\"Nissan,Skyline\n"
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Record", func() {
	Describe("Matches", func() {
		record := &Record{
			Marca:        "Nissan",
			Modelo:       "Skyline GT-R",
			Codigo:       "JJJ26-N521",
			Fabricante:   "Hot Wheels",
			CorPrincipal: "Azul",
			NotasTema:    "JDM Legends",
		}

		DescribeTable("search terms",
			func(term string, want bool) {
				Expect(record.Matches(term)).To(Equal(want))
			},
			Entry("brand", "nissan", true),
			Entry("model", "SKYLINE", true),
			Entry("code", "n521", true),
			Entry("manufacturer", "hot wheels", true),
			Entry("color", "azul", true),
			Entry("notes", "legends", true),
			Entry("blank", "  ", true),
			Entry("absent", "ferrari", false),
		)
	})

	Describe("Filter", func() {
		It("should keep matching records in order", func() {
			records := []*Record{{Marca: "Ford"}, {Marca: "Nissan"}, {Marca: "Ford GT"}}
			got := Filter(records, "ford")
			Expect(got).To(HaveLen(2))
			Expect(got[1].Marca).To(Equal("Ford GT"))
		})
	})

	Describe("Summarize", func() {
		It("should count by brand, manufacturer, year and color", func() {
			s := Summarize([]*Record{
				{Marca: "Ford", Fabricante: "Hot Wheels", AnoModelo: "1967", CorPrincipal: "Vermelho"},
				{Marca: "Ford", Fabricante: "Matchbox", CorPrincipal: "Vermelho"},
				{Marca: "Nissan", Fabricante: "Hot Wheels", AnoModelo: "1999"},
			})

			Expect(s.Total).To(Equal(3))
			Expect(s.ByBrand).To(Equal(map[string]int{"Ford": 2, "Nissan": 1}))
			Expect(s.ByManufacturer).To(Equal(map[string]int{"Hot Wheels": 2, "Matchbox": 1}))
			Expect(s.ByYear).To(Equal(map[string]int{"1967": 1, "1999": 1}))
			Expect(s.ByColor).To(Equal(map[string]int{"Vermelho": 2}))
		})
	})
})
