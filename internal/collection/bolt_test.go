package collection

import (
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltStore", func() {
	var store *BoltStore

	BeforeEach(func() {
		var err error
		store, err = NewBoltStore(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("Save", func() {
		var (
			record *Record
			err    error
		)

		BeforeEach(func() {
			record = &Record{
				Marca:  " Hot Wheels ",
				Modelo: "Nissan Skyline GT-R",
				Codigo: "JJJ26-N521 21A",
			}
		})

		JustBeforeEach(func() {
			err = store.Save(record)
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should assign an ID", func() {
			Expect(record.ID).NotTo(BeEmpty())
		})

		It("should derive the collector number from the code", func() {
			Expect(record.CollectorNumber).To(Equal("N521"))
		})

		It("should trim fields", func() {
			Expect(record.Marca).To(Equal("Hot Wheels"))
		})

		It("should set timestamps", func() {
			Expect(record.CreatedAt).NotTo(BeZero())
			Expect(record.UpdatedAt).NotTo(BeZero())
		})

		When("the collector number is set explicitly", func() {
			BeforeEach(func() {
				record.Codigo = "legacy code"
				record.CollectorNumber = "k123"
			})

			It("should keep it, uppercased", func() {
				Expect(record.CollectorNumber).To(Equal("K123"))
			})
		})

		When("the record already has an ID", func() {
			BeforeEach(func() {
				record.ID = "fixed-id"
			})

			It("should replace the stored record", func() {
				record.Modelo = "Updated"
				Expect(store.Save(record)).To(Succeed())

				all, listErr := store.List()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(all).To(HaveLen(1))
				Expect(all[0].Modelo).To(Equal("Updated"))
			})
		})
	})

	Describe("Get", func() {
		var (
			id     string
			record *Record
			err    error
		)

		JustBeforeEach(func() {
			record, err = store.Get(id)
		})

		When("the record exists", func() {
			BeforeEach(func() {
				saved := &Record{Modelo: "Bone Shaker", Codigo: "HCT12-K123"}
				Expect(store.Save(saved)).To(Succeed())
				id = saved.ID
			})

			It("should return it", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(record.Modelo).To(Equal("Bone Shaker"))
				Expect(record.CollectorNumber).To(Equal("K123"))
			})
		})

		When("the record does not exist", func() {
			BeforeEach(func() {
				id = "nonexistent"
			})

			It("returns ErrNotFound", func() {
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
				Expect(record).To(BeNil())
			})
		})
	})

	Describe("List", func() {
		It("should return an empty list for a new store", func() {
			all, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())
		})

		It("should return records in insertion order", func() {
			for _, m := range []string{"first", "second", "third"} {
				Expect(store.Save(&Record{Modelo: m})).To(Succeed())
			}

			all, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect(all[0].Modelo).To(Equal("first"))
			Expect(all[1].Modelo).To(Equal("second"))
			Expect(all[2].Modelo).To(Equal("third"))
		})
	})

	Describe("Delete", func() {
		It("should remove the record", func() {
			r := &Record{Modelo: "Gone"}
			Expect(store.Save(r)).To(Succeed())
			Expect(store.Delete(r.ID)).To(Succeed())

			_, err := store.Get(r.ID)
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})

		It("should not fail for a missing record", func() {
			Expect(store.Delete("nonexistent")).To(Succeed())
		})
	})

	Describe("SaveAll", func() {
		It("should save every record", func() {
			records := []*Record{{Modelo: "a"}, {Modelo: "b"}}
			Expect(store.SaveAll(records)).To(Succeed())

			all, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(records[0].ID).NotTo(Equal(records[1].ID))
		})
	})

	Describe("FindByCollectorNumber", func() {
		BeforeEach(func() {
			Expect(store.SaveAll([]*Record{
				{Modelo: "No code"},
				{Modelo: "Skyline", Codigo: "JJJ26-N521 21A"},
				{Modelo: "Skyline repaint", Codigo: "JJJ27-N521 22B"},
			})).To(Succeed())
		})

		It("should find the first record with that number", func() {
			r, err := store.FindByCollectorNumber("N521")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Modelo).To(Equal("Skyline"))
		})

		It("should ignore case", func() {
			r, err := store.FindByCollectorNumber(" n521 ")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Modelo).To(Equal("Skyline"))
		})

		It("returns ErrNotFound for an unknown number", func() {
			_, err := store.FindByCollectorNumber("Z999")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("returns ErrNotFound for a blank number", func() {
			_, err := store.FindByCollectorNumber("")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("FindByCodeSubstring", func() {
		BeforeEach(func() {
			Expect(store.SaveAll([]*Record{
				{Modelo: "Flat", Codigo: "GHF12-M345"},
				{Modelo: "Dashed", Codigo: "XXX-N521-99Z"},
			})).To(Succeed())
		})

		It("should match a substring of the code", func() {
			r, err := store.FindByCodeSubstring("N521")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Modelo).To(Equal("Dashed"))
		})

		It("should ignore case", func() {
			r, err := store.FindByCodeSubstring("ghf12")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Modelo).To(Equal("Flat"))
		})

		It("returns ErrNotFound when nothing contains the text", func() {
			_, err := store.FindByCodeSubstring("QQQ")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("never matches blank text", func() {
			_, err := store.FindByCodeSubstring("   ")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})
})
