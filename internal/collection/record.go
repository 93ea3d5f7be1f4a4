package collection

import (
	"errors"
	"strings"
	"time"

	"github.com/ironsheep/diecast-scan/internal/basecode"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("record not found")

// Record is one car in the collection.
type Record struct {
	ID               string    `json:"id"`
	Marca            string    `json:"marca"`             // brand
	Modelo           string    `json:"modelo"`            // model
	AnoModelo        string    `json:"ano_modelo"`        // model year
	CorPrincipal     string    `json:"cor_principal"`     // primary color
	CoresSecundarias string    `json:"cores_secundarias"` // secondary colors
	Codigo           string    `json:"codigo"`            // product code as printed
	UPC              string    `json:"upc,omitempty"`
	Fabricante       string    `json:"fabricante"` // manufacturer
	NotasTema        string    `json:"notas_tema"` // notes/theme
	CollectorNumber  string    `json:"collector_number,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Normalize trims every text field and fills CollectorNumber from Codigo when
// it is unset.
func (r *Record) Normalize() {
	for _, f := range []*string{
		&r.Marca, &r.Modelo, &r.AnoModelo, &r.CorPrincipal, &r.CoresSecundarias,
		&r.Codigo, &r.UPC, &r.Fabricante, &r.NotasTema, &r.CollectorNumber,
	} {
		*f = strings.TrimSpace(*f)
	}
	if r.CollectorNumber == "" {
		r.CollectorNumber = basecode.ExtractCollectorNumber(r.Codigo)
	} else {
		r.CollectorNumber = strings.ToUpper(r.CollectorNumber)
	}
}

// Matches reports whether term appears, ignoring case, in any of the fields a
// collection search covers.
func (r *Record) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range []string{r.Marca, r.Modelo, r.Codigo, r.Fabricante, r.CorPrincipal, r.NotasTema} {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Filter returns the records matching term, in order.
func Filter(records []*Record, term string) []*Record {
	out := make([]*Record, 0, len(records))
	for _, r := range records {
		if r.Matches(term) {
			out = append(out, r)
		}
	}
	return out
}

// Stats counts a collection by brand, manufacturer, model year and color.
type Stats struct {
	Total          int            `json:"total"`
	ByBrand        map[string]int `json:"by_brand"`
	ByManufacturer map[string]int `json:"by_manufacturer"`
	ByYear         map[string]int `json:"by_year"`
	ByColor        map[string]int `json:"by_color"`
}

// Summarize computes Stats. Records without a year or color are left out of
// those breakdowns.
func Summarize(records []*Record) Stats {
	s := Stats{
		Total:          len(records),
		ByBrand:        map[string]int{},
		ByManufacturer: map[string]int{},
		ByYear:         map[string]int{},
		ByColor:        map[string]int{},
	}
	for _, r := range records {
		s.ByBrand[r.Marca]++
		s.ByManufacturer[r.Fabricante]++
		if r.AnoModelo != "" {
			s.ByYear[r.AnoModelo]++
		}
		if r.CorPrincipal != "" {
			s.ByColor[r.CorPrincipal]++
		}
	}
	return s
}
