package collection

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSV column headers. Imports are matched on these names.
const (
	ColMarca            = "Marca"
	ColModelo           = "Modelo"
	ColAnoModelo        = "Ano do Modelo"
	ColCorPrincipal     = "Cor Principal"
	ColCoresSecundarias = "Cor(es) Segundária(s)"
	ColCodigo           = "Código"
	ColUPC              = "UPC"
	ColFabricante       = "Fabricante"
	ColNotasTema        = "Notas/Tema"
)

// ImportCSV reads records from a CSV file with a header row.
//
// Columns are located by header name so their order does not matter. Missing
// columns leave the field empty, unknown columns are ignored and blank rows
// are skipped. Collector numbers are derived from the code column.
func ImportCSV(r io.Reader) ([]*Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		cols[h] = i
	}

	records := make([]*Record, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if blank(row) {
			continue
		}

		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		rec := &Record{
			Marca:            get(ColMarca),
			Modelo:           get(ColModelo),
			AnoModelo:        get(ColAnoModelo),
			CorPrincipal:     get(ColCorPrincipal),
			CoresSecundarias: get(ColCoresSecundarias),
			Codigo:           get(ColCodigo),
			UPC:              get(ColUPC),
			Fabricante:       get(ColFabricante),
			NotasTema:        get(ColNotasTema),
		}
		rec.Normalize()
		records = append(records, rec)
	}
	return records, nil
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
