package scan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/diecast-scan/internal/basecode"
	"github.com/ironsheep/diecast-scan/internal/collection"
	"github.com/ironsheep/diecast-scan/internal/i18n"
)

// errNoCollection is returned by Lookup when the scanner has no Finder.
var errNoCollection = errors.New("no collection configured")

type lookupStep struct {
	kind  MatchKind
	query string
	find  func(string) (*collection.Record, error)
}

// lookup tries, in order: the collector number field, codigo containing the
// collector number, codigo containing the scanned text, and codigo containing
// the flat legacy code. The first hit wins.
func lookup(f collection.Finder, text string, ext basecode.Extraction, flag Reason) (Outcome, error) {
	if f == nil {
		return Outcome{}, errNoCollection
	}

	out := Outcome{
		ScannedText: text,
		Code:        ext.Code,
		Parsed:      ext.Parsed,
		Flag:        flag,
		MessageKey:  i18n.KeyNotFound,
	}

	parsed := basecode.ParseBaseCode(text)
	legacy, _ := basecode.ExtractProductCode(text)

	steps := []lookupStep{
		{MatchCollectorNumber, parsed.CollectorNumber, f.FindByCollectorNumber},
		{MatchCodeContainsNumber, parsed.CollectorNumber, f.FindByCodeSubstring},
		{MatchCodeContainsScanned, strings.TrimSpace(text), f.FindByCodeSubstring},
		{MatchCodeContainsLegacy, legacy, f.FindByCodeSubstring},
	}
	for _, step := range steps {
		if step.query == "" {
			continue
		}
		rec, err := step.find(step.query)
		if errors.Is(err, collection.ErrNotFound) {
			continue
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("lookup by %s: %w", step.kind, err)
		}
		out.Found = true
		out.Record = rec
		out.MatchedBy = step.kind
		out.MessageKey = i18n.KeyFound
		return out, nil
	}
	return out, nil
}
