package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Supported lists the catalog languages. The first entry is the fallback.
var Supported = []language.Tag{language.English, language.Portuguese}

// Localizer looks up message keys for a requested language.
type Localizer struct {
	matcher  language.Matcher
	printers []*message.Printer
}

// New builds a Localizer over the built-in catalogs. Portuguese entries that
// are missing fall back to English.
func New() (*Localizer, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range english {
		if err := b.SetString(language.English, key, msg); err != nil {
			return nil, fmt.Errorf("loading en %q: %w", key, err)
		}
		if pt, ok := portuguese[key]; ok {
			msg = pt
		}
		if err := b.SetString(language.Portuguese, key, msg); err != nil {
			return nil, fmt.Errorf("loading pt %q: %w", key, err)
		}
	}

	l := &Localizer{matcher: language.NewMatcher(Supported)}
	for _, tag := range Supported {
		l.printers = append(l.printers, message.NewPrinter(tag, message.Catalog(b)))
	}
	return l, nil
}

// MustNew is New that panics on error.
func MustNew() *Localizer {
	l, err := New()
	if err != nil {
		panic(err)
	}
	return l
}

// Match returns the supported language closest to lang, a BCP 47 tag or an
// Accept-Language style list such as "pt-BR,pt;q=0.9". Unparseable or
// unsupported input yields English.
func (l *Localizer) Match(lang string) language.Tag {
	return Supported[l.index(lang)]
}

func (l *Localizer) index(lang string) int {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return 0
	}
	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return 0
	}
	_, idx, conf := l.matcher.Match(tags...)
	if conf == language.No {
		return 0
	}
	return idx
}

// Message returns the text for key in lang, formatted with args. Unknown keys
// are returned unchanged.
func (l *Localizer) Message(lang, key string, args ...any) string {
	return l.printers[l.index(lang)].Sprintf(key, args...)
}

// Has reports whether key is in the catalog.
func Has(key string) bool {
	_, ok := english[key]
	return ok
}
