package basecode

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// topLinePattern matches SERIES-COLLECTOR, e.g. "JJJ26-N521".
	topLinePattern = regexp.MustCompile(`([A-Z]{3}\d{2})-([A-Z]\d{3,4})`)

	// bottomLinePattern matches YEAR+FACTORY, e.g. "21A".
	bottomLinePattern = regexp.MustCompile(`\b(\d{2})([A-Z])\b`)
)

// ParsedCode is the structured form of a base code.
//
// Empty strings mean the field was not recognized. Only FullCode is always set.
type ParsedCode struct {
	// FullCode is the trimmed input. Matching runs on its uppercased form.
	FullCode string `json:"full_code"`

	// SeriesCode identifies the release wave, 3 letters + 2 digits ("JJJ26").
	SeriesCode string `json:"series_code,omitempty"`

	// CollectorNumber is the casting identity, 1 letter + 3-4 digits ("N521").
	CollectorNumber string `json:"collector_number,omitempty"`

	// ProductionYear is the 2-digit year fragment ("21").
	ProductionYear string `json:"production_year,omitempty"`

	// FactoryCode is the single-letter manufacturing site ("A").
	FactoryCode string `json:"factory_code,omitempty"`
}

// HasIdentity reports whether the collector number was recognized.
func (p ParsedCode) HasIdentity() bool {
	return p.CollectorNumber != ""
}

// FullYear returns the 4-digit production year, or "" when unknown.
func (p ParsedCode) FullYear() string {
	return FormatProductionYear(p.ProductionYear)
}

// normalize trims and uppercases input before matching.
func normalize(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}

// ParseBaseCode extracts the base code fields from free-form text.
//
// The input may be raw multi-line OCR output. The top-line and bottom-line
// patterns are searched independently, so either may be missing. ParseBaseCode
// never fails: when nothing matches the result only carries FullCode.
//
// Examples:
//
//	ParseBaseCode("JJJ26-N521 21A") // all four fields
//	ParseBaseCode("jjj26-n521")     // series + collector
//	ParseBaseCode("random garbage") // FullCode only
func ParseBaseCode(text string) ParsedCode {
	cleaned := normalize(text)
	result := ParsedCode{FullCode: strings.TrimSpace(text)}

	if m := topLinePattern.FindStringSubmatch(cleaned); m != nil {
		result.SeriesCode = m[1]
		result.CollectorNumber = m[2]
	}

	if m := bottomLinePattern.FindStringSubmatch(cleaned); m != nil {
		result.ProductionYear = m[1]
		result.FactoryCode = m[2]
	}

	return result
}

// IsValidBaseCode reports whether code contains a top-line SERIES-COLLECTOR
// pattern. It agrees with ParseBaseCode: IsValidBaseCode(s) is true exactly when
// ParseBaseCode(s).CollectorNumber is non-empty.
func IsValidBaseCode(code string) bool {
	return topLinePattern.MatchString(normalize(code))
}

// FormatProductionYear expands a 2-digit year to 4 digits.
//
// The century is fixed: "21" becomes "2021" and "99" becomes "2099". Input
// that is not exactly two digits returns "".
func FormatProductionYear(twoDigitYear string) string {
	if len(twoDigitYear) != 2 {
		return ""
	}
	for i := 0; i < len(twoDigitYear); i++ {
		if twoDigitYear[i] < '0' || twoDigitYear[i] > '9' {
			return ""
		}
	}
	year, _ := strconv.Atoi(twoDigitYear)
	return strconv.Itoa(2000 + year)
}

// ExtractCollectorNumber returns the collector number in code, or "".
func ExtractCollectorNumber(code string) string {
	return ParseBaseCode(code).CollectorNumber
}

// FormatCodeForDisplay rebuilds the printed form "SERIES-COLLECTOR YEARFACTORY".
//
// A segment is only written when both of its fields are known. When neither
// segment is complete the FullCode is returned.
func FormatCodeForDisplay(p ParsedCode) string {
	parts := make([]string, 0, 2)

	if p.SeriesCode != "" && p.CollectorNumber != "" {
		parts = append(parts, p.SeriesCode+"-"+p.CollectorNumber)
	}
	if p.ProductionYear != "" && p.FactoryCode != "" {
		parts = append(parts, p.ProductionYear+p.FactoryCode)
	}

	if len(parts) == 0 {
		return p.FullCode
	}
	return strings.Join(parts, " ")
}
