package basecode

// Extraction is the result of running an Extractor over recognized text.
type Extraction struct {
	// Code is the identifier to show and search with.
	Code string `json:"code"`

	// Parsed is set by the structured extractor only.
	Parsed *ParsedCode `json:"parsed,omitempty"`
}

// Extractor turns recognized text into a product code.
//
// Implementations must not share patterns: the structured and legacy
// extractors differ in whitespace handling on purpose.
type Extractor interface {
	// Name identifies the extractor in logs and tool output.
	Name() string

	// Extract returns ok=false when the text holds no usable code.
	Extract(text string) (Extraction, bool)
}

// Structured extracts two-line base codes with ParseBaseCode.
type Structured struct{}

// Name implements Extractor.
func (Structured) Name() string { return "structured" }

// Extract implements Extractor. The text is usable when a collector number is
// present; the parsed fields are returned either way.
func (Structured) Extract(text string) (Extraction, bool) {
	parsed := ParseBaseCode(text)
	code := parsed.FullCode
	if parsed.HasIdentity() {
		code = FormatCodeForDisplay(parsed)
	}
	return Extraction{Code: code, Parsed: &parsed}, parsed.HasIdentity()
}

// Legacy extracts flat product codes with ExtractProductCode.
type Legacy struct{}

// Name implements Extractor.
func (Legacy) Name() string { return "legacy" }

// Extract implements Extractor.
func (Legacy) Extract(text string) (Extraction, bool) {
	code, ok := ExtractProductCode(text)
	return Extraction{Code: code}, ok
}
