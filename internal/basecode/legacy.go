package basecode

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// legacyPatterns are tried in order; the first that matches wins.
var legacyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([A-Z]{3}\d{2}-[A-Z]\d{3}\s*\d{2}[A-Z])`),  // JBC17-N521 21A
	regexp.MustCompile(`(?i)([A-Z]{3}\d{2}-[A-Z]\d{3})`),               // HTB04-N521
	regexp.MustCompile(`(?i)([A-Z]{5}-[A-Z]\d{3}\s*\d{2}[A-Z])`),       // misread digits as letters
	regexp.MustCompile(`(?i)([A-Z]{3}\d{2}\s+[A-Z]\d{3}\s*\d{2}[A-Z])`), // hyphen lost
}

// ExtractProductCode finds a flat product code in OCR text.
//
// Every whitespace run (including line breaks) is collapsed to one space
// before matching, so a code split across the two printed lines is found as
// "JBC17-N521 21A". The returned code keeps the matched casing with its
// whitespace collapsed. ok is false when no pattern matches.
func ExtractProductCode(text string) (code string, ok bool) {
	clean := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))

	for _, pattern := range legacyPatterns {
		if m := pattern.FindStringSubmatch(clean); m != nil {
			return strings.TrimSpace(whitespaceRun.ReplaceAllString(m[1], " ")), true
		}
	}
	return "", false
}
