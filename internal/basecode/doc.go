// Package basecode parses the product codes printed on die-cast car packaging.
//
// A base code is printed in two lines on the back of the card:
//
//	JJJ26-N521    top line: series code + collector number
//	21A           bottom line: production year + factory code
//
// The collector number is the identity key for a casting. The series code,
// production year and factory code are descriptive only.
//
// # Two Extractors
//
// Two generations of code extraction coexist and are kept apart:
//
//   - ParseBaseCode: the structured parser. It searches the top-line and
//     bottom-line patterns independently over the trimmed, uppercased input
//     and never fails. Whitespace inside the input is left alone.
//   - ExtractProductCode: the legacy flat-code extractor. It collapses every
//     whitespace run to a single space and returns the first of a fixed list of
//     patterns that matches.
//
// Both are exposed through the Extractor interface so callers can pick one per
// capture flow.
//
// # Match Policy
//
// Every pattern uses ordinary leftmost regexp search semantics. When several
// substrings could match, the first one wins; there is no "best match" search.
//
// All functions in this package are pure and safe for concurrent use.
package basecode
