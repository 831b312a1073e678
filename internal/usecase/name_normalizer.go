package usecase

import (
	"regexp"
	"strings"
)

// Compiled regex patterns for name normalization
var (
	// Matches bracketed variant lists like " [7, 7P, 7X]" or " [PC, PS, Xbox]"
	bracketSegmentPattern = regexp.MustCompile(`\s*\[.*?\]`)

	// Matches connectivity qualifiers that name a variant of an otherwise identical product.
	// "truly wireless" must stay ahead of "wireless" in the alternation.
	connectivityQualifierPattern = regexp.MustCompile(`(?:^|\s+)(?:truly wireless|wireless|wired)\b`)
)

// NormalizeName canonicalizes a free-text product name for comparison.
// The result is lower-case, free of bracketed segments and connectivity
// qualifiers, with single spaces between words. NormalizeName is idempotent.
func NormalizeName(name string) string {
	// Step 1: Lower-case and collapse every kind of whitespace to single spaces
	normalized := collapseWhitespace(strings.ToLower(name))

	// Step 2: Drop bracketed segments together with their leading whitespace
	normalized = bracketSegmentPattern.ReplaceAllString(normalized, "")

	// Step 3: Drop connectivity qualifiers
	normalized = connectivityQualifierPattern.ReplaceAllString(normalized, "")

	// Step 4: Collapse whitespace left behind by the removals
	return collapseWhitespace(normalized)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
