package usecase

import (
	"regexp"
	"strings"
)

// modelIdentifierPattern matches tokens like "MM720", "560S", "V3" or "XM1r":
// optional leading letters, at least one digit, optional trailing alphanumerics.
var modelIdentifierPattern = regexp.MustCompile(`(?i)[a-z]*\d+[a-z]*\w*`)

// ModelSet is a set of lower-cased model identifiers
type ModelSet map[string]struct{}

// ExtractModels pulls model identifiers out of the raw (non-normalized) name.
// Identifiers are lower-cased so sets compare case-insensitively.
func ExtractModels(name string) ModelSet {
	models := make(ModelSet)
	for _, token := range modelIdentifierPattern.FindAllString(name, -1) {
		models[strings.ToLower(token)] = struct{}{}
	}
	return models
}

// Intersects reports whether the two sets share at least one identifier
func (m ModelSet) Intersects(other ModelSet) bool {
	small, large := m, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for token := range small {
		if _, ok := large[token]; ok {
			return true
		}
	}
	return false
}
