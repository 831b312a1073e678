package usecase

import (
	"github.com/gearmatch/ratingsync/internal/domain"
)

// Correlation holds per-product attribute maps in first-seen order
type Correlation struct {
	ByID  map[string]domain.AttributeMap
	Order []string
}

// Len returns the number of correlated products
func (c *Correlation) Len() int {
	return len(c.Order)
}

// CorrelateRatings groups visible ratings into one attribute map per product.
// Codes are translated through codeToKey; codes that are unknown, or that
// translate to a key outside knownKeys, are ignored. Hidden ratings are
// dropped outright. Duplicate (product, key) pairs keep the last score.
func CorrelateRatings(ratings []domain.RawRating, codeToKey map[string]string, knownKeys map[string]struct{}) *Correlation {
	correlation := &Correlation{ByID: make(map[string]domain.AttributeMap)}

	for _, rating := range ratings {
		if !rating.Visible {
			continue
		}
		key, ok := codeToKey[rating.AttributeCode]
		if !ok {
			continue
		}
		if _, known := knownKeys[key]; !known {
			continue
		}

		scores, seen := correlation.ByID[rating.ExternalID]
		if !seen {
			scores = make(domain.AttributeMap)
			correlation.ByID[rating.ExternalID] = scores
			correlation.Order = append(correlation.Order, rating.ExternalID)
		}
		scores[key] = rating.Score
	}

	return correlation
}

// IndexProductNames maps external ids to their full names.
// Later duplicates overwrite earlier ones.
func IndexProductNames(products []domain.RawExternalProduct) map[string]string {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ExternalID] = p.FullName
	}
	return names
}

// KnownKeys returns the attribute keys a code table translates into
func KnownKeys(codeToKey map[string]string) map[string]struct{} {
	keys := make(map[string]struct{}, len(codeToKey))
	for _, key := range codeToKey {
		keys[key] = struct{}{}
	}
	return keys
}
