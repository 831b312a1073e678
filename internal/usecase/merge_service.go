package usecase

import (
	"errors"
	"math"
	"time"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultCompletenessRatio is the share of a category's attribute keys a product must carry
const DefaultCompletenessRatio = 0.5

// MergeConfig holds configuration for the merge service
type MergeConfig struct {
	CompletenessRatio float64
}

// MergeService filters correlated products by completeness, resolves them
// against the catalog and writes their attribute maps onto matched records.
type MergeService struct {
	matcher           *MatchingService
	completenessRatio float64
	logger            zerolog.Logger
	now               func() time.Time
}

// NewMergeService creates a new merge service
func NewMergeService(matcher *MatchingService, config MergeConfig, logger zerolog.Logger) *MergeService {
	return &MergeService{
		matcher:           matcher,
		completenessRatio: orDefault(config.CompletenessRatio, DefaultCompletenessRatio),
		logger:            logger,
		now:               time.Now,
	}
}

// MinAttributes returns how many attributes a product needs to be usable
// when the category tracks knownKeys attributes. It never drops below one.
func (s *MergeService) MinAttributes(knownKeys int) int {
	required := int(math.Floor(float64(knownKeys) * s.completenessRatio))
	if required < 1 {
		required = 1
	}
	return required
}

// IsUsable applies the completeness policy to one attribute map
func (s *MergeService) IsUsable(scores domain.AttributeMap, knownKeys int) bool {
	return len(scores) >= s.MinAttributes(knownKeys)
}

// ResolveAndMerge matches every usable correlated product into catalog and
// replaces the matched record's attributes with the product's map.
// catalog is mutated in place; records are never added or removed.
// Per-product outcomes, including every matcher decision, are folded into the
// returned report.
func (s *MergeService) ResolveAndMerge(
	category string,
	correlation *Correlation,
	products []domain.RawExternalProduct,
	catalog []domain.CatalogRecord,
	knownKeys map[string]struct{},
) *domain.CategoryReport {
	report := &domain.CategoryReport{
		Category:       category,
		RawProducts:    len(products),
		Correlated:     correlation.Len(),
		TotalCatalog:   len(catalog),
		UnmatchedNames: []string{},
		FuzzyMatches:   []domain.FuzzyMatch{},
	}

	names := IndexProductNames(products)
	pool, indexByName := catalogIndex(catalog)
	written := make(map[int]string)

	for _, id := range correlation.Order {
		scores := correlation.ByID[id]

		externalName, ok := names[id]
		if !ok || externalName == "" {
			report.Nameless++
			continue
		}

		if !s.IsUsable(scores, len(knownKeys)) {
			report.ThinData++
			s.logger.Debug().
				Err(domain.ErrThinData).
				Str("product", externalName).
				Int("attributes", len(scores)).
				Int("required", s.MinAttributes(len(knownKeys))).
				Msg("skipping product")
			continue
		}
		report.Usable++

		result, err := s.matcher.FindBestMatch(externalName, pool)
		if result == nil {
			result = &domain.MatchResult{ExternalName: externalName}
		}
		result.Scores = scores.Clone()
		report.Decisions = append(report.Decisions, result)

		if err != nil {
			report.Unmatched++
			report.UnmatchedNames = append(report.UnmatchedNames, externalName)
			if errors.Is(err, domain.ErrAmbiguousContainment) {
				report.Ambiguous++
			}
			s.logger.Debug().
				Err(err).
				Str("product", externalName).
				Str("best", result.BestCandidate).
				Float64("score", result.MatchScore).
				Msg("no catalog match")
			continue
		}

		idx := indexByName[result.MatchedName]
		if previous, taken := written[idx]; taken {
			report.Reassigned++
			s.logger.Warn().
				Str("catalog", result.MatchedName).
				Str("previous", previous).
				Str("product", externalName).
				Msg("catalog record matched twice; keeping latest")
		}
		written[idx] = externalName
		catalog[idx].Attributes = scores.Clone()
		report.Matched++

		if NormalizeName(externalName) != NormalizeName(result.MatchedName) {
			report.FuzzyMatches = append(report.FuzzyMatches, domain.FuzzyMatch{
				ExternalName: externalName,
				CatalogName:  result.MatchedName,
				Score:        result.MatchScore,
				Reason:       result.Reason,
			})
		}
	}

	for _, record := range catalog {
		if record.Attributes != nil {
			report.WithScores++
		}
	}
	report.CompletedAt = s.now().UTC()

	return report
}

// catalogIndex returns the catalog's name pool and the first index of each name
func catalogIndex(catalog []domain.CatalogRecord) ([]string, map[string]int) {
	pool := make([]string, len(catalog))
	indexByName := make(map[string]int, len(catalog))
	for i, record := range catalog {
		pool[i] = record.Name
		if _, dup := indexByName[record.Name]; !dup {
			indexByName[record.Name] = i
		}
	}
	return pool, indexByName
}
