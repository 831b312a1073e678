package usecase

import (
	"strings"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/rs/zerolog"
)

// Default scoring policy. These are tuned heuristics, not invariants.
const (
	DefaultThreshold           = 0.88 // Minimum score to accept a match
	DefaultExactScore          = 1.0  // Normalized names are equal
	DefaultConfirmedModelScore = 0.95 // Containment with a shared model identifier
	DefaultContainmentScore    = 0.92 // Containment where a side has no model identifiers
	DefaultModelConflictScore  = 0.5  // Containment with disjoint model identifiers
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	Threshold           float64
	ExactScore          float64
	ConfirmedModelScore float64
	ContainmentScore    float64
	ModelConflictScore  float64
	EnableDebugLogging  bool
}

// MatchingService resolves an external product name against catalog names
type MatchingService struct {
	threshold           float64
	exactScore          float64
	confirmedModelScore float64
	containmentScore    float64
	modelConflictScore  float64
	enableDebugLogging  bool
	logger              zerolog.Logger
}

// NewMatchingService creates a new matching service with the given configuration.
// Zero or negative scores fall back to the defaults.
func NewMatchingService(config MatchConfig, logger zerolog.Logger) *MatchingService {
	return &MatchingService{
		threshold:           orDefault(config.Threshold, DefaultThreshold),
		exactScore:          orDefault(config.ExactScore, DefaultExactScore),
		confirmedModelScore: orDefault(config.ConfirmedModelScore, DefaultConfirmedModelScore),
		containmentScore:    orDefault(config.ContainmentScore, DefaultContainmentScore),
		modelConflictScore:  orDefault(config.ModelConflictScore, DefaultModelConflictScore),
		enableDebugLogging:  config.EnableDebugLogging,
		logger:              logger,
	}
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

// Threshold returns the minimum accepted score
func (s *MatchingService) Threshold() float64 {
	return s.threshold
}

// FindBestMatch finds the best catalog name for candidate in pool.
// Pool order decides ties: the first name reaching the best score wins.
//
// When nothing reaches the threshold the returned result still carries the
// best candidate and its score, and the error is ErrAmbiguousContainment if
// that candidate lost on conflicting model identifiers, ErrNoMatch otherwise.
func (s *MatchingService) FindBestMatch(candidate string, pool []string) (*domain.MatchResult, error) {
	normCandidate := NormalizeName(candidate)
	if normCandidate == "" {
		return nil, domain.ErrInvalidRequest
	}

	result := &domain.MatchResult{ExternalName: candidate, MatchScore: -1}
	if len(pool) == 0 {
		result.MatchScore = 0
		result.Reason = domain.ReasonEmptyPool
		return result, domain.ErrNoMatch
	}

	candidateModels := ExtractModels(candidate)

	for _, name := range pool {
		normName := NormalizeName(name)
		if normName == "" {
			continue
		}

		// Exact normalized match short-circuits the scan
		if normCandidate == normName {
			result.MatchedName = name
			result.BestCandidate = name
			result.MatchScore = s.exactScore
			result.Reason = domain.ReasonExact
			s.debug(result, name)
			return result, nil
		}

		score, reason := s.scorePair(normCandidate, normName, candidateModels, name)
		if s.enableDebugLogging {
			s.logger.Debug().
				Str("candidate", candidate).
				Str("catalog", name).
				Float64("score", score).
				Str("reason", string(reason)).
				Msg("scored candidate")
		}

		if score > result.MatchScore {
			result.BestCandidate = name
			result.MatchScore = score
			result.Reason = reason
		}
	}

	if result.BestCandidate == "" {
		result.MatchScore = 0
		result.Reason = domain.ReasonEmptyPool
		return result, domain.ErrNoMatch
	}

	if result.MatchScore < s.threshold {
		s.debug(result, "")
		if result.Reason == domain.ReasonModelConflict {
			return result, domain.ErrAmbiguousContainment
		}
		return result, domain.ErrNoMatch
	}

	result.MatchedName = result.BestCandidate
	s.debug(result, result.MatchedName)
	return result, nil
}

// Match returns the accepted catalog name for candidate, if any
func (s *MatchingService) Match(candidate string, pool []string) (string, bool) {
	result, err := s.FindBestMatch(candidate, pool)
	if err != nil {
		return "", false
	}
	return result.MatchedName, true
}

// scorePair scores two distinct normalized names. Model identifiers are
// authoritative whenever both raw names expose them: a containment pair
// scores by whether they intersect, and a similarity pair with disjoint
// identifiers is capped at the model conflict score.
func (s *MatchingService) scorePair(normCandidate, normName string, candidateModels ModelSet, rawName string) (float64, domain.MatchReason) {
	nameModels := ExtractModels(rawName)
	bothModels := len(candidateModels) > 0 && len(nameModels) > 0

	if strings.Contains(normName, normCandidate) || strings.Contains(normCandidate, normName) {
		if !bothModels {
			return s.containmentScore, domain.ReasonContainment
		}
		if candidateModels.Intersects(nameModels) {
			return s.confirmedModelScore, domain.ReasonConfirmedModel
		}
		return s.modelConflictScore, domain.ReasonModelConflict
	}

	ratio := SimilarityRatio(normCandidate, normName)
	if bothModels && ratio > s.modelConflictScore && !candidateModels.Intersects(nameModels) {
		return s.modelConflictScore, domain.ReasonSimilarityModelConflict
	}
	return ratio, domain.ReasonSimilarity
}

func (s *MatchingService) debug(result *domain.MatchResult, matched string) {
	if !s.enableDebugLogging {
		return
	}
	s.logger.Debug().
		Str("candidate", result.ExternalName).
		Str("best", result.BestCandidate).
		Str("matched", matched).
		Float64("score", result.MatchScore).
		Str("reason", string(result.Reason)).
		Msg("match decision")
}
