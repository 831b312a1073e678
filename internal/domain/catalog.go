package domain

// CatalogRecord is a product in the internal catalog. Attributes is nil when
// the product has never received ratings.
type CatalogRecord struct {
	Name       string       `json:"name"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// MatchReason explains how a match decision was reached
type MatchReason string

const (
	ReasonExact                   MatchReason = "exact"
	ReasonConfirmedModel          MatchReason = "containment_model_confirmed"
	ReasonContainment             MatchReason = "containment"
	ReasonModelConflict           MatchReason = "containment_model_conflict"
	ReasonSimilarity              MatchReason = "similarity"
	ReasonSimilarityModelConflict MatchReason = "similarity_model_conflict"
	ReasonEmptyPool               MatchReason = "empty_pool"
)

// MatchResult represents the result of a product matching operation.
// MatchedName is empty when nothing in the pool scored at or above the threshold;
// BestCandidate still holds the highest scoring pool name for debugging.
type MatchResult struct {
	ExternalName  string       `json:"externalName"`
	MatchedName   string       `json:"matchedName,omitempty"`
	BestCandidate string       `json:"bestCandidate,omitempty"`
	MatchScore    float64      `json:"matchScore"`
	Reason        MatchReason  `json:"reason"`
	Scores        AttributeMap `json:"scores,omitempty"`
}

// Matched reports whether a catalog name was accepted
func (r *MatchResult) Matched() bool {
	return r != nil && r.MatchedName != ""
}
