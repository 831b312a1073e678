package domain

import "time"

// FuzzyMatch records an accepted match whose normalized names differ
type FuzzyMatch struct {
	ExternalName string      `json:"externalName" yaml:"external_name"`
	CatalogName  string      `json:"catalogName" yaml:"catalog_name"`
	Score        float64     `json:"score" yaml:"score"`
	Reason       MatchReason `json:"reason" yaml:"reason"`
}

// CategoryReport summarizes one category's reconciliation run
type CategoryReport struct {
	Category       string       `json:"category" yaml:"category"`
	Error          string       `json:"error,omitempty" yaml:"error,omitempty"`
	RawProducts    int          `json:"rawProducts" yaml:"raw_products"`
	Correlated     int          `json:"correlated" yaml:"correlated"`
	Nameless       int          `json:"nameless" yaml:"nameless"`
	ThinData       int          `json:"thinData" yaml:"thin_data"`
	Usable         int          `json:"usable" yaml:"usable"`
	Matched        int          `json:"matched" yaml:"matched"`
	Unmatched      int          `json:"unmatched" yaml:"unmatched"`
	Ambiguous      int          `json:"ambiguous" yaml:"ambiguous"`
	Reassigned     int          `json:"reassigned" yaml:"reassigned"`
	TotalCatalog   int          `json:"totalCatalog" yaml:"total_catalog"`
	WithScores     int          `json:"withScores" yaml:"with_scores"`
	UnmatchedNames []string     `json:"unmatchedNames" yaml:"unmatched_names"`
	FuzzyMatches   []FuzzyMatch `json:"fuzzyMatches" yaml:"fuzzy_matches"`
	CompletedAt    time.Time    `json:"completedAt" yaml:"completed_at"`

	// Decisions holds the matcher's verdict for every usable product, in source order
	Decisions []*MatchResult `json:"decisions,omitempty" yaml:"decisions,omitempty"`
}

// Decision returns the recorded verdict for an external product name
func (r *CategoryReport) Decision(externalName string) (*MatchResult, bool) {
	if r == nil {
		return nil, false
	}
	for _, d := range r.Decisions {
		if d.ExternalName == externalName {
			return d, true
		}
	}
	return nil, false
}

// Failed reports whether the category aborted before merging
func (r *CategoryReport) Failed() bool {
	return r != nil && r.Error != ""
}

// RunSummary collects the category reports of one pipeline run
type RunSummary struct {
	RunID      string                     `json:"runId" yaml:"run_id"`
	StartedAt  time.Time                  `json:"startedAt" yaml:"started_at"`
	Categories map[string]*CategoryReport `json:"categories" yaml:"categories"`
	Order      []string                   `json:"-" yaml:"-"`
}

// HistoryEntry is a persisted category report
type HistoryEntry struct {
	RunID  string          `json:"runId"`
	Report *CategoryReport `json:"report"`
}
