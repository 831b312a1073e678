package domain

// RawExternalProduct is a product as listed by the external rating source
type RawExternalProduct struct {
	ExternalID string `json:"externalId"`
	FullName   string `json:"fullName"`
}

// RawRating is a single per-attribute score reported by the external source.
// Visible is false for scores the source has not unlocked.
type RawRating struct {
	ExternalID    string  `json:"externalId"`
	AttributeCode string  `json:"attributeCode"`
	Score         float64 `json:"score"`
	Visible       bool    `json:"visible"`
}

// AttributeMap maps a stable attribute key (e.g. "office") to its score
type AttributeMap map[string]float64

// Clone returns a copy of the map, or nil for a nil map
func (m AttributeMap) Clone() AttributeMap {
	if m == nil {
		return nil
	}
	out := make(AttributeMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RawSnapshot is everything the source returned for one category
type RawSnapshot struct {
	Category string               `json:"category"`
	Products []RawExternalProduct `json:"products"`
	Ratings  []RawRating          `json:"ratings"`
}

// Empty reports whether the snapshot is unusable for matching
func (s *RawSnapshot) Empty() bool {
	return s == nil || len(s.Products) == 0 || len(s.Ratings) == 0
}

// ColumnOption describes a scored usage the source offers for a category
type ColumnOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
