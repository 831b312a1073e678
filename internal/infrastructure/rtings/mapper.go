package rtings

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/gearmatch/ratingsync/internal/domain"
)

type productsListResponse struct {
	Data struct {
		Products []productDTO `json:"products"`
	} `json:"data"`
}

type productDTO struct {
	ID       json.Number `json:"id"`
	FullName string      `json:"fullname"`
}

type ratingsResponse struct {
	Data struct {
		Ratings []ratingDTO `json:"ratings"`
	} `json:"data"`
}

type ratingDTO struct {
	ProductID  json.Number `json:"product_id"`
	OriginalID json.Number `json:"original_id"`
	Score      float64     `json:"score"`
	Unblurred  bool        `json:"unblurred"`
}

type columnOptionsResponse struct {
	Data struct {
		Silo struct {
			TestBench struct {
				Usages []usageDTO `json:"usages"`
			} `json:"test_bench"`
		} `json:"silo"`
	} `json:"data"`
}

type usageDTO struct {
	OriginalID json.Number `json:"original_id"`
	Name       string      `json:"name"`
}

// MapProducts converts source products to raw external products.
// Entries without an id are dropped.
func MapProducts(products []productDTO) []domain.RawExternalProduct {
	out := make([]domain.RawExternalProduct, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		out = append(out, domain.RawExternalProduct{
			ExternalID: p.ID.String(),
			FullName:   strings.TrimSpace(p.FullName),
		})
	}
	return out
}

// MapRatings converts source ratings to raw ratings.
// Blurred scores are kept with Visible=false so the correlator can discard them.
func MapRatings(ratings []ratingDTO) []domain.RawRating {
	out := make([]domain.RawRating, 0, len(ratings))
	for _, r := range ratings {
		if r.ProductID == "" || r.OriginalID == "" {
			continue
		}
		out = append(out, domain.RawRating{
			ExternalID:    r.ProductID.String(),
			AttributeCode: r.OriginalID.String(),
			Score:         r.Score,
			Visible:       r.Unblurred,
		})
	}
	return out
}

// MapColumnOptions converts the source's usage list
func MapColumnOptions(usages []usageDTO) []domain.ColumnOption {
	out := make([]domain.ColumnOption, 0, len(usages))
	for _, u := range usages {
		out = append(out, domain.ColumnOption{Code: u.OriginalID.String(), Name: u.Name})
	}
	return out
}

// CompareColumns splits the source's usages into the configured codes that
// were confirmed, the configured codes the source no longer offers, and the
// other usages it does offer.
func CompareColumns(options []domain.ColumnOption, configured map[string]string) (confirmed, missing, available []domain.ColumnOption) {
	offered := make(map[string]bool, len(options))
	for _, opt := range options {
		offered[opt.Code] = true
		if _, ok := configured[opt.Code]; ok {
			confirmed = append(confirmed, opt)
		} else {
			available = append(available, opt)
		}
	}
	for code, key := range configured {
		if !offered[code] {
			missing = append(missing, domain.ColumnOption{Code: code, Name: key})
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Code < missing[j].Code })
	return confirmed, missing, available
}
