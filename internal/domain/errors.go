package domain

import "errors"

var (
	// ErrNoData is returned when the source yields no products or no ratings for a category
	ErrNoData = errors.New("no data returned by rating source")

	// ErrNoMatch is returned when no catalog name scores at or above the threshold
	ErrNoMatch = errors.New("no catalog match above threshold")

	// ErrAmbiguousContainment is returned when the best candidate was a containment match
	// whose model identifiers conflict
	ErrAmbiguousContainment = errors.New("containment match with conflicting model identifiers")

	// ErrThinData is returned when a correlated product has fewer than the required attributes
	ErrThinData = errors.New("too few attributes to be usable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnknownCategory is returned for a category missing from configuration
	ErrUnknownCategory = errors.New("unknown category")

	// ErrSourceAPIFailure is returned when a rating source request fails
	ErrSourceAPIFailure = errors.New("rating source request failed")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCatalogNotFound is returned when a category's catalog file does not exist
	ErrCatalogNotFound = errors.New("catalog not found")
)
