package domain

import (
	"context"
	"time"
)

// RawDataProvider fetches the raw products and ratings of one category
type RawDataProvider interface {
	FetchCategory(ctx context.Context, category string) (*RawSnapshot, error)
}

// CatalogStore loads and persists a category's catalog records
type CatalogStore interface {
	Load(ctx context.Context, category string) ([]CatalogRecord, error)
	Save(ctx context.Context, category string, records []CatalogRecord) error
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// HistoryRepository persists category reports across runs
type HistoryRepository interface {
	SaveReport(ctx context.Context, runID string, report *CategoryReport) error
	ListReports(ctx context.Context, category string, limit int) ([]HistoryEntry, error)
}
