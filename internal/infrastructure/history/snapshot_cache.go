package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gearmatch/ratingsync/internal/domain"
)

var (
	_ domain.CacheRepository   = (*Store)(nil)
	_ domain.HistoryRepository = (*Store)(nil)
)

// Get returns the cached payload for key. Missing and expired entries are
// reported as domain.ErrCacheMiss; expired rows are removed on the way.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, expires_at FROM snapshots WHERE key = ?", key,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}

	if s.now().UnixNano() >= expiresAt {
		if err := s.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, domain.ErrCacheMiss
	}
	return payload, nil
}

// Set stores value under key for ttl, replacing any previous entry, and
// drops every entry that has already expired.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: snapshot ttl must be positive", domain.ErrInvalidRequest)
	}

	now := s.now()
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE expires_at <= ?", now.UnixNano(),
	); err != nil {
		return fmt.Errorf("purge snapshots: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, payload, expires_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		key, value, now.Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key holds an unexpired entry
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM snapshots WHERE key = ? AND expires_at > ?", key, s.now().UnixNano(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check snapshot %s: %w", key, err)
	}
	return count > 0, nil
}
