package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

const (
	// DefaultScoresField is the record field holding merged attribute scores
	DefaultScoresField = "rtings_scores"
	// DefaultLockTimeout bounds how long Load and Save wait for the file lock
	DefaultLockTimeout = 10 * time.Second

	lockRetryDelay = 50 * time.Millisecond
)

// ErrCatalogChanged is returned when a catalog file no longer lines up with
// the records being saved
var ErrCatalogChanged = errors.New("catalog changed on disk")

// StoreConfig holds the JSON catalog store settings
type StoreConfig struct {
	DataDir     string
	Files       map[string]string // category -> file name relative to DataDir
	ScoresField string
	LockTimeout time.Duration
}

// JSONStore keeps each category's catalog in a JSON array file. Fields it does
// not manage are preserved in place across saves.
type JSONStore struct {
	dataDir     string
	files       map[string]string
	scoresField string
	lockTimeout time.Duration
	logger      zerolog.Logger
}

// NewJSONStore creates a new JSON catalog store
func NewJSONStore(cfg StoreConfig, logger zerolog.Logger) *JSONStore {
	scoresField := cfg.ScoresField
	if scoresField == "" {
		scoresField = DefaultScoresField
	}
	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	files := make(map[string]string, len(cfg.Files))
	for category, name := range cfg.Files {
		files[category] = name
	}

	return &JSONStore{
		dataDir:     cfg.DataDir,
		files:       files,
		scoresField: scoresField,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// Path returns the catalog file backing category
func (s *JSONStore) Path(category string) (string, error) {
	name, ok := s.files[category]
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownCategory, category)
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	return filepath.Join(s.dataDir, name), nil
}

// Load reads category's catalog records in file order
func (s *JSONStore) Load(ctx context.Context, category string) ([]domain.CatalogRecord, error) {
	path, err := s.Path(category)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, path, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	raw, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	records := make([]domain.CatalogRecord, len(raw))
	for i, entry := range raw {
		record, err := s.toDomain(entry)
		if err != nil {
			return nil, fmt.Errorf("%s entry %d: %w", path, i, err)
		}
		records[i] = record
	}

	s.logger.Debug().Str("category", category).Str("path", path).Int("records", len(records)).Msg("catalog loaded")
	return records, nil
}

// Save writes records' attribute maps back into category's file. The file is
// re-read under an exclusive lock and must still hold the same names in the
// same order. A nil attribute map removes the scores field.
func (s *JSONStore) Save(ctx context.Context, category string, records []domain.CatalogRecord) error {
	path, err := s.Path(category)
	if err != nil {
		return err
	}

	unlock, err := s.lock(ctx, path, true)
	if err != nil {
		return err
	}
	defer unlock()

	raw, err := readRecords(path)
	if err != nil {
		return err
	}
	if len(raw) != len(records) {
		return fmt.Errorf("%w: %s has %d records, saving %d", ErrCatalogChanged, path, len(raw), len(records))
	}

	for i, record := range records {
		current, err := s.toDomain(raw[i])
		if err != nil {
			return fmt.Errorf("%s entry %d: %w", path, i, err)
		}
		if current.Name != record.Name {
			return fmt.Errorf("%w: %s entry %d is %q, saving %q", ErrCatalogChanged, path, i, current.Name, record.Name)
		}

		if record.Attributes == nil {
			raw[i] = raw[i].remove(s.scoresField)
			continue
		}
		scores, err := json.Marshal(record.Attributes)
		if err != nil {
			return fmt.Errorf("encode scores for %q: %w", record.Name, err)
		}
		raw[i] = raw[i].set(s.scoresField, scores)
	}

	if err := writeRecords(path, raw); err != nil {
		return err
	}

	s.logger.Debug().Str("category", category).Str("path", path).Int("records", len(records)).Msg("catalog saved")
	return nil
}

func (s *JSONStore) toDomain(entry rawRecord) (domain.CatalogRecord, error) {
	var record domain.CatalogRecord

	if value, ok := entry.get("name"); ok {
		if err := json.Unmarshal(value, &record.Name); err != nil {
			return record, fmt.Errorf("decode name: %w", err)
		}
	}

	if value, ok := entry.get(s.scoresField); ok && !bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		if err := json.Unmarshal(value, &record.Attributes); err != nil {
			return record, fmt.Errorf("decode %s: %w", s.scoresField, err)
		}
	}

	return record, nil
}

// lock takes the sidecar lock for path, shared or exclusive
func (s *JSONStore) lock(ctx context.Context, path string, exclusive bool) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	fileLock := flock.New(path + ".lock")

	var ok bool
	var err error
	if exclusive {
		ok, err = fileLock.TryLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = fileLock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: not acquired", path)
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("failed to release catalog lock")
		}
	}, nil
}

func readRecords(path string) ([]rawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, path)
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var records []rawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return records, nil
}

// writeRecords replaces path atomically with a two-space indented array
func writeRecords(path string, records []rawRecord) error {
	if records == nil {
		records = []rawRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // cleanup on failure
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
