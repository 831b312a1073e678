package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CategorySpec is the static per-category attribute table
type CategorySpec struct {
	Name   string
	Usages map[string]string // attribute code -> attribute key
}

// ReconcileServiceConfig holds configuration for the reconcile service
type ReconcileServiceConfig struct {
	Match MatchConfig
	Merge MergeConfig
}

// ReconcileService runs the full pipeline for a category:
// fetch -> correlate -> filter -> match -> merge -> persist.
type ReconcileService struct {
	provider domain.RawDataProvider
	catalog  domain.CatalogStore
	history  domain.HistoryRepository
	matcher  *MatchingService
	merger   *MergeService
	logger   zerolog.Logger
	newRunID func() string
	now      func() time.Time
}

// NewReconcileService creates a new reconcile service with dependencies.
// history may be nil when run reports are not persisted.
func NewReconcileService(
	provider domain.RawDataProvider,
	catalog domain.CatalogStore,
	history domain.HistoryRepository,
	config ReconcileServiceConfig,
	logger zerolog.Logger,
) *ReconcileService {
	matcher := NewMatchingService(config.Match, logger)

	return &ReconcileService{
		provider: provider,
		catalog:  catalog,
		history:  history,
		matcher:  matcher,
		merger:   NewMergeService(matcher, config.Merge, logger),
		logger:   logger,
		newRunID: func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

// Matcher exposes the service's matcher for previews
func (s *ReconcileService) Matcher() *MatchingService {
	return s.matcher
}

// RunAll reconciles each category in order. A failing category is recorded
// in the summary and does not stop the others; only context cancellation does.
func (s *ReconcileService) RunAll(ctx context.Context, specs []CategorySpec) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{
		RunID:      s.newRunID(),
		StartedAt:  s.now().UTC(),
		Categories: make(map[string]*domain.CategoryReport, len(specs)),
	}

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		report, err := s.RunCategory(ctx, summary.RunID, spec)
		if err != nil {
			s.logger.Error().Err(err).Str("category", spec.Name).Msg("category failed")
		}
		summary.Categories[spec.Name] = report
		summary.Order = append(summary.Order, spec.Name)
	}

	return summary, nil
}

// RunCategory reconciles one category. The returned report is never nil;
// on acquisition or catalog failure it carries the error and the catalog is
// left untouched.
func (s *ReconcileService) RunCategory(ctx context.Context, runID string, spec CategorySpec) (*domain.CategoryReport, error) {
	log := s.logger.With().Str("category", spec.Name).Logger()
	log.Info().Msg("reconciling category")

	report, err := s.runCategory(ctx, spec, log)
	if err != nil {
		report = &domain.CategoryReport{
			Category:    spec.Name,
			Error:       err.Error(),
			CompletedAt: s.now().UTC(),
		}
	}

	if s.history != nil {
		if saveErr := s.history.SaveReport(ctx, runID, report); saveErr != nil {
			log.Warn().Err(saveErr).Msg("failed to record run history")
		}
	}

	return report, err
}

func (s *ReconcileService) runCategory(ctx context.Context, spec CategorySpec, log zerolog.Logger) (*domain.CategoryReport, error) {
	if len(spec.Usages) == 0 {
		return nil, fmt.Errorf("%w: %s has no attribute codes", domain.ErrInvalidRequest, spec.Name)
	}

	snapshot, err := s.provider.FetchCategory(ctx, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", spec.Name, err)
	}
	if snapshot.Empty() {
		return nil, fmt.Errorf("%w for %s", domain.ErrNoData, spec.Name)
	}
	log.Info().
		Int("products", len(snapshot.Products)).
		Int("ratings", len(snapshot.Ratings)).
		Msg("raw data fetched")

	records, err := s.catalog.Load(ctx, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", spec.Name, err)
	}

	knownKeys := KnownKeys(spec.Usages)
	correlation := CorrelateRatings(snapshot.Ratings, spec.Usages, knownKeys)
	report := s.merger.ResolveAndMerge(spec.Name, correlation, snapshot.Products, records, knownKeys)

	if err := s.catalog.Save(ctx, spec.Name, records); err != nil {
		return nil, fmt.Errorf("save catalog %s: %w", spec.Name, err)
	}

	log.Info().
		Int("matched", report.Matched).
		Int("usable", report.Usable).
		Int("unmatched", report.Unmatched).
		Int("thin", report.ThinData).
		Int("with_scores", report.WithScores).
		Int("catalog", report.TotalCatalog).
		Msg("category reconciled")

	return report, nil
}

// PreviewMatch runs the matcher for name against a category's current catalog
// without changing anything.
func (s *ReconcileService) PreviewMatch(ctx context.Context, category, name string) (*domain.MatchResult, error) {
	records, err := s.catalog.Load(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", category, err)
	}

	pool := make([]string, len(records))
	for i, record := range records {
		pool[i] = record.Name
	}

	return s.matcher.FindBestMatch(name, pool)
}
