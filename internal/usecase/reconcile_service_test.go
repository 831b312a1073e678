package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/rs/zerolog"
)

// fakeProvider returns canned snapshots per category
type fakeProvider struct {
	snapshots map[string]*domain.RawSnapshot
	errs      map[string]error
	calls     []string
}

func (p *fakeProvider) FetchCategory(ctx context.Context, category string) (*domain.RawSnapshot, error) {
	p.calls = append(p.calls, category)
	if err := p.errs[category]; err != nil {
		return nil, err
	}
	return p.snapshots[category], nil
}

// fakeCatalog keeps catalogs in memory and copies on load/save
type fakeCatalog struct {
	records map[string][]domain.CatalogRecord
	saves   int
	loadErr error
}

func (c *fakeCatalog) Load(ctx context.Context, category string) ([]domain.CatalogRecord, error) {
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	records, ok := c.records[category]
	if !ok {
		return nil, domain.ErrCatalogNotFound
	}
	out := make([]domain.CatalogRecord, len(records))
	for i, r := range records {
		out[i] = domain.CatalogRecord{Name: r.Name, Attributes: r.Attributes.Clone()}
	}
	return out, nil
}

func (c *fakeCatalog) Save(ctx context.Context, category string, records []domain.CatalogRecord) error {
	c.saves++
	c.records[category] = records
	return nil
}

// fakeHistory records saved reports
type fakeHistory struct {
	saved []*domain.CategoryReport
	runs  []string
}

func (h *fakeHistory) SaveReport(ctx context.Context, runID string, report *domain.CategoryReport) error {
	h.runs = append(h.runs, runID)
	h.saved = append(h.saved, report)
	return nil
}

func (h *fakeHistory) ListReports(ctx context.Context, category string, limit int) ([]domain.HistoryEntry, error) {
	return nil, nil
}

func mouseSnapshot() *domain.RawSnapshot {
	return &domain.RawSnapshot{
		Category: "mouse",
		Products: []domain.RawExternalProduct{
			{ExternalID: "1", FullName: "Razer Viper Mini"},
			{ExternalID: "2", FullName: "Logitech G305 Lightspeed Wireless"},
		},
		Ratings: []domain.RawRating{
			{ExternalID: "1", AttributeCode: "8876", Score: 8.1, Visible: true},
			{ExternalID: "1", AttributeCode: "8878", Score: 8.6, Visible: true},
			{ExternalID: "2", AttributeCode: "8876", Score: 7.9, Visible: true},
			{ExternalID: "2", AttributeCode: "8878", Score: 7.5, Visible: true},
			{ExternalID: "2", AttributeCode: "8879", Score: 6.0, Visible: false},
		},
	}
}

func newTestReconcileService(provider domain.RawDataProvider, catalog domain.CatalogStore, history domain.HistoryRepository) *ReconcileService {
	svc := NewReconcileService(provider, catalog, history, ReconcileServiceConfig{}, zerolog.Nop())
	svc.newRunID = func() string { return "run-1" }
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestRunCategory(t *testing.T) {
	ctx := context.Background()
	spec := CategorySpec{Name: "mouse", Usages: mouseUsages}

	t.Run("merges and saves the catalog", func(t *testing.T) {
		provider := &fakeProvider{snapshots: map[string]*domain.RawSnapshot{"mouse": mouseSnapshot()}}
		catalog := &fakeCatalog{records: map[string][]domain.CatalogRecord{
			"mouse": {{Name: "Razer Viper Mini"}, {Name: "Logitech G305 Lightspeed"}, {Name: "Other Mouse"}},
		}}
		history := &fakeHistory{}
		svc := newTestReconcileService(provider, catalog, history)

		report, err := svc.RunCategory(ctx, "run-1", spec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.Matched != 2 || report.WithScores != 2 || report.TotalCatalog != 3 {
			t.Errorf("matched/with/total = %d/%d/%d, want 2/2/3", report.Matched, report.WithScores, report.TotalCatalog)
		}
		saved := catalog.records["mouse"]
		if !reflect.DeepEqual(saved[1].Attributes, domain.AttributeMap{"work": 7.9, "video_games_fps": 7.5}) {
			t.Errorf("G305 attributes = %v", saved[1].Attributes)
		}
		if saved[2].Attributes != nil {
			t.Errorf("unmatched catalog record changed: %v", saved[2].Attributes)
		}
		if catalog.saves != 1 {
			t.Errorf("saves = %d, want 1", catalog.saves)
		}
		if len(history.saved) != 1 || history.runs[0] != "run-1" {
			t.Fatalf("history = %v", history.runs)
		}
		if decisions := history.saved[0].Decisions; len(decisions) != 2 || decisions[1].MatchedName != "Logitech G305 Lightspeed" {
			t.Errorf("recorded decisions = %+v", decisions)
		}
	})

	t.Run("no data aborts without touching the catalog", func(t *testing.T) {
		snapshots := map[string]*domain.RawSnapshot{
			"no products": {Ratings: mouseSnapshot().Ratings},
			"no ratings":  {Products: mouseSnapshot().Products},
			"nil":         nil,
		}
		for name, snapshot := range snapshots {
			provider := &fakeProvider{snapshots: map[string]*domain.RawSnapshot{"mouse": snapshot}}
			catalog := &fakeCatalog{records: map[string][]domain.CatalogRecord{"mouse": {{Name: "Razer Viper Mini"}}}}
			history := &fakeHistory{}
			svc := newTestReconcileService(provider, catalog, history)

			report, err := svc.RunCategory(ctx, "run-1", spec)
			if !errors.Is(err, domain.ErrNoData) {
				t.Errorf("%s: error = %v, want ErrNoData", name, err)
			}
			if report == nil || !report.Failed() {
				t.Errorf("%s: report = %+v, want an error entry", name, report)
			}
			if catalog.saves != 0 {
				t.Errorf("%s: catalog saved %d times, want 0", name, catalog.saves)
			}
			if len(history.saved) != 1 || !history.saved[0].Failed() {
				t.Errorf("%s: failed report not recorded in history", name)
			}
		}
	})

	t.Run("provider errors are wrapped", func(t *testing.T) {
		provider := &fakeProvider{errs: map[string]error{"mouse": domain.ErrSourceAPIFailure}}
		svc := newTestReconcileService(provider, &fakeCatalog{records: map[string][]domain.CatalogRecord{}}, nil)

		report, err := svc.RunCategory(ctx, "run-1", spec)
		if !errors.Is(err, domain.ErrSourceAPIFailure) {
			t.Errorf("error = %v, want ErrSourceAPIFailure", err)
		}
		if report.Category != "mouse" || report.Error == "" {
			t.Errorf("report = %+v", report)
		}
	})

	t.Run("missing catalog fails the category", func(t *testing.T) {
		provider := &fakeProvider{snapshots: map[string]*domain.RawSnapshot{"mouse": mouseSnapshot()}}
		svc := newTestReconcileService(provider, &fakeCatalog{records: map[string][]domain.CatalogRecord{}}, nil)

		_, err := svc.RunCategory(ctx, "run-1", spec)
		if !errors.Is(err, domain.ErrCatalogNotFound) {
			t.Errorf("error = %v, want ErrCatalogNotFound", err)
		}
	})

	t.Run("category without codes is rejected", func(t *testing.T) {
		provider := &fakeProvider{}
		svc := newTestReconcileService(provider, &fakeCatalog{}, nil)

		_, err := svc.RunCategory(ctx, "run-1", CategorySpec{Name: "empty"})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
		if len(provider.calls) != 0 {
			t.Errorf("provider called for invalid category")
		}
	})

	t.Run("rerunning is idempotent", func(t *testing.T) {
		provider := &fakeProvider{snapshots: map[string]*domain.RawSnapshot{"mouse": mouseSnapshot()}}
		catalog := &fakeCatalog{records: map[string][]domain.CatalogRecord{
			"mouse": {{Name: "Razer Viper Mini", Attributes: domain.AttributeMap{"stale": 1}}, {Name: "Logitech G305 Lightspeed"}},
		}}
		svc := newTestReconcileService(provider, catalog, nil)

		if _, err := svc.RunCategory(ctx, "run-1", spec); err != nil {
			t.Fatalf("first run: %v", err)
		}
		first, _ := catalog.Load(ctx, "mouse")

		if _, err := svc.RunCategory(ctx, "run-2", spec); err != nil {
			t.Fatalf("second run: %v", err)
		}
		second, _ := catalog.Load(ctx, "mouse")

		if !reflect.DeepEqual(first, second) {
			t.Errorf("runs diverged:\n%v\n%v", first, second)
		}
		if _, ok := second[0].Attributes["stale"]; ok {
			t.Errorf("stale attribute survived the merge")
		}
	})
}

func TestRunAll(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{
		snapshots: map[string]*domain.RawSnapshot{"mouse": mouseSnapshot()},
		errs:      map[string]error{"audio": domain.ErrNoData},
	}
	catalog := &fakeCatalog{records: map[string][]domain.CatalogRecord{
		"mouse": {{Name: "Razer Viper Mini"}},
		"audio": {{Name: "Sony WH-1000XM5"}},
	}}
	svc := newTestReconcileService(provider, catalog, &fakeHistory{})

	specs := []CategorySpec{
		{Name: "audio", Usages: map[string]string{"17": "office"}},
		{Name: "mouse", Usages: mouseUsages},
	}

	summary, err := svc.RunAll(ctx, specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", summary.RunID)
	}
	if !reflect.DeepEqual(summary.Order, []string{"audio", "mouse"}) {
		t.Errorf("Order = %v", summary.Order)
	}
	if !summary.Categories["audio"].Failed() {
		t.Errorf("audio should carry an error entry")
	}
	if summary.Categories["mouse"].Matched != 1 {
		t.Errorf("mouse matched = %d, want 1", summary.Categories["mouse"].Matched)
	}
	if !reflect.DeepEqual(provider.calls, []string{"audio", "mouse"}) {
		t.Errorf("calls = %v, want audio then mouse", provider.calls)
	}
}

func TestRunAll_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &fakeProvider{}
	svc := newTestReconcileService(provider, &fakeCatalog{}, nil)

	_, err := svc.RunAll(ctx, []CategorySpec{{Name: "mouse", Usages: mouseUsages}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(provider.calls) != 0 {
		t.Errorf("provider called after cancel")
	}
}

func TestPreviewMatch(t *testing.T) {
	catalog := &fakeCatalog{records: map[string][]domain.CatalogRecord{
		"audio": {{Name: "Sony WH-1000XM5"}, {Name: "Sony WH-1000XM4"}},
	}}
	svc := newTestReconcileService(&fakeProvider{}, catalog, nil)

	result, err := svc.PreviewMatch(context.Background(), "audio", "Sony WH-1000XM4 Wireless")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchedName != "Sony WH-1000XM4" || result.Reason != domain.ReasonExact {
		t.Errorf("result = %+v", result)
	}
	if catalog.saves != 0 {
		t.Errorf("preview saved the catalog")
	}
}
