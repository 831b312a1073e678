package main

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gearmatch/ratingsync/config"
	httpDelivery "github.com/gearmatch/ratingsync/internal/delivery/http"
	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/gearmatch/ratingsync/internal/infrastructure/cache"
	"github.com/gearmatch/ratingsync/internal/infrastructure/catalog"
	"github.com/gearmatch/ratingsync/internal/infrastructure/history"
	"github.com/gearmatch/ratingsync/internal/infrastructure/rtings"
	"github.com/gearmatch/ratingsync/internal/logging"
	"github.com/gearmatch/ratingsync/internal/usecase"
	"github.com/rs/zerolog"
)

// commandContext lazily loads configuration and builds the shared components
type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	stderr       io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     zerolog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		stderr:       os.Stderr,
		logger:       logging.Nop(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			c.configErr = err
			return
		}

		level := cfg.Log.Level
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			level = *c.logLevelFlag
		}
		if cfg.Matching.Debug && level != "trace" {
			level = "debug"
		}

		c.config = cfg
		c.logger = logging.New(logging.Config{Level: level, Format: cfg.Log.Format}, c.stderr)
	})
	return c.config, c.configErr
}

// categorySpecs returns the attribute tables for names, in order
func (c *commandContext) categorySpecs(names []string) []usecase.CategorySpec {
	specs := make([]usecase.CategorySpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, usecase.CategorySpec{
			Name:   name,
			Usages: c.config.Categories[name].Usages,
		})
	}
	return specs
}

func (c *commandContext) newSourceClient() *rtings.Client {
	cfg := c.config
	silos := make(map[string]rtings.Silo, len(cfg.Categories))
	for name, category := range cfg.Categories {
		codes := make([]string, 0, len(category.Usages))
		for code := range category.Usages {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		silos[name] = rtings.Silo{Name: category.Silo, Usages: codes}
	}

	client := rtings.NewClient(rtings.ClientConfig{
		BaseURL:           cfg.Source.BaseURL,
		SessionCookie:     cfg.Source.SessionCookie,
		UserAgent:         cfg.Source.UserAgent,
		Timeout:           cfg.Source.Timeout,
		RequestsPerMinute: cfg.Source.RequestsPerMinute,
		MaxRetries:        cfg.Source.MaxRetries,
		Silos:             silos,
	}, c.logger)
	client.SetDebug(cfg.Matching.Debug)
	return client
}

// newProvider returns the source client, behind the snapshot cache in store
// when caching is enabled. The returned cache is nil when uncached.
func (c *commandContext) newProvider(store *history.Store) (domain.RawDataProvider, *cache.CachedProvider) {
	client := c.newSourceClient()
	if store == nil || !c.config.SnapshotCacheEnabled() {
		return client, nil
	}
	cached := cache.NewCachedProvider(client, store, c.config.Source.CacheTTL, c.logger)
	return cached, cached
}

func (c *commandContext) newCatalogStore() *catalog.JSONStore {
	return catalog.NewJSONStore(catalog.StoreConfig{
		DataDir:     c.config.Catalog.DataDir,
		Files:       c.config.CatalogFiles(),
		ScoresField: c.config.Catalog.ScoresField,
		LockTimeout: c.config.Catalog.LockTimeout,
	}, c.logger)
}

// openHistory opens the run history store, or returns nil when disabled
func (c *commandContext) openHistory(ctx context.Context) (*history.Store, error) {
	if !c.config.History.Enabled {
		return nil, nil
	}
	return history.Open(ctx, c.config.History.Path)
}

// openStateStore opens the sqlite database when either run history or the
// snapshot cache needs it, or returns nil
func (c *commandContext) openStateStore(ctx context.Context) (*history.Store, error) {
	if !c.config.NeedsStateStore() {
		return nil, nil
	}
	return history.Open(ctx, c.config.History.Path)
}

func (c *commandContext) reconcileConfig() usecase.ReconcileServiceConfig {
	m := c.config.Matching
	return usecase.ReconcileServiceConfig{
		Match: usecase.MatchConfig{
			Threshold:           m.Threshold,
			ExactScore:          m.ExactScore,
			ConfirmedModelScore: m.ConfirmedModelScore,
			ContainmentScore:    m.ContainmentScore,
			ModelConflictScore:  m.ModelConflictScore,
			EnableDebugLogging:  m.Debug,
		},
		Merge: usecase.MergeConfig{CompletenessRatio: m.CompletenessRatio},
	}
}

func (c *commandContext) newReconcileService(provider domain.RawDataProvider, store domain.CatalogStore, hist *history.Store) *usecase.ReconcileService {
	var historyRepo domain.HistoryRepository
	if hist != nil && c.config.History.Enabled {
		historyRepo = hist
	}
	return usecase.NewReconcileService(provider, store, historyRepo, c.reconcileConfig(), c.logger)
}

// categoryInfos describes the configured categories for the review API
func (c *commandContext) categoryInfos() []httpDelivery.CategoryInfo {
	infos := make([]httpDelivery.CategoryInfo, 0, len(c.config.Categories))
	for _, name := range c.config.CategoryNames() {
		category := c.config.Categories[name]

		codes := make([]string, 0, len(category.Usages))
		for code := range category.Usages {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		attributes := make([]httpDelivery.AttributeInfo, 0, len(codes))
		for _, code := range codes {
			key := category.Usages[code]
			attributes = append(attributes, httpDelivery.AttributeInfo{
				Code:  code,
				Key:   key,
				Label: category.Labels[key],
			})
		}

		infos = append(infos, httpDelivery.CategoryInfo{
			Name:        name,
			CatalogFile: category.CatalogFile,
			Attributes:  attributes,
		})
	}
	return infos
}
