package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/hyperjump/pillbox/internal/config"
	"github.com/hyperjump/pillbox/internal/druginfo"
	"github.com/hyperjump/pillbox/internal/keyword"
	"github.com/hyperjump/pillbox/internal/lexicon"
	"github.com/hyperjump/pillbox/internal/matcher"
	"github.com/hyperjump/pillbox/internal/metrics"
	"github.com/hyperjump/pillbox/internal/prescription"
	"github.com/hyperjump/pillbox/internal/schedule"
	"github.com/hyperjump/pillbox/internal/storage"
	"github.com/hyperjump/pillbox/internal/watcher"
	"go.uber.org/zap"
)

// Components holds everything a command may need, built from one config.
type Components struct {
	Store   *lexicon.Store
	Index   *keyword.LexiconIndex
	Spell   *keyword.SpellChecker
	Metrics *metrics.Metrics
	Cache   storage.Cache
	Client  druginfo.Client
	Service *prescription.Service
	Watcher *watcher.Watcher
}

// Close releases the index, cache and watcher.
func (c *Components) Close() {
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}

// openStore loads the catalog. A missing catalog yields an empty lexicon that
// is filled in once the file appears.
func openStore(path string, logger *zap.Logger) (*lexicon.Store, error) {
	store, err := lexicon.OpenStore(path, lexicon.WithLogger(logger))
	if err == nil {
		return store, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("lexicon not found, starting with an empty lexicon", zap.String("path", path))
		return lexicon.NewStore(nil, lexicon.WithPath(path), lexicon.WithLogger(logger)), nil
	}
	return nil, fmt.Errorf("failed to load lexicon: %w", err)
}

func newCache(ctx context.Context, cfg *config.DrugInfoConfig) (storage.Cache, error) {
	switch cfg.Cache {
	case config.CacheMemory:
		return storage.NewMemoryCache(cfg.CacheSize), nil
	case config.CacheSQLite:
		c, err := storage.NewSQLiteCache(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.CacheRedis:
		c, err := storage.NewRedisCache(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, nil
	}
}

func newDrugInfoClient(cfg *config.DrugInfoConfig, cache storage.Cache, m *metrics.Metrics, logger *zap.Logger) druginfo.Client {
	var client druginfo.Client
	if cfg.APIKey == "" {
		logger.Warn("no drug information API key configured, using placeholder data",
			zap.String("env", config.APIKeyEnv))
		client = druginfo.DummyClient{}
	} else {
		client = druginfo.NewAPIClient(cfg.APIKey,
			druginfo.WithBaseURL(cfg.BaseURL),
			druginfo.WithTimeout(cfg.Timeout()),
			druginfo.WithLogger(logger))
	}
	if cache == nil {
		return client
	}
	return druginfo.NewCachedClient(client, cache, cfg.TTL(),
		druginfo.WithCacheLogger(logger),
		druginfo.WithMetrics(m))
}

// initializeComponents builds the store, index, drug-info client and service.
// The lexicon watcher is created but not started.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Metrics: metrics.New()}

	store, err := openStore(cfg.Lexicon.Path, logger)
	if err != nil {
		return nil, err
	}
	c.Store = store
	c.Metrics.SetLexiconEntries(store.Current().Len())

	idx, err := keyword.NewLexiconIndex(store.Current(), keyword.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build lexicon index: %w", err)
	}
	idx.Attach(store)
	c.Index = idx
	c.Spell = keyword.NewSpellChecker(idx)
	store.OnSwap(func(lex *lexicon.Lexicon) {
		c.Spell.Invalidate()
	})

	cache, err := newCache(ctx, &cfg.DrugInfo)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize %s cache: %w", cfg.DrugInfo.Cache, err)
	}
	c.Cache = cache
	c.Client = newDrugInfoClient(&cfg.DrugInfo, cache, c.Metrics, logger)

	meals, err := schedule.ParseMealTimes(cfg.Schedule.Breakfast, cfg.Schedule.Lunch, cfg.Schedule.Dinner)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}
	c.Service = prescription.NewService(store, c.Client,
		prescription.WithLogger(logger),
		prescription.WithMetrics(c.Metrics),
		prescription.WithMinConfidence(cfg.Matcher.MinConfidence),
		prescription.WithLookupTimeout(cfg.DrugInfo.Timeout()),
		prescription.WithMealTimes(meals),
		prescription.WithMatcherOptions(
			matcher.WithThreshold(cfg.Matcher.Threshold),
			matcher.WithRelaxedThreshold(cfg.Matcher.RelaxedThreshold),
			matcher.WithStrictThreshold(cfg.Matcher.StrictThreshold),
			matcher.WithDosageWindow(cfg.Matcher.DosageWindowOrDefault()),
		))

	if cfg.Lexicon.WatchOrDefault() {
		c.Watcher = watcher.NewWatcher(cfg.Lexicon.Path, func(string) {
			err := store.Reload()
			c.Metrics.RecordLexiconReload(store.Current().Len(), err)
		}, watcher.WithLogger(logger))
	}
	return c, nil
}
