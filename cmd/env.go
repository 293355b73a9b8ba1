package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/niche"
	"github.com/sells-group/prospect-cli/internal/prospect"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/internal/verdict"
	anthropicpkg "github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
)

// prospectEnv holds the initialized clients, catalog and service needed by
// the search and serve commands.
type prospectEnv struct {
	Store   store.Store // may be nil
	Catalog *niche.Catalog
	Service *prospect.Service
}

// Close releases resources held by the environment.
func (pe *prospectEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initEnv validates the config for command and builds the service. The AI
// classifier is wired only when an Anthropic key is configured. Callers
// should defer env.Close().
func initEnv(ctx context.Context, command string) (*prospectEnv, error) {
	if err := cfg.Validate(command); err != nil {
		return nil, err
	}

	catalog, err := initCatalog()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	serpOpts := []serpapi.Option{
		serpapi.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.SerpAPI.TimeoutSecs) * time.Second}),
		serpapi.WithRateLimit(cfg.SerpAPI.RateLimit),
		serpapi.WithCircuitBreaker(resilience.BreakerConfig{
			Threshold: cfg.SerpAPI.BreakerThreshold,
			CoolDown:  time.Duration(cfg.SerpAPI.BreakerCoolDownSecs) * time.Second,
		}),
	}
	if cfg.SerpAPI.BaseURL != "" {
		serpOpts = append(serpOpts, serpapi.WithBaseURL(cfg.SerpAPI.BaseURL))
	}
	serp := serpapi.NewClient(cfg.SerpAPI.Key, serpOpts...)

	gatherOpts := []enrich.GathererOption{enrich.WithResultCount(cfg.Enrich.ResultCount)}
	if cfg.Enrich.ScanWebsite {
		site := enrich.NewSiteScanner(enrich.PublicClient(time.Duration(cfg.Enrich.SiteTimeoutSecs) * time.Second))
		gatherOpts = append(gatherOpts, enrich.WithSiteScanner(site))
	}

	opts := []prospect.Option{
		prospect.WithLanguage(cfg.SerpAPI.Language),
		prospect.WithEnricher(enrich.NewGatherer(serp, gatherOpts...)),
		prospect.WithEnrichConcurrency(cfg.Enrich.Concurrency),
		prospect.WithEnrichRateLimit(cfg.Enrich.RateLimit),
		prospect.WithCacheTTL(time.Duration(cfg.Enrich.CacheTTLHours) * time.Hour),
	}
	if cfg.Anthropic.Key != "" {
		classifier := verdict.NewClassifier(anthropicpkg.NewClient(cfg.Anthropic.Key), verdict.ClassifierConfig{
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
			BatchSize: cfg.Anthropic.BatchSize,
		})
		opts = append(opts, prospect.WithClassifier(classifier))
	}
	if st != nil {
		opts = append(opts, prospect.WithStore(st))
	}

	session := prospect.NewSession(cfg.SerpAPI.PageSize, nil)
	return &prospectEnv{
		Store:   st,
		Catalog: catalog,
		Service: prospect.NewService(session, serp, opts...),
	}, nil
}

// initCatalog loads the configured niche catalog, or the built-in one.
func initCatalog() (*niche.Catalog, error) {
	if cfg.Niches.CatalogPath == "" {
		return niche.Builtin(), nil
	}
	catalog, err := niche.LoadCatalog(cfg.Niches.CatalogPath)
	if err != nil {
		return nil, eris.Wrap(err, "load niche catalog")
	}
	zap.L().Info("loaded niche catalog", zap.String("path", cfg.Niches.CatalogPath), zap.Int("niches", len(catalog.All())))
	return catalog, nil
}

// initStore opens the configured store. Driver "none" returns a nil store.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "none", "":
		return nil, nil
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
