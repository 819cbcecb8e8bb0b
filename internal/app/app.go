// Package app assembles the generation engine from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jonathan/workflow-generator/internal/assembler"
	"github.com/jonathan/workflow-generator/internal/blueprint"
	"github.com/jonathan/workflow-generator/internal/catalog"
	"github.com/jonathan/workflow-generator/internal/complexity"
	"github.com/jonathan/workflow-generator/internal/config"
	"github.com/jonathan/workflow-generator/internal/cost"
	"github.com/jonathan/workflow-generator/internal/db"
	"github.com/jonathan/workflow-generator/internal/invoker"
	"github.com/jonathan/workflow-generator/internal/jobs"
	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/observability"
	"github.com/jonathan/workflow-generator/internal/pipeline"
	"github.com/jonathan/workflow-generator/internal/prompts"
	"github.com/jonathan/workflow-generator/internal/routing"
)

// catalogTimeout bounds one documentation lookup.
const catalogTimeout = 5 * time.Second

// App holds the wired components of one process.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Metrics      *observability.Metrics
	Monitor      *cost.Monitor
	Coordinator  *pipeline.Coordinator
	Jobs         *jobs.Service
	HealthChecks map[string]func(ctx context.Context) error

	closers []func()
}

type options struct {
	providers map[llm.ProviderName]llm.Provider
	catalog   catalog.Catalog
}

// Option overrides a component built from configuration.
type Option func(*options)

// WithProviders uses the given providers instead of building them from API keys.
func WithProviders(p map[llm.ProviderName]llm.Provider) Option {
	return func(o *options) { o.providers = p }
}

// WithCatalog uses the given documentation catalog.
func WithCatalog(c catalog.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// New wires every component. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Config:       cfg,
		Logger:       logger,
		Metrics:      observability.NewMetrics(),
		HealthChecks: make(map[string]func(ctx context.Context) error),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.initBudget(ctx); err != nil {
		return nil, err
	}

	llmCfg := cfg.LLMConfig()
	providers := o.providers
	if providers == nil {
		providers, err = llm.NewProviders(ctx, llmCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM providers: %w", err)
		}
		a.closers = append(a.closers, func() {
			for _, p := range providers {
				_ = p.Close()
			}
		})
	}

	cat := o.catalog
	if cat == nil {
		cat = newCatalog(cfg)
	}

	router := routing.NewRouter(llmCfg, providerNames(providers),
		routing.Flags{AdvancedTierEnabled: cfg.AdvancedTierEnabled}, a.Monitor)

	inv := invoker.New(providers, a.Monitor, invoker.Options{
		Timeout:    cfg.GenerationTimeout,
		RateLimits: rateLimits(cfg.Tuning.RateLimits),
		Logger:     logger,
	})

	a.Coordinator = pipeline.New(pipeline.Components{
		Analyzer:   complexity.New(cfg.Tuning.Complexity),
		Assembler:  assembler.New(cat, 4, logger),
		Blueprints: blueprint.NewGenerator(),
		Router:     router,
		Prompts:    prompts.NewBuilder(cfg.Tuning.Prompts),
		Invoker:    inv,
		Metrics:    a.Metrics,
		Logger:     logger,
	})

	store, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Jobs = jobs.NewService(a.Coordinator, store, jobs.Options{
		MaxConcurrent: cfg.MaxConcurrentJobs,
		JobTimeout:    cfg.JobTimeout,
		Logger:        logger,
	})

	logger.Info("generation engine ready",
		"providers", providerNames(providers),
		"advanced_tier", cfg.AdvancedTierEnabled,
		"daily_budget_usd", cfg.DailyBudgetUSD,
		"persistent_jobs", cfg.DatabaseURL != "",
		"persistent_ledger", cfg.RedisURL != "",
	)
	return a, nil
}

// initBudget builds the cost monitor, restoring the spend window from Redis
// when a ledger is configured.
func (a *App) initBudget(ctx context.Context) error {
	cfg := a.Config
	limits := cost.Limits{DailyLimitUSD: cfg.DailyBudgetUSD, PerCallLimitUSD: cfg.PerCallBudgetUSD}
	monitorOpts := []cost.Option{cost.WithLogger(a.Logger)}

	var ledger *cost.RedisLedger
	if cfg.RedisURL != "" {
		var err error
		ledger, err = cost.NewRedisLedger(cfg.RedisURL, limits.Window)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = ledger.Close() })
		if err := ledger.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach spend ledger: %w", err)
		}
		a.HealthChecks["redis"] = ledger.Ping
		monitorOpts = append(monitorOpts, cost.WithLedger(ledger))
	}

	a.Monitor = cost.NewMonitor(limits, monitorOpts...)
	if ledger != nil {
		if err := a.Monitor.Restore(ctx); err != nil {
			a.Logger.Warn("failed to restore spend window, starting empty", "error", err)
		}
	}

	a.Metrics.RegisterBudgetGauges(
		func() float64 { return a.Monitor.Snapshot().DailySpendUSD },
		func() float64 { return a.Monitor.Snapshot().DailyLimitUSD },
	)
	return nil
}

func (a *App) newStore(ctx context.Context) (jobs.Store, error) {
	if a.Config.DatabaseURL == "" {
		return jobs.NewMemoryStore(), nil
	}
	database, err := db.Connect(ctx, a.Config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, database.Close)
	if err := database.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	a.HealthChecks["database"] = database.Ping
	return db.NewJobStore(database), nil
}

func newCatalog(cfg *config.Config) catalog.Catalog {
	if cfg.CatalogURL == "" {
		return catalog.NewStaticCatalog()
	}
	return catalog.NewCachedCatalog(catalog.NewHTTPCatalog(cfg.CatalogURL, catalogTimeout), cfg.CatalogCacheTTL)
}

func providerNames(providers map[llm.ProviderName]llm.Provider) []llm.ProviderName {
	names := make([]llm.ProviderName, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func rateLimits(in map[llm.ProviderName]config.ProviderRateLimit) map[llm.ProviderName]invoker.RateLimit {
	if len(in) == 0 {
		return nil
	}
	out := make(map[llm.ProviderName]invoker.RateLimit, len(in))
	for name, rl := range in {
		out[name] = invoker.RateLimit{RequestsPerSecond: rl.RequestsPerSecond, Burst: rl.Burst}
	}
	return out
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
