package app

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"papertrade/internal/config"
	"papertrade/internal/logger"
	"papertrade/internal/market"
	"papertrade/internal/observability"
	"papertrade/internal/pkg/circuit"
	"papertrade/internal/simulation"
	"papertrade/internal/store"
	"papertrade/internal/store/gormstore"
	"papertrade/internal/store/journal"
	"papertrade/internal/store/memory"
	"papertrade/internal/store/pgstore"
	livehttp "papertrade/internal/transport/http/live"
)

// AppBuilder assembles the service graph from config. The *Fn hooks exist so
// tests can swap a backend without touching the rest of the graph.
type AppBuilder struct {
	cfg *config.Config

	catalogFn   func(config.MarketConfig) ([]market.Definition, error)
	userStoreFn func(context.Context, config.StoreConfig, *observability.Metrics) (store.UserStore, error)
	journalFn   func(config.JournalConfig) (*journal.Journal, error)
	clock       func() time.Time
}

type AppBuilderOption func(*AppBuilder)

// WithUserStore replaces the configured store backend.
func WithUserStore(users store.UserStore) AppBuilderOption {
	return func(b *AppBuilder) {
		b.userStoreFn = func(context.Context, config.StoreConfig, *observability.Metrics) (store.UserStore, error) {
			return users, nil
		}
	}
}

func WithClock(clock func() time.Time) AppBuilderOption {
	return func(b *AppBuilder) {
		if clock != nil {
			b.clock = clock
		}
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		catalogFn:   loadCatalog,
		userStoreFn: openUserStore,
		journalFn:   openJournal,
		clock:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(nil)
	}

	defs, err := b.catalogFn(cfg.Market)
	if err != nil {
		return nil, err
	}
	table := market.NewTable(defs, market.NewSimulator(cfg.Simulation.Volatility, cfg.Simulation.PriceHistorySize, seedSource(cfg.Simulation.Seed)), b.clock())
	logger.Infof("✓ market loaded: %d instruments", table.Len())

	var closers []io.Closer
	users, err := b.userStoreFn(ctx, cfg.Store, metrics)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	closers = append(closers, users)

	summary := &StartupSummary{
		Env:          cfg.App.Env,
		HTTPAddr:     cfg.App.HTTPAddr,
		StoreDriver:  cfg.Store.Driver,
		Breaker:      cfg.Store.BreakerEnabled && cfg.Store.Driver != config.StoreDriverMemory,
		TickInterval: cfg.Simulation.TickInterval,
		Commission:   cfg.Simulation.CommissionRate,
		Timezone:     cfg.Simulation.Location().String(),
		Symbols:      table.Symbols(),
		Metrics:      metrics != nil,
	}

	svc := simulation.NewService(table, users, simulation.Options{
		CommissionRate: cfg.Simulation.CommissionRate,
		InitialBalance: cfg.Simulation.InitialBalance,
		WealthCapacity: cfg.Simulation.WealthHistorySize,
		Location:       cfg.Simulation.Location(),
		Clock:          b.clock,
	}, metrics)

	j, err := b.journalFn(cfg.Journal)
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("open price journal: %w", err)
	}
	if j != nil {
		closers = append(closers, j)
		svc.SetRecorder(j)
		summary.JournalPath = cfg.Journal.Path
		summary.Preheated = market.NewPreheater(j, cfg.Journal.WarmPoints).Preheat(ctx, table)
	}

	server, err := livehttp.NewServer(livehttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Service: svc,
		Metrics: metrics,
	})
	if err != nil {
		closeAll(closers)
		return nil, err
	}

	return &App{
		cfg:     cfg,
		svc:     svc,
		http:    server,
		closers: closers,
		Summary: summary,
	}, nil
}

func loadCatalog(mc config.MarketConfig) ([]market.Definition, error) {
	path := strings.TrimSpace(mc.CatalogPath)
	if path == "" {
		return market.DefaultCatalog(), nil
	}
	defs, err := market.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return defs, nil
}

func seedSource(seed int64) rand.Source {
	if seed == 0 {
		return nil
	}
	return rand.NewSource(seed)
}

func openUserStore(ctx context.Context, sc config.StoreConfig, metrics *observability.Metrics) (store.UserStore, error) {
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	var (
		users store.UserStore
		err   error
	)
	switch driver {
	case config.StoreDriverMemory:
		logger.Warnf("store driver is memory: accounts are lost on restart")
		return memory.New(), nil
	case config.StoreDriverSQLite:
		users, err = gormstore.NewGormStore(sc.SQLitePath)
	case config.StoreDriverPostgres:
		users, err = pgstore.New(ctx, sc.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
	if err != nil {
		return nil, err
	}
	if !sc.BreakerEnabled {
		return users, nil
	}
	breaker := circuit.New(store.BreakerSettings(circuit.Settings{
		Name:    "store-" + driver,
		Trips:   sc.BreakerTrips,
		Timeout: sc.BreakerTimeout,
		OnStateChange: func(name string, _, to circuit.State) {
			metrics.SetCircuitBreakerState(name, breakerGauge(to))
		},
	}))
	return store.WithBreaker(users, breaker), nil
}

// breakerGauge maps a breaker state onto the gauge scale 0 closed, 1 half-open, 2 open.
func breakerGauge(s circuit.State) int {
	switch s {
	case circuit.StateOpen:
		return 2
	case circuit.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

func openJournal(jc config.JournalConfig) (*journal.Journal, error) {
	if strings.TrimSpace(jc.Path) == "" {
		return nil, nil
	}
	return journal.Open(jc.Path, jc.Retain)
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warnf("close failed: %v", err)
		}
	}
}

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}
