package config

import (
	"strings"
	"time"
)

// Config is the root configuration for the papertrade service.
type Config struct {
	App        AppConfig        `toml:"app"`
	Simulation SimulationConfig `toml:"simulation"`
	Market     MarketConfig     `toml:"market"`
	Store      StoreConfig      `toml:"store"`
	Journal    JournalConfig    `toml:"journal"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

type AppConfig struct {
	Env          string `toml:"env"`
	LogLevel     string `toml:"log_level"`
	HTTPAddr     string `toml:"http_addr"`
	LogPath      string `toml:"log_path"`
	TradeLogPath string `toml:"trade_log_path"`
}

// SimulationConfig drives the tick: price walk, commission and buffer sizes.
type SimulationConfig struct {
	TickInterval      time.Duration `toml:"tick_interval"`
	Volatility        float64       `toml:"volatility"`
	CommissionRate    float64       `toml:"commission_rate"`
	InitialBalance    float64       `toml:"initial_balance"`
	PriceHistorySize  int           `toml:"price_history_size"`
	WealthHistorySize int           `toml:"wealth_history_size"`
	Timezone          string        `toml:"timezone"`
	Seed              int64         `toml:"seed"` // 0 = time based
}

// Location resolves Timezone; unknown names fall back to time.Local.
func (s SimulationConfig) Location() *time.Location {
	name := strings.TrimSpace(s.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

type MarketConfig struct {
	CatalogPath string `toml:"catalog_path"` // empty = built-in BIST catalog
}

type StoreConfig struct {
	Driver         string        `toml:"driver"` // memory | sqlite | postgres
	SQLitePath     string        `toml:"sqlite_path"`
	PostgresDSN    string        `toml:"postgres_dsn"`
	BreakerEnabled bool          `toml:"breaker_enabled"`
	BreakerTimeout time.Duration `toml:"breaker_timeout"`
	BreakerTrips   uint32        `toml:"breaker_trips"`
}

type JournalConfig struct {
	Path       string `toml:"path"` // empty disables the price journal
	WarmPoints int    `toml:"warm_points"`
	Retain     int    `toml:"retain"` // rows kept per symbol
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

const (
	StoreDriverMemory   = "memory"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// keySet tracks the dotted paths explicitly present in the config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
