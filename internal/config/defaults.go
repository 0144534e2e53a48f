package config

import (
	"strings"
	"time"
)

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":5000"
	defaultTickInterval      = 3 * time.Second
	defaultVolatility        = 0.002
	defaultCommissionRate    = 0.0005
	defaultInitialBalance    = 100000.00
	defaultPriceHistorySize  = 20
	defaultWealthHistorySize = 30
	defaultTimezone          = "Local"
	defaultStoreDriver       = StoreDriverSQLite
	defaultSQLitePath        = "data/papertrade.db"
	defaultBreakerTimeout    = 30 * time.Second
	defaultBreakerTrips      = 5
	defaultJournalWarmPoints = 20
	defaultJournalRetain     = 500
)

// Default returns a config with every default applied, as if loaded from an empty file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(make(keySet))
	return &cfg
}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Simulation.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
	c.Metrics.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (s *SimulationConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "simulation.tick_interval",
			need:  func() bool { return s.TickInterval <= 0 },
			apply: func() { s.TickInterval = defaultTickInterval },
		},
		fieldDefault{
			key:   "simulation.volatility",
			need:  func() bool { return s.Volatility <= 0 },
			apply: func() { s.Volatility = defaultVolatility },
		},
		fieldDefault{
			key:   "simulation.commission_rate",
			need:  func() bool { return s.CommissionRate == 0 },
			apply: func() { s.CommissionRate = defaultCommissionRate },
		},
		fieldDefault{
			key:   "simulation.initial_balance",
			need:  func() bool { return s.InitialBalance <= 0 },
			apply: func() { s.InitialBalance = defaultInitialBalance },
		},
		fieldDefault{
			key:   "simulation.price_history_size",
			need:  func() bool { return s.PriceHistorySize <= 0 },
			apply: func() { s.PriceHistorySize = defaultPriceHistorySize },
		},
		fieldDefault{
			key:   "simulation.wealth_history_size",
			need:  func() bool { return s.WealthHistorySize <= 0 },
			apply: func() { s.WealthHistorySize = defaultWealthHistorySize },
		},
		stringFieldDefault("simulation.timezone", &s.Timezone, defaultTimezone),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.driver", &s.Driver, defaultStoreDriver),
		stringFieldDefault("store.sqlite_path", &s.SQLitePath, defaultSQLitePath),
		boolFieldDefault("store.breaker_enabled", &s.BreakerEnabled, true),
		fieldDefault{
			key:   "store.breaker_timeout",
			need:  func() bool { return s.BreakerTimeout <= 0 },
			apply: func() { s.BreakerTimeout = defaultBreakerTimeout },
		},
		fieldDefault{
			key:   "store.breaker_trips",
			need:  func() bool { return s.BreakerTrips == 0 },
			apply: func() { s.BreakerTrips = defaultBreakerTrips },
		},
	)
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	if j == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "journal.warm_points",
			need:  func() bool { return j.WarmPoints <= 0 },
			apply: func() { j.WarmPoints = defaultJournalWarmPoints },
		},
		fieldDefault{
			key:   "journal.retain",
			need:  func() bool { return j.Retain <= 0 },
			apply: func() { j.Retain = defaultJournalRetain },
		},
	)
}

func (m *MetricsConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("metrics.enabled", &m.Enabled, true),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
