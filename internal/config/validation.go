package config

import (
	"fmt"
	"strings"
	"time"
)

func validate(c *Config) error {
	if err := c.Simulation.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if c.Journal.WarmPoints < 0 {
		return fmt.Errorf("journal.warm_points must be >= 0")
	}
	if c.Journal.Retain < c.Journal.WarmPoints {
		return fmt.Errorf("journal.retain must be >= journal.warm_points")
	}
	return nil
}

func (s *SimulationConfig) validate() error {
	if s.TickInterval < 100*time.Millisecond {
		return fmt.Errorf("simulation.tick_interval must be >= 100ms, got %s", s.TickInterval)
	}
	if s.Volatility <= 0 || s.Volatility >= 1 {
		return fmt.Errorf("simulation.volatility must be in (0,1)")
	}
	if s.CommissionRate < 0 || s.CommissionRate >= 1 {
		return fmt.Errorf("simulation.commission_rate must be in [0,1)")
	}
	if s.InitialBalance <= 0 {
		return fmt.Errorf("simulation.initial_balance must be > 0")
	}
	if s.PriceHistorySize < 2 {
		return fmt.Errorf("simulation.price_history_size must be >= 2")
	}
	if s.WealthHistorySize < 1 {
		return fmt.Errorf("simulation.wealth_history_size must be >= 1")
	}
	name := strings.TrimSpace(s.Timezone)
	if name != "" && !strings.EqualFold(name, "local") {
		if _, err := time.LoadLocation(name); err != nil {
			return fmt.Errorf("simulation.timezone invalid: %w", err)
		}
	}
	return nil
}

func (s *StoreConfig) validate() error {
	switch s.Driver {
	case StoreDriverMemory:
	case StoreDriverSQLite:
		if strings.TrimSpace(s.SQLitePath) == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case StoreDriverPostgres:
		if strings.TrimSpace(s.PostgresDSN) == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, sqlite, postgres (got %q)", s.Driver)
	}
	return nil
}
