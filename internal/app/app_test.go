package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/config"
	"papertrade/internal/pkg/circuit"
	"papertrade/internal/store/memory"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Driver = config.StoreDriverMemory
	cfg.Simulation.Seed = 42
	cfg.App.HTTPAddr = "127.0.0.1:0"
	cfg.App.LogLevel = "error"
	return cfg
}

func TestNewAppBuildsWithDefaults(t *testing.T) {
	app, err := NewApp(testConfig(t))
	require.NoError(t, err)
	defer app.Close()
	require.NotNil(t, app.Service())
	assert.Len(t, app.Service().Market(), 10)
	assert.Equal(t, "memory", app.Summary.StoreDriver)
	assert.False(t, app.Summary.Breaker)
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}

func TestBuildRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "mongo"
	_, err := NewAppBuilder(cfg).Build(context.Background())
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestRunTicksAndPreheatFromJournal(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	users := memory.New()

	app, err := NewAppBuilder(cfg, WithUserStore(users)).Build(ctx)
	require.NoError(t, err)
	_, err = app.Service().Login(ctx, "deniz")
	require.NoError(t, err)

	rep, err := app.RunTicks(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Ticks)
	assert.Equal(t, 1, rep.Users)
	assert.Zero(t, rep.Errors)
	assert.Zero(t, rep.Failed)

	a, err := users.Find(ctx, "deniz")
	require.NoError(t, err)
	assert.Len(t, a.WealthHistory, 6)
	app.Close()

	again, err := NewAppBuilder(cfg, WithUserStore(memory.New())).Build(ctx)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, 10, again.Summary.Preheated)
	for _, inst := range again.Service().Market() {
		assert.Len(t, inst.History, 5, inst.Symbol)
	}
}

func TestRunTicksStopsOnCancel(t *testing.T) {
	app, err := NewApp(testConfig(t))
	require.NoError(t, err)
	defer app.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := app.RunTicks(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rep.Ticks)
}

func TestRunStopsOnCancel(t *testing.T) {
	app, err := NewApp(testConfig(t))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, app.Run(ctx, ""))
}

func TestBreakerGauge(t *testing.T) {
	assert.Equal(t, 0, breakerGauge(circuit.StateClosed))
	assert.Equal(t, 1, breakerGauge(circuit.StateHalfOpen))
	assert.Equal(t, 2, breakerGauge(circuit.StateOpen))
}

func TestStartupSummary(t *testing.T) {
	s := StartupSummary{
		Env:          "dev",
		StoreDriver:  "sqlite",
		Breaker:      true,
		TickInterval: 3 * time.Second,
		Commission:   0.0005,
		Symbols:      []string{"THYAO", "GARAN"},
		JournalPath:  "data/journal.db",
		Preheated:    2,
	}
	out := s.String()
	assert.Contains(t, out, "STARTUP SUMMARY")
	assert.Contains(t, out, "instruments:  2 (THYAO, GARAN)")
	assert.Contains(t, out, "sqlite (breaker on)")
	assert.Contains(t, out, "preheated 2/2")
	assert.Contains(t, out, "0.0500%")
}
