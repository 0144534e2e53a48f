package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/account"
	"papertrade/internal/analysis/signal"
	"papertrade/internal/market"
)

var now = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func instrument(sym string, price float64, rec signal.Recommendation) market.Instrument {
	return market.Instrument{
		Symbol:     sym,
		Price:      price,
		Indicators: market.Indicators{Recommendation: rec},
	}
}

func newEngine() *Engine {
	return NewEngine(account.NewLedger(account.DefaultCommissionRate))
}

func TestStrongBuyExecutes(t *testing.T) {
	a := account.New("alice", account.DefaultInitialBalance, now)
	a.BotConfigs["THYAO"] = account.BotRule{Active: true, Amount: 5}

	trades := newEngine().ExecuteTick(a, map[string]market.Instrument{
		"THYAO": instrument("THYAO", 50, signal.StrongBuy),
	}, now)

	require.Len(t, trades, 1)
	assert.Equal(t, account.SideBuy, trades[0].Type)
	assert.True(t, trades[0].Auto)
	assert.Equal(t, 99749.875, a.Balance)
	assert.Equal(t, []account.Position{{Symbol: "THYAO", Amount: 5, AverageCost: 50.025}}, a.Portfolio)
	assert.Len(t, a.History, 1)
}

func TestBuyRejectedWhenCommissionExceedsBalance(t *testing.T) {
	a := account.New("bob", 1000, now)
	a.BotConfigs["X"] = account.BotRule{Active: true, Amount: 10}

	trades := newEngine().ExecuteTick(a, map[string]market.Instrument{
		"X": instrument("X", 100, signal.StrongBuy),
	}, now)
	assert.Empty(t, trades)
	assert.Equal(t, 1000.0, a.Balance)
	assert.Empty(t, a.History)
}

func TestSkippedRules(t *testing.T) {
	a := account.New("carol", account.DefaultInitialBalance, now)
	a.BotConfigs["OFF"] = account.BotRule{Active: false, Amount: 1}
	a.BotConfigs["MISSING"] = account.BotRule{Active: true, Amount: 1}
	a.BotConfigs["FLAT"] = account.BotRule{Active: true, Amount: 1}

	trades := newEngine().ExecuteTick(a, map[string]market.Instrument{
		"OFF":  instrument("OFF", 10, signal.StrongBuy),
		"FLAT": instrument("FLAT", 10, signal.StrongSell),
	}, now)
	assert.Empty(t, trades, "inactive, unknown and exit-without-position are no-ops")
	assert.Equal(t, account.DefaultInitialBalance, a.Balance)
}

func TestBuyOnlyOnStrongBuy(t *testing.T) {
	a := account.New("dave", account.DefaultInitialBalance, now)
	a.BotConfigs["X"] = account.BotRule{Active: true, Amount: 1}
	for _, rec := range []signal.Recommendation{signal.Buy, signal.Hold, signal.Sell} {
		trades := newEngine().ExecuteTick(a, map[string]market.Instrument{"X": instrument("X", 10, rec)}, now)
		assert.Empty(t, trades, rec.String())
	}
}

func holding(t *testing.T, rule account.BotRule, amount, cost float64) *account.Account {
	t.Helper()
	a := account.New("erin", account.DefaultInitialBalance, now)
	a.Portfolio = []account.Position{{Symbol: "X", Amount: amount, AverageCost: cost}}
	a.BotConfigs["X"] = rule
	return a
}

func TestExitTriggers(t *testing.T) {
	tests := []struct {
		name   string
		rule   account.BotRule
		price  float64
		rec    signal.Recommendation
		reason account.Reason
	}{
		{"stop-loss", account.BotRule{Active: true, Amount: 1, StopLoss: ptr(5)}, 94, signal.Hold, account.ReasonStopLoss},
		{"stop-loss reported before signal", account.BotRule{Active: true, Amount: 1, StopLoss: ptr(5)}, 90, signal.StrongSell, account.ReasonStopLoss},
		{"negative stop-loss uses magnitude", account.BotRule{Active: true, Amount: 1, StopLoss: ptr(-5)}, 95, signal.Hold, account.ReasonStopLoss},
		{"take-profit", account.BotRule{Active: true, Amount: 1, TakeProfit: ptr(10)}, 110, signal.Buy, account.ReasonTakeProfit},
		{"take-profit reported before signal", account.BotRule{Active: true, Amount: 1, StopLoss: ptr(5), TakeProfit: ptr(10)}, 120, signal.StrongSell, account.ReasonTakeProfit},
		{"signal", account.BotRule{Active: true, Amount: 1}, 100, signal.StrongSell, account.ReasonSignal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := holding(t, tt.rule, 4, 100)
			trades := newEngine().ExecuteTick(a, map[string]market.Instrument{"X": instrument("X", tt.price, tt.rec)}, now)
			require.Len(t, trades, 1)
			assert.Equal(t, account.SideSell, trades[0].Type)
			assert.Equal(t, tt.reason, trades[0].Reason)
			assert.Equal(t, 1.0, trades[0].Amount)
			pos, ok := a.Position("X")
			require.True(t, ok)
			assert.Equal(t, 3.0, pos.Amount)
			assert.Equal(t, 100.0, pos.AverageCost)
		})
	}
}

func TestNoExitInsideThresholds(t *testing.T) {
	a := holding(t, account.BotRule{Active: true, Amount: 1, StopLoss: ptr(5), TakeProfit: ptr(10)}, 4, 100)
	trades := newEngine().ExecuteTick(a, map[string]market.Instrument{"X": instrument("X", 104, signal.Sell)}, now)
	assert.Empty(t, trades)

	a = holding(t, account.BotRule{Active: true, Amount: 1, StopLoss: ptr(0)}, 4, 100)
	trades = newEngine().ExecuteTick(a, map[string]market.Instrument{"X": instrument("X", 99, signal.Hold)}, now)
	assert.Empty(t, trades, "a zero threshold is disabled")
}

func TestSellCappedAtPosition(t *testing.T) {
	a := holding(t, account.BotRule{Active: true, Amount: 10}, 3, 100)
	trades := newEngine().ExecuteTick(a, map[string]market.Instrument{"X": instrument("X", 100, signal.StrongSell)}, now)
	require.Len(t, trades, 1)
	assert.Equal(t, 3.0, trades[0].Amount)
	assert.Empty(t, a.Portfolio)
	assert.InDelta(t, 100299.85, a.Balance, 1e-9)
}

func TestSymbolsRunInSortedOrder(t *testing.T) {
	a := account.New("gina", 1100, now)
	a.BotConfigs["B"] = account.BotRule{Active: true, Amount: 10}
	a.BotConfigs["A"] = account.BotRule{Active: true, Amount: 10}
	insts := map[string]market.Instrument{
		"A": instrument("A", 100, signal.StrongBuy),
		"B": instrument("B", 100, signal.StrongBuy),
	}
	trades := newEngine().ExecuteTick(a, insts, now)
	require.Len(t, trades, 1)
	assert.Equal(t, "A", trades[0].Symbol)
}
