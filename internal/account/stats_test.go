package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	history := []TradeRecord{
		{Type: SideSell, Symbol: "A", RealizedPnL: 12.5},
		{Type: SideSell, Symbol: "B", RealizedPnL: -3},
		{Type: SideSell, Symbol: "A", RealizedPnL: -2.5},
		{Type: SideSell, Symbol: "C", RealizedPnL: 9},
		{Type: SideBuy, Symbol: "A"},
		{Type: SideBuy, Symbol: "B"},
		{Type: SideBuy, Symbol: "C"},
	}
	st := ComputeStats(history)
	assert.Equal(t, 7, st.TotalTrades)
	assert.Equal(t, 3, st.BuyCount)
	assert.Equal(t, 4, st.SellCount)
	assert.Equal(t, 2, st.ProfitableTrades)
	assert.Equal(t, 50.0, st.WinRate)
	assert.Equal(t, "A", st.BestSymbol)
	assert.Equal(t, 16.0, st.RealizedPnL)
}

func TestComputeStatsEmptyAndLosing(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil))

	st := ComputeStats([]TradeRecord{
		{Type: SideBuy, Symbol: "A"},
		{Type: SideSell, Symbol: "A", RealizedPnL: -1},
		{Type: SideSell, Symbol: "A", RealizedPnL: 1},
		{Type: SideSell, Symbol: "A", RealizedPnL: 0},
	})
	assert.Equal(t, 33.33, st.WinRate)
	assert.Empty(t, st.BestSymbol, "no symbol with positive total")
}

func TestRefreshStats(t *testing.T) {
	a := New("ivy", DefaultInitialBalance, now)
	_, _ = NewLedger(0).Buy(a, Order{Symbol: "A", Amount: 1, Price: 10}, now)
	st := a.RefreshStats()
	assert.Equal(t, 1, st.TotalTrades)
	assert.Equal(t, st, a.Stats)
}
