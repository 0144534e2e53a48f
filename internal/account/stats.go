package account

import (
	"github.com/shopspring/decimal"

	"papertrade/internal/pkg/convert"
)

// Stats is derived from the trade history and never edited directly.
type Stats struct {
	WinRate          float64 `json:"winRate"`
	BestSymbol       string  `json:"bestStock"`
	TotalTrades      int     `json:"totalTrades"`
	ProfitableTrades int     `json:"profitableTrades"`
	BuyCount         int     `json:"buyCount"`
	SellCount        int     `json:"sellCount"`
	RealizedPnL      float64 `json:"realizedPnl"`
}

// ComputeStats walks the whole history, O(len(history)).
// A sell is profitable when its realized PnL is positive; WinRate is the
// profitable share of sells in percent. BestSymbol is the symbol with the
// highest positive summed PnL.
func ComputeStats(history []TradeRecord) Stats {
	var st Stats
	st.TotalTrades = len(history)
	total := decimal.Zero
	bySymbol := make(map[string]decimal.Decimal)
	for _, rec := range history {
		switch rec.Type {
		case SideBuy:
			st.BuyCount++
		case SideSell:
			st.SellCount++
			pnl := convert.Decimal(rec.RealizedPnL)
			if pnl.IsPositive() {
				st.ProfitableTrades++
			}
			total = total.Add(pnl)
			bySymbol[rec.Symbol] = bySymbol[rec.Symbol].Add(pnl)
		}
	}
	if st.SellCount > 0 {
		st.WinRate = convert.Round2(float64(st.ProfitableTrades) / float64(st.SellCount) * 100)
	}
	st.RealizedPnL = convert.Round2(convert.Float(total))

	best := decimal.Zero
	for sym, pnl := range bySymbol {
		if pnl.GreaterThan(best) || (pnl.Equal(best) && st.BestSymbol != "" && sym < st.BestSymbol) {
			best = pnl
			st.BestSymbol = sym
		}
	}
	return st
}

// RefreshStats recomputes a.Stats from its history.
func (a *Account) RefreshStats() Stats {
	a.Stats = ComputeStats(a.History)
	return a.Stats
}
