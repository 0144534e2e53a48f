// Package bot runs every active per-symbol rule of an account against the
// current market recommendation once per tick.
package bot

import (
	"errors"
	"math"
	"sort"
	"time"

	"papertrade/internal/account"
	"papertrade/internal/analysis/signal"
	"papertrade/internal/logger"
	"papertrade/internal/market"
)

// Engine evaluates bot rules. It holds no per-account state.
type Engine struct {
	ledger account.Ledger
	log    logger.Entry
}

func NewEngine(ledger account.Ledger) *Engine {
	return &Engine{ledger: ledger, log: logger.With("component", "bot")}
}

// ExecuteTick applies every active rule of a to the given instruments and
// returns the trades it made, in execution order. Rules for unknown symbols,
// unaffordable buys and exits without a position are skipped silently.
func (e *Engine) ExecuteTick(a *account.Account, instruments map[string]market.Instrument, now time.Time) []account.TradeRecord {
	if a == nil || len(a.BotConfigs) == 0 {
		return nil
	}
	symbols := make([]string, 0, len(a.BotConfigs))
	for sym := range a.BotConfigs {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var trades []account.TradeRecord
	for _, sym := range symbols {
		rule := a.BotConfigs[sym]
		if !rule.Active {
			continue
		}
		inst, ok := instruments[sym]
		if !ok {
			continue
		}
		if rec, ok := e.evaluate(a, sym, rule, inst, now); ok {
			trades = append(trades, rec)
		}
	}
	return trades
}

func (e *Engine) evaluate(a *account.Account, sym string, rule account.BotRule, inst market.Instrument, now time.Time) (account.TradeRecord, bool) {
	amount := rule.OrderAmount()
	if inst.Indicators.Recommendation == signal.StrongBuy {
		rec, err := e.ledger.Buy(a, account.Order{
			Symbol: sym,
			Amount: amount,
			Price:  inst.Price,
			Auto:   true,
			Reason: account.ReasonSignal,
		}, now)
		if err != nil {
			if !errors.Is(err, account.ErrInsufficientBalance) {
				e.log.Warnf("buy %s for %s failed: %v", sym, a.Username, err)
			}
			return account.TradeRecord{}, false
		}
		return rec, true
	}

	pos, ok := a.Position(sym)
	if !ok {
		return account.TradeRecord{}, false
	}
	reason := ExitReason(rule, pos, inst.Price, inst.Indicators.Recommendation)
	if reason == account.ReasonNone {
		return account.TradeRecord{}, false
	}
	rec, err := e.ledger.Sell(a, account.Order{
		Symbol: sym,
		Amount: math.Min(pos.Amount, amount),
		Price:  inst.Price,
		Auto:   true,
		Reason: reason,
	}, now)
	if err != nil {
		e.log.Warnf("sell %s for %s failed: %v", sym, a.Username, err)
		return account.TradeRecord{}, false
	}
	return rec, true
}

// threshold treats an unset or zero percentage as disabled.
func threshold(pct *float64) float64 {
	if pct == nil {
		return 0
	}
	return math.Abs(*pct)
}

// ExitReason decides whether a held position should be sold. Stop-loss wins
// over take-profit, which wins over a STRONG_SELL signal.
func ExitReason(rule account.BotRule, pos account.Position, price float64, rec signal.Recommendation) account.Reason {
	if pos.AverageCost > 0 {
		profitPct := (price - pos.AverageCost) / pos.AverageCost * 100
		if sl := threshold(rule.StopLoss); sl > 0 && profitPct <= -sl {
			return account.ReasonStopLoss
		}
		if tp := threshold(rule.TakeProfit); tp > 0 && profitPct >= tp {
			return account.ReasonTakeProfit
		}
	}
	if rec == signal.StrongSell {
		return account.ReasonSignal
	}
	return account.ReasonNone
}
