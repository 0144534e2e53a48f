package account

import "strings"

// BotRule configures autonomous trading for one symbol. StopLoss and
// TakeProfit are percentages; nil disables the check.
type BotRule struct {
	Active     bool     `json:"active"`
	Amount     float64  `json:"amount"`
	StopLoss   *float64 `json:"stopLoss,omitempty"`
	TakeProfit *float64 `json:"takeProfit,omitempty"`
}

// OrderAmount is the quantity traded per trigger; unset means 1.
func (r BotRule) OrderAmount() float64 {
	if r.Amount > 0 {
		return r.Amount
	}
	return 1
}

func (r BotRule) Clone() BotRule {
	out := r
	out.StopLoss = clonePtr(r.StopLoss)
	out.TakeProfit = clonePtr(r.TakeProfit)
	return out
}

// BotRulePatch is a partial update: nil fields keep the previous value,
// the Clear flags drop an optional threshold.
type BotRulePatch struct {
	Active          *bool
	Amount          *float64
	StopLoss        *float64
	TakeProfit      *float64
	ClearStopLoss   bool
	ClearTakeProfit bool
}

// Merge applies p on top of r.
func (r BotRule) Merge(p BotRulePatch) BotRule {
	out := r.Clone()
	if p.Active != nil {
		out.Active = *p.Active
	}
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	switch {
	case p.ClearStopLoss:
		out.StopLoss = nil
	case p.StopLoss != nil:
		out.StopLoss = clonePtr(p.StopLoss)
	}
	switch {
	case p.ClearTakeProfit:
		out.TakeProfit = nil
	case p.TakeProfit != nil:
		out.TakeProfit = clonePtr(p.TakeProfit)
	}
	return out
}

// ApplyBotRule merges p into the rule for symbol, creating it when absent,
// and returns the whole configuration.
func (a *Account) ApplyBotRule(symbol string, p BotRulePatch) map[string]BotRule {
	if a.BotConfigs == nil {
		a.BotConfigs = map[string]BotRule{}
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	a.BotConfigs[symbol] = a.BotConfigs[symbol].Merge(p)
	return a.BotConfigs
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
