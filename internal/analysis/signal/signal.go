// Package signal turns an indicator bundle into a discrete trade recommendation.
package signal

import "papertrade/internal/analysis/indicator"

// Recommendation is one of five discrete states the bots act on.
type Recommendation string

const (
	StrongBuy  Recommendation = "STRONG_BUY"
	Buy        Recommendation = "BUY"
	Hold       Recommendation = "HOLD"
	Sell       Recommendation = "SELL"
	StrongSell Recommendation = "STRONG_SELL"
)

const (
	oversold       = 30.0
	weakOversold   = 40.0
	weakOverbought = 60.0
	overbought     = 70.0
)

func (r Recommendation) String() string { return string(r) }

// Valid reports whether r is one of the five known states.
func (r Recommendation) Valid() bool {
	switch r {
	case StrongBuy, Buy, Hold, Sell, StrongSell:
		return true
	}
	return false
}

// Classify applies the rules in priority order; the first match wins.
// Thresholds and ordering are a contract the bot rules depend on.
func Classify(b indicator.Bundle, price float64) Recommendation {
	switch {
	case b.RSI < oversold && price <= b.Bollinger.Lower:
		return StrongBuy
	case (b.MACD.Line > b.MACD.Signal && price > b.SMA5 && b.RSI < overbought) || b.RSI < weakOversold:
		return Buy
	case b.RSI > overbought && price >= b.Bollinger.Upper:
		return StrongSell
	case (b.MACD.Line < b.MACD.Signal && price < b.SMA5 && b.RSI > oversold) || b.RSI > weakOverbought:
		return Sell
	default:
		return Hold
	}
}

// Evaluate classifies a bundle, treating one computed from fewer than two
// prices as neutral.
func Evaluate(b indicator.Bundle, price float64) Recommendation {
	if !b.Ready() {
		return Hold
	}
	return Classify(b, price)
}
