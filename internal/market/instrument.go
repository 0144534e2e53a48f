package market

import (
	"strings"
	"time"

	"papertrade/internal/analysis/indicator"
	"papertrade/internal/analysis/signal"
)

// PricePoint is one entry of an instrument's rolling price history.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Indicators is the per-tick derived bundle plus the recommendation built from it.
type Indicators struct {
	indicator.Bundle
	Recommendation signal.Recommendation `json:"recommendation"`
}

// Instrument is a tradable symbol with its simulated price state.
type Instrument struct {
	Symbol        string       `json:"symbol"`
	Name          string       `json:"name"`
	BasePrice     float64      `json:"basePrice"`
	Price         float64      `json:"price"`
	Change        float64      `json:"change"`
	ChangePercent float64      `json:"changePercent"`
	History       []PricePoint `json:"priceHistory"`
	Indicators    Indicators   `json:"indicators"`
}

// Clone returns a copy that shares no slices with inst.
func (inst Instrument) Clone() Instrument {
	out := inst
	if inst.History != nil {
		out.History = make([]PricePoint, len(inst.History))
		copy(out.History, inst.History)
	}
	return out
}

// Prices returns the history prices, oldest first.
func (inst Instrument) Prices() []float64 {
	out := make([]float64, len(inst.History))
	for i, p := range inst.History {
		out[i] = p.Price
	}
	return out
}

// Analyze derives the indicator bundle and recommendation for a price history.
func Analyze(history []PricePoint, price float64) Indicators {
	prices := make([]float64, len(history))
	for i, p := range history {
		prices[i] = p.Price
	}
	b := indicator.Compute(prices)
	return Indicators{Bundle: b, Recommendation: signal.Evaluate(b, price)}
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// newInstrument builds the start-of-process state: price at base, one history point.
func newInstrument(def Definition, now time.Time) Instrument {
	history := []PricePoint{{Time: now, Price: def.BasePrice}}
	return Instrument{
		Symbol:     def.Symbol,
		Name:       def.Name,
		BasePrice:  def.BasePrice,
		Price:      def.BasePrice,
		History:    history,
		Indicators: Analyze(history, def.BasePrice),
	}
}
