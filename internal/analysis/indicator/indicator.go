// Package indicator derives the technical indicator bundle the bots trade on
// from an instrument's rolling price history.
package indicator

import (
	"github.com/markcheno/go-talib"

	"papertrade/internal/pkg/convert"
)

const (
	ShortSMAPeriod  = 5
	LongSMAPeriod   = 10
	RSIPeriod       = 14
	MACDFastPeriod  = 12
	MACDSlowPeriod  = 26
	BollingerPeriod = 20
	BollingerWidth  = 2.0

	// SignalRatio approximates the MACD signal line as a fixed share of the
	// MACD line; no history of MACD values is retained to smooth over.
	SignalRatio = 0.9
)

// MACD is the trend/momentum pair.
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bollinger is the volatility band triple.
type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Bundle is recomputed from scratch on every tick; all values are rounded to 2dp.
type Bundle struct {
	SMA5      float64   `json:"sma5"`
	SMA10     float64   `json:"sma10"`
	RSI       float64   `json:"rsi"`
	MACD      MACD      `json:"macd"`
	Bollinger Bollinger `json:"bollinger"`
	// Samples is the number of prices the bundle was computed from.
	Samples int `json:"samples"`
}

// Ready reports whether the bundle carries meaningful values.
func (b Bundle) Ready() bool { return b.Samples >= 2 }

// Compute derives the bundle from prices ordered oldest first.
// Fewer than two prices yield a zeroed bundle.
func Compute(prices []float64) Bundle {
	if len(prices) < 2 {
		return Bundle{Samples: len(prices)}
	}
	line := EMA(prices, MACDFastPeriod) - EMA(prices, MACDSlowPeriod)
	signal := line * SignalRatio
	upper, middle, lower := Bands(prices, BollingerPeriod, BollingerWidth)
	return Bundle{
		SMA5:  convert.Round2(SMA(prices, ShortSMAPeriod)),
		SMA10: convert.Round2(SMA(prices, LongSMAPeriod)),
		RSI:   convert.Round2(RSI(prices, RSIPeriod)),
		MACD: MACD{
			Line:      convert.Round2(line),
			Signal:    convert.Round2(signal),
			Histogram: convert.Round2(line - signal),
		},
		Bollinger: Bollinger{
			Upper:  convert.Round2(upper),
			Middle: convert.Round2(middle),
			Lower:  convert.Round2(lower),
		},
		Samples: len(prices),
	}
}

// tail returns the last n prices, or all of them when fewer exist.
func tail(prices []float64, n int) []float64 {
	if n <= 0 || len(prices) <= n {
		return prices
	}
	return prices[len(prices)-n:]
}

// SMA is the arithmetic mean of the last period prices.
func SMA(prices []float64, period int) float64 {
	window := tail(prices, period)
	switch len(window) {
	case 0:
		return 0
	case 1:
		return window[0]
	}
	return lastFinite(talib.Sma(window, len(window)))
}

// RSI sums gains and losses over the last period price changes (the whole
// history when shorter). It returns 100 when there were no losses.
func RSI(prices []float64, period int) float64 {
	window := tail(prices, period+1)
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		diff := window[i] - window[i-1]
		if diff >= 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}
	if losses == 0 {
		return 100
	}
	return 100 - 100/(1+gains/losses)
}

// EMA is seeded with the first price and smoothed with k = 2/(period+1).
// With fewer prices than period it degenerates to the latest price.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}
	k := 2.0 / float64(period+1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = p*k + ema*(1-k)
	}
	return ema
}

// Bands returns SMA ± width·σ over the last period prices, σ being the
// population standard deviation.
func Bands(prices []float64, period int, width float64) (upper, middle, lower float64) {
	window := tail(prices, period)
	if len(window) < 2 {
		if len(window) == 1 {
			return window[0], window[0], window[0]
		}
		return 0, 0, 0
	}
	up, mid, low := talib.BBands(window, len(window), width, width, talib.SMA)
	return lastFinite(up), lastFinite(mid), lastFinite(low)
}

func lastFinite(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if convert.Finite(series[i]) {
			return series[i]
		}
	}
	return 0
}
