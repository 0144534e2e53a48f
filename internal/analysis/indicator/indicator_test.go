package indicator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeNeedsTwoPrices(t *testing.T) {
	b := Compute([]float64{100})
	assert.Equal(t, Bundle{Samples: 1}, b)
	assert.False(t, b.Ready())

	assert.Equal(t, Bundle{}, Compute(nil))
}

func TestSMAUsesTail(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.InDelta(t, 8.0, SMA(prices, 5), 1e-9)
	assert.InDelta(t, 5.5, SMA(prices, 10), 1e-9)
	// shorter history averages everything
	assert.InDelta(t, 1.5, SMA([]float64{1, 2}, 5), 1e-9)
}

func TestRSI(t *testing.T) {
	assert.Equal(t, 100.0, RSI([]float64{1, 2, 3, 4}, 14))
	assert.InDelta(t, 50.0, RSI([]float64{1, 2, 1}, 14), 1e-9)

	// only the last 14 changes count: the early crash falls outside the window
	prices := []float64{100, 10}
	for i := 0; i < 14; i++ {
		prices = append(prices, 10+float64(i+1))
	}
	assert.Equal(t, 100.0, RSI(prices, 14))
}

func TestEMA(t *testing.T) {
	assert.Equal(t, 3.0, EMA([]float64{1, 2, 3}, 12))

	prices := []float64{10, 20, 30}
	// k = 2/(2+1)
	ema := 10.0
	ema = 20*(2.0/3) + ema*(1.0/3)
	ema = 30*(2.0/3) + ema*(1.0/3)
	assert.InDelta(t, ema, EMA(prices, 2), 1e-9)
}

func TestBandsPopulationDeviation(t *testing.T) {
	upper, middle, lower := Bands([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 20, 2)
	assert.InDelta(t, 9.0, upper, 1e-6)
	assert.InDelta(t, 5.0, middle, 1e-6)
	assert.InDelta(t, 1.0, lower, 1e-6)
}

func TestComputeShortHistory(t *testing.T) {
	b := Compute([]float64{100, 101})
	assert.True(t, b.Ready())
	assert.Equal(t, 2, b.Samples)
	assert.Equal(t, 100.5, b.SMA5)
	assert.Equal(t, 100.5, b.SMA10)
	assert.Equal(t, 100.0, b.RSI)
	// both EMAs collapse to the last price
	assert.Equal(t, MACD{}, b.MACD)
	assert.Equal(t, 101.5, b.Bollinger.Upper)
	assert.Equal(t, 100.5, b.Bollinger.Middle)
	assert.Equal(t, 99.5, b.Bollinger.Lower)
}

func TestComputeMACDSignalRatio(t *testing.T) {
	prices := make([]float64, 0, 30)
	for i := 0; i < 30; i++ {
		prices = append(prices, 100+float64(i))
	}
	b := Compute(prices)
	line := EMA(prices, MACDFastPeriod) - EMA(prices, MACDSlowPeriod)
	assert.Greater(t, line, 0.0)
	assert.InDelta(t, line, b.MACD.Line, 0.005)
	assert.InDelta(t, line*0.9, b.MACD.Signal, 0.005)
	assert.InDelta(t, line*0.1, b.MACD.Histogram, 0.005)
	assert.Equal(t, 100.0, b.RSI)
}

func TestComputeBandsOrderedAndRSIBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	check := func(prices []float64) {
		b := Compute(prices)
		assert.LessOrEqual(t, b.Bollinger.Lower, b.Bollinger.Middle, "lower band above middle for %v", prices)
		assert.LessOrEqual(t, b.Bollinger.Middle, b.Bollinger.Upper, "middle band above upper for %v", prices)
		assert.GreaterOrEqual(t, b.RSI, 0.0)
		assert.LessOrEqual(t, b.RSI, 100.0)
	}

	for n := 20; n <= 30; n++ {
		flat := make([]float64, n)
		for i := range flat {
			flat[i] = 123.45
		}
		check(flat)
	}

	for round := 0; round < 500; round++ {
		n := 20 + rng.Intn(11)
		prices := make([]float64, n)
		p := 10 + rng.Float64()*200
		for i := range prices {
			p *= 1 + (rng.Float64()-0.5)*0.04
			prices[i] = p
		}
		check(prices)
	}
}
