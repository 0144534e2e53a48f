package market

import (
	"math/rand"
	"sync"
	"time"

	"papertrade/internal/pkg/convert"
)

const (
	DefaultVolatility = 0.002
	DefaultCapacity   = 20

	minPrice = 0.01
)

// Simulator advances prices with a bounded symmetric random walk.
type Simulator struct {
	volatility float64
	capacity   int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator builds a simulator. A nil src seeds from the clock.
func NewSimulator(volatility float64, capacity int, src rand.Source) *Simulator {
	if volatility <= 0 {
		volatility = DefaultVolatility
	}
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Simulator{volatility: volatility, capacity: capacity, rng: rand.New(src)}
}

func (s *Simulator) Capacity() int { return s.capacity }

func (s *Simulator) draw() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Advance moves inst one step. Change is measured against the base price,
// not the previous one. The returned instrument owns a fresh history slice.
func (s *Simulator) Advance(inst Instrument, now time.Time) Instrument {
	delta := (s.draw() - 0.5) * 2 * s.volatility * inst.Price
	price := convert.Round2(inst.Price + delta)
	if price < minPrice {
		price = minPrice
	}
	out := inst
	out.Price = price
	out.Change = convert.Round2(price - inst.BasePrice)
	if inst.BasePrice != 0 {
		out.ChangePercent = convert.Round2((price - inst.BasePrice) / inst.BasePrice * 100)
	}
	out.History = s.trim(append(append(make([]PricePoint, 0, len(inst.History)+1), inst.History...), PricePoint{Time: now, Price: price}))
	out.Indicators = Analyze(out.History, price)
	return out
}

func (s *Simulator) trim(history []PricePoint) []PricePoint {
	if len(history) <= s.capacity {
		return history
	}
	return history[len(history)-s.capacity:]
}
