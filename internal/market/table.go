package market

import (
	"sort"
	"sync"
	"time"

	"papertrade/internal/pkg/convert"
)

// Table owns the instrument state. The tick is its only writer; readers get copies.
type Table struct {
	mu    sync.RWMutex
	sim   *Simulator
	order []string
	items map[string]Instrument
}

// NewTable creates every catalog instrument at its base price.
func NewTable(defs []Definition, sim *Simulator, now time.Time) *Table {
	t := &Table{
		sim:   sim,
		order: make([]string, 0, len(defs)),
		items: make(map[string]Instrument, len(defs)),
	}
	for _, def := range defs {
		def.Symbol = NormalizeSymbol(def.Symbol)
		if _, dup := t.items[def.Symbol]; dup {
			continue
		}
		t.order = append(t.order, def.Symbol)
		t.items[def.Symbol] = newInstrument(def, now)
	}
	return t
}

// AdvanceAll moves every instrument one step and returns the new snapshot.
func (t *Table) AdvanceAll(now time.Time) []Instrument {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Instrument, 0, len(t.order))
	for _, sym := range t.order {
		next := t.sim.Advance(t.items[sym], now)
		t.items[sym] = next
		out = append(out, next.Clone())
	}
	return out
}

// Snapshot returns deep copies in catalog order.
func (t *Table) Snapshot() []Instrument {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Instrument, 0, len(t.order))
	for _, sym := range t.order {
		out = append(out, t.items[sym].Clone())
	}
	return out
}

// Map returns deep copies keyed by symbol.
func (t *Table) Map() map[string]Instrument {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Instrument, len(t.items))
	for sym, inst := range t.items {
		out[sym] = inst.Clone()
	}
	return out
}

// Get looks a symbol up case-insensitively.
func (t *Table) Get(symbol string) (Instrument, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	inst, ok := t.items[NormalizeSymbol(symbol)]
	if !ok {
		return Instrument{}, false
	}
	return inst.Clone(), true
}

// Prices returns the current price per symbol.
func (t *Table) Prices() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.items))
	for sym, inst := range t.items {
		out[sym] = inst.Price
	}
	return out
}

func (t *Table) Symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := append([]string(nil), t.order...)
	return out
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Restore replaces an instrument's history with previously recorded points
// and resumes the walk from the latest one. Unknown symbols are ignored.
func (t *Table) Restore(symbol string, history []PricePoint) bool {
	if len(history) == 0 {
		return false
	}
	points := append([]PricePoint(nil), history...)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	points = t.sim.trim(points)

	t.mu.Lock()
	defer t.mu.Unlock()
	sym := NormalizeSymbol(symbol)
	inst, ok := t.items[sym]
	if !ok {
		return false
	}
	last := points[len(points)-1].Price
	inst.History = points
	inst.Price = last
	inst.Change = convert.Round2(last - inst.BasePrice)
	if inst.BasePrice != 0 {
		inst.ChangePercent = convert.Round2((last - inst.BasePrice) / inst.BasePrice * 100)
	}
	inst.Indicators = Analyze(points, last)
	t.items[sym] = inst
	return true
}
