package market

import (
	"context"

	"papertrade/internal/logger"
)

// HistorySource returns the most recent recorded prices for a symbol, oldest first.
type HistorySource interface {
	Recent(ctx context.Context, symbol string, n int) ([]PricePoint, error)
}

// Preheater restores price history at startup so indicators are meaningful
// from the first tick instead of after a full buffer of new prices.
type Preheater struct {
	Source HistorySource
	Points int
}

func NewPreheater(src HistorySource, points int) *Preheater {
	return &Preheater{Source: src, Points: points}
}

// Preheat restores every symbol in t and returns how many were restored.
// Failures are logged per symbol and do not stop the others.
func (p *Preheater) Preheat(ctx context.Context, t *Table) int {
	if p == nil || p.Source == nil || p.Points <= 0 || t == nil {
		return 0
	}
	restored := 0
	for _, sym := range t.Symbols() {
		select {
		case <-ctx.Done():
			return restored
		default:
		}
		points, err := p.Source.Recent(ctx, sym, p.Points)
		if err != nil {
			logger.Warnf("[preheat] load %s failed: %v", sym, err)
			continue
		}
		if len(points) == 0 {
			logger.Debugf("[preheat] %s no recorded prices", sym)
			continue
		}
		if t.Restore(sym, points) {
			restored++
			last := points[len(points)-1]
			logger.Debugf("[preheat] %s points=%d last=%.2f@%s", sym, len(points), last.Price, last.Time.Format("15:04:05"))
		}
	}
	if restored > 0 {
		logger.Infof("[preheat] restored %d/%d instruments", restored, t.Len())
	}
	return restored
}
