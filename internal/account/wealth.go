package account

import (
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/pkg/convert"
)

const DefaultWealthCapacity = 30

const (
	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"
)

// WealthTracker appends mark-to-market wealth points and keeps the
// day/week/month start snapshots.
type WealthTracker struct {
	Capacity int
	Location *time.Location
}

func NewWealthTracker(capacity int, loc *time.Location) WealthTracker {
	if capacity <= 0 {
		capacity = DefaultWealthCapacity
	}
	if loc == nil {
		loc = time.Local
	}
	return WealthTracker{Capacity: capacity, Location: loc}
}

// TotalWealth is cash plus holdings at the given prices. Symbols without a
// price contribute nothing.
func TotalWealth(a *Account, prices map[string]float64) float64 {
	total := convert.Decimal(a.Balance)
	for _, pos := range a.Portfolio {
		price, ok := prices[pos.Symbol]
		if !ok {
			continue
		}
		total = total.Add(convert.Decimal(price).Mul(convert.Decimal(pos.Amount)))
	}
	return convert.Float(total)
}

// Update records the current wealth and returns it. The history is trimmed
// oldest first; each period snapshot is replaced only when its key changes.
func (w WealthTracker) Update(a *Account, prices map[string]float64, now time.Time) float64 {
	wealth := TotalWealth(a, prices)
	a.WealthHistory = append(a.WealthHistory, WealthPoint{Time: now, Wealth: wealth})
	if capacity := w.capacity(); len(a.WealthHistory) > capacity {
		a.WealthHistory = append([]WealthPoint(nil), a.WealthHistory[len(a.WealthHistory)-capacity:]...)
	}

	day, week, month := PeriodKeys(now, w.Location)
	a.Snapshots.DayStart = rollPeriod(a.Snapshots.DayStart, day, wealth)
	a.Snapshots.WeekStart = rollPeriod(a.Snapshots.WeekStart, week, wealth)
	a.Snapshots.MonthStart = rollPeriod(a.Snapshots.MonthStart, month, wealth)
	a.UpdatedAt = now
	return wealth
}

func (w WealthTracker) capacity() int {
	if w.Capacity <= 0 {
		return DefaultWealthCapacity
	}
	return w.Capacity
}

func rollPeriod(cur *PeriodSnapshot, key string, wealth float64) *PeriodSnapshot {
	if cur != nil && cur.Key == key {
		return cur
	}
	return &PeriodSnapshot{Key: key, Wealth: wealth}
}

// PeriodKeys returns the calendar date, the date of the ISO week's Monday and
// the year-month of now in loc.
func PeriodKeys(now time.Time, loc *time.Location) (day, week, month string) {
	if loc != nil {
		now = now.In(loc)
	}
	offset := (int(now.Weekday()) + 6) % 7 // days since Monday
	monday := now.AddDate(0, 0, -offset)
	return now.Format(dayKeyLayout), monday.Format(dayKeyLayout), now.Format(monthKeyLayout)
}

// PeriodChange is the profit or loss since a period snapshot, in currency
// and percent. A missing snapshot reports zero.
func PeriodChange(snap *PeriodSnapshot, wealth float64) (abs, pct float64) {
	if snap == nil || snap.Wealth == 0 {
		return 0, 0
	}
	diff := convert.Decimal(wealth).Sub(convert.Decimal(snap.Wealth))
	abs = convert.Round2(convert.Float(diff))
	pct = convert.Round2(convert.Float(diff.Div(convert.Decimal(snap.Wealth)).Mul(decimal.NewFromInt(100))))
	return abs, pct
}
