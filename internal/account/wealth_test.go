package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodKeys(t *testing.T) {
	tests := []struct {
		at                time.Time
		day, week, month string
	}{
		{time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC), "2024-03-06", "2024-03-04", "2024-03"},
		{time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), "2024-03-04", "2024-03-04", "2024-03"},
		{time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), "2024-03-10", "2024-03-04", "2024-03"},
		// ISO week crosses the month and year boundary
		{time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC), "2025-01-01", "2024-12-30", "2025-01"},
	}
	for _, tt := range tests {
		day, week, month := PeriodKeys(tt.at, time.UTC)
		assert.Equal(t, tt.day, day)
		assert.Equal(t, tt.week, week)
		assert.Equal(t, tt.month, month)
	}

	ist := time.FixedZone("TRT", 3*3600)
	day, _, _ := PeriodKeys(time.Date(2024, 3, 6, 22, 30, 0, 0, time.UTC), ist)
	assert.Equal(t, "2024-03-07", day, "keys follow the configured zone")
}

func TestWealthHistoryIsFIFO(t *testing.T) {
	a := New("jack", 1000, now)
	w := NewWealthTracker(3, time.UTC)
	for i := 1; i <= 5; i++ {
		w.Update(a, nil, now.Add(time.Duration(i)*time.Minute))
	}
	require.Len(t, a.WealthHistory, 3)
	assert.Equal(t, now.Add(3*time.Minute), a.WealthHistory[0].Time)
	assert.Equal(t, now.Add(5*time.Minute), a.WealthHistory[2].Time)
}

func TestTotalWealthMarksToMarket(t *testing.T) {
	a := New("kim", 1000, now)
	a.Portfolio = []Position{{Symbol: "A", Amount: 2, AverageCost: 10}, {Symbol: "GONE", Amount: 5, AverageCost: 1}}
	assert.Equal(t, 1030.0, TotalWealth(a, map[string]float64{"A": 15}))
}

func TestPeriodSnapshotsRollOncePerPeriod(t *testing.T) {
	a := New("lee", 1000, now)
	w := NewWealthTracker(30, time.UTC)

	w.Update(a, nil, now)
	require.NotNil(t, a.Snapshots.DayStart)
	assert.Equal(t, PeriodSnapshot{Key: "2024-03-06", Wealth: 1000}, *a.Snapshots.DayStart)

	a.Balance = 1200
	w.Update(a, nil, now.Add(2*time.Hour))
	assert.Equal(t, 1000.0, a.Snapshots.DayStart.Wealth, "same day keeps the first snapshot")
	assert.Equal(t, 1000.0, a.Snapshots.WeekStart.Wealth)

	a.Balance = 1300
	w.Update(a, nil, now.Add(24*time.Hour))
	assert.Equal(t, PeriodSnapshot{Key: "2024-03-07", Wealth: 1300}, *a.Snapshots.DayStart)
	assert.Equal(t, 1000.0, a.Snapshots.WeekStart.Wealth)
	assert.Equal(t, 1000.0, a.Snapshots.MonthStart.Wealth)

	a.Balance = 1400
	w.Update(a, nil, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, PeriodSnapshot{Key: "2024-03-11", Wealth: 1400}, *a.Snapshots.WeekStart)
	assert.Equal(t, "2024-03", a.Snapshots.MonthStart.Key)
	assert.Equal(t, 1000.0, a.Snapshots.MonthStart.Wealth)
}

func TestPeriodChange(t *testing.T) {
	abs, pct := PeriodChange(&PeriodSnapshot{Key: "k", Wealth: 1000}, 1025)
	assert.Equal(t, 25.0, abs)
	assert.Equal(t, 2.5, pct)

	abs, pct = PeriodChange(nil, 1025)
	assert.Zero(t, abs)
	assert.Zero(t, pct)
}
