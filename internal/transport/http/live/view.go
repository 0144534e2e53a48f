package livehttp

import (
	"papertrade/internal/account"
	"papertrade/internal/pkg/convert"
)

// PeriodChange is wealth movement since the start of a day, week or month.
type PeriodChange struct {
	Since   string  `json:"since,omitempty"`
	Change  float64 `json:"change"`
	Percent float64 `json:"percent"`
}

// AccountView is the account as the client renders it: the stored document
// plus values derived from current prices.
type AccountView struct {
	*account.Account
	Wealth      float64      `json:"totalWealth"`
	DayChange   PeriodChange `json:"dayChange"`
	WeekChange  PeriodChange `json:"weekChange"`
	MonthChange PeriodChange `json:"monthChange"`
}

func NewAccountView(a *account.Account, prices map[string]float64) AccountView {
	wealth := account.TotalWealth(a, prices)
	return AccountView{
		Account:     a,
		Wealth:      convert.Round2(wealth),
		DayChange:   periodChange(a.Snapshots.DayStart, wealth),
		WeekChange:  periodChange(a.Snapshots.WeekStart, wealth),
		MonthChange: periodChange(a.Snapshots.MonthStart, wealth),
	}
}

func periodChange(snap *account.PeriodSnapshot, wealth float64) PeriodChange {
	abs, pct := account.PeriodChange(snap, wealth)
	out := PeriodChange{Change: abs, Percent: pct}
	if snap != nil {
		out.Since = snap.Key
	}
	return out
}
