// Package account holds the per-user trading state and the primitives that
// mutate it: the ledger (buy/sell), bot rule merges, stats and wealth tracking.
package account

import (
	"errors"
	"strings"
	"time"
)

const DefaultInitialBalance = 100000.00

var (
	ErrUnknownSymbol       = errors.New("unknown symbol")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrInvalidPrice        = errors.New("price must be a positive number")
	ErrInvalidUsername     = errors.New("username is required")
	ErrInvalidSide         = errors.New("side must be BUY or SELL")
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts buy/sell in any case.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

// Reason tags why an autonomous trade fired. Manual trades carry none.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonSignal     Reason = "Signal"
	ReasonStopLoss   Reason = "Stop-Loss"
	ReasonTakeProfit Reason = "Take-Profit"
)

// Position is a holding; Amount is always > 0 and AverageCost includes commission.
type Position struct {
	Symbol      string  `json:"symbol"`
	Amount      float64 `json:"amount"`
	AverageCost float64 `json:"averageCost"`
}

// TradeRecord is immutable once appended to an account's history. Net is the
// cash that moved: cost including commission for buys, proceeds after
// commission for sells.
type TradeRecord struct {
	ID          string    `json:"id"`
	Type        Side      `json:"type"`
	Symbol      string    `json:"symbol"`
	Amount      float64   `json:"amount"`
	Price       float64   `json:"price"`
	Commission  float64   `json:"commission"`
	Gross       float64   `json:"gross"`
	Net         float64   `json:"total"`
	Time        time.Time `json:"date"`
	Auto        bool      `json:"isAuto"`
	Reason      Reason    `json:"reason,omitempty"`
	RealizedPnL float64   `json:"realizedPnl,omitempty"`
	CostBasis   float64   `json:"costBasis,omitempty"`
}

type WealthPoint struct {
	Time   time.Time `json:"time"`
	Wealth float64   `json:"wealth"`
}

// PeriodSnapshot is the wealth observed on the first tick of a period.
type PeriodSnapshot struct {
	Key    string  `json:"date"`
	Wealth float64 `json:"wealth"`
}

type WealthSnapshots struct {
	DayStart   *PeriodSnapshot `json:"dayStart,omitempty"`
	WeekStart  *PeriodSnapshot `json:"weekStart,omitempty"`
	MonthStart *PeriodSnapshot `json:"monthStart,omitempty"`
}

// Account is one user's virtual portfolio. History is newest first.
type Account struct {
	Username      string             `json:"username"`
	Balance       float64            `json:"balance"`
	Portfolio     []Position         `json:"portfolio"`
	History       []TradeRecord      `json:"history"`
	WealthHistory []WealthPoint      `json:"wealthHistory"`
	Snapshots     WealthSnapshots    `json:"wealthSnapshots"`
	BotConfigs    map[string]BotRule `json:"botConfigs"`
	Stats         Stats              `json:"stats"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// NormalizeUsername is the case-insensitive account key.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// New returns a freshly seeded account.
func New(username string, balance float64, now time.Time) *Account {
	a := &Account{
		Username:   NormalizeUsername(username),
		BotConfigs: map[string]BotRule{},
		CreatedAt:  now,
	}
	a.seed(balance, now)
	return a
}

// Reset reseeds the account, keeping its username and bot configuration.
func (a *Account) Reset(balance float64, now time.Time) {
	if a.BotConfigs == nil {
		a.BotConfigs = map[string]BotRule{}
	}
	a.seed(balance, now)
}

func (a *Account) seed(balance float64, now time.Time) {
	if balance <= 0 {
		balance = DefaultInitialBalance
	}
	a.Balance = balance
	a.Portfolio = []Position{}
	a.History = []TradeRecord{}
	a.WealthHistory = []WealthPoint{{Time: now, Wealth: balance}}
	a.Snapshots = WealthSnapshots{}
	a.Stats = Stats{}
	a.UpdatedAt = now
}

// Position returns the holding for symbol.
func (a *Account) Position(symbol string) (Position, bool) {
	if i := a.positionIndex(symbol); i >= 0 {
		return a.Portfolio[i], true
	}
	return Position{}, false
}

func (a *Account) positionIndex(symbol string) int {
	for i := range a.Portfolio {
		if a.Portfolio[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

func (a *Account) prepend(rec TradeRecord) {
	a.History = append([]TradeRecord{rec}, a.History...)
}

// Clone deep-copies the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.Portfolio = append([]Position(nil), a.Portfolio...)
	out.History = append([]TradeRecord(nil), a.History...)
	out.WealthHistory = append([]WealthPoint(nil), a.WealthHistory...)
	if a.Portfolio != nil && out.Portfolio == nil {
		out.Portfolio = []Position{}
	}
	if a.History != nil && out.History == nil {
		out.History = []TradeRecord{}
	}
	if a.WealthHistory != nil && out.WealthHistory == nil {
		out.WealthHistory = []WealthPoint{}
	}
	out.Snapshots = WealthSnapshots{
		DayStart:   clonePeriod(a.Snapshots.DayStart),
		WeekStart:  clonePeriod(a.Snapshots.WeekStart),
		MonthStart: clonePeriod(a.Snapshots.MonthStart),
	}
	if a.BotConfigs != nil {
		out.BotConfigs = make(map[string]BotRule, len(a.BotConfigs))
		for sym, rule := range a.BotConfigs {
			out.BotConfigs[sym] = rule.Clone()
		}
	}
	return &out
}

func clonePeriod(p *PeriodSnapshot) *PeriodSnapshot {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
