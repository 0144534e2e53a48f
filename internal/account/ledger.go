package account

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"papertrade/internal/pkg/convert"
)

const DefaultCommissionRate = 0.0005

// Order is a single buy or sell request against an account.
type Order struct {
	Symbol string
	Amount float64
	Price  float64
	Auto   bool
	Reason Reason
}

// Ledger applies fills to accounts. Bots and manual trades share it so
// commission and cost averaging are identical on both paths.
type Ledger struct {
	CommissionRate float64
	NewID          func() string
}

func NewLedger(commissionRate float64) Ledger {
	return Ledger{CommissionRate: commissionRate}
}

func (l Ledger) id() string {
	if l.NewID != nil {
		return l.NewID()
	}
	return uuid.NewString()
}

func validateOrder(o Order) error {
	if !convert.Finite(o.Amount) || o.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !convert.Finite(o.Price) || o.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Buy debits price×amount plus commission and folds the total into the
// position's average cost. Nothing changes when it returns an error.
func (l Ledger) Buy(a *Account, o Order, now time.Time) (TradeRecord, error) {
	if err := validateOrder(o); err != nil {
		return TradeRecord{}, err
	}
	amount := convert.Decimal(o.Amount)
	gross := convert.Decimal(o.Price).Mul(amount)
	commission := gross.Mul(convert.Decimal(l.CommissionRate))
	total := gross.Add(commission)
	balance := convert.Decimal(a.Balance)
	if balance.LessThan(total) {
		return TradeRecord{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance,
			total.StringFixed(2), balance.StringFixed(2))
	}

	a.Balance = convert.Float(balance.Sub(total))
	if i := a.positionIndex(o.Symbol); i >= 0 {
		pos := &a.Portfolio[i]
		held := convert.Decimal(pos.Amount)
		newAmount := held.Add(amount)
		cost := convert.Decimal(pos.AverageCost).Mul(held).Add(total)
		pos.Amount = convert.Float(newAmount)
		pos.AverageCost = convert.Float(cost.Div(newAmount))
	} else {
		a.Portfolio = append(a.Portfolio, Position{
			Symbol:      o.Symbol,
			Amount:      o.Amount,
			AverageCost: convert.Float(total.Div(amount)),
		})
	}

	rec := TradeRecord{
		ID:         l.id(),
		Type:       SideBuy,
		Symbol:     o.Symbol,
		Amount:     o.Amount,
		Price:      o.Price,
		Commission: convert.Float(commission),
		Gross:      convert.Float(gross),
		Net:        convert.Float(total),
		Time:       now,
		Auto:       o.Auto,
		Reason:     o.Reason,
	}
	a.prepend(rec)
	a.UpdatedAt = now
	return rec, nil
}

// Sell credits price×amount less commission. The average cost of what
// remains is unchanged; a position sold down to zero is removed.
func (l Ledger) Sell(a *Account, o Order, now time.Time) (TradeRecord, error) {
	if err := validateOrder(o); err != nil {
		return TradeRecord{}, err
	}
	i := a.positionIndex(o.Symbol)
	if i < 0 {
		return TradeRecord{}, fmt.Errorf("%w: no %s position", ErrInsufficientShares, o.Symbol)
	}
	pos := a.Portfolio[i]
	amount := convert.Decimal(o.Amount)
	held := convert.Decimal(pos.Amount)
	if held.LessThan(amount) {
		return TradeRecord{}, fmt.Errorf("%w: have %s %s, want %s", ErrInsufficientShares,
			held.String(), o.Symbol, amount.String())
	}

	gross := convert.Decimal(o.Price).Mul(amount)
	commission := gross.Mul(convert.Decimal(l.CommissionRate))
	net := gross.Sub(commission)
	basis := convert.Decimal(pos.AverageCost).Mul(amount)

	a.Balance = convert.Float(convert.Decimal(a.Balance).Add(net))
	remaining := held.Sub(amount)
	if remaining.LessThanOrEqual(decimal.Zero) {
		a.Portfolio = append(a.Portfolio[:i], a.Portfolio[i+1:]...)
	} else {
		a.Portfolio[i].Amount = convert.Float(remaining)
	}

	rec := TradeRecord{
		ID:          l.id(),
		Type:        SideSell,
		Symbol:      o.Symbol,
		Amount:      o.Amount,
		Price:       o.Price,
		Commission:  convert.Float(commission),
		Gross:       convert.Float(gross),
		Net:         convert.Float(net),
		Time:        now,
		Auto:        o.Auto,
		Reason:      o.Reason,
		RealizedPnL: convert.Float(net.Sub(basis)),
		CostBasis:   convert.Float(basis),
	}
	a.prepend(rec)
	a.UpdatedAt = now
	return rec, nil
}

// Execute dispatches on side.
func (l Ledger) Execute(a *Account, side Side, o Order, now time.Time) (TradeRecord, error) {
	switch side {
	case SideBuy:
		return l.Buy(a, o, now)
	case SideSell:
		return l.Sell(a, o, now)
	default:
		return TradeRecord{}, fmt.Errorf("unknown side %q", side)
	}
}
