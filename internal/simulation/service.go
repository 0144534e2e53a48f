// Package simulation ties the market table, the bot engine and the user store
// together: the periodic tick plus the request-driven account operations.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"papertrade/internal/account"
	"papertrade/internal/bot"
	"papertrade/internal/logger"
	"papertrade/internal/market"
	"papertrade/internal/observability"
	"papertrade/internal/store"
)

// Snapshot is what a tick publishes to listeners.
type Snapshot struct {
	At          time.Time           `json:"time"`
	Instruments []market.Instrument `json:"instruments"`
}

// PriceRecorder persists each tick's prices; the journal implements it.
type PriceRecorder interface {
	Append(ctx context.Context, at time.Time, prices map[string]float64) error
}

type Options struct {
	CommissionRate float64
	InitialBalance float64
	WealthCapacity int
	Location       *time.Location
	Clock          func() time.Time
}

// TickReport summarizes one tick.
type TickReport struct {
	At     time.Time
	Users  int
	Failed int
	Trades int
}

type Service struct {
	table   *market.Table
	store   store.UserStore
	ledger  account.Ledger
	engine  *bot.Engine
	wealth  account.WealthTracker
	metrics *observability.Metrics

	initialBalance float64
	now            func() time.Time
	locks          *keyedMutex
	log            logger.Entry

	mu        sync.RWMutex
	recorder  PriceRecorder
	listeners []func(Snapshot)
}

func NewService(table *market.Table, users store.UserStore, opts Options, metrics *observability.Metrics) *Service {
	ledger := account.NewLedger(opts.CommissionRate)
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	balance := opts.InitialBalance
	if balance <= 0 {
		balance = account.DefaultInitialBalance
	}
	return &Service{
		table:          table,
		store:          users,
		ledger:         ledger,
		engine:         bot.NewEngine(ledger),
		wealth:         account.NewWealthTracker(opts.WealthCapacity, opts.Location),
		metrics:        metrics,
		initialBalance: balance,
		now:            clock,
		locks:          newKeyedMutex(),
		log:            logger.With("component", "simulation"),
	}
}

// SetRecorder installs the price journal; nil disables recording.
func (s *Service) SetRecorder(r PriceRecorder) {
	s.mu.Lock()
	s.recorder = r
	s.mu.Unlock()
}

// Subscribe registers fn to receive every tick's snapshot. fn runs on the
// tick goroutine and must not block.
func (s *Service) Subscribe(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Market returns a read-only copy of every instrument.
func (s *Service) Market() []market.Instrument {
	return s.table.Snapshot()
}

// Tick advances prices, then runs the bot and wealth pass for every account
// one at a time. An account that fails to load or save is logged and skipped.
// Panics are recovered and reported as the tick's error.
func (s *Service) Tick(ctx context.Context, now time.Time) (rep TickReport, err error) {
	start := time.Now()
	rep.At = now
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
			s.log.Errorf("tick panicked: %v\n%s", r, debug.Stack())
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.ObserveTick(time.Since(start), status, rep.Users)
	}()

	// A tick started before shutdown runs to completion.
	ctx = context.WithoutCancel(ctx)

	snapshot := s.table.AdvanceAll(now)
	instruments := make(map[string]market.Instrument, len(snapshot))
	prices := make(map[string]float64, len(snapshot))
	for _, inst := range snapshot {
		instruments[inst.Symbol] = inst
		prices[inst.Symbol] = inst.Price
		s.metrics.RecordInstrument(inst.Symbol, inst.Price, inst.Indicators.Recommendation.String())
	}

	err = s.runUsers(ctx, instruments, prices, now, &rep)
	s.publish(Snapshot{At: now, Instruments: snapshot})
	s.record(ctx, now, prices)
	if rep.Trades > 0 || rep.Failed > 0 {
		s.log.Infof("tick users=%d trades=%d failed=%d took=%s", rep.Users, rep.Trades, rep.Failed, time.Since(start).Round(time.Millisecond))
	}
	return rep, err
}

func (s *Service) runUsers(ctx context.Context, instruments map[string]market.Instrument, prices map[string]float64, now time.Time, rep *TickReport) error {
	accounts, err := s.store.ListAll(ctx)
	if err != nil {
		s.metrics.RecordPersistenceError("list")
		return fmt.Errorf("list accounts: %w", err)
	}
	for _, listed := range accounts {
		rep.Users++
		trades, err := s.processUser(ctx, listed.Username, instruments, prices, now)
		if err != nil {
			rep.Failed++
			s.log.With("user", listed.Username).Errorf("tick skipped: %v", err)
			continue
		}
		rep.Trades += trades
	}
	return nil
}

// processUser reloads the account under its lock so a manual trade that
// landed after ListAll is not overwritten.
func (s *Service) processUser(ctx context.Context, username string, instruments map[string]market.Instrument, prices map[string]float64, now time.Time) (int, error) {
	unlock := s.locks.Lock(username)
	defer unlock()

	a, err := s.store.Find(ctx, username)
	if err != nil {
		s.metrics.RecordPersistenceError("find")
		return 0, err
	}
	trades := s.engine.ExecuteTick(a, instruments, now)
	s.wealth.Update(a, prices, now)
	a.RefreshStats()
	if err := s.store.Save(ctx, a); err != nil {
		s.metrics.RecordPersistenceError("save")
		return 0, err
	}
	for _, t := range trades {
		s.metrics.RecordBotTrade(string(t.Type), string(t.Reason))
		logTrade(a.Username, "BOT", t)
	}
	return len(trades), nil
}

func (s *Service) publish(snap Snapshot) {
	s.mu.RLock()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Errorf("snapshot listener panicked: %v", r)
				}
			}()
			fn(snap)
		}()
	}
}

func (s *Service) record(ctx context.Context, now time.Time, prices map[string]float64) {
	s.mu.RLock()
	rec := s.recorder
	s.mu.RUnlock()
	if rec == nil {
		return
	}
	if err := rec.Append(ctx, now, prices); err != nil {
		s.log.Warnf("journal append failed: %v", err)
	}
}

// Login returns the account, creating a seeded one on first use.
func (s *Service) Login(ctx context.Context, username string) (*account.Account, error) {
	key := account.NormalizeUsername(username)
	if key == "" {
		return nil, account.ErrInvalidUsername
	}
	unlock := s.locks.Lock(key)
	defer unlock()

	a, err := s.store.Find(ctx, key)
	if err == nil {
		a.RefreshStats()
		return a, nil
	}
	if !store.IsNotFound(err) {
		return nil, err
	}
	a = account.New(key, s.initialBalance, s.now())
	if err := s.store.Create(ctx, a); err != nil {
		if !errors.Is(err, store.ErrExists) {
			return nil, err
		}
		if a, err = s.store.Find(ctx, key); err != nil {
			return nil, err
		}
		a.RefreshStats()
		return a, nil
	}
	s.log.With("user", key).Infof("account created balance=%.2f", a.Balance)
	return a, nil
}

// Account returns the stored account with freshly computed stats.
func (s *Service) Account(ctx context.Context, username string) (*account.Account, error) {
	key := account.NormalizeUsername(username)
	if key == "" {
		return nil, account.ErrInvalidUsername
	}
	a, err := s.store.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	a.RefreshStats()
	return a, nil
}

// TradeResult is the structured outcome of a manual trade. Err carries the
// cause for callers that map it to a status code.
type TradeResult struct {
	Success bool                 `json:"success"`
	Account *account.Account     `json:"data,omitempty"`
	Trade   *account.TradeRecord `json:"trade,omitempty"`
	Message string               `json:"message,omitempty"`
	Err     error                `json:"-"`
}

func failed(err error) TradeResult {
	return TradeResult{Success: false, Message: err.Error(), Err: err}
}

// ManualTrade buys or sells at the current price with the same commission
// and averaging as the bots. It is all-or-nothing.
func (s *Service) ManualTrade(ctx context.Context, username, symbol string, amount float64, side string) TradeResult {
	res := s.manualTrade(ctx, username, symbol, amount, side)
	status := "ok"
	if !res.Success {
		status = "rejected"
	}
	label := "invalid"
	if sd, ok := account.ParseSide(side); ok {
		label = string(sd)
	}
	s.metrics.RecordManualTrade(label, status)
	return res
}

func (s *Service) manualTrade(ctx context.Context, username, symbol string, amount float64, side string) TradeResult {
	key := account.NormalizeUsername(username)
	if key == "" {
		return failed(account.ErrInvalidUsername)
	}
	sd, ok := account.ParseSide(side)
	if !ok {
		return failed(fmt.Errorf("%w, got %q", account.ErrInvalidSide, side))
	}
	inst, ok := s.table.Get(symbol)
	if !ok {
		return failed(fmt.Errorf("%w: %s", account.ErrUnknownSymbol, market.NormalizeSymbol(symbol)))
	}

	unlock := s.locks.Lock(key)
	defer unlock()
	a, err := s.store.Find(ctx, key)
	if err != nil {
		return failed(err)
	}
	rec, err := s.ledger.Execute(a, sd, account.Order{
		Symbol: inst.Symbol,
		Amount: amount,
		Price:  inst.Price,
	}, s.now())
	if err != nil {
		return failed(err)
	}
	a.RefreshStats()
	if err := s.store.Save(ctx, a); err != nil {
		s.metrics.RecordPersistenceError("save")
		return failed(fmt.Errorf("save account: %w", err))
	}
	logTrade(a.Username, "MANUAL", rec)
	return TradeResult{Success: true, Account: a, Trade: &rec}
}

// UpdateBotRule merges patch into the rule for symbol and returns the whole
// bot configuration.
func (s *Service) UpdateBotRule(ctx context.Context, username, symbol string, patch account.BotRulePatch) (map[string]account.BotRule, error) {
	key := account.NormalizeUsername(username)
	if key == "" {
		return nil, account.ErrInvalidUsername
	}
	sym := market.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, fmt.Errorf("%w: empty symbol", account.ErrUnknownSymbol)
	}
	if patch.Amount != nil && *patch.Amount < 0 {
		return nil, account.ErrInvalidAmount
	}

	unlock := s.locks.Lock(key)
	defer unlock()
	a, err := s.store.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	cfg := a.ApplyBotRule(sym, patch)
	a.UpdatedAt = s.now()
	if err := s.store.Save(ctx, a); err != nil {
		s.metrics.RecordPersistenceError("save")
		return nil, fmt.Errorf("save account: %w", err)
	}
	rule := cfg[sym]
	s.log.With("user", key).Infof("bot rule %s active=%t amount=%s", sym, rule.Active, strconv.FormatFloat(rule.OrderAmount(), 'f', -1, 64))
	return a.Clone().BotConfigs, nil
}

// ResetAccount reseeds the account, keeping its username and bot rules.
func (s *Service) ResetAccount(ctx context.Context, username string) (*account.Account, error) {
	key := account.NormalizeUsername(username)
	if key == "" {
		return nil, account.ErrInvalidUsername
	}
	unlock := s.locks.Lock(key)
	defer unlock()
	a, err := s.store.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	a.Reset(s.initialBalance, s.now())
	if err := s.store.Save(ctx, a); err != nil {
		s.metrics.RecordPersistenceError("save")
		return nil, fmt.Errorf("save account: %w", err)
	}
	s.log.With("user", key).Infof("account reset balance=%.2f", a.Balance)
	return a, nil
}

func logTrade(user, origin string, t account.TradeRecord) {
	logger.Trade(user, origin,
		string(t.Type),
		t.Symbol,
		"amount="+strconv.FormatFloat(t.Amount, 'f', -1, 64),
		"price="+strconv.FormatFloat(t.Price, 'f', 2, 64),
		"commission="+strconv.FormatFloat(t.Commission, 'f', 4, 64),
		"total="+strconv.FormatFloat(t.Net, 'f', 2, 64),
		string(t.Reason),
	)
}
