// Package model holds the gorm row types of the sqlite store.
package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"papertrade/internal/account"
)

// AccountModel maps to the accounts table: scalar columns plus one JSON
// column per nested collection.
type AccountModel struct {
	Username          string         `gorm:"column:username;primaryKey"`
	Balance           float64        `gorm:"column:balance"`
	PortfolioJSON     datatypes.JSON `gorm:"column:portfolio_json;type:TEXT"`
	HistoryJSON       datatypes.JSON `gorm:"column:history_json;type:TEXT"`
	WealthHistoryJSON datatypes.JSON `gorm:"column:wealth_history_json;type:TEXT"`
	SnapshotsJSON     datatypes.JSON `gorm:"column:snapshots_json;type:TEXT"`
	BotConfigsJSON    datatypes.JSON `gorm:"column:bot_configs_json;type:TEXT"`
	StatsJSON         datatypes.JSON `gorm:"column:stats_json;type:TEXT"`
	CreatedAtUnix     int64          `gorm:"column:created_at"`
	UpdatedAtUnix     int64          `gorm:"column:updated_at"`
}

func (AccountModel) TableName() string { return "accounts" }

// NewAccountModel flattens an account into a row. Times keep millisecond precision.
func NewAccountModel(a *account.Account) (AccountModel, error) {
	m := AccountModel{
		Username:      account.NormalizeUsername(a.Username),
		Balance:       a.Balance,
		CreatedAtUnix: a.CreatedAt.UnixMilli(),
		UpdatedAtUnix: a.UpdatedAt.UnixMilli(),
	}
	var err error
	if m.PortfolioJSON, err = marshal("portfolio", a.Portfolio); err != nil {
		return m, err
	}
	if m.HistoryJSON, err = marshal("history", a.History); err != nil {
		return m, err
	}
	if m.WealthHistoryJSON, err = marshal("wealth_history", a.WealthHistory); err != nil {
		return m, err
	}
	if m.SnapshotsJSON, err = marshal("snapshots", a.Snapshots); err != nil {
		return m, err
	}
	if m.BotConfigsJSON, err = marshal("bot_configs", a.BotConfigs); err != nil {
		return m, err
	}
	if m.StatsJSON, err = marshal("stats", a.Stats); err != nil {
		return m, err
	}
	return m, nil
}

// Account rebuilds the domain account from a row.
func (m AccountModel) Account() (*account.Account, error) {
	a := &account.Account{
		Username:  m.Username,
		Balance:   m.Balance,
		CreatedAt: time.UnixMilli(m.CreatedAtUnix),
		UpdatedAt: time.UnixMilli(m.UpdatedAtUnix),
	}
	if err := unmarshal("portfolio", m.PortfolioJSON, &a.Portfolio); err != nil {
		return nil, err
	}
	if err := unmarshal("history", m.HistoryJSON, &a.History); err != nil {
		return nil, err
	}
	if err := unmarshal("wealth_history", m.WealthHistoryJSON, &a.WealthHistory); err != nil {
		return nil, err
	}
	if err := unmarshal("snapshots", m.SnapshotsJSON, &a.Snapshots); err != nil {
		return nil, err
	}
	if err := unmarshal("bot_configs", m.BotConfigsJSON, &a.BotConfigs); err != nil {
		return nil, err
	}
	if err := unmarshal("stats", m.StatsJSON, &a.Stats); err != nil {
		return nil, err
	}
	if a.Portfolio == nil {
		a.Portfolio = []account.Position{}
	}
	if a.History == nil {
		a.History = []account.TradeRecord{}
	}
	if a.WealthHistory == nil {
		a.WealthHistory = []account.WealthPoint{}
	}
	if a.BotConfigs == nil {
		a.BotConfigs = map[string]account.BotRule{}
	}
	return a, nil
}

func marshal(field string, v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", field, err)
	}
	return datatypes.JSON(raw), nil
}

func unmarshal(field string, raw datatypes.JSON, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", field, err)
	}
	return nil
}
