// Package gormstore is the sqlite user store, built on gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"papertrade/internal/account"
	applog "papertrade/internal/logger"
	"papertrade/internal/store"
	storemodel "papertrade/internal/store/model"
)

type accountModel = storemodel.AccountModel

// GormStore keeps one row per account in sqlite.
type GormStore struct {
	db *gorm.DB
}

var _ store.UserStore = (*GormStore)(nil)

// NewGormStore opens (and migrates) the database at path.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path is required")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := sqliteDSN(path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewGormStoreFromDB(db)
}

// NewGormStoreFromDB migrates an existing connection.
func NewGormStoreFromDB(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm store: db is nil")
	}
	if err := db.AutoMigrate(&accountModel{}); err != nil {
		return nil, fmt.Errorf("gorm store: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for HTTP reads during a tick.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Find(ctx context.Context, username string) (*account.Account, error) {
	key := account.NormalizeUsername(username)
	var m accountModel
	err := s.db.WithContext(ctx).Where("username = ?", key).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gorm store: find %s: %w", key, err)
	}
	return m.Account()
}

func (s *GormStore) Create(ctx context.Context, a *account.Account) error {
	m, err := newModel(a)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return fmt.Errorf("gorm store: create %s: %w", m.Username, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", m.Username, store.ErrExists)
	}
	return nil
}

func (s *GormStore) Save(ctx context.Context, a *account.Account) error {
	m, err := newModel(a)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, UpdateAll: true}).
		Create(&m).Error
	if err != nil {
		return fmt.Errorf("gorm store: save %s: %w", m.Username, err)
	}
	return nil
}

func (s *GormStore) ListAll(ctx context.Context) ([]*account.Account, error) {
	var models []accountModel
	if err := s.db.WithContext(ctx).Order("username").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm store: list: %w", err)
	}
	out := make([]*account.Account, 0, len(models))
	for _, m := range models {
		a, err := m.Account()
		if err != nil {
			applog.With("component", "gormstore", "user", m.Username).Warnf("list: skipping undecodable row: %v", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func newModel(a *account.Account) (accountModel, error) {
	if a == nil {
		return accountModel{}, fmt.Errorf("gorm store: nil account")
	}
	if account.NormalizeUsername(a.Username) == "" {
		return accountModel{}, account.ErrInvalidUsername
	}
	return storemodel.NewAccountModel(a)
}

// sqliteDSN uses mattn/go-sqlite3 connection parameters.
func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&cache=shared", path)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
