package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("record not found")

// Store is the gorm-backed persistence layer. Methods are grouped by entity
// across the files of this package.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.ConnString()
	if dsn == "" {
		return nil, fmt.Errorf("database is not configured")
	}

	logLevel := logger.Warn
	if cfg.Debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 连接池设置
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	return db, nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&model.TypeCurrency{},
		&model.TypeStatus{},
		&model.TypeTool{},
		&model.TypeCategory{},
		&model.TypeAnalysisRole{},
		&model.TypeUserRole{},
		&model.Organization{},
		&model.User{},
		&model.UserPreferences{},
		&model.OTP{},
		&model.SSO{},
		&model.Analysis{},
		&model.AnalysisUserShareMap{},
		&model.AnalysisOrganizationShareMap{},
		&model.Workspace{},
		&model.SimulationEnvironment{},
		&model.Strategy{},
		&model.StrategyLeg{},
		&model.StrategySimulation{},
		&model.StrategyInstance{},
		&model.MarginSimulation{},
		&model.HedgeSimulation{},
		&model.FxCurrencyPair{},
		&model.FwdEfficiency{},
		&model.SpotHistory{},
		&model.FxMovement{},
		&model.SpotHistoryData{},
		&model.ServiceLog{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a Store bound to a single transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
