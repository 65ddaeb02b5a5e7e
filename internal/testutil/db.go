// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated and seeded in-memory sqlite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// an in-memory database lives only as long as its connection
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	require.NoError(t, repository.Seed(context.Background(), db))
	return db
}

func NewStore(t *testing.T) *repository.Store {
	return repository.NewStore(NewDB(t))
}

// Currency returns a seeded currency by code.
func Currency(t *testing.T, store *repository.Store, code string) *model.TypeCurrency {
	t.Helper()
	cur, err := store.CurrencyByCode(context.Background(), code)
	require.NoError(t, err)
	return cur
}

// User creates a verified, active user.
func User(t *testing.T, store *repository.Store, email string) *model.User {
	t.Helper()
	u := &model.User{
		FirstName:  "Test",
		LastName:   "User",
		Email:      email,
		IsVerified: true,
		IsActive:   true,
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

// Analysis creates an analysis for user on USD/EUR.
func Analysis(t *testing.T, store *repository.Store, user *model.User, name string) *model.Analysis {
	t.Helper()
	a := &model.Analysis{
		UserID:            user.ID,
		Name:              name,
		BaseCurrencyID:    Currency(t, store, "USD").ID,
		ForeignCurrencyID: Currency(t, store, "EUR").ID,
	}
	require.NoError(t, store.CreateAnalysis(context.Background(), a))
	return a
}
