// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"oficina/internal/infra"
	"oficina/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FastRetry keeps retry tests quick.
var FastRetry = repository.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

// NewDB opens a private in-memory SQLite database with the full schema.
// One connection serializes transactions the way row locks do on Postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, t.Name()) + "_" + uuid.NewString()[:8]
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, infra.RunMigrations(db))
	return db
}

// NewStore wraps db with FastRetry.
func NewStore(t *testing.T, db *gorm.DB) *repository.Store {
	t.Helper()
	return repository.NewStore(db, FastRetry)
}
