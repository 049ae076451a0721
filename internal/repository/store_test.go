package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/fieldops",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestNewStore_BuildsRepositoriesOnSameDB(t *testing.T) {
	db := newDryRunDB(t)
	store := NewStore(db)

	users, ok := store.Users().(*userRepository)
	require.True(t, ok)
	assert.Same(t, db, users.db)

	sessions, ok := store.Sessions().(*sessionRepository)
	require.True(t, ok)
	assert.Same(t, db, sessions.db)

	rollCalls, ok := store.RollCalls().(*rollCallRepository)
	require.True(t, ok)
	assert.Same(t, db, rollCalls.db)

	jobs, ok := store.Jobs().(*jobRepository)
	require.True(t, ok)
	assert.Same(t, db, jobs.db)
}
