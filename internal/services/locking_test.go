// internal/services/locking_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/communityos/tickets-api/internal/models"
)

// newDryRunDB opens a postgres-dialect session that only generates SQL.
// Nothing connects: database/sql defers dialing until the first statement
// executes, and DryRun stops short of executing.
func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=none dbname=none"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestLockForUpdateGeneratesRowLock(t *testing.T) {
	db := newDryRunDB(t)

	var template models.TicketTemplate
	stmt := lockForUpdate(db).Find(&template).Statement

	assert.Contains(t, stmt.SQL.String(), "FOR UPDATE")
}

func TestUnlockedQueryHasNoRowLock(t *testing.T) {
	db := newDryRunDB(t)

	var template models.TicketTemplate
	stmt := db.Find(&template).Statement

	assert.NotContains(t, stmt.SQL.String(), "FOR UPDATE")
}
