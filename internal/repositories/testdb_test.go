package repositories

import (
	"database/sql"
	"testing"

	"siraqemir/internal/testutil"
)

func setupTestDB(t *testing.T) *sql.DB {
	return testutil.OpenSQLite(t)
}
