package repo_test

import (
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/travel-planner/backend/testutil"
)

// newTestTx returns a transaction that is rolled back when the test finishes.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	return testutil.NewTx(t)
}
