package gormstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"trueheal-portal/internal/store"
	"trueheal-portal/internal/store/storetest"
)

// Needs a disposable MySQL database, e.g.
// MYSQL_TEST_DSN="root:root@tcp(localhost:3306)/trueheal_test?parseTime=True&loc=UTC"
func TestStoreContract(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}

	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	storetest.Run(t, func(t *testing.T) store.Store {
		for _, table := range []string{"appointments", "users", "reports", "contact_messages", "departments"} {
			require.NoError(t, s.db.Exec("DELETE FROM "+table).Error)
		}
		return s
	})
}
