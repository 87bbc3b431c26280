// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/models"
)

// Open returns a migrated, empty database private to t.
func Open(t testing.TB) *database.Database {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenSQLite(dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// Users creates one user per name and returns them in order; ids start at 1
// on a fresh database.
func Users(t testing.TB, db *database.Database, names ...string) []models.User {
	t.Helper()

	users := make([]models.User, 0, len(names))
	for _, name := range names {
		u := models.User{
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: "x",
		}
		require.NoError(t, db.SaveUser(context.Background(), &u))
		users = append(users, u)
	}
	return users
}
