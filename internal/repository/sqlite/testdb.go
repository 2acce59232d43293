package sqlite

import (
	"testing"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/database"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository"
)

// NewTestStore returns a Store over a fresh in-memory database with the
// schema applied. It is closed when the test ends.
func NewTestStore(t testing.TB) repository.Store {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	store := repository.NewStore(NewDriver(db), 0)
	t.Cleanup(store.Close)
	return store
}
