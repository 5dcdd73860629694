package testutil

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/relmap/internal/schema"
	"github.com/roach88/relmap/internal/store"
)

// NewStore opens a SQLite store in a temporary directory through the
// pure-Go driver and creates the tables of types. The store is closed
// when the test ends.
func NewStore(t testing.TB, reg *schema.Registry, types ...reflect.Type) *store.Store {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "relmap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	if len(types) > 0 {
		_, err := st.Migrate(ctx, reg, types...)
		require.NoError(t, err)
	}
	return st
}
