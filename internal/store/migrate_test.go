package store

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relmap/internal/logging"
	"github.com/roach88/relmap/internal/schema"
)

func tableExists(t *testing.T, s *Store, name string) bool {
	t.Helper()
	var n int
	err := s.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrate_CreatesInDependencyOrder(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	s, err := Open(ctx, "sqlite", t.TempDir()+"/m.db", WithLogger(logging.Component(logging.New(false, &logs), "store")))
	require.NoError(t, err)
	defer s.Close()

	states, err := s.Migrate(ctx, schema.NewRegistry(), reflect.TypeFor[Shop]())
	require.NoError(t, err)

	require.Len(t, states, 2)
	assert.Equal(t, "Region", states[0].Table)
	assert.Equal(t, "Shop", states[1].Table)
	for _, st := range states {
		assert.True(t, st.Created)
		assert.Equal(t, int64(1), st.Seq)
		assert.Len(t, st.Fingerprint, 64)
	}

	assert.True(t, tableExists(t, s, "Region"))
	assert.True(t, tableExists(t, s, "Shop"))
	assert.Contains(t, logs.String(), "table created")

	var idx int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = 'Shop' AND name LIKE '%X_Shop_%'`).Scan(&idx))
	assert.Equal(t, 2, idx)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := schema.NewRegistry()

	_, err := s.Migrate(ctx, reg, reflect.TypeFor[Region]())
	require.NoError(t, err)

	states, err := s.Migrate(ctx, reg, reflect.TypeFor[Shop](), reflect.TypeFor[Region]())
	require.NoError(t, err)
	require.Len(t, states, 2)

	assert.False(t, states[0].Created)
	assert.Equal(t, int64(1), states[0].Seq)
	assert.True(t, states[1].Created)
	assert.Equal(t, int64(2), states[1].Seq)

	states, err = s.Migrate(ctx, reg, reflect.TypeFor[Shop]())
	require.NoError(t, err)
	for _, st := range states {
		assert.False(t, st.Created, st.Table)
	}
}

func TestMigrate_DetectsDrift(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := schema.NewRegistry()

	_, err := s.Migrate(ctx, reg, reflect.TypeFor[Shop]())
	require.NoError(t, err)

	_, err = s.Migrate(ctx, reg, reflect.TypeFor[Grown]())
	require.ErrorIs(t, err, ErrSchemaDrift)
	assert.Contains(t, err.Error(), "Shop (recorded ")
}

func TestMigrate_DriftCreatesNothing(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	reg := schema.NewRegistry()

	_, err := s.Migrate(ctx, reg, reflect.TypeFor[Grown]())
	require.NoError(t, err)

	// Shop drifts against Grown's record, so Region must not be created either.
	_, err = s.Migrate(ctx, reg, reflect.TypeFor[Shop]())
	require.ErrorIs(t, err, ErrSchemaDrift)
	assert.False(t, tableExists(t, s, "Region"))
}

func TestMigrate_SkipsQueryBacked(t *testing.T) {
	s := createTestStore(t)

	states, err := s.Migrate(context.Background(), schema.NewRegistry(), reflect.TypeFor[Report]())
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestFingerprint_StableAndShapeSensitive(t *testing.T) {
	reg := schema.NewRegistry()
	shop, err := schema.For[Shop](reg)
	require.NoError(t, err)
	grown, err := schema.For[Grown](reg)
	require.NoError(t, err)

	a, err := Fingerprint(shop)
	require.NoError(t, err)
	b, err := Fingerprint(shop)
	require.NoError(t, err)
	c, err := Fingerprint(grown)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
