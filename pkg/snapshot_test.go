package imp

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	store, err := OpenSnapshotStore(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	env := NewEnvironment()
	env.Set("x", Double(0.1))
	env.Set("flag", Bool(true))
	env.Array("a").Set(2, Double(math.Inf(-1)))

	require.NoError(t, store.Save(ctx, "run-1", env))

	got, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, env.String(), got.String())

	v, err := got.Get("x")
	require.NoError(t, err)
	assert.Equal(t, Double(0.1), v)

	empty, err := store.Load(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestSnapshotStoreReplacesRun(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first := NewEnvironment()
	first.Set("old", Double(1))
	require.NoError(t, store.Save(ctx, "run", first))

	second := NewEnvironment()
	second.Set("new", Double(2))
	require.NoError(t, store.Save(ctx, "run", second))

	got, err := store.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, got.Names())
}

func TestOpenSnapshotStoreUnsupported(t *testing.T) {
	_, err := OpenSnapshotStore(context.Background(), "postgres", "")
	assert.Error(t, err)
}

func TestPayload(t *testing.T) {
	for _, val := range []Value{Double(1.25), Double(-0.5), Double(math.Inf(1)), Bool(false)} {
		got, err := decodePayload(val.Kind.String(), encodePayload(val))
		require.NoError(t, err)
		assert.Equal(t, val, got)
	}

	_, err := decodePayload("string", "x")
	assert.Error(t, err)
}
