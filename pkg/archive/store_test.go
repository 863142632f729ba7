package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "evaluations.db")),
	}
	for name, s := range stores {
		require.NoError(t, s.Init(context.Background()), name)
		t.Cleanup(func() { _ = s.Close() })
	}
	return stores
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC)
	first := Record{
		Key:        "lum_1_4.21_0.38",
		Parameters: []float64{1, 4.21, 0.38},
		Objectives: []float64{0.01, 0.02, 0, 0.1, 1e-4},
		Status:     "ok",
		Duration:   1500 * time.Millisecond,
		CreatedAt:  created,
	}
	failed := Record{
		Key:        "lum_0.5_2_0.4",
		Parameters: []float64{0.5, 2, 0.4},
		Objectives: []float64{1e10, 1e10, 1e10, 1e10, 1e10},
		Status:     "oracle-failed",
		Error:      "solver exited with status 3",
		CreatedAt:  created,
	}

	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, first))
			require.NoError(t, s.Put(ctx, failed))

			got, err := s.Get(ctx, first.Key)
			require.NoError(t, err)
			if diff := cmp.Diff(first, got); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}

			_, err = s.Get(ctx, "lum_missing")
			assert.ErrorIs(t, err, ErrNotFound)

			// Replacing keeps the insertion position.
			updated := first
			updated.Status = "cached"
			require.NoError(t, s.Put(ctx, updated))

			all, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "cached", all[0].Status)
			assert.Equal(t, failed.Error, all[1].Error)
		})
	}
}

func TestMemoryStoreCopiesSlices(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Init(ctx))
	params := []float64{1, 2}
	require.NoError(t, s.Put(ctx, Record{Key: "k", Parameters: params}))
	params[0] = 9
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got.Parameters)
}

func TestUninitializedStores(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, NewMemoryStore().Put(ctx, Record{Key: "k"}))
	assert.Error(t, NewSQLiteStore("x.db").Put(ctx, Record{Key: "k"}))
	assert.Error(t, NewSQLiteStore("").Init(ctx))
	assert.NoError(t, NewSQLiteStore("x.db").Close())
}

func TestNewStore(t *testing.T) {
	s, err := NewStore("", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	s, err = NewStore("sqlite", "run.db")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	_, err = NewStore("redis", "")
	assert.Error(t, err)
}
