package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tour-stitcher/internal/database"
	"tour-stitcher/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	store, err := New(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	store := setupTestStore(t)

	var _ database.DataStore = store
	assert.NotNil(t, store.SubTours())
	assert.NotNil(t, store.Runs())
	assert.NoError(t, store.HealthCheck(context.Background()))
}

func TestNewStore_DBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	store, err := New(path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, path, store.GetDBPath())
	assert.FileExists(t, path)
}

func TestNewStore_InMemory(t *testing.T) {
	store, err := New(":memory:", zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SubTours().Save(ctx, "band_0", []int{2, 1, 0}))

	tour, err := store.SubTours().Load(ctx, "band_0")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, tour)
}

func TestHealthCheckAfterClose(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "closed.db"), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestReopenKeepsSchemaAndData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := New(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.SubTours().Save(ctx, "left", []int{5, 6}))
	require.NoError(t, store.Close())

	store, err = New(path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	tour, err := store.SubTours().Load(ctx, "left")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, tour)
}

func TestSubTours_SaveReplaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SubTours().Save(ctx, "band_1", []int{1, 2, 3, 4}))
	require.NoError(t, store.SubTours().Save(ctx, "band_1", []int{4, 3}))

	tour, err := store.SubTours().Load(ctx, "band_1")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3}, tour)
}

func TestSubTours_LoadMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.SubTours().Load(context.Background(), "right")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSubTours_EmptyTour(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SubTours().Save(ctx, "band_7", []int{}))

	tour, err := store.SubTours().Load(ctx, "band_7")
	require.NoError(t, err)
	assert.Empty(t, tour)
}

func TestSubTours_ListAndClear(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"right", "band_0", "left"} {
		require.NoError(t, store.SubTours().Save(ctx, name, []int{0, 1}))
	}

	names, err := store.SubTours().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"band_0", "left", "right"}, names)

	require.NoError(t, store.SubTours().Clear(ctx))

	names, err = store.SubTours().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	var points int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM subtour_points`).Scan(&points))
	assert.Zero(t, points, "points cascade with their sub-tour")
}

func TestRuns_CreateGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, err := store.Runs().Create(ctx, &models.Run{
		PointCount: 5,
		Clusters:   2,
		Length:     123.45,
		Tour:       []int{4, 0, 3, 1, 2},
	})
	require.NoError(t, err)
	assert.Len(t, created.ID, 36)

	got, err := store.Runs().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 5, got.PointCount)
	assert.Equal(t, 2, got.Clusters)
	assert.InDelta(t, 123.45, got.Length, 1e-9)
	assert.False(t, got.Optimal)
	assert.Equal(t, []int{4, 0, 3, 1, 2}, got.Tour)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Second)
}

func TestRuns_GetMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Runs().GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRuns_ListPaginates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 1; i <= 3; i++ {
		run, err := store.Runs().Create(ctx, &models.Run{PointCount: i, Tour: []int{0}})
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(5 * time.Millisecond)
	}

	runs, total, err := store.Runs().List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Nil(t, runs[0].Tour)

	runs, _, err = store.Runs().List(ctx, 0, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRuns_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.Runs().Create(ctx, &models.Run{PointCount: 2, Tour: []int{1, 0}})
	require.NoError(t, err)

	require.NoError(t, store.Runs().Delete(ctx, run.ID))
	assert.ErrorIs(t, store.Runs().Delete(ctx, run.ID), database.ErrNotFound)

	var rows int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM run_tours`).Scan(&rows))
	assert.Zero(t, rows)
}
