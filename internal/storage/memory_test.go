package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

// exerciseCache checks the behaviour every StoryCache driver must share
func exerciseCache(t *testing.T, cache interfaces.StoryCache) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := cache.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put and get", func(t *testing.T) {
		story := &models.Story{
			ID:          "s1",
			Description: "[HEADER]T[/HEADER]\nB",
			Lat:         floatPtr(-6.2),
			Lon:         floatPtr(106.8),
			PhotoData:   []byte{0xff, 0xd8},
			PhotoType:   "image/jpeg",
			SyncState:   models.SyncStatePending,
		}
		require.NoError(t, cache.Put(ctx, story))

		got, err := cache.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, story.Description, got.Description)
		assert.Equal(t, []byte{0xff, 0xd8}, got.PhotoData)
		assert.True(t, got.HasLocation())
		assert.True(t, got.IsPending())
	})

	t.Run("overwrite keeps order", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, &models.Story{ID: "s2"}))
		require.NoError(t, cache.Put(ctx, &models.Story{ID: "s3"}))
		require.NoError(t, cache.Put(ctx, &models.Story{ID: "s2", Description: "replaced"}))

		all, err := cache.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"s1", "s2", "s3"}, ids(all))
		assert.Equal(t, "replaced", all[1].Description)

		again, err := cache.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, ids(all), ids(again))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, cache.Delete(ctx, "s2"))
		require.NoError(t, cache.Delete(ctx, "s2"))

		n, err := cache.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = cache.Get(ctx, "s2")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func ids(stories []models.Story) []string {
	out := make([]string, len(stories))
	for i, s := range stories {
		out[i] = s.ID
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	exerciseCache(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	story := &models.Story{ID: "a", Lat: floatPtr(1), Lon: floatPtr(2)}
	require.NoError(t, st.Put(ctx, story))
	*story.Lat = 99

	got, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, *got.Lat)

	*got.Lat = 42
	again, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, *again.Lat)
}

func TestMemoryStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = st.Put(ctx, &models.Story{ID: fmt.Sprintf("id-%d", i%10)})
		}(i)
	}
	wg.Wait()

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	all, err := st.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}
