package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-vault-api/internal/models"
	appErrors "github.com/noah-isme/study-vault-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client), mr
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	var miss models.Note
	require.ErrorIs(t, repo.Get(ctx, "notes:item:n-1", &miss), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "notes:item:n-1", models.Note{ID: "n-1", Title: "Optics"}, time.Minute))
	require.True(t, mr.Exists("notes:item:n-1"))

	var hit models.Note
	require.NoError(t, repo.Get(ctx, "notes:item:n-1", &hit))
	require.Equal(t, "Optics", hit.Title)

	mr.FastForward(2 * time.Minute)
	require.ErrorIs(t, repo.Get(ctx, "notes:item:n-1", &hit), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("notes:list:All:date_desc", "[]"))
	require.NoError(t, mr.Set("notes:item:n-1", "{}"))
	require.NoError(t, mr.Set("sessions:other", "keep"))

	require.NoError(t, repo.DeleteByPattern(ctx, "notes:*"))
	require.False(t, mr.Exists("notes:list:All:date_desc"))
	require.False(t, mr.Exists("notes:item:n-1"))
	require.True(t, mr.Exists("sessions:other"))

	require.NoError(t, repo.DeleteByPattern(ctx, "notes:*"))
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil)
	var dest models.Note
	require.ErrorIs(t, repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(context.Background(), "k", dest, time.Minute))
	require.NoError(t, repo.Ping(context.Background()))
}
