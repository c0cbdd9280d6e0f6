package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snaplink-be/internal/cache"
	"snaplink-be/internal/entities"
	"snaplink-be/internal/mocks"
	"snaplink-be/internal/models"
)

const testBaseURL = "http://short.test"

func newTestService(t *testing.T) (*urlService, *mocks.FakeURLRepository, cache.Cache) {
	t.Helper()
	repo := mocks.NewFakeURLRepository()
	cacheClient := cache.NewMemoryCache()
	svc := NewURLService(repo, cacheClient, zap.NewNop(), testBaseURL).(*urlService)
	return svc, repo, cacheClient
}

func strPtr(s string) *string { return &s }

func TestCreateShortURL_GeneratedCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL: "https://example.com/some/long/path",
	}, nil)
	require.NoError(t, err)

	assert.Len(t, resp.ShortCode, 7)
	assert.Equal(t, "https://example.com/some/long/path", resp.OriginalURL)
	assert.Equal(t, testBaseURL+"/"+resp.ShortCode, resp.ShortURL)
	assert.Equal(t, 0, resp.ClickCount)
}

func TestCreateShortURL_ThenResolve(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name string
		url  string
	}{
		{name: "plain URL", url: "https://example.com"},
		{name: "URL with path", url: "https://example.com/path/to/resource"},
		{name: "URL with query params", url: "https://example.com?param=value&other=test"},
		{name: "URL with anchor", url: "https://example.com/page#section"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{URL: tt.url}, nil)
			require.NoError(t, err)

			resolved, err := svc.ResolveURL(context.Background(), resp.ShortCode)
			require.NoError(t, err)
			assert.Equal(t, tt.url, resolved)
		})
	}
}

func TestCreateShortURL_InvalidURL(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "no scheme", url: "example.com/path"},
		{name: "scheme only", url: "https://"},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", 2048)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{URL: tt.url}, nil)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestCreateShortURL_CustomCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL:       "https://example.com/a",
		ShortCode: strPtr("demo"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "demo", resp.ShortCode)
	assert.Equal(t, "https://example.com/a", resp.OriginalURL)
	assert.Equal(t, 0, resp.ClickCount)
}

func TestCreateShortURL_CustomCodeConflict(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL:       "https://example.com/a",
		ShortCode: strPtr("demo"),
	}, nil)
	require.NoError(t, err)

	// Second create with the same code loses, regardless of URL
	_, err = svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL:       "https://other.com",
		ShortCode: strPtr("demo"),
	}, nil)
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestCreateShortURL_CustomCodeValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{name: "too short", code: "ab", wantErr: ErrInvalidCustomCode},
		{name: "too long", code: "abcdefghijk", wantErr: ErrInvalidCustomCode},
		{name: "illegal characters", code: "my code!", wantErr: ErrInvalidCustomCode},
		{name: "reserved route word", code: "health", wantErr: ErrReservedCode},
		{name: "reserved is case-insensitive", code: "Admin", wantErr: ErrReservedCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
				URL:       "https://example.com",
				ShortCode: &tt.code,
			}, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateShortURL_GeneratedCodeRetriesOnCollision(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.FailCreates = 2

	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL: "https://example.com",
	}, nil)
	require.NoError(t, err)
	assert.Len(t, resp.ShortCode, 7)
}

func TestCreateShortURL_GeneratedCodeGivesUpAfterRetries(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.FailCreates = 10

	_, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL: "https://example.com",
	}, nil)
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestCreateShortURL_ExpirationPolicy(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("anonymous default is 24h", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		svc.now = func() time.Time { return now }

		resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
			URL: "https://example.com",
		}, nil)
		require.NoError(t, err)
		require.NotNil(t, resp.ExpiresAt)
		assert.WithinDuration(t, now.Add(24*time.Hour), *resp.ExpiresAt, time.Second)
	})

	t.Run("authenticated default is no expiration", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		svc.now = func() time.Time { return now }

		resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
			URL: "https://example.com",
		}, &models.Principal{ID: "user-1", Role: models.RoleUser})
		require.NoError(t, err)
		assert.Nil(t, resp.ExpiresAt)
	})

	t.Run("explicit future expiration is kept", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		svc.now = func() time.Time { return now }

		future := now.Add(48 * time.Hour)
		resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
			URL:       "https://example.com",
			ExpiresAt: &future,
		}, nil)
		require.NoError(t, err)
		require.NotNil(t, resp.ExpiresAt)
		assert.True(t, resp.ExpiresAt.Equal(future))
	})

	t.Run("past expiration is rejected", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		svc.now = func() time.Time { return now }

		past := now.Add(-time.Minute)
		_, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
			URL:       "https://example.com",
			ExpiresAt: &past,
		}, nil)
		assert.ErrorIs(t, err, ErrExpiresInPast)
	})

	t.Run("expiration equal to now is rejected", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		svc.now = func() time.Time { return now }

		_, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
			URL:       "https://example.com",
			ExpiresAt: &now,
		}, nil)
		assert.ErrorIs(t, err, ErrExpiresInPast)
	})
}

func TestResolveURL_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ResolveURL(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveURL_ExpiredNotCached(t *testing.T) {
	svc, _, _ := newTestService(t)

	future := time.Now().Add(time.Hour)
	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL:       "https://example.com",
		ExpiresAt: &future,
	}, nil)
	require.NoError(t, err)

	// Drop the cache entry, then move past the expiration
	require.NoError(t, svc.cache.Delete(context.Background(), cacheKey(resp.ShortCode)))
	svc.now = func() time.Time { return future.Add(time.Minute) }

	// Expired and absent look identical to the caller
	_, err = svc.ResolveURL(context.Background(), resp.ShortCode)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveURL_ExpiredButCached(t *testing.T) {
	svc, _, _ := newTestService(t)

	future := time.Now().Add(time.Hour)
	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL:       "https://example.com",
		ExpiresAt: &future,
	}, nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return future.Add(time.Minute) }

	// The cache-resident mapping keeps resolving until TTL eviction.
	// Accepted staleness window: cache hits skip the expiration check.
	resolved, err := svc.ResolveURL(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", resolved)

	// Once evicted, the expiration is enforced
	require.NoError(t, svc.cache.Delete(context.Background(), cacheKey(resp.ShortCode)))
	_, err = svc.ResolveURL(context.Background(), resp.ShortCode)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveURL_CacheMissFallsBackAndRefreshes(t *testing.T) {
	svc, _, cacheClient := newTestService(t)

	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL: "https://example.com",
	}, nil)
	require.NoError(t, err)

	require.NoError(t, cacheClient.Delete(context.Background(), cacheKey(resp.ShortCode)))

	resolved, err := svc.ResolveURL(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", resolved)

	// The miss refreshed the cache
	cached, err := cacheClient.Get(context.Background(), cacheKey(resp.ShortCode))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", cached)
}

func TestGetURLInfo_IgnoresExpiration(t *testing.T) {
	svc, _, _ := newTestService(t)

	future := time.Now().Add(time.Hour)
	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL:       "https://example.com",
		ExpiresAt: &future,
	}, nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return future.Add(time.Hour) }

	// Info stays visible after expiry; only resolution is gated
	info, err := svc.GetURLInfo(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", info.OriginalURL)
}

func TestGetURLStats_RecentClicksNewestFirst(t *testing.T) {
	svc, repo, _ := newTestService(t)

	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL: "https://example.com",
	}, nil)
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		require.NoError(t, svc.TrackClick(context.Background(), resp.ShortCode, entities.ClickMetadata{
			UserAgent: "agent",
		}))
	}
	assert.Equal(t, 15, repo.ClickCount(resp.ShortCode))

	stats, err := svc.GetURLStats(context.Background(), resp.ShortCode)
	require.NoError(t, err)

	assert.Equal(t, 15, stats.ClickCount)
	require.Len(t, stats.RecentClicks, 10)
	for i := 1; i < len(stats.RecentClicks); i++ {
		assert.False(t, stats.RecentClicks[i-1].ClickedAt.Before(stats.RecentClicks[i].ClickedAt),
			"recent clicks must be ordered newest first")
	}
}

func TestGetURLStats_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetURLStats(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrackClick_MissingCodeIsSilent(t *testing.T) {
	svc, repo, _ := newTestService(t)

	err := svc.TrackClick(context.Background(), "missing", entities.ClickMetadata{UserAgent: "agent"})
	assert.NoError(t, err)
	assert.Equal(t, 0, repo.ClickCount("missing"))
}

func TestTrackClick_ConcurrentNoLostUpdates(t *testing.T) {
	svc, repo, _ := newTestService(t)

	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL: "https://example.com",
	}, nil)
	require.NoError(t, err)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.TrackClick(context.Background(), resp.ShortCode, entities.ClickMetadata{})
		}()
	}
	wg.Wait()

	info, err := svc.GetURLInfo(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, n, info.ClickCount)
	assert.Equal(t, n, repo.ClickCount(resp.ShortCode))
}

func TestDeleteURL_Authorization(t *testing.T) {
	owner := &models.Principal{ID: "owner-1", Role: models.RoleUser}
	stranger := &models.Principal{ID: "stranger-1", Role: models.RoleUser}
	admin := &models.Principal{ID: "admin-1", Role: models.RoleAdmin}

	tests := []struct {
		name      string
		createdBy *models.Principal
		deletedBy *models.Principal
		wantErr   error
	}{
		{name: "owner deletes own URL", createdBy: owner, deletedBy: owner},
		{name: "admin deletes any URL", createdBy: owner, deletedBy: admin},
		{name: "stranger cannot delete owned URL", createdBy: owner, deletedBy: stranger, wantErr: ErrForbidden},
		{name: "anonymous cannot delete owned URL", createdBy: owner, deletedBy: nil, wantErr: ErrForbidden},
		{name: "anyone may delete anonymous URL", createdBy: nil, deletedBy: stranger},
		{name: "anonymous may delete anonymous URL", createdBy: nil, deletedBy: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)

			resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
				URL: "https://example.com",
			}, tt.createdBy)
			require.NoError(t, err)

			err = svc.DeleteURL(context.Background(), resp.ShortCode, tt.deletedBy)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			// Deleted means gone for resolve and info alike, including
			// the cache entry populated at create time.
			_, err = svc.ResolveURL(context.Background(), resp.ShortCode)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = svc.GetURLInfo(context.Background(), resp.ShortCode)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDeleteURL_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.DeleteURL(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteURL_CascadesClicks(t *testing.T) {
	svc, repo, _ := newTestService(t)

	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL: "https://example.com",
	}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.TrackClick(context.Background(), resp.ShortCode, entities.ClickMetadata{}))
	require.NoError(t, svc.DeleteURL(context.Background(), resp.ShortCode, nil))

	assert.Equal(t, 0, repo.ClickCount(resp.ShortCode))

	// A click racing with the delete lands after the row is gone and
	// must no-op instead of failing or resurrecting anything.
	assert.NoError(t, svc.TrackClick(context.Background(), resp.ShortCode, entities.ClickMetadata{}))
	assert.Equal(t, 0, repo.ClickCount(resp.ShortCode))
}

func TestGetUserURLs(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &models.Principal{ID: "owner-1", Role: models.RoleUser}

	for _, u := range []string{"https://example.com/1", "https://example.com/2"} {
		_, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{URL: u}, owner)
		require.NoError(t, err)
	}
	_, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{URL: "https://example.com/3"}, nil)
	require.NoError(t, err)

	urls, err := svc.GetUserURLs(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestListAllURLs_FilterAndPagination(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &models.Principal{ID: "owner-1", Role: models.RoleUser}

	for i := 0; i < 3; i++ {
		_, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{URL: "https://example.com/owned"}, owner)
		require.NoError(t, err)
	}
	_, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{URL: "https://example.com/anon"}, nil)
	require.NoError(t, err)

	all, err := svc.ListAllURLs(context.Background(), nil, 100, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	owned, err := svc.ListAllURLs(context.Background(), &owner.ID, 100, 0)
	require.NoError(t, err)
	assert.Len(t, owned, 3)

	page, err := svc.ListAllURLs(context.Background(), nil, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

// failingCache errors on every operation, simulating an unreachable
// Redis rather than a mere miss.
type failingCache struct{ err error }

func (f *failingCache) Get(context.Context, string) (string, error) { return "", f.err }

func (f *failingCache) Set(context.Context, string, string, time.Duration) error { return f.err }

func (f *failingCache) Delete(context.Context, string) error { return f.err }

func TestCacheOutage_NeverSurfaces(t *testing.T) {
	repo := mocks.NewFakeURLRepository()
	down := &failingCache{err: errors.New("redis: connection refused")}
	svc := NewURLService(repo, down, zap.NewNop(), testBaseURL).(*urlService)

	// Create, resolve and delete all keep working against the repository
	// alone while every cache call fails.
	resp, err := svc.CreateShortURL(context.Background(), &models.CreateURLRequest{
		URL: "https://example.com/durable",
	}, nil)
	require.NoError(t, err)

	resolved, err := svc.ResolveURL(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/durable", resolved)

	require.NoError(t, svc.DeleteURL(context.Background(), resp.ShortCode, nil))

	_, err = svc.ResolveURL(context.Background(), resp.ShortCode)
	assert.ErrorIs(t, err, ErrNotFound)
}
