package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magick-workers/internal/common/logger"
	"magick-workers/internal/models"
)

const testCacheKey = "catalog:businesses"

type countingLoader struct {
	businesses []models.Business
	err        error
	calls      int
}

func (l *countingLoader) Name() string { return "counting" }

func (l *countingLoader) Load(_ context.Context) ([]models.Business, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return models.CloneBusinesses(l.businesses), nil
}

func sampleBusinesses() []models.Business {
	return []models.Business{
		{ID: "a", Name: "River Tower", City: "Jacksonville", Coord: &models.GeoCoordinate{Lat: 30.3, Lng: -81.6}, Source: "local-sponsor", Tags: []string{"outdoor"}},
		{ID: "b", Name: "Online", Source: "fever", Tags: []string{}},
	}
}

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedLoader_MissThenHit(t *testing.T) {
	mr, client := setupMiniredis(t)
	inner := &countingLoader{businesses: sampleBusinesses()}
	cached := NewCachedLoader(inner, client, testCacheKey, time.Minute, logger.NewTestLogger(t))

	first, err := cached.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.True(t, mr.Exists(testCacheKey))
	assert.Equal(t, time.Minute, mr.TTL(testCacheKey))

	second, err := cached.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, "counting", SourceName(cached))
}

func TestCachedLoader_Expiry(t *testing.T) {
	mr, client := setupMiniredis(t)
	inner := &countingLoader{businesses: sampleBusinesses()}
	cached := NewCachedLoader(inner, client, testCacheKey, time.Minute, logger.NewNoOpLogger())

	_, err := cached.Load(context.Background())
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = cached.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedLoader_CorruptSnapshot(t *testing.T) {
	mr, client := setupMiniredis(t)
	require.NoError(t, mr.Set(testCacheKey, "{not json"))
	inner := &countingLoader{businesses: sampleBusinesses()}
	cached := NewCachedLoader(inner, client, testCacheKey, time.Minute, logger.NewNoOpLogger())

	businesses, err := cached.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, businesses, 2)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedLoader_InnerErrorIsNotCached(t *testing.T) {
	mr, client := setupMiniredis(t)
	inner := &countingLoader{err: errors.New("db down")}
	cached := NewCachedLoader(inner, client, testCacheKey, time.Minute, logger.NewNoOpLogger())

	_, err := cached.Load(context.Background())
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists(testCacheKey))
}

func TestCachedLoader_RedisDown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	inner := &countingLoader{businesses: sampleBusinesses()}
	cached := NewCachedLoader(inner, db, testCacheKey, time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet(testCacheKey).SetErr(errors.New("connection refused"))

	businesses, err := cached.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, businesses, 2)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedLoader_Invalidate(t *testing.T) {
	mr, client := setupMiniredis(t)
	inner := &countingLoader{businesses: sampleBusinesses()}
	cached := NewCachedLoader(inner, client, testCacheKey, time.Minute, logger.NewNoOpLogger())

	_, err := cached.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, cached.Invalidate(context.Background()))
	assert.False(t, mr.Exists(testCacheKey))
}
