package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: magick\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, CatalogSourceStatic, cfg.Catalog.Source)
	assert.Equal(t, 3, cfg.Recommendation.MaxResults)
	assert.Equal(t, "jacksonville", cfg.Recommendation.DefaultMarket)
	assert.Equal(t, "affiliate", cfg.Recommendation.DefaultMode)
	assert.Equal(t, ModeStoreMemory, cfg.Recommendation.ModeStore)
	assert.Equal(t, "recommend:monetization_mode", cfg.Recommendation.ModeKey)
	assert.Equal(t, "businesses", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, "businesses", cfg.Firestore.Collection)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "magick", cfg.Observability.ServiceName)
	assert.False(t, cfg.NeedsPostgres())
	assert.False(t, cfg.NeedsRedis())
}

func TestLoadFromFile_FullConfig(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "s3cret")

	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: magick
    user: magick
    password: ${TEST_PG_PASSWORD}
  redis:
    address: localhost:6379
catalog:
  source: POSTGRES
  cache_ttl: 60000
  fallback_to_static: true
recommendation:
  default_mode: sponsor
  mode_store: redis
affiliate:
  enabled: true
  programs:
    viator:
      affiliate_id: P00012345
workers:
  recommend-nearby:
    enabled: true
    timeout: 5000
tracking:
  enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, CatalogSourcePostgres, cfg.Catalog.Source)
	assert.True(t, cfg.Catalog.FallbackToStatic)
	assert.Equal(t, time.Minute, GetDuration(cfg.Catalog.CacheTTL))
	assert.Equal(t, "sponsor", cfg.Recommendation.DefaultMode)
	assert.Equal(t, "P00012345", cfg.Affiliate.Programs["viator"].AffiliateID)
	assert.True(t, cfg.NeedsPostgres())
	assert.True(t, cfg.NeedsRedis())

	wc := GetWorkerConfig(cfg, "recommend-nearby")
	assert.Equal(t, 5000, wc.Timeout)
	assert.Equal(t, 5, wc.MaxJobsActive)
	assert.Equal(t, 3, wc.MaxRetries)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown catalog source", "catalog:\n  source: mongo\n"},
		{"unknown mode store", "recommendation:\n  mode_store: etcd\n"},
		{"bad default mode", "recommendation:\n  default_mode: free\n"},
		{"postgres without host", "catalog:\n  source: postgres\n"},
		{"elasticsearch without url", "catalog:\n  source: elasticsearch\n"},
		{"redis mode store without address", "recommendation:\n  mode_store: redis\n"},
		{"firestore without project", "catalog:\n  source: firestore\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOOGLE_CLOUD_PROJECT", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFile_AffiliateIDFromEnv(t *testing.T) {
	t.Setenv("GETYOURGUIDE_AFFILIATE_ID", "gyg-42")

	cfg, err := LoadFromFile(writeConfig(t, "affiliate:\n  programs:\n    getyourguide:\n      affiliate_id: \"\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "gyg-42", cfg.Affiliate.Programs["getyourguide"].AffiliateID)
}

func TestGetWorkerConfig_Defaults(t *testing.T) {
	cfg := &Config{}

	wc := GetWorkerConfig(cfg, "classify-card")
	assert.True(t, wc.Enabled)
	assert.Equal(t, 30000, wc.Timeout)
	assert.True(t, IsWorkerEnabled(cfg, "classify-card"))

	cfg.Workers = map[string]WorkerConfig{"classify-card": {Enabled: false}}
	assert.False(t, IsWorkerEnabled(cfg, "classify-card"))
}

func TestLoadFromFile_UnsetPlaceholderFallsBackToEnv(t *testing.T) {
	t.Setenv("VIATOR_AFFILIATE_ID", "")
	t.Setenv("GROUPON_AFFILIATE_ID", "G-77")

	path := writeConfig(t, `
affiliate:
  enabled: true
  programs:
    viator:
      affiliate_id: ${MAGICK_UNSET_VIATOR_ID}
    groupon:
      affiliate_id: ${MAGICK_UNSET_GROUPON_ID}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Affiliate.Programs["viator"].AffiliateID)
	assert.Equal(t, "G-77", cfg.Affiliate.Programs["groupon"].AffiliateID)
	assert.Equal(t, "localhost:26500", cfg.Camunda.BrokerAddress)
}
