package config

import (
	"fmt"
	"strings"
)

// Catalog sources.
const (
	CatalogSourceStatic        = "static"
	CatalogSourcePostgres      = "postgres"
	CatalogSourceElasticsearch = "elasticsearch"
	CatalogSourceFirestore     = "firestore"
)

// Mode stores.
const (
	ModeStoreMemory = "memory"
	ModeStoreRedis  = "redis"
)

type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Camunda        CamundaConfig           `mapstructure:"camunda"`
	Server         ServerConfig            `mapstructure:"server"`
	Database       DatabaseConfig          `mapstructure:"database"`
	Firestore      FirestoreConfig         `mapstructure:"firestore"`
	Catalog        CatalogConfig           `mapstructure:"catalog"`
	Recommendation RecommendationConfig    `mapstructure:"recommendation"`
	Affiliate      AffiliateConfig         `mapstructure:"affiliate"`
	Tracking       TrackingConfig          `mapstructure:"tracking"`
	Integrations   IntegrationConfig       `mapstructure:"integrations"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
	Logging        LoggingConfig           `mapstructure:"logging"`
	Observability  ObservabilityConfig     `mapstructure:"observability"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	MetricsPort  int      `mapstructure:"metrics_port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int      `mapstructure:"write_timeout"` // milliseconds
	CORSOrigins  []string `mapstructure:"cors_origins"`
	GinMode      string   `mapstructure:"gin_mode"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single address shorthand
	Index     string   `mapstructure:"index"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Collection      string `mapstructure:"collection"`
}

type CatalogConfig struct {
	Source     string `mapstructure:"source"`
	StaticPath string `mapstructure:"static_path"` // empty uses the embedded catalog
	CacheTTL   int    `mapstructure:"cache_ttl"`   // milliseconds, 0 disables the redis cache
	CacheKey   string `mapstructure:"cache_key"`
	// FallbackToStatic substitutes the static catalog when the primary source
	// fails or is empty.
	FallbackToStatic bool `mapstructure:"fallback_to_static"`
	MaxDocuments     int  `mapstructure:"max_documents"`
}

type RecommendationConfig struct {
	MaxResults    int    `mapstructure:"max_results"`
	DefaultMarket string `mapstructure:"default_market"`
	DefaultMode   string `mapstructure:"default_mode"`
	ModeStore     string `mapstructure:"mode_store"`
	ModeKey       string `mapstructure:"mode_key"`
}

type AffiliateConfig struct {
	Enabled  bool                              `mapstructure:"enabled"`
	Programs map[string]AffiliateProgramConfig `mapstructure:"programs"`
}

type AffiliateProgramConfig struct {
	AffiliateID string `mapstructure:"affiliate_id"`
}

type TrackingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SNSTopicARN string `mapstructure:"sns_topic_arn"`
}

type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled bool `mapstructure:"enabled"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// NeedsPostgres reports whether any configured component reads or writes
// PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return strings.EqualFold(c.Catalog.Source, CatalogSourcePostgres) || c.Tracking.Enabled
}

func (c *Config) NeedsRedis() bool {
	return c.Catalog.CacheTTL > 0 || strings.EqualFold(c.Recommendation.ModeStore, ModeStoreRedis)
}

func (c *Config) NeedsElasticsearch() bool {
	return strings.EqualFold(c.Catalog.Source, CatalogSourceElasticsearch)
}
