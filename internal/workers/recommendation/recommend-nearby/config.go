// internal/workers/recommendation/recommend-nearby/config.go
package recommendnearby

import (
	"fmt"
	"time"

	"magick-workers/internal/common/config"
	"magick-workers/internal/models"
)

type Config struct {
	Enabled       bool                    `mapstructure:"enabled"`
	MaxJobsActive int                     `mapstructure:"max_jobs_active"`
	Timeout       time.Duration           `mapstructure:"timeout"`
	DefaultMode   models.MonetizationMode `mapstructure:"default_mode"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       10 * time.Second,
		DefaultMode:   models.MonetizationAffiliate,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if !c.DefaultMode.Valid() {
		return fmt.Errorf("default_mode %q must be affiliate or sponsor", c.DefaultMode)
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig != nil {
		if mode := models.MonetizationMode(appConfig.Recommendation.DefaultMode); mode.Valid() {
			cfg.DefaultMode = mode
		}
		if workerCfg, exists := appConfig.Workers[TaskType]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = config.GetDuration(workerCfg.Timeout)
			}
		}
	}
	return cfg
}
