// internal/workers/clients/search-clients/config.go
package searchclients

import (
	"time"

	"gfn-loan-service/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	DefaultLimit  int
	MaxLimit      int
}

func LoadConfig(appConfig *config.Config) *Config {
	wc := config.GetWorkerConfig(appConfig, TaskType)
	limit := appConfig.Search.Limit
	if limit <= 0 {
		limit = 25
	}
	return &Config{
		Enabled:       wc.Enabled,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
		DefaultLimit:  limit,
		MaxLimit:      100,
	}
}
