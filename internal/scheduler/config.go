package scheduler

import (
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/config"
)

// Config controls the overdue sweep loop.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    100,
		PollInterval: time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	return c
}

// NewConfig maps application settings onto the worker loop.
func NewConfig(cfg config.Config) Config {
	return Config{
		BatchSize:    cfg.OverdueSweepBatchSize,
		PollInterval: cfg.OverdueSweepInterval,
	}.withDefaults()
}
