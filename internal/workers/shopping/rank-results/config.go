package rankresults

import (
	"time"

	"shopwhiz/internal/common/config"
)

type Config struct {
	MaxItems int // 0 keeps every product
	Timeout  time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := 2 * time.Second
	if w, ok := cfg.Workers[TaskType]; ok && w.Timeout > 0 {
		timeout = config.GetDuration(w.Timeout)
	}
	return &Config{
		Timeout: timeout,
	}
}
