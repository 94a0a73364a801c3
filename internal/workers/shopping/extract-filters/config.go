package extractfilters

import (
	"time"

	"shopwhiz/internal/common/config"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
}

func LoadConfig(cfg *config.Config) *Config {
	llm := cfg.APIs.LLM
	return &Config{
		BaseURL:     llm.BaseURL,
		APIKey:      llm.APIKey,
		Model:       llm.Model,
		Temperature: llm.Temperature,
		Timeout:     config.GetDuration(llm.Timeout),
		MaxRetries:  llm.MaxRetries,
	}
}
