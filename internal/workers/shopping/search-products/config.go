package searchproducts

import (
	"time"

	"shopwhiz/internal/common/config"
)

type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	MaxResults       int
	OutputCap        int
	DefaultPlatforms []string
}

func LoadConfig(cfg *config.Config) *Config {
	ws := cfg.APIs.WebSearch
	return &Config{
		BaseURL:          ws.BaseURL,
		APIKey:           ws.APIKey,
		Timeout:          config.GetDuration(ws.Timeout),
		MaxResults:       ws.MaxResults,
		OutputCap:        ws.OutputCap,
		DefaultPlatforms: ws.DefaultPlatforms,
	}
}
