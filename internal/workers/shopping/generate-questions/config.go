package generatequestions

import "shopwhiz/internal/common/config"

type Config struct {
	BaselineCategory string
	TablePath        string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		BaselineCategory: cfg.Conversation.BaselineCategory,
		TablePath:        cfg.Conversation.QuestionTable,
	}
}
