// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Conversation  ConversationConfig      `mapstructure:"conversation"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	RequestTimeout int      `mapstructure:"request_timeout"` // milliseconds
	ResultsPath    string   `mapstructure:"results_path"`
}

// CamundaConfig is optional: with Enabled=false the pipeline runs only behind HTTP.
type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// APIsConfig holds settings for the two collaborators.
type APIsConfig struct {
	LLM struct {
		BaseURL     string  `mapstructure:"base_url"`
		APIKey      string  `mapstructure:"api_key"`
		Model       string  `mapstructure:"model"`
		Temperature float32 `mapstructure:"temperature"`
		Timeout     int     `mapstructure:"timeout"` // milliseconds
		MaxRetries  int     `mapstructure:"max_retries"`
	} `mapstructure:"llm"`

	WebSearch struct {
		BaseURL          string   `mapstructure:"base_url"`
		APIKey           string   `mapstructure:"api_key"`
		Timeout          int      `mapstructure:"timeout"` // milliseconds
		MaxResults       int      `mapstructure:"max_results"`
		OutputCap        int      `mapstructure:"output_cap"`
		DefaultPlatforms []string `mapstructure:"default_platforms"`
	} `mapstructure:"web_search"`
}

// ConversationConfig controls the sequencer and its session store.
type ConversationConfig struct {
	Store            string `mapstructure:"store"`       // memory | redis
	SessionTTL       int    `mapstructure:"session_ttl"` // milliseconds
	BaselineCategory string `mapstructure:"baseline_category"`
	QuestionTable    string `mapstructure:"question_table"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ObservabilityConfig holds metrics/tracing settings.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
