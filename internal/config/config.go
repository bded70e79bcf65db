package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderExtractive = "extractive"
)

type Config struct {
	Addr       string `mapstructure:"addr"`
	CORSOrigin string `mapstructure:"cors_origin"`

	DBDriver string `mapstructure:"db_driver"`
	DBDSN    string `mapstructure:"db_dsn"`
	DBName   string `mapstructure:"db_name"`

	SummarizerProvider string `mapstructure:"summarizer_provider"`
	GeminiAPIKey       string `mapstructure:"gemini_api_key"`
	GeminiModel        string `mapstructure:"gemini_model"`
	GeminiBaseURL      string `mapstructure:"gemini_base_url"`
	OpenAIAPIKey       string `mapstructure:"openai_api_key"`
	OpenAIModel        string `mapstructure:"openai_model"`
	OpenAIBaseURL      string `mapstructure:"openai_base_url"`

	MaxUploadMB      int    `mapstructure:"max_upload_mb"`
	LogLevel         string `mapstructure:"log_level"`
	LogRetentionDays int    `mapstructure:"log_retention_days"`

	RedisAddr       string `mapstructure:"redis_addr"`
	CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"`

	KafkaBrokers string `mapstructure:"kafka_brokers"`
	KafkaTopic   string `mapstructure:"kafka_topic"`

	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
}

var envBindings = map[string][]string{
	"addr":                {"PDFI_ADDR"},
	"cors_origin":         {"PDFI_CORS_ORIGIN"},
	"db_driver":           {"PDFI_DB_DRIVER"},
	"db_dsn":              {"PDFI_DB_DSN", "MONGODB_URI", "DATABASE_URL"},
	"db_name":             {"PDFI_DB_NAME", "MONGODB_DB"},
	"summarizer_provider": {"PDFI_SUMMARIZER_PROVIDER"},
	"gemini_api_key":      {"GEMINI_API_KEY"},
	"gemini_model":        {"GEMINI_MODEL"},
	"gemini_base_url":     {"GEMINI_BASE_URL"},
	"openai_api_key":      {"OPENAI_API_KEY"},
	"openai_model":        {"OPENAI_MODEL"},
	"openai_base_url":     {"OPENAI_BASE_URL"},
	"max_upload_mb":       {"PDFI_MAX_UPLOAD_MB"},
	"log_level":           {"PDFI_LOG_LEVEL"},
	"log_retention_days":  {"PDFI_LOG_RETENTION_DAYS"},
	"redis_addr":          {"REDIS_ADDR"},
	"cache_ttl_minutes":   {"PDFI_CACHE_TTL_MINUTES"},
	"kafka_brokers":       {"KAFKA_BROKERS"},
	"kafka_topic":         {"KAFKA_TOPIC"},
	"minio_endpoint":      {"MINIO_ENDPOINT"},
	"minio_access_key":    {"MINIO_ACCESS_KEY"},
	"minio_secret_key":    {"MINIO_SECRET_KEY"},
	"minio_bucket":        {"MINIO_BUCKET"},
	"minio_use_ssl":       {"MINIO_USE_SSL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("db_driver", DriverMongo)
	v.SetDefault("db_name", "pdfi")
	v.SetDefault("summarizer_provider", ProviderGemini)
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_retention_days", 30)
	v.SetDefault("cache_ttl_minutes", 24*60)
	v.SetDefault("kafka_topic", "document.events")
	v.SetDefault("minio_bucket", "pdfi-uploads")
}

// Load reads the optional JSON config file at path and overlays environment
// variables. Credentials and DSNs are not required here; they are checked on
// first use.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case DriverMongo, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("db_driver %q is not supported", c.DBDriver)
	}

	switch c.SummarizerProvider {
	case ProviderGemini, ProviderOpenAI, ProviderExtractive:
	default:
		return fmt.Errorf("summarizer_provider %q is not supported", c.SummarizerProvider)
	}

	if c.MaxUploadMB <= 0 {
		return errors.New("max_upload_mb must be positive")
	}
	if c.LogRetentionDays < 0 {
		return errors.New("log_retention_days must not be negative")
	}

	return nil
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func (c Config) KafkaBrokerList() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
