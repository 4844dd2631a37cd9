package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env          string        `mapstructure:"ENV"`
	Port         string        `mapstructure:"PORT"`
	DatabaseURL  string        `mapstructure:"DATABASE_URL"`
	AdminKey     string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed  string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel     string        `mapstructure:"LOG_LEVEL"`
	SyncInterval time.Duration `mapstructure:"SYNC_INTERVAL"`

	AvinodeBaseURL      string `mapstructure:"AVINODE_BASE_URL"`
	AvinodeAPIToken     string `mapstructure:"AVINODE_API_TOKEN"`
	AvinodeAuthToken    string `mapstructure:"AVINODE_AUTH_TOKEN"`
	AvinodeAPIVersion   string `mapstructure:"AVINODE_API_VERSION"`
	AvinodeProduct      string `mapstructure:"AVINODE_PRODUCT"`
	AvinodeActAsAccount string `mapstructure:"AVINODE_ACT_AS_ACCOUNT"`
	WebhookURL          string `mapstructure:"AVINODE_WEBHOOK_URL"`
	WebhookSecret       string `mapstructure:"AVINODE_WEBHOOK_SECRET"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("SYNC_INTERVAL", "15m")
	v.SetDefault("AVINODE_BASE_URL", "https://sandbox.avinode.com/api")
	v.SetDefault("AVINODE_API_VERSION", "v1")
	v.SetDefault("AVINODE_PRODUCT", "jetvision-broker-portal")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
