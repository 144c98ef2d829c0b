package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                string        `mapstructure:"ENV"`
	Port               string        `mapstructure:"PORT"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	AdminKey           string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed        string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	SLATargetDays      int           `mapstructure:"SLA_TARGET_DAYS"`
	SchedulerEnabled   bool          `mapstructure:"SCHEDULER_ENABLED"`
	SchedulerDelay     time.Duration `mapstructure:"SCHEDULER_STARTUP_DELAY"`
	RuleTimeout        time.Duration `mapstructure:"RULE_TIMEOUT"`
	AssistantBaseURL   string        `mapstructure:"ASSISTANT_BASE_URL"`
	AssistantModel     string        `mapstructure:"ASSISTANT_MODEL"`
	AssistantAPIKey    string        `mapstructure:"ASSISTANT_API_KEY"`
	AssistantMaxTokens int           `mapstructure:"ASSISTANT_MAX_TOKENS"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("SLA_TARGET_DAYS", 15)
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_STARTUP_DELAY", "5s")
	v.SetDefault("RULE_TIMEOUT", "10s")
	v.SetDefault("ASSISTANT_MODEL", "gpt-4o-mini")
	v.SetDefault("ASSISTANT_MAX_TOKENS", 1024)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
