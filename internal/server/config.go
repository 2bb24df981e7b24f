package server

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/elskow/authflow/internal/config"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// envBindings maps the plain variable names used by deployments onto config keys.
var envBindings = map[string][]string{
	"database.url":           {"DATABASE_URL", "MONGO_URI"},
	"auth.jwt_secret":        {"JWT_SECRET"},
	"server.client_url":      {"CLIENT_URL"},
	"server.port":            {"PORT"},
	"notify.mailtrap.token":  {"MAILTRAP_TOKEN"},
	"notify.queue.redis_url": {"REDIS_URL"},
}

// LoadEnv loads an optional .env file and returns the deployment mode.
// Variables already present in the environment win over the file.
func LoadEnv() string {
	_ = godotenv.Load()

	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return EnvDevelopment
}

func LoadConfig() (*config.AppConfig, error) {
	env := LoadEnv()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath("./config/server")
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Load environment-specific configurations
	if envSettings := v.GetStringMap(fmt.Sprintf("server.%s", env)); len(envSettings) > 0 {
		if err := v.UnmarshalKey(fmt.Sprintf("server.%s", env), &cfg.Server); err != nil {
			return nil, fmt.Errorf("error unmarshaling env config: %w", err)
		}
	}
	cfg.Server.Mode = env
	if env == EnvProduction {
		cfg.Auth.CookieSecure = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.client_url", "http://localhost:5173")
	v.SetDefault("server.static_dir", "frontend/dist")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("grpc.port", "5001")
	v.SetDefault("grpc.enable_reflection", false)
	v.SetDefault("grpc.health_check_interval", "15s")

	v.SetDefault("database.driver", config.DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "authflow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.mongo_database", "authflow")

	v.SetDefault("auth.token_expiration", "168h")
	v.SetDefault("auth.cookie_name", "token")
	v.SetDefault("auth.cookie_path", "/api")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.min_password_length", 6)
	v.SetDefault("auth.verification_code_ttl", "24h")
	v.SetDefault("auth.reset_token_ttl", "1h")
	v.SetDefault("auth.mask_unknown_email", true)

	v.SetDefault("notify.transport", config.TransportInline)
	v.SetDefault("notify.provider", config.ProviderLog)
	v.SetDefault("notify.mailtrap.endpoint", "https://send.api.mailtrap.io/api/send")
	v.SetDefault("notify.mailtrap.sender_email", "hello@demomailtrap.com")
	v.SetDefault("notify.mailtrap.sender_name", "Auth")
	v.SetDefault("notify.mailtrap.company_name", "Our New Company")
	v.SetDefault("notify.mailtrap.timeout", "10s")
	v.SetDefault("notify.queue.redis_url", "redis://127.0.0.1:6379/0")
	v.SetDefault("notify.queue.name", "notifications")
	v.SetDefault("notify.queue.max_retry", 5)
	v.SetDefault("notify.queue.concurrency", 4)
	v.SetDefault("notify.kafka.topic", "auth.notifications")
	v.SetDefault("notify.kafka.group_id", "authflow-mailer")
}
