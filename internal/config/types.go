package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host               string   `mapstructure:"host"`
	Port               string   `mapstructure:"port"`
	Mode               string   `mapstructure:"mode"`
	ClientURL          string   `mapstructure:"client_url"`
	StaticDir          string   `mapstructure:"static_dir"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// ServeStatic reports whether the built frontend should be served by the API.
func (c ServerConfig) ServeStatic() bool {
	return c.Mode == "production" && c.StaticDir != ""
}

type GRPCConfig struct {
	Port                string        `mapstructure:"port"`
	EnableReflection    bool          `mapstructure:"enable_reflection"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
}

type DatabaseConfig struct {
	Driver        string `mapstructure:"driver"`
	URL           string `mapstructure:"url"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name"`
	SSLMode       string `mapstructure:"sslmode"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// DSN returns the connection string, preferring an explicit URL.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host,
		c.User,
		c.Password,
		c.Name,
		c.Port,
		c.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	TokenExpiration     time.Duration `mapstructure:"token_expiration"`
	CookieName          string        `mapstructure:"cookie_name"`
	CookiePath          string        `mapstructure:"cookie_path"`
	CookieSecure        bool          `mapstructure:"cookie_secure"`
	BcryptCost          int           `mapstructure:"bcrypt_cost"`
	MinPasswordLength   int           `mapstructure:"min_password_length"`
	VerificationCodeTTL time.Duration `mapstructure:"verification_code_ttl"`
	ResetTokenTTL       time.Duration `mapstructure:"reset_token_ttl"`
	MaskUnknownEmail    bool          `mapstructure:"mask_unknown_email"`
}

type MailtrapConfig struct {
	Endpoint    string            `mapstructure:"endpoint"`
	Token       string            `mapstructure:"token"`
	SenderEmail string            `mapstructure:"sender_email"`
	SenderName  string            `mapstructure:"sender_name"`
	CompanyName string            `mapstructure:"company_name"`
	Templates   map[string]string `mapstructure:"templates"`
	Timeout     time.Duration     `mapstructure:"timeout"`
}

type QueueConfig struct {
	RedisURL    string `mapstructure:"redis_url"`
	Name        string `mapstructure:"name"`
	MaxRetry    int    `mapstructure:"max_retry"`
	Concurrency int    `mapstructure:"concurrency"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	GroupID  string   `mapstructure:"group_id"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	TLS      bool     `mapstructure:"tls"`
}

type NotifyConfig struct {
	Transport string         `mapstructure:"transport"`
	Provider  string         `mapstructure:"provider"`
	Mailtrap  MailtrapConfig `mapstructure:"mailtrap"`
	Queue     QueueConfig    `mapstructure:"queue"`
	Kafka     KafkaConfig    `mapstructure:"kafka"`
}

const (
	TransportInline = "inline"
	TransportAsynq  = "asynq"
	TransportKafka  = "kafka"

	ProviderMailtrap = "mailtrap"
	ProviderLog      = "log"
)

type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

func (c *AppConfig) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.TokenExpiration <= 0 {
		return fmt.Errorf("auth.token_expiration must be positive")
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Notify.Transport {
	case TransportInline, TransportAsynq, TransportKafka:
	default:
		return fmt.Errorf("unknown notify transport %q", c.Notify.Transport)
	}
	if c.Notify.Transport == TransportKafka && (len(c.Notify.Kafka.Brokers) == 0 || c.Notify.Kafka.Topic == "") {
		return fmt.Errorf("notify.kafka.brokers and notify.kafka.topic are required for the kafka transport")
	}

	switch c.Notify.Provider {
	case ProviderMailtrap:
		if c.Notify.Mailtrap.Token == "" {
			return fmt.Errorf("notify.mailtrap.token is required for the mailtrap provider")
		}
	case ProviderLog:
		if c.Server.Mode == "production" {
			return fmt.Errorf("notify.provider %q is not allowed in production", ProviderLog)
		}
	default:
		return fmt.Errorf("unknown notify provider %q", c.Notify.Provider)
	}

	return nil
}
