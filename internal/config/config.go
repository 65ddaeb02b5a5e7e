package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "deaglo"

var validEnvironments = map[string]bool{
	"dev":     true,
	"staging": true,
	"prod":    true,
	"demo":    true,
}

type Config struct {
	Environment string           `mapstructure:"environment"`
	Debug       bool             `mapstructure:"debug"`
	CI          bool             `mapstructure:"ci"`
	Server      ServerConfig     `mapstructure:"server"`
	Log         LogConfig        `mapstructure:"log"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Throttle    ThrottleConfig   `mapstructure:"throttle"`
	AWS         AWSConfig        `mapstructure:"aws"`
	Simulation  SimulationConfig `mapstructure:"simulation"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Email       EmailConfig      `mapstructure:"email"`
	LinkedIn    LinkedInConfig   `mapstructure:"linkedin"`
	Fenics      FenicsConfig     `mapstructure:"fenics"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
	Audit       AuditConfig      `mapstructure:"audit"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	PageSize       int      `mapstructure:"page_size"`
	ReadOnly       bool     `mapstructure:"read_only"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	AccessTTLDays  int    `mapstructure:"access_ttl"`
	RefreshTTLDays int    `mapstructure:"refresh_ttl"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	Name         string `mapstructure:"name"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	SSLMode      string `mapstructure:"sslmode"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// ConnString prefers an explicit DSN and otherwise assembles one from the
// discrete settings, which is the shape the SSM document provides.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
	AuditListKey          string `mapstructure:"audit_list_key"`
	AuditListMax          int    `mapstructure:"audit_list_max"`
}

type ThrottleConfig struct {
	AnonPerMinute int `mapstructure:"anon_per_minute"`
	UserPerMinute int `mapstructure:"user_per_minute"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"`
	SSMEnabled      bool   `mapstructure:"ssm_enabled"`
}

type SimulationConfig struct {
	QueueURL          string `mapstructure:"queue_url"`
	StreamPollSeconds int    `mapstructure:"stream_poll_seconds"`
}

type StorageConfig struct {
	BucketName string `mapstructure:"bucket_name"`
}

type EmailConfig struct {
	SystemEmail string `mapstructure:"system_email"`
}

type LinkedInConfig struct {
	ClientID        string `mapstructure:"client_id"`
	ClientSecret    string `mapstructure:"client_secret"`
	RedirectURIAuth string `mapstructure:"redirect_uri_auth"`
	RedirectURILink string `mapstructure:"redirect_uri_link"`
}

type FenicsConfig struct {
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	PricingAPIURL  string `mapstructure:"pricing_api_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AuditConfig selects where request logs are kept. Backend "redis" keeps a
// capped list instead of the service_log table.
type AuditConfig struct {
	LogDir        string `mapstructure:"log_dir"`
	BufferSize    int    `mapstructure:"buffer_size"`
	Backend       string `mapstructure:"backend"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// IsLocalMail reports whether outgoing e-mail should be logged instead of sent.
func (c *Config) IsLocalMail() bool {
	return c.Environment == "dev" || c.CI
}

func Load() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// e.g. DEAGLO_AUTH_SECRET_KEY
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.page_size", 6)
	v.SetDefault("server.read_only", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.access_ttl", 1)
	v.SetDefault("auth.refresh_ttl", 7)
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("redis.idempotency_ttl_seconds", 86400)
	v.SetDefault("redis.audit_list_key", "service_logs")
	v.SetDefault("redis.audit_list_max", 10000)
	v.SetDefault("throttle.anon_per_minute", 10)
	v.SetDefault("throttle.user_per_minute", 100)
	v.SetDefault("aws.region", "us-east-2")
	v.SetDefault("aws.ssm_enabled", false)
	v.SetDefault("simulation.stream_poll_seconds", 3)
	v.SetDefault("fenics.timeout_seconds", 15)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("audit.log_dir", "./logs")
	v.SetDefault("audit.buffer_size", 1000)
	v.SetDefault("audit.backend", "db")
	v.SetDefault("audit.retention_days", 90)

	// AWS SDK conventions are honoured without the prefix as well
	_ = v.BindEnv("aws.access_key_id", "DEAGLO_AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("aws.secret_access_key", "DEAGLO_AWS_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("aws.region", "DEAGLO_AWS_REGION", "AWS_REGION")
	_ = v.BindEnv("environment", "DEAGLO_ENVIRONMENT", "ENVIRONMENT")
	_ = v.BindEnv("ci", "DEAGLO_CI", "CI")
	_ = v.BindEnv("debug", "DEAGLO_DEBUG", "DEBUG")
}

func (c *Config) Validate() error {
	if !validEnvironments[c.Environment] {
		return fmt.Errorf("invalid environment %q: expected one of dev, staging, prod, demo", c.Environment)
	}
	if c.Server.PageSize <= 0 {
		c.Server.PageSize = 6
	}
	return nil
}
