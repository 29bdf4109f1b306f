package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	HTTPAddr                     string        `mapstructure:"http_addr"`
	ServerReadTimeout            time.Duration `mapstructure:"server_read_timeout"`
	ServerReadHeaderTimeout      time.Duration `mapstructure:"server_read_header_timeout"`
	ServerWriteTimeout           time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout            time.Duration `mapstructure:"server_idle_timeout"`
	ShutdownTimeout              time.Duration `mapstructure:"shutdown_timeout"`
	ShutdownHTTPDrainTimeout     time.Duration `mapstructure:"shutdown_http_drain_timeout"`
	ShutdownObservabilityTimeout time.Duration `mapstructure:"shutdown_observability_timeout"`
	CORSAllowedOrigins           []string      `mapstructure:"cors_allowed_origins"`

	DBDriver          string        `mapstructure:"db_driver"`
	DatabaseURL       string        `mapstructure:"database_url"`
	DBHost            string        `mapstructure:"db_host"`
	DBPort            int           `mapstructure:"db_port"`
	DBUser            string        `mapstructure:"db_user"`
	DBPassword        string        `mapstructure:"db_password"`
	DBName            string        `mapstructure:"db_name"`
	DBSSLMode         string        `mapstructure:"db_ssl_mode"`
	DBMaxOpenConns    int           `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int           `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `mapstructure:"db_conn_max_lifetime"`
	DBAutoMigrate     bool          `mapstructure:"db_auto_migrate"`

	JWTIssuer        string        `mapstructure:"jwt_issuer"`
	JWTAudience      string        `mapstructure:"jwt_audience"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTRefreshSecret string        `mapstructure:"jwt_refresh_secret"`
	JWTAccessTTL     time.Duration `mapstructure:"jwt_access_ttl"`
	JWTRefreshTTL    time.Duration `mapstructure:"jwt_refresh_ttl"`
	BcryptCost       int           `mapstructure:"bcrypt_cost"`

	RedisEnabled          bool   `mapstructure:"redis_enabled"`
	RedisAddr             string `mapstructure:"redis_addr"`
	RedisPassword         string `mapstructure:"redis_password"`
	RedisDB               int    `mapstructure:"redis_db"`
	RateLimitRedisEnabled bool   `mapstructure:"rate_limit_redis_enabled"`
	RateLimitRedisPrefix  string `mapstructure:"rate_limit_redis_prefix"`
	RateLimitFailureMode  string `mapstructure:"rate_limit_failure_mode"`
	AuthRateLimitRPM      int    `mapstructure:"auth_rate_limit_rpm"`
	APIRateLimitRPM       int    `mapstructure:"api_rate_limit_rpm"`

	IdempotencyEnabled     bool          `mapstructure:"idempotency_enabled"`
	IdempotencyRedisPrefix string        `mapstructure:"idempotency_redis_prefix"`
	IdempotencyTTL         time.Duration `mapstructure:"idempotency_ttl"`

	AuthAbuseRedisPrefix  string        `mapstructure:"auth_abuse_redis_prefix"`
	AuthAbuseFreeAttempts int           `mapstructure:"auth_abuse_free_attempts"`
	AuthAbuseBaseDelay    time.Duration `mapstructure:"auth_abuse_base_delay"`
	AuthAbuseMultiplier   float64       `mapstructure:"auth_abuse_multiplier"`
	AuthAbuseMaxDelay     time.Duration `mapstructure:"auth_abuse_max_delay"`
	AuthAbuseResetWindow  time.Duration `mapstructure:"auth_abuse_reset_window"`

	KafkaBrokers            []string      `mapstructure:"kafka_brokers"`
	KafkaExerciseLogTopic   string        `mapstructure:"kafka_exercise_log_topic"`
	KafkaBodyweightLogTopic string        `mapstructure:"kafka_bodyweight_log_topic"`
	KafkaPublishTimeout     time.Duration `mapstructure:"kafka_publish_timeout"`

	ReadinessProbeTimeout time.Duration `mapstructure:"readiness_probe_timeout"`
	ReadinessCacheTTL     time.Duration `mapstructure:"readiness_cache_ttl"`

	PrometheusEnabled         bool          `mapstructure:"prometheus_enabled"`
	OTELServiceName           string        `mapstructure:"otel_service_name"`
	OTELEnvironment           string        `mapstructure:"otel_environment"`
	OTELExporterOTLPEndpoint  string        `mapstructure:"otel_exporter_otlp_endpoint"`
	OTELExporterOTLPInsecure  bool          `mapstructure:"otel_exporter_otlp_insecure"`
	OTELMetricsEnabled        bool          `mapstructure:"otel_metrics_enabled"`
	OTELTracingEnabled        bool          `mapstructure:"otel_tracing_enabled"`
	OTELLogsEnabled           bool          `mapstructure:"otel_logs_enabled"`
	OTELMetricsExportInterval time.Duration `mapstructure:"otel_metrics_export_interval"`
	OTELTraceSamplingRatio    float64       `mapstructure:"otel_trace_sampling_ratio"`
}

// Load reads defaults, an optional config.yaml and FITTRACK_* environment
// variables, then validates the result.
func Load() (*Config, error) {
	cfg, err := load(viper.New())
	env := os.Getenv("FITTRACK_APP_ENV")
	if cfg != nil {
		env = cfg.Env
	}
	recordLoad(context.Background(), env, err)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(v *viper.Viper) (*Config, error) {
	if path := os.Getenv("FITTRACK_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("FITTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Unprefixed names kept for deployments that predate the prefix.
	_ = v.BindEnv("database_url", "FITTRACK_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("jwt_secret", "FITTRACK_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("redis_addr", "FITTRACK_REDIS_ADDR", "REDIS_ADDR")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &decodeError{err: err}
	}
	if err := cfg.Validate(); err != nil {
		return &cfg, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("server_read_timeout", "15s")
	v.SetDefault("server_read_header_timeout", "5s")
	v.SetDefault("server_write_timeout", "30s")
	v.SetDefault("server_idle_timeout", "60s")
	v.SetDefault("shutdown_timeout", "20s")
	v.SetDefault("shutdown_http_drain_timeout", "10s")
	v.SetDefault("shutdown_observability_timeout", "5s")
	v.SetDefault("cors_allowed_origins", []string{"http://localhost:8081"})

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("database_url", "")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "fittrack")
	v.SetDefault("db_password", "fittrack")
	v.SetDefault("db_name", "fittrack")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", "5m")
	v.SetDefault("db_auto_migrate", true)

	v.SetDefault("jwt_issuer", "fittrack-backend")
	v.SetDefault("jwt_audience", "fittrack-clients")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_refresh_secret", "")
	v.SetDefault("jwt_access_ttl", "30m")
	v.SetDefault("jwt_refresh_ttl", "168h")
	v.SetDefault("bcrypt_cost", 12)

	v.SetDefault("redis_enabled", false)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("rate_limit_redis_enabled", false)
	v.SetDefault("rate_limit_redis_prefix", "fittrack:rl")
	v.SetDefault("rate_limit_failure_mode", "fail_open")
	v.SetDefault("auth_rate_limit_rpm", 30)
	v.SetDefault("api_rate_limit_rpm", 600)

	v.SetDefault("idempotency_enabled", true)
	v.SetDefault("idempotency_redis_prefix", "fittrack:idem")
	v.SetDefault("idempotency_ttl", "24h")

	v.SetDefault("auth_abuse_redis_prefix", "fittrack:abuse")
	v.SetDefault("auth_abuse_free_attempts", 5)
	v.SetDefault("auth_abuse_base_delay", "1s")
	v.SetDefault("auth_abuse_multiplier", 2.0)
	v.SetDefault("auth_abuse_max_delay", "5m")
	v.SetDefault("auth_abuse_reset_window", "15m")

	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_exercise_log_topic", "fittrack.exercise-logs")
	v.SetDefault("kafka_bodyweight_log_topic", "fittrack.bodyweight-logs")
	v.SetDefault("kafka_publish_timeout", "5s")

	v.SetDefault("readiness_probe_timeout", "2s")
	v.SetDefault("readiness_cache_ttl", "1s")

	v.SetDefault("prometheus_enabled", true)
	v.SetDefault("otel_service_name", "fittrack-backend")
	v.SetDefault("otel_environment", "development")
	v.SetDefault("otel_exporter_otlp_endpoint", "localhost:4317")
	v.SetDefault("otel_exporter_otlp_insecure", true)
	v.SetDefault("otel_metrics_enabled", false)
	v.SetDefault("otel_tracing_enabled", false)
	v.SetDefault("otel_logs_enabled", false)
	v.SetDefault("otel_metrics_export_interval", "15s")
	v.SetDefault("otel_trace_sampling_ratio", 1.0)
}

const minJWTSecretLength = 32

func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, invalid("jwt", fmt.Sprintf("JWT_SECRET must be at least %d characters", minJWTSecretLength)))
	}
	if c.JWTRefreshSecret != "" && len(c.JWTRefreshSecret) < minJWTSecretLength {
		errs = append(errs, invalid("jwt", fmt.Sprintf("JWT_REFRESH_SECRET must be at least %d characters", minJWTSecretLength)))
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		errs = append(errs, invalid("jwt", "JWT token TTLs must be positive"))
	}
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		errs = append(errs, invalid("password", "BCRYPT_COST must be between 10 and 14"))
	}
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" && (c.DBHost == "" || c.DBUser == "" || c.DBName == "") {
			errs = append(errs, invalid("database", "DATABASE_URL or DB_HOST, DB_USER and DB_NAME are required"))
		}
	case "sqlite":
		if c.DatabaseURL == "" {
			errs = append(errs, invalid("database", "DATABASE_URL is required for sqlite"))
		}
	default:
		errs = append(errs, invalid("database", fmt.Sprintf("DB_DRIVER %q is not supported", c.DBDriver)))
	}
	switch c.RateLimitFailureMode {
	case "fail_open", "fail_closed":
	default:
		errs = append(errs, invalid("rate_limit", fmt.Sprintf("RATE_LIMIT_FAILURE_MODE %q is not supported", c.RateLimitFailureMode)))
	}
	if (c.RedisEnabled || c.RateLimitRedisEnabled) && c.RedisAddr == "" {
		errs = append(errs, invalid("redis", "REDIS_ADDR is required when redis is enabled"))
	}
	if c.IdempotencyEnabled && c.IdempotencyTTL <= 0 {
		errs = append(errs, invalid("idempotency", "IDEMPOTENCY_TTL must be positive"))
	}
	if c.AuthAbuseFreeAttempts < 0 || c.AuthAbuseBaseDelay < 0 || c.AuthAbuseMaxDelay < c.AuthAbuseBaseDelay {
		errs = append(errs, invalid("auth_abuse", "auth abuse policy is inconsistent"))
	}
	if c.AuthRateLimitRPM <= 0 || c.APIRateLimitRPM <= 0 {
		errs = append(errs, invalid("rate_limit", "rate limits must be positive"))
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, invalid("telemetry", "OTEL_TRACE_SAMPLING_RATIO must be within [0,1]"))
	}
	return errors.Join(errs...)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// UsesRedis reports whether any component needs the shared redis client.
func (c *Config) UsesRedis() bool {
	return c.RedisEnabled || c.RateLimitRedisEnabled
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}
