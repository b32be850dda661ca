package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// PlaceholderJWTSecret is the sample secret from local setups. Validate
// refuses it unless logging runs at debug level.
const PlaceholderJWTSecret = "change-me-in-production"

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Storage struct {
		Driver    string `yaml:"driver"` // memory, sqlite or redis
		SQLiteURL string `yaml:"sqlite_url"`
		SeedFile  string `yaml:"seed_file"`
	} `yaml:"storage"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret  string        `yaml:"jwt_secret"`
		SessionTTL time.Duration `yaml:"session_ttl"`
	} `yaml:"auth"`

	Admin struct {
		AllowedEmails []string `yaml:"allowed_emails"`
		ServiceKey    string   `yaml:"service_key"`
	} `yaml:"admin"`

	Directory struct {
		ResultLimit     int           `yaml:"result_limit"`
		CandidateWindow int           `yaml:"candidate_window"`
		CacheTTL        time.Duration `yaml:"cache_ttl"`
	} `yaml:"directory"`

	Probe struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"probe"`

	Usage struct {
		BatchSize     int           `yaml:"batch_size"`
		FlushInterval time.Duration `yaml:"flush_interval"`
		WriteTimeout  time.Duration `yaml:"write_timeout"`
	} `yaml:"usage"`

	Snapshots struct {
		Enabled   bool          `yaml:"enabled"`
		Target    string        `yaml:"target"` // file or s3
		Directory string        `yaml:"directory"`
		S3Bucket  string        `yaml:"s3_bucket"`
		S3Prefix  string        `yaml:"s3_prefix"`
		S3Region  string        `yaml:"s3_region"`
		Interval  time.Duration `yaml:"interval"`
		Retention time.Duration `yaml:"retention"`
	} `yaml:"snapshots"`

	Reliability struct {
		Retry struct {
			Enabled      bool          `yaml:"enabled"`
			MaxAttempts  int           `yaml:"max_attempts"`
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
		} `yaml:"retry"`
		CircuitBreaker struct {
			FailureThreshold int           `yaml:"failure_threshold"`
			SuccessThreshold int           `yaml:"success_threshold"`
			Timeout          time.Duration `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"`
		// TrustForwardedFor keys clients by the first X-Forwarded-For hop.
		// Enable only behind a proxy that overwrites the header.
		TrustForwardedFor bool          `yaml:"trust_forwarded_for"`
		IdleTTL           time.Duration `yaml:"idle_ttl"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.SQLiteURL == "" {
			return fmt.Errorf("storage.sqlite_url must not be empty when storage.driver=sqlite")
		}
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when storage.driver=redis")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when storage.driver=redis")
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, sqlite, redis (got %q)", c.Storage.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty (set DATAPLUG_JWT_SECRET)")
	}
	if c.Auth.JWTSecret == PlaceholderJWTSecret && c.Logging.Level != "debug" {
		return fmt.Errorf("auth.jwt_secret is the placeholder value; it is accepted only with logging.level=debug")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be > 0")
	}

	if c.Directory.ResultLimit <= 0 {
		return fmt.Errorf("directory.result_limit must be > 0")
	}
	if c.Directory.CandidateWindow < c.Directory.ResultLimit {
		return fmt.Errorf("directory.candidate_window must be >= directory.result_limit")
	}
	if c.Directory.CacheTTL < 0 {
		return fmt.Errorf("directory.cache_ttl must be >= 0")
	}

	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be > 0")
	}

	if c.Usage.BatchSize <= 0 {
		return fmt.Errorf("usage.batch_size must be > 0")
	}
	if c.Usage.FlushInterval <= 0 {
		return fmt.Errorf("usage.flush_interval must be > 0")
	}
	if c.Usage.WriteTimeout <= 0 {
		return fmt.Errorf("usage.write_timeout must be > 0")
	}

	if c.Snapshots.Enabled {
		switch c.Snapshots.Target {
		case "file":
			if c.Snapshots.Directory == "" {
				return fmt.Errorf("snapshots.directory must not be empty when snapshots.target=file")
			}
		case "s3":
			if c.Snapshots.S3Bucket == "" {
				return fmt.Errorf("snapshots.s3_bucket must not be empty when snapshots.target=s3")
			}
		default:
			return fmt.Errorf("snapshots.target must be file or s3 (got %q)", c.Snapshots.Target)
		}
		if c.Snapshots.Interval <= 0 {
			return fmt.Errorf("snapshots.interval must be > 0")
		}
		if c.Snapshots.Retention < 0 {
			return fmt.Errorf("snapshots.retention must be >= 0")
		}
	}

	if c.Reliability.Retry.Enabled && c.Reliability.Retry.MaxAttempts < 0 {
		return fmt.Errorf("reliability.retry.max_attempts must be >= 0")
	}
	if c.Reliability.CircuitBreaker.FailureThreshold <= 0 {
		return fmt.Errorf("reliability.circuit_breaker.failure_threshold must be > 0")
	}

	if c.Tracing.Enabled && c.Tracing.JaegerURL == "" {
		return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if c.RateLimiting.IdleTTL <= 0 {
			return fmt.Errorf("rate_limiting.idle_ttl must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from a YAML file, applies defaults, .env and
// environment overrides, then validates the result.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.ShutdownTimeout = 20 * time.Second

	cfg.Logging.Level = "info"

	cfg.Storage.Driver = "memory"
	cfg.Storage.SQLiteURL = "file:dataplug.db"

	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.PoolSize = 10

	cfg.Auth.SessionTTL = 24 * time.Hour

	cfg.Directory.ResultLimit = 6
	cfg.Directory.CandidateWindow = 50
	cfg.Directory.CacheTTL = 30 * time.Second

	cfg.Probe.Timeout = 3 * time.Second

	cfg.Usage.BatchSize = 50
	cfg.Usage.FlushInterval = 2 * time.Second
	cfg.Usage.WriteTimeout = 5 * time.Second

	cfg.Snapshots.Enabled = false
	cfg.Snapshots.Target = "file"
	cfg.Snapshots.Directory = "snapshots"
	cfg.Snapshots.Interval = 6 * time.Hour
	cfg.Snapshots.Retention = 7 * 24 * time.Hour

	cfg.Reliability.Retry.Enabled = true
	cfg.Reliability.Retry.MaxAttempts = 2
	cfg.Reliability.Retry.InitialDelay = 50 * time.Millisecond
	cfg.Reliability.Retry.MaxDelay = 500 * time.Millisecond
	cfg.Reliability.CircuitBreaker.FailureThreshold = 5
	cfg.Reliability.CircuitBreaker.SuccessThreshold = 2
	cfg.Reliability.CircuitBreaker.Timeout = 30 * time.Second

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 10
	cfg.RateLimiting.Burst = 20
	cfg.RateLimiting.IdleTTL = 10 * time.Minute

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("DATAPLUG_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("DATAPLUG_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if driver := os.Getenv("DATAPLUG_STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if url := os.Getenv("DATAPLUG_SQLITE_URL"); url != "" {
		c.Storage.SQLiteURL = url
	}
	if seed := os.Getenv("DATAPLUG_SEED_FILE"); seed != "" {
		c.Storage.SeedFile = seed
	}
	if addr := os.Getenv("DATAPLUG_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
	if pw := os.Getenv("DATAPLUG_REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}
	if secret := os.Getenv("DATAPLUG_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if key := os.Getenv("DATAPLUG_SERVICE_KEY"); key != "" {
		c.Admin.ServiceKey = key
	}
	if emails := os.Getenv("DATAPLUG_ADMIN_EMAILS"); emails != "" {
		c.Admin.AllowedEmails = splitList(emails)
	}
	if bucket := os.Getenv("DATAPLUG_SNAPSHOT_S3_BUCKET"); bucket != "" {
		c.Snapshots.S3Bucket = bucket
	}
	if timeout := os.Getenv("DATAPLUG_PROBE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.Probe.Timeout = d
		}
	}
	if enabled := os.Getenv("DATAPLUG_TRACING_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			c.Tracing.Enabled = b
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
