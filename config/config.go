package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/tokengate/auth"
	"github.com/jonwraymond/tokengate/observe"
	"github.com/jonwraymond/tokengate/resilience"
	"github.com/jonwraymond/tokengate/secret"
	"github.com/jonwraymond/tokengate/userstore"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "TOKENGATE_"

// FileEnv names the environment variable holding the YAML file path.
const FileEnv = EnvPrefix + "CONFIG_FILE"

// PlaceholderSecret is the sample secret shipped with the reference
// deployment. It is public and always rejected.
const PlaceholderSecret = "defaultSecretKeyThatShouldBeChangedInProductionEnvironment1234567890"

// Config is the complete service configuration.
type Config struct {
	JWT     JWTConfig     `yaml:"jwt"     envPrefix:"JWT_"`
	HTTP    HTTPConfig    `yaml:"http"    envPrefix:"HTTP_"`
	Store   StoreConfig   `yaml:"store"   envPrefix:"STORE_"`
	Login   LoginConfig   `yaml:"login"   envPrefix:"LOGIN_"`
	Seed    SeedConfig    `yaml:"seed"    envPrefix:"SEED_"`
	Observe ObserveConfig `yaml:"observe" envPrefix:"OBSERVE_"`
}

// JWTConfig configures token signing and the credential header.
type JWTConfig struct {
	// Secret is the HS256 key. Never logged.
	Secret           string `yaml:"secret"            env:"SECRET"`
	ExpirationMillis int64  `yaml:"expiration_millis" env:"EXPIRATION_MILLIS"`
	Header           string `yaml:"header"            env:"HEADER"`
	Prefix           string `yaml:"prefix"            env:"PREFIX"`
	Issuer           string `yaml:"issuer"            env:"ISSUER"`
}

// Expiration returns the token lifetime.
func (c JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationMillis) * time.Millisecond
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr              string        `yaml:"addr"                env:"ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"      env:"MAX_BODY_BYTES"`
}

// StoreConfig selects and bounds the user store.
type StoreConfig struct {
	Driver        string        `yaml:"driver"         env:"DRIVER"`
	DSN           string        `yaml:"dsn"            env:"DSN"`
	Timeout       time.Duration `yaml:"timeout"        env:"TIMEOUT"`
	MaxConcurrent int           `yaml:"max_concurrent" env:"MAX_CONCURRENT"`
	FailureLimit  int           `yaml:"failure_limit"  env:"FAILURE_LIMIT"`
	ResetTimeout  time.Duration `yaml:"reset_timeout"  env:"RESET_TIMEOUT"`

	// RatePerSecond and Burst cap store lookups across all clients.
	RatePerSecond float64 `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
	Burst         int     `yaml:"burst"           env:"BURST"`

	// RetryAttempts counts the first lookup; 1 disables retries.
	RetryAttempts int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryDelay    time.Duration `yaml:"retry_delay"    env:"RETRY_DELAY"`
}

// LoginConfig bounds login attempts per client address.
type LoginConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
	Burst         int     `yaml:"burst"           env:"BURST"`
	MaxClients    int     `yaml:"max_clients"     env:"MAX_CLIENTS"`

	// PasswordHash selects the hash for new passwords: bcrypt or argon2id.
	PasswordHash string `yaml:"password_hash" env:"PASSWORD_HASH"`
}

// SeedConfig controls demo account creation.
type SeedConfig struct {
	DemoUsers       bool `yaml:"demo_users"       env:"DEMO_USERS"`
	AllowPersistent bool `yaml:"allow_persistent" env:"ALLOW_PERSISTENT"`
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	ServiceName     string  `yaml:"service_name"     env:"SERVICE_NAME"`
	Version         string  `yaml:"version"          env:"VERSION"`
	LogLevel        string  `yaml:"log_level"        env:"LOG_LEVEL"`
	TracingExporter string  `yaml:"tracing_exporter" env:"TRACING_EXPORTER"`
	SamplePct       float64 `yaml:"sample_pct"       env:"SAMPLE_PCT"`
	MetricsExporter string  `yaml:"metrics_exporter" env:"METRICS_EXPORTER"`
}

// ToObserve converts to an observe.Config. An exporter of "none" disables
// that signal.
func (c ObserveConfig) ToObserve() observe.Config {
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     c.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.TracingExporter != "" && c.TracingExporter != "none",
			Exporter:  c.TracingExporter,
			SamplePct: c.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.MetricsExporter != "" && c.MetricsExporter != "none",
			Exporter: c.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.LogLevel,
		},
	}
}

// Default returns the built-in defaults. The secret has no default.
func Default() Config {
	return Config{
		JWT: JWTConfig{
			ExpirationMillis: 86400000,
			Header:           "Authorization",
			Prefix:           "Bearer ",
		},
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxBodyBytes:      1 << 20,
		},
		Store: StoreConfig{
			Driver:        userstore.DriverMemory,
			Timeout:       2 * time.Second,
			MaxConcurrent: 32,
			FailureLimit:  5,
			ResetTimeout:  30 * time.Second,
			RatePerSecond: 200,
			Burst:         50,
			RetryAttempts: 2,
			RetryDelay:    50 * time.Millisecond,
		},
		Login: LoginConfig{
			RatePerSecond: 1,
			Burst:         5,
			MaxClients:    10000,
			PasswordHash:  "bcrypt",
		},
		Observe: ObserveConfig{
			ServiceName:     "tokengate",
			LogLevel:        "info",
			TracingExporter: "none",
			SamplePct:       1.0,
			MetricsExporter: "none",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, then resolves secrets. It does not validate.
func Load(ctx context.Context, resolver *secret.Resolver) (Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.resolveSecrets(ctx, resolver); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadValid loads and validates in one step.
func LoadValid(ctx context.Context, resolver *secret.Resolver) (Config, error) {
	cfg, err := Load(ctx, resolver)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) resolveSecrets(ctx context.Context, resolver *secret.Resolver) error {
	if resolver == nil {
		return nil
	}
	if c.JWT.Secret != "" {
		v, err := resolver.ResolveValue(ctx, c.JWT.Secret)
		if err != nil {
			return fmt.Errorf("resolve jwt secret: %w", err)
		}
		c.JWT.Secret = v
	}
	if c.Store.DSN != "" {
		v, err := resolver.ResolveValue(ctx, c.Store.DSN)
		if err != nil {
			return fmt.Errorf("resolve store dsn: %w", err)
		}
		c.Store.DSN = v
	}
	return nil
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.JWT.Secret == "":
		errs = append(errs, ErrMissingSecret)
	case c.JWT.Secret == PlaceholderSecret:
		errs = append(errs, ErrPlaceholderSecret)
	case len(c.JWT.Secret) < auth.MinSecretLength:
		errs = append(errs, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, auth.MinSecretLength))
	}

	// Token timestamps carry whole seconds.
	if c.JWT.ExpirationMillis <= 0 || c.JWT.ExpirationMillis%1000 != 0 {
		errs = append(errs, fmt.Errorf("%w, got: %d", ErrInvalidExpiration, c.JWT.ExpirationMillis))
	}

	header := c.JWT.Header
	if header == "" {
		header = "Authorization"
	}
	if c.JWT.Prefix == "" && strings.EqualFold(header, "Authorization") {
		errs = append(errs, ErrMissingPrefix)
	}

	if c.Login.PasswordHash != "bcrypt" && c.Login.PasswordHash != "argon2id" {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownPasswordHash, c.Login.PasswordHash))
	}

	if c.Store.RatePerSecond <= 0 || c.Store.Burst <= 0 {
		errs = append(errs, fmt.Errorf("%w: rate %v, burst %d", ErrInvalidStoreLimit, c.Store.RatePerSecond, c.Store.Burst))
	}

	if !slices.Contains(userstore.Drivers(), c.Store.Driver) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver))
	}

	if c.Seed.DemoUsers && c.Store.Driver != userstore.DriverMemory && !c.Seed.AllowPersistent {
		errs = append(errs, ErrUnsafeSeed)
	}

	obs := c.Observe.ToObserve()
	if err := obs.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// CodecConfig returns the auth codec settings.
func (c *Config) CodecConfig() auth.CodecConfig {
	return auth.CodecConfig{
		Secret:   []byte(c.JWT.Secret),
		Validity: c.JWT.Expiration(),
		Issuer:   c.JWT.Issuer,
	}
}

// StoreRateLimit returns the process-wide ceiling on user store lookups.
// A login over the ceiling waits up to the store timeout for a token.
func (c *Config) StoreRateLimit() resilience.RateLimiterConfig {
	return resilience.RateLimiterConfig{
		Rate:        c.Store.RatePerSecond,
		Burst:       c.Store.Burst,
		WaitOnLimit: true,
		MaxWait:     c.Store.Timeout,
	}
}

// StoreRetry returns the retry policy for user store lookups. An unknown
// user is an answer, not a failure, and is never retried.
func (c *Config) StoreRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:  max(c.Store.RetryAttempts, 1),
		InitialDelay: c.Store.RetryDelay,
		Jitter:       true,
		RetryIf: func(err error) bool {
			return !errors.Is(err, auth.ErrUserNotFound) && resilience.Retryable(err)
		},
	}
}

// GateConfig returns the gate header settings.
func (c *Config) GateConfig() auth.GateConfig {
	return auth.GateConfig{
		HeaderName:  c.JWT.Header,
		TokenPrefix: c.JWT.Prefix,
	}
}
