// Package config loads the service configuration from a TOML file and
// STOREFRONT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. STOREFRONT_DATABASE_PASSWORD
const EnvPrefix = "STOREFRONT"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Import    ImportConfig    `mapstructure:"import"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gt=0"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"gte=0"`
}

// RedisConfig is only dialled when Enabled is set or the import lock backend is redis.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port" validate:"gt=0"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`
}

// StorageConfig points at S3-compatible object storage, or at a local
// directory standing in for one.
type StorageConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	LocalDir     string `mapstructure:"local_dir"`
}

// ImportConfig holds the limits and defaults of the bulk importer
type ImportConfig struct {
	MaxFileSize     int64             `mapstructure:"max_file_size" validate:"gte=0"`
	PreviewLimit    int               `mapstructure:"preview_limit" validate:"gte=0,lte=100"`
	MaxErrors       int               `mapstructure:"max_errors" validate:"gte=0"`
	LockBackend     string            `mapstructure:"lock_backend" validate:"oneof=memory redis"`
	DefaultCurrency string            `mapstructure:"default_currency" validate:"len=3,alpha"`
	CurrencyRates   map[string]string `mapstructure:"currency_rates"` // "FROM:TO" -> rate
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes" validate:"gte=0"`
	MaxBodySize      int64         `mapstructure:"max_body_size" validate:"gte=0"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	DefaultTenantID  string        `mapstructure:"default_tenant_id" validate:"omitempty,uuid"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`

	// Per-tenant limit on upload and run endpoints
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // OTLP gRPC, e.g. localhost:4317
	SamplingRatio     float64       `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"` // plaintext gRPC, development only
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	LogsExportLevel   string        `mapstructure:"logs_export_level"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// defaults registers every key with viper, which is also what lets
// AutomaticEnv see keys that appear in no file.
var defaults = map[string]any{
	"app.name": "storefront-backend",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "storefront",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,
	"redis.lock_ttl": 30 * time.Second,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"storage.enabled":        false,
	"storage.endpoint":       "",
	"storage.region":         "us-east-1",
	"storage.bucket":         "",
	"storage.access_key":     "",
	"storage.secret_key":     "",
	"storage.use_ssl":        false,
	"storage.use_path_style": false,
	"storage.key_prefix":     "",
	"storage.local_dir":      "",

	"import.max_file_size":    int64(10 << 20),
	"import.preview_limit":    10,
	"import.max_errors":       100,
	"import.lock_backend":     "memory",
	"import.default_currency": "UAH",
	"import.currency_rates":   map[string]string{},

	"http.read_timeout":        30 * time.Second,
	"http.write_timeout":       5 * time.Minute, // runs are synchronous
	"http.idle_timeout":        time.Minute,
	"http.shutdown_timeout":    30 * time.Second,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       int64(0), // derived from import.max_file_size
	"http.request_timeout":     4 * time.Minute,
	"http.default_tenant_id":   "",
	"http.cors_allow_origins":  []string{},
	"http.cors_allow_methods":  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers":  []string{"Content-Type", "X-Request-ID", "X-Tenant-ID", "X-User-ID"},
	"http.trusted_proxies":     []string{},
	"http.rate_limit_enabled":  false,
	"http.rate_limit_requests": 30,
	"http.rate_limit_window":   time.Minute,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.logs_export_level":       "info",
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
}

// Load reads ./config.toml (or ./config, /etc/storefront) when present.
// Environment variables win over the file, which wins over built-in defaults.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file, which must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/storefront")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Import.LockBackend = strings.ToLower(strings.TrimSpace(c.Import.LockBackend))
	c.Import.DefaultCurrency = strings.ToUpper(strings.TrimSpace(c.Import.DefaultCurrency))
	if c.HTTP.MaxBodySize == 0 {
		// multipart overhead on top of the largest accepted file
		c.HTTP.MaxBodySize = c.Import.MaxFileSize + 1<<20
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.App.Name
	}
}

var structValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	return v
}()

func (c *Config) validate() error {
	var errs []error
	var fieldErrs validator.ValidationErrors
	if err := structValidator.Struct(c); errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			errs = append(errs, errors.New(describe(fe)))
		}
	} else if err != nil {
		return err
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" && c.Storage.LocalDir == "" {
		errs = append(errs, errors.New("storage.bucket or storage.local_dir is required when storage is enabled"))
	}
	if c.App.Env == "production" {
		errs = append(errs, c.productionErrors()...)
	}
	return errors.Join(errs...)
}

func (c *Config) productionErrors() []error {
	var errs []error
	if c.Database.Password == "" {
		errs = append(errs, errors.New("database.password is required in production"))
	}
	if c.Database.SSLMode == "disable" {
		errs = append(errs, errors.New("database.sslmode cannot be 'disable' in production"))
	}
	if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
		errs = append(errs, errors.New("http.cors_allow_origins cannot be '*' in production, list the origins"))
	}
	if c.Telemetry.DBLogFullSQL {
		errs = append(errs, errors.New("telemetry.db_log_full_sql must be false in production, statements carry catalog data"))
	}
	return errs
}

// describe renders a field error with the config key it came from, e.g.
// "import.preview_limit must be at most 100, got 500".
func describe(fe validator.FieldError) string {
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "gte":
		if fe.Param() == "0" {
			return key + " cannot be negative"
		}
		return fmt.Sprintf("%s must be at least %s, got %v", key, fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", key, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", key, fe.Param(), fe.Value())
	case "ltefield":
		return fmt.Sprintf("%s (%v) cannot exceed %s", key, fe.Value(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %q", key, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "len", "alpha":
		return fmt.Sprintf("%s must be a 3-letter code, got %q", key, fe.Value())
	case "uuid":
		return fmt.Sprintf("%s must be a UUID, got %q", key, fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
}

// UsesRedis reports whether any component needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Redis.Enabled || c.Import.LockBackend == "redis"
}

// DSN returns the postgres URL with user and password escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}
