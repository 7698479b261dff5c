// Package config loads process configuration once at startup.
//
// Sources, lowest precedence first: a .env file in the working directory,
// an optional YAML settings file named by WAKALOG_CONFIG, then the process
// environment. The resulting Config is read-only and passed explicitly to
// every component that needs it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingConfig is returned when a required setting is absent.
var ErrMissingConfig = errors.New("missing required configuration")

const (
	DefaultAPIBaseURL        = "https://wakatime.com/api/v1"
	DefaultOAuthRedirectAddr = "127.0.0.1:8081"
	DefaultPort              = 5005
	DefaultDBMaxConns        = 5
)

// S3Config holds S3/MinIO archive settings. Archiving to S3 is enabled
// only when Endpoint and BucketName are both set.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	BucketName      string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// Enabled reports whether an S3 archive target is configured.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.BucketName != ""
}

// Config is the full process configuration.
type Config struct {
	DatabaseURL string `yaml:"db_url"`
	DBMaxConns  int    `yaml:"db_max_conns"`

	APIKey             string        `yaml:"secret_api_key"`
	APIBaseURL         string        `yaml:"api_base_url"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
	FetchRatePerSecond float64       `yaml:"fetch_rate_per_second"`
	ProjectConcurrency int           `yaml:"project_concurrency"`

	OAuthClientID     string `yaml:"api_id"`
	OAuthClientSecret string `yaml:"api_secret"`
	OAuthRedirectAddr string `yaml:"oauth_redirect_addr"`

	Port           int           `yaml:"port"`
	Prefix         string        `yaml:"prefix"`
	StaticDir      string        `yaml:"static_dir"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`

	RankingExcludeTitles []string `yaml:"ranking_exclude_titles"`

	ArchiveDir string   `yaml:"archive_dir"`
	S3         S3Config `yaml:"s3"`

	LogFile string `yaml:"log_file"`
}

// Defaults returns a Config populated with default values only.
func Defaults() Config {
	return Config{
		DBMaxConns:         DefaultDBMaxConns,
		APIBaseURL:         DefaultAPIBaseURL,
		FetchTimeout:       30 * time.Second,
		ProjectConcurrency: 1,
		OAuthRedirectAddr:  DefaultOAuthRedirectAddr,
		Port:               DefaultPort,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		QueryTimeout:       10 * time.Second,
		RateLimitRPS:       20,
		RateLimitBurst:     40,
		S3:                 S3Config{UseSSL: true},
	}
}

// Load builds the Config from .env, the optional YAML settings file and the
// environment. It never fails on a missing optional file.
func Load() (*Config, error) {
	if wd, err := os.Getwd(); err == nil {
		if err := godotenv.Load(filepath.Join(wd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := Defaults()

	if path := os.Getenv("WAKALOG_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.Prefix = normalizePrefix(cfg.Prefix)
	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = DefaultDBMaxConns
	}
	if cfg.ProjectConcurrency <= 0 {
		cfg.ProjectConcurrency = 1
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}

	str("DATABASE_URL", &cfg.DatabaseURL)
	integer("DB_MAX_CONNS", &cfg.DBMaxConns)
	duration("DB_QUERY_TIMEOUT", &cfg.QueryTimeout)

	str("WAKATIME_API_KEY", &cfg.APIKey)
	str("WAKATIME_API_BASE_URL", &cfg.APIBaseURL)
	duration("WAKATIME_FETCH_TIMEOUT", &cfg.FetchTimeout)
	float("WAKATIME_FETCH_RATE", &cfg.FetchRatePerSecond)
	integer("PROJECT_CONCURRENCY", &cfg.ProjectConcurrency)

	str("WAKATIME_CLIENT_ID", &cfg.OAuthClientID)
	str("WAKATIME_CLIENT_SECRET", &cfg.OAuthClientSecret)
	str("OAUTH_REDIRECT_ADDR", &cfg.OAuthRedirectAddr)

	integer("PORT", &cfg.Port)
	str("PREFIX", &cfg.Prefix)
	str("STATIC_DIR", &cfg.StaticDir)
	duration("HTTP_READ_TIMEOUT", &cfg.ReadTimeout)
	duration("HTTP_WRITE_TIMEOUT", &cfg.WriteTimeout)
	list("ALLOWED_ORIGINS", &cfg.AllowedOrigins)
	float("RATE_LIMIT_RPS", &cfg.RateLimitRPS)
	integer("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	list("RANKING_EXCLUDE_TITLES", &cfg.RankingExcludeTitles)

	str("ARCHIVE_DIR", &cfg.ArchiveDir)
	str("S3_ENDPOINT", &cfg.S3.Endpoint)
	str("AWS_ACCESS_KEY_ID", &cfg.S3.AccessKeyID)
	str("AWS_SECRET_ACCESS_KEY", &cfg.S3.SecretAccessKey)
	str("BUCKET_NAME", &cfg.S3.BucketName)
	str("S3_PREFIX", &cfg.S3.Prefix)
	if v, ok := lookup("S3_USE_SSL"); ok && v != "" {
		cfg.S3.UseSSL = v != "false"
	}

	str("LOG_FILE", &cfg.LogFile)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// normalizePrefix turns "", "/", "waka", "/waka/" into "", "", "/waka", "/waka".
func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// RequireDatabase checks the settings every database-backed command needs.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL", ErrMissingConfig)
	}
	return nil
}

// RequireAPIKey checks the settings needed to call the WakaTime API.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: WAKATIME_API_KEY", ErrMissingConfig)
	}
	return nil
}

// RequireOAuth checks the settings needed by the OAuth authorization flow.
func (c *Config) RequireOAuth() error {
	var missing []string
	if c.OAuthClientID == "" {
		missing = append(missing, "WAKATIME_CLIENT_ID")
	}
	if c.OAuthClientSecret == "" {
		missing = append(missing, "WAKATIME_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}
