package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DevModePlaceholderKey is the key shipped in sample environments. Running with it
// outside dev mode is almost certainly a misconfiguration.
const DevModePlaceholderKey = "toxguard-dev-key-change-me"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Model     ModelConfig     `mapstructure:"model"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BodyLimit       int           `mapstructure:"body_limit"`
}

type AuthConfig struct {
	APIKey  string `mapstructure:"api_key"`
	DevMode bool   `mapstructure:"dev_mode"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

type RateLimitConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Rate    string `mapstructure:"rate"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type ModelConfig struct {
	Backend           string        `mapstructure:"backend"`
	Path              string        `mapstructure:"path"`
	TokenizerPath     string        `mapstructure:"tokenizer_path"`
	RemoteURL         string        `mapstructure:"remote_url"`
	RemoteName        string        `mapstructure:"remote_name"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxConns          int           `mapstructure:"max_conns"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
	MaxSequenceLength int           `mapstructure:"max_sequence_length"`
	Padding           string        `mapstructure:"padding"`
	Truncating        string        `mapstructure:"truncating"`
	Categories        []string      `mapstructure:"categories"`
}

type LimitsConfig struct {
	MaxCommentsPerRequest int `mapstructure:"max_comments_per_request"`
	MaxCommentLength      int `mapstructure:"max_comment_length"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

var DefaultCategories = []string{
	"toxic",
	"severe_toxic",
	"obscene",
	"threat",
	"insult",
	"identity_hate",
}

// env names are kept flat so existing deployments keep working.
var envBindings = map[string]string{
	"app.name":                        "APP_NAME",
	"app.version":                     "APP_VERSION",
	"server.host":                     "HOST",
	"server.port":                     "PORT",
	"server.read_timeout":             "READ_TIMEOUT",
	"server.write_timeout":            "WRITE_TIMEOUT",
	"server.shutdown_timeout":         "SHUTDOWN_TIMEOUT",
	"server.body_limit":               "BODY_LIMIT",
	"auth.api_key":                    "API_KEY",
	"auth.dev_mode":                   "DEV_MODE",
	"cors.origins":                    "CORS_ORIGINS",
	"rate_limit.enabled":              "RATE_LIMIT_ENABLED",
	"rate_limit.rate":                 "RATE_LIMIT",
	"redis.enabled":                   "REDIS_ENABLED",
	"redis.host":                      "REDIS_HOST",
	"redis.port":                      "REDIS_PORT",
	"redis.password":                  "REDIS_PASSWORD",
	"redis.db":                        "REDIS_DB",
	"redis.tls":                       "REDIS_TLS",
	"model.backend":                   "MODEL_BACKEND",
	"model.path":                      "MODEL_PATH",
	"model.tokenizer_path":            "TOKENIZER_PATH",
	"model.remote_url":                "MODEL_REMOTE_URL",
	"model.remote_name":               "MODEL_REMOTE_NAME",
	"model.timeout":                   "MODEL_TIMEOUT",
	"model.max_conns":                 "MODEL_MAX_CONNS",
	"model.breaker_failures":          "MODEL_BREAKER_FAILURES",
	"model.breaker_timeout":           "MODEL_BREAKER_TIMEOUT",
	"model.max_sequence_length":       "MAX_SEQUENCE_LENGTH",
	"model.padding":                   "MODEL_PADDING",
	"model.truncating":                "MODEL_TRUNCATING",
	"model.categories":                "CATEGORIES",
	"limits.max_comments_per_request": "MAX_COMMENTS_PER_REQUEST",
	"limits.max_comment_length":       "MAX_COMMENT_LENGTH",
	"metrics.enabled":                 "METRICS_ENABLED",
	"metrics.port":                    "METRICS_PORT",
	"log.level":                       "LOG_LEVEL",
	"log.file":                        "LOG_FILE",
}

var globalConfig Config

// Load reads config.yaml (optional) from configPath and overlays the environment.
func Load(configPath string) error {
	cfg, err := load(viper.New(), configPath)
	if err != nil {
		return err
	}
	globalConfig = *cfg
	return nil
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	setDefaultValues(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file config.yaml: %w", err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToListHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaultValues(v *viper.Viper) {
	v.SetDefault("app.name", "ToxGuard API")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.body_limit", 4*1024*1024)
	v.SetDefault("auth.api_key", DevModePlaceholderKey)
	v.SetDefault("auth.dev_mode", false)
	v.SetDefault("cors.origins", []string{"chrome-extension://*"})
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rate", "30/minute")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.tls", false)
	v.SetDefault("model.backend", BackendLocal)
	v.SetDefault("model.path", "models/tox_model.json")
	v.SetDefault("model.tokenizer_path", "models/tokenizer.json")
	v.SetDefault("model.remote_name", "toxguard")
	v.SetDefault("model.timeout", 10*time.Second)
	v.SetDefault("model.max_conns", 64)
	v.SetDefault("model.breaker_failures", 5)
	v.SetDefault("model.breaker_timeout", 30*time.Second)
	v.SetDefault("model.max_sequence_length", 100)
	v.SetDefault("model.padding", "post")
	v.SetDefault("model.truncating", "pre")
	v.SetDefault("model.categories", DefaultCategories)
	v.SetDefault("limits.max_comments_per_request", 500)
	v.SetDefault("limits.max_comment_length", 500)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("log.level", "info")
}

// stringToListHook accepts both "a,b" and `["a","b"]` for list fields coming from env.
func stringToListHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}
		if strings.HasPrefix(raw, "[") {
			var out []string
			if err := json.Unmarshal([]byte(raw), &out); err != nil {
				return nil, fmt.Errorf("%w: malformed list %q", ErrInvalidConfig, raw)
			}
			return out, nil
		}
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
}

func (c *Config) normalize() {
	c.Model.Backend = strings.ToLower(strings.TrimSpace(c.Model.Backend))
	c.Model.Padding = strings.ToLower(strings.TrimSpace(c.Model.Padding))
	c.Model.Truncating = strings.ToLower(strings.TrimSpace(c.Model.Truncating))
	for i, cat := range c.Model.Categories {
		c.Model.Categories[i] = strings.TrimSpace(cat)
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("%w: metrics port %d out of range", ErrInvalidConfig, c.Metrics.Port)
	}
	if c.Metrics.Enabled && c.Metrics.Port == c.Server.Port {
		return fmt.Errorf("%w: metrics port must differ from server port", ErrInvalidConfig)
	}
	if !c.Auth.DevMode && c.Auth.APIKey == "" {
		return fmt.Errorf("%w: API_KEY is required unless DEV_MODE is set", ErrInvalidConfig)
	}
	if c.Model.MaxSequenceLength <= 0 {
		return fmt.Errorf("%w: MAX_SEQUENCE_LENGTH must be positive", ErrInvalidConfig)
	}
	if c.Limits.MaxCommentsPerRequest <= 0 {
		return fmt.Errorf("%w: MAX_COMMENTS_PER_REQUEST must be positive", ErrInvalidConfig)
	}
	if c.Limits.MaxCommentLength <= 0 {
		return fmt.Errorf("%w: MAX_COMMENT_LENGTH must be positive", ErrInvalidConfig)
	}
	if c.Model.Padding != "pre" && c.Model.Padding != "post" {
		return fmt.Errorf("%w: MODEL_PADDING must be pre or post", ErrInvalidConfig)
	}
	if c.Model.Truncating != "pre" && c.Model.Truncating != "post" {
		return fmt.Errorf("%w: MODEL_TRUNCATING must be pre or post", ErrInvalidConfig)
	}
	switch c.Model.Backend {
	case BackendLocal:
		if c.Model.Path == "" {
			return fmt.Errorf("%w: MODEL_PATH is required for the local backend", ErrInvalidConfig)
		}
	case BackendRemote:
		if c.Model.RemoteURL == "" {
			return fmt.Errorf("%w: MODEL_REMOTE_URL is required for the remote backend", ErrInvalidConfig)
		}
		if c.Model.MaxConns <= 0 {
			return fmt.Errorf("%w: MODEL_MAX_CONNS must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown MODEL_BACKEND %q", ErrInvalidConfig, c.Model.Backend)
	}
	if c.Model.TokenizerPath == "" {
		return fmt.Errorf("%w: TOKENIZER_PATH is required", ErrInvalidConfig)
	}
	if len(c.Model.Categories) != len(DefaultCategories) {
		return fmt.Errorf("%w: expected %d categories, got %d", ErrInvalidConfig, len(DefaultCategories), len(c.Model.Categories))
	}
	seen := make(map[string]struct{}, len(c.Model.Categories))
	for _, cat := range c.Model.Categories {
		if cat == "" {
			return fmt.Errorf("%w: empty category name", ErrInvalidConfig)
		}
		if _, dup := seen[cat]; dup {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidConfig, cat)
		}
		seen[cat] = struct{}{}
	}
	if c.RateLimit.Enabled && strings.TrimSpace(c.RateLimit.Rate) == "" {
		return fmt.Errorf("%w: RATE_LIMIT is required when rate limiting is enabled", ErrInvalidConfig)
	}
	return nil
}

// UsesPlaceholderKey reports whether the shipped sample key is live outside dev mode.
func (c *Config) UsesPlaceholderKey() bool {
	return !c.Auth.DevMode && c.Auth.APIKey == DevModePlaceholderKey
}

func GetConfig() *Config {
	return &globalConfig
}
