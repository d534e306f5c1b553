// Package config loads service settings from defaults, an optional YAML file,
// .env and ASSESSOR_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "assessor"
	envPrefix  = "ASSESSOR"
)

type Server struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	StaticDir       string        `mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

type DB struct {
	Driver        string `mapstructure:"driver" validate:"oneof=sqlite memory"`
	Path          string `mapstructure:"path" validate:"required_if=Driver sqlite"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required,min=8"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"min=0"`
}

type Forms struct {
	TTL             time.Duration `mapstructure:"ttl" validate:"min=0"`
	ShortCodeLength int           `mapstructure:"short_code_length" validate:"min=1,max=8"`
}

type LLM struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=openai ollama anthropic gemini none"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=0"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
}

type Catalog struct {
	Path string `mapstructure:"path"`
}

type Policy struct {
	Path string `mapstructure:"path"`
}

type Telemetry struct {
	PostHogKey string `mapstructure:"posthog_key"`
	Endpoint   string `mapstructure:"endpoint" validate:"omitempty,url"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Config is the full service configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	DB        DB        `mapstructure:"db"`
	Auth      Auth      `mapstructure:"auth"`
	Forms     Forms     `mapstructure:"forms"`
	LLM       LLM       `mapstructure:"llm"`
	Catalog   Catalog   `mapstructure:"catalog"`
	Policy    Policy    `mapstructure:"policy"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	Log       Log       `mapstructure:"log"`
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", "data/assessor.db")
	v.SetDefault("db.migrations_dir", "")

	v.SetDefault("auth.jwt_secret", "assessor-dev-secret")
	v.SetDefault("auth.token_ttl", "720h")

	v.SetDefault("forms.ttl", "720h")
	v.SetDefault("forms.short_code_length", 6)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", "45s")
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("catalog.path", "")
	v.SetDefault("policy.path", "")

	v.SetDefault("telemetry.posthog_key", "")
	v.SetDefault("telemetry.endpoint", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance wired for defaults, env and an optional config file.
// An empty cfgFile searches ./assessor.yaml.
func New(cfgFile string) *viper.Viper {
	// .env is optional.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return v
}

// Load reads and validates the configuration.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := New(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}
	cfg, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Decode unmarshals and validates the current state of v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Watch re-reads the config file on change and applies the log level. Other
// settings need a restart. Nothing happens when no file was loaded.
func Watch(v *viper.Viper, level *slog.LevelVar) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		lvl := ParseLevel(v.GetString("log.level"))
		if lvl != level.Level() {
			level.Set(lvl)
			slog.Info("log level changed", "level", lvl.String(), "file", e.Name)
		}
	})
	v.WatchConfig()
}
