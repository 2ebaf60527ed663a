package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// APIKeyEnv overrides the api_key value from the config file.
const APIKeyEnv = "EASEL_API_KEY"

// Config holds the resolved easel settings.
type Config struct {
	GenerationURL    string        `validate:"required,url"`
	CollectionURL    string        `validate:"required,url"`
	APIKey           string
	APIKeyHeader     string        `validate:"required"`
	AccountHash      string
	PollInterval     time.Duration `validate:"min=100ms"`
	PollTimeout      time.Duration `validate:"gt=0"`
	MutationTimeout  time.Duration `validate:"gt=0"`
	MaxAttempts      int           `validate:"min=1,max=10"`
	KeepWarmInterval time.Duration `validate:"gt=0"`
	LogPath          string        `validate:"required"`
	LogLevel         string        `validate:"oneof=trace debug info warn error"`
}

const (
	defaultConfigPath       = "~/.config/easel/config.toml"
	defaultEnvFile          = ".env"
	defaultGenerationURL    = "https://api.userapi.ai/midjourney/v2"
	defaultCollectionURL    = "http://127.0.0.1:8000/api"
	defaultAPIKeyHeader     = "api-key"
	defaultPollInterval     = 2 * time.Second
	defaultPollTimeout      = 10 * time.Second
	defaultMutationTimeout  = 120 * time.Second
	defaultMaxAttempts      = 3
	defaultKeepWarmInterval = 25 * time.Second
	defaultLogPath          = "~/.local/state/easel/easel.log"
	defaultLogLevel         = "info"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		GenerationURL:    defaultGenerationURL,
		CollectionURL:    defaultCollectionURL,
		APIKeyHeader:     defaultAPIKeyHeader,
		PollInterval:     defaultPollInterval,
		PollTimeout:      defaultPollTimeout,
		MutationTimeout:  defaultMutationTimeout,
		MaxAttempts:      defaultMaxAttempts,
		KeepWarmInterval: defaultKeepWarmInterval,
		LogPath:          mustExpand(defaultLogPath),
		LogLevel:         defaultLogLevel,
	}
}

type rawConfig struct {
	GenerationURL    string `toml:"generation_url"`
	CollectionURL    string `toml:"collection_url"`
	APIKey           string `toml:"api_key"`
	APIKeyHeader     string `toml:"api_key_header"`
	AccountHash      string `toml:"account_hash"`
	PollInterval     string `toml:"poll_interval"`
	PollTimeout      string `toml:"poll_timeout"`
	MutationTimeout  string `toml:"mutation_timeout"`
	MaxAttempts      int    `toml:"max_attempts"`
	KeepWarmInterval string `toml:"keep_warm_interval"`
	LogPath          string `toml:"log_path"`
	LogLevel         string `toml:"log_level"`
}

// Load locates and parses the easel config, falling back to defaults when
// missing. A .env file in the working directory is read first so the API key
// can live outside the config file.
func Load(path string) (Config, error) {
	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", defaultEnvFile, err)
	}

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		applyEnv(&cfg)
		return cfg, validate(cfg)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.GenerationURL = stringOr(raw.GenerationURL, cfg.GenerationURL)
	cfg.CollectionURL = stringOr(raw.CollectionURL, cfg.CollectionURL)
	cfg.APIKey = strings.TrimSpace(raw.APIKey)
	cfg.APIKeyHeader = stringOr(raw.APIKeyHeader, cfg.APIKeyHeader)
	cfg.AccountHash = strings.TrimSpace(raw.AccountHash)
	cfg.LogLevel = strings.ToLower(stringOr(raw.LogLevel, cfg.LogLevel))
	if raw.MaxAttempts > 0 {
		cfg.MaxAttempts = raw.MaxAttempts
	}
	if logPath := strings.TrimSpace(raw.LogPath); logPath != "" {
		cfg.LogPath = mustExpand(logPath)
	}

	durations := []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
		{"poll_timeout", raw.PollTimeout, &cfg.PollTimeout},
		{"mutation_timeout", raw.MutationTimeout, &cfg.MutationTimeout},
		{"keep_warm_interval", raw.KeepWarmInterval, &cfg.KeepWarmInterval},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.value) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return Config{}, fmt.Errorf("parse config: %s: %w", d.name, err)
		}
		*d.dest = parsed
	}

	applyEnv(&cfg)
	return cfg, validate(cfg)
}

// APIHeaders returns the headers every generation request carries.
func (c Config) APIHeaders() map[string]string {
	if c.APIKey == "" {
		return nil
	}
	return map[string]string{c.APIKeyHeader: c.APIKey}
}

func applyEnv(cfg *Config) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		cfg.APIKey = key
	}
}

func validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func stringOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
