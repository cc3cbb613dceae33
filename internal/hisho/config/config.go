// Package config loads Hisho's configuration.
//
// Sources, each overriding the previous one: built-in defaults, an optional
// YAML file, a .env file and finally HISHO_* environment variables. Variables
// already present in the process environment win over the .env file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Hisho/common/environment"
	"github.com/bdobrica/Hisho/common/redact"
	"github.com/bdobrica/Hisho/internal/hisho/notes"
	"github.com/bdobrica/Hisho/internal/hisho/observability"
)

// MatrixConfig configures the Matrix transport.
type MatrixConfig struct {
	Homeserver     string   `yaml:"homeserver"`
	UserID         string   `yaml:"user_id"`
	AccessToken    string   `yaml:"access_token"`
	Rooms          []string `yaml:"rooms"`
	AllowedSenders []string `yaml:"allowed_senders"`
	AutoJoin       bool     `yaml:"auto_join"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// NotesConfig selects the note store backend.
type NotesConfig struct {
	Backend     string `yaml:"backend"`
	JSONPath    string `yaml:"json_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// WeatherConfig configures the OpenWeatherMap client. An empty APIKey
// disables the weather feature.
type WeatherConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RatesConfig configures the exchange rate feed.
type RatesConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// EncyclopediaConfig configures the Wikipedia client.
type EncyclopediaConfig struct {
	BaseURL       string        `yaml:"base_url"`
	MaxCandidates int           `yaml:"max_candidates"`
	Timeout       time.Duration `yaml:"timeout"`
}

// AssistantConfig configures the AI relay. An empty APIKey disables it.
type AssistantConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	MaxTokens    int           `yaml:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout"`
	// RateLimit is the number of AI turns per user per minute.
	RateLimit int `yaml:"rate_limit"`
}

// BotConfig bounds message processing and conversation state.
type BotConfig struct {
	MaxConcurrency  int           `yaml:"max_concurrency"`
	QueueSize       int           `yaml:"queue_size"`
	MaxHistory      int           `yaml:"max_history"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	DeliveryTimeout time.Duration `yaml:"reminder_delivery_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// PersistSessions keeps modes and AI history in the database across
	// restarts.
	PersistSessions bool `yaml:"persist_sessions"`
}

// HTTPConfig configures the health and status server. An empty Addr
// disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the complete configuration.
type Config struct {
	Matrix       MatrixConfig       `yaml:"matrix"`
	Database     DatabaseConfig     `yaml:"database"`
	Notes        NotesConfig        `yaml:"notes"`
	Weather      WeatherConfig      `yaml:"weather"`
	Rates        RatesConfig        `yaml:"rates"`
	Encyclopedia EncyclopediaConfig `yaml:"encyclopedia"`
	Assistant    AssistantConfig    `yaml:"assistant"`
	Bot          BotConfig          `yaml:"bot"`
	HTTP         HTTPConfig         `yaml:"http"`
	Log          LogConfig          `yaml:"log"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Matrix:   MatrixConfig{AutoJoin: true},
		Database: DatabaseConfig{Path: "./hisho.db"},
		Notes: NotesConfig{
			Backend:  string(notes.BackendSQLite),
			JSONPath: "./notes.json",
		},
		Weather:      WeatherConfig{Timeout: 10 * time.Second},
		Rates:        RatesConfig{Timeout: 10 * time.Second},
		Encyclopedia: EncyclopediaConfig{MaxCandidates: 5, Timeout: 10 * time.Second},
		Assistant: AssistantConfig{
			Model:     "gpt-4o-mini",
			Timeout:   60 * time.Second,
			RateLimit: 20,
		},
		Bot: BotConfig{
			MaxConcurrency:  16,
			QueueSize:       32,
			MaxHistory:      50,
			SessionTTL:      24 * time.Hour,
			SweepInterval:   10 * time.Minute,
			DeliveryTimeout: 30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			PersistSessions: true,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from all sources and validates it. path and
// envFile are optional; without envFile a ./.env file is used when present.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()
		if err := cfg.decodeYAML(f); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML overlays the YAML document on cfg. Unknown keys are errors.
func (c *Config) decodeYAML(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(c)
}

func (c *Config) applyEnv() error {
	environment.OverrideString(&c.Matrix.Homeserver, "HISHO_MATRIX_HOMESERVER")
	environment.OverrideString(&c.Matrix.UserID, "HISHO_MATRIX_USER_ID")
	environment.OverrideString(&c.Matrix.AccessToken, "HISHO_MATRIX_ACCESS_TOKEN")
	environment.OverrideStringSlice(&c.Matrix.Rooms, "HISHO_MATRIX_ROOMS")
	environment.OverrideStringSlice(&c.Matrix.AllowedSenders, "HISHO_MATRIX_ALLOWED_SENDERS")

	environment.OverrideString(&c.Database.Path, "HISHO_DATABASE_PATH")
	environment.OverrideString(&c.Notes.Backend, "HISHO_NOTES_BACKEND")
	environment.OverrideString(&c.Notes.JSONPath, "HISHO_NOTES_JSON_PATH")
	environment.OverrideString(&c.Notes.PostgresDSN, "HISHO_NOTES_POSTGRES_DSN")

	environment.OverrideString(&c.Weather.APIKey, "HISHO_WEATHER_API_KEY")
	environment.OverrideString(&c.Weather.BaseURL, "HISHO_WEATHER_BASE_URL")
	environment.OverrideString(&c.Rates.URL, "HISHO_RATES_URL")
	environment.OverrideString(&c.Encyclopedia.BaseURL, "HISHO_WIKI_BASE_URL")

	// OPENAI_API_KEY is read when no key is configured elsewhere.
	if c.Assistant.APIKey == "" {
		environment.OverrideString(&c.Assistant.APIKey, "OPENAI_API_KEY")
	}
	environment.OverrideString(&c.Assistant.APIKey, "HISHO_AI_API_KEY")
	environment.OverrideString(&c.Assistant.BaseURL, "HISHO_AI_BASE_URL")
	environment.OverrideString(&c.Assistant.Model, "HISHO_AI_MODEL")
	environment.OverrideString(&c.Assistant.SystemPrompt, "HISHO_AI_SYSTEM_PROMPT")

	environment.OverrideString(&c.HTTP.Addr, "HISHO_HTTP_ADDR")
	environment.OverrideString(&c.Log.Level, "HISHO_LOG_LEVEL")
	environment.OverrideString(&c.Log.Format, "HISHO_LOG_FORMAT")

	return errors.Join(
		environment.OverrideBool(&c.Matrix.AutoJoin, "HISHO_MATRIX_AUTO_JOIN"),
		environment.OverrideInt(&c.Assistant.RateLimit, "HISHO_AI_RATE_LIMIT"),
		environment.OverrideInt(&c.Assistant.MaxTokens, "HISHO_AI_MAX_TOKENS"),
		environment.OverrideInt(&c.Bot.MaxConcurrency, "HISHO_BOT_MAX_CONCURRENCY"),
		environment.OverrideInt(&c.Bot.MaxHistory, "HISHO_SESSION_MAX_HISTORY"),
		environment.OverrideDuration(&c.Bot.SessionTTL, "HISHO_SESSION_TTL"),
		environment.OverrideBool(&c.Bot.PersistSessions, "HISHO_SESSION_PERSIST"),
	)
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	if c.Matrix.Homeserver == "" {
		errs = append(errs, errors.New("matrix.homeserver (HISHO_MATRIX_HOMESERVER) is required"))
	}
	if c.Matrix.UserID == "" {
		errs = append(errs, errors.New("matrix.user_id (HISHO_MATRIX_USER_ID) is required"))
	}
	if c.Matrix.AccessToken == "" {
		errs = append(errs, errors.New("matrix.access_token (HISHO_MATRIX_ACCESS_TOKEN) is required"))
	}

	backend, err := notes.ParseBackend(c.Notes.Backend)
	switch {
	case err != nil:
		errs = append(errs, err)
	case backend == notes.BackendJSON && c.Notes.JSONPath == "":
		errs = append(errs, errors.New("notes.json_path is required for the json backend"))
	case backend == notes.BackendPostgres && c.Notes.PostgresDSN == "":
		errs = append(errs, errors.New("notes.postgres_dsn is required for the postgres backend"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	positive := []struct {
		name  string
		value int
	}{
		{"bot.max_concurrency", c.Bot.MaxConcurrency},
		{"bot.queue_size", c.Bot.QueueSize},
		{"bot.max_history", c.Bot.MaxHistory},
		{"assistant.rate_limit", c.Assistant.RateLimit},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}
	if c.Bot.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("bot.session_ttl must not be negative, got %s", c.Bot.SessionTTL))
	}
	if c.Bot.MaxHistory > 0 && c.Bot.MaxHistory < 3 {
		errs = append(errs, fmt.Errorf("bot.max_history must hold at least one exchange (3), got %d", c.Bot.MaxHistory))
	}

	if _, err := observability.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// LogValue renders the configuration for logs with every secret redacted.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("homeserver", c.Matrix.Homeserver),
		slog.String("user_id", c.Matrix.UserID),
		slog.String("access_token", redact.Value(c.Matrix.AccessToken)),
		slog.Int("rooms", len(c.Matrix.Rooms)),
		slog.Bool("auto_join", c.Matrix.AutoJoin),
		slog.String("database", c.Database.Path),
		slog.String("notes_backend", c.Notes.Backend),
		slog.String("postgres_dsn", redact.Value(c.Notes.PostgresDSN)),
		slog.String("weather_api_key", redact.Value(c.Weather.APIKey)),
		slog.String("ai_api_key", redact.Value(c.Assistant.APIKey)),
		slog.String("ai_model", c.Assistant.Model),
		slog.String("http_addr", c.HTTP.Addr),
	)
}
