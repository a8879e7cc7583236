package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the bill extraction service.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Gemini     GeminiConfig
	Model      ModelConfig
	Fetch      FetchConfig
	Render     RenderConfig
	Extraction ExtractionConfig
	GCS        GCSConfig
	CORS       CORSConfig

	// KeepTempFiles leaves the per-request work directory on disk.
	KeepTempFiles bool `mapstructure:"keep_temp_files"`
	// WorkDir is the parent of per-request work directories. Empty means os.TempDir().
	WorkDir string `mapstructure:"work_dir"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// GeminiConfig identifies the hosted model and the credentials used to reach it.
type GeminiConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	ProjectID string `mapstructure:"project_id"`
	Region    string `mapstructure:"region"`
}

// ModelConfig holds per-call model settings.
type ModelConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// FetchConfig holds document download settings.
type FetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes"`
}

// RenderConfig holds PDF rasterization settings.
type RenderConfig struct {
	DPI float64 `mapstructure:"dpi"`
}

// ExtractionConfig controls the per-page extraction policy.
type ExtractionConfig struct {
	PageConcurrency int  `mapstructure:"page_concurrency"`
	StrictPages     bool `mapstructure:"strict_pages"`
}

// GCSConfig enables gs:// document URIs.
type GCSConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from an optional .env file and the process environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Deployment-facing variable names.
	envBindings := map[string]string{
		"gemini.api_key":    "GEMINI_API_KEY",
		"gemini.model":      "GEMINI_MODEL",
		"gemini.project_id": "PROJECT_ID",
		"gemini.region":     "VERTEX_AI_REGION",
		"server.port":       "PORT",
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.CORS.AllowedOrigins = splitList(v.GetString("cors.allowed_origins"))
	if !strings.HasPrefix(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.project_id", "")
	v.SetDefault("gemini.region", "us-central1")

	v.SetDefault("model.timeout", "120s")
	v.SetDefault("fetch.timeout", "60s")
	v.SetDefault("fetch.max_bytes", 0)
	v.SetDefault("render.dpi", 200)

	v.SetDefault("extraction.page_concurrency", 1)
	v.SetDefault("extraction.strict_pages", false)

	v.SetDefault("gcs.enabled", false)
	v.SetDefault("cors.allowed_origins", "*")

	v.SetDefault("keep_temp_files", false)
	v.SetDefault("work_dir", "")
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Gemini.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("GEMINI_MODEL must not be empty")
	}
	if c.Extraction.PageConcurrency < 1 {
		return fmt.Errorf("extraction.page_concurrency must be at least 1, got %d", c.Extraction.PageConcurrency)
	}
	if c.Render.DPI <= 0 {
		return fmt.Errorf("render.dpi must be positive, got %v", c.Render.DPI)
	}
	return nil
}

// SlogLevel maps log.level onto a slog level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
