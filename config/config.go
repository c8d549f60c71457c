/*
Package config loads server and CLI configuration.

PRECEDENCE (lowest to highest):
  1. Built-in defaults (Default)
  2. YAML file: explicit path, else $CONVOCACAO_CONFIG, else none
  3. Environment: CONVOCACAO_<SECTION>_<FIELD>, e.g. CONVOCACAO_SERVER_PORT

  Each layer only overrides the fields it sets. A YAML file that only has
  "selection: {num_vagas: 10}" keeps every other default.

EXAMPLE FILE:
  server:
    port: 8080
    allowed_origins: ["http://localhost:5173"]
  logging:
    level: debug
    development: true
  selection:
    mission_mode: regional
    num_vagas: 15
  sheets:
    source: export          # export | api
    sheet_id: 1A2b3C...
  rate_limit:
    enabled: true
    rps: 5
    burst: 10

SEE ALSO:
  - cmd/server/main.go, cmd/convocar/main.go: Callers
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/generic"
	"github.com/warp/convocation-engine/sheets"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "CONVOCACAO"

// EnvConfigFile names the variable holding the YAML file path.
const EnvConfigFile = EnvPrefix + "_CONFIG"

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Selection SelectionConfig `yaml:"selection" envconfig:"SELECTION"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"min=1024"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// SelectionConfig holds the defaults applied when a request omits them.
type SelectionConfig struct {
	MissionMode string `yaml:"mission_mode" envconfig:"MISSION_MODE" validate:"required"`
	NumVagas    int    `yaml:"num_vagas" envconfig:"NUM_VAGAS" validate:"min=1"`
}

// SheetsConfig selects how a sheet id is turned into tables.
type SheetsConfig struct {
	Source       string        `yaml:"source" envconfig:"SOURCE" validate:"oneof=export api"`
	SheetID      string        `yaml:"sheet_id" envconfig:"SHEET_ID"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY" validate:"required_if=Source api"`
	ExportURL    string        `yaml:"export_url" envconfig:"EXPORT_URL"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	MaxBodyBytes int           `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" validate:"min=1024"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"min=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
			MaxUploadBytes:  32 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Selection: SelectionConfig{
			MissionMode: "regional",
			NumVagas:    15,
		},
		Sheets: SheetsConfig{
			Source:       "export",
			ExportURL:    sheets.DefaultExportURL,
			Timeout:      30 * time.Second,
			MaxBodyBytes: 32 << 20,
		},
		RateLimit: RateLimitConfig{
			Enabled: false,
			RPS:     5,
			Burst:   10,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $CONVOCACAO_CONFIG when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile overlays the YAML file onto c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks field ranges and that the default mission mode is known.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%s: failed on %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}
	if _, err := c.SelectionDefaults(); err != nil {
		return err
	}
	return nil
}

// SelectionDefaults converts the selection section to engine configuration.
func (c *Config) SelectionDefaults() (convocacao.SelectionConfig, error) {
	mode, err := convocacao.ParseMissionMode(c.Selection.MissionMode)
	if err != nil {
		return convocacao.SelectionConfig{}, err
	}
	return convocacao.SelectionConfig{MissionMode: mode, NumVagas: c.Selection.NumVagas}, nil
}

// NewSource returns the TableSource for a sheet id or URL, using the export
// download or the Sheets API as configured. An empty id falls back to SheetID.
func (s SheetsConfig) NewSource(sheetID string) generic.TableSource {
	if sheetID == "" {
		sheetID = s.SheetID
	}
	id := sheets.ExtractSheetID(sheetID)
	if s.Source == "api" {
		return &sheets.APISource{SheetID: id, APIKey: s.APIKey}
	}
	return &sheets.ExportSource{
		SheetID:     id,
		URLTemplate: s.ExportURL,
		Timeout:     s.Timeout,
		MaxBodySize: s.MaxBodyBytes,
	}
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// NewLogger builds a zap logger from the logging section.
func (l LoggingConfig) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
