package pipeline

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// LoggingConfig selects the log backend behaviour for the binaries.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// DatabaseConfig selects the document store backing database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// HTTPConfig configures the read facade server.
type HTTPConfig struct {
	Addr     string `yaml:"addr"`
	BasePath string `yaml:"base_path"`
}

// Config is the runtime configuration shared by the loader and API binaries.
// The content schema itself is not here: it lives in the config document
// inside the content source and is resolved per run.
type Config struct {
	// ConfigDocument names the source document holding the content schema.
	ConfigDocument string `yaml:"config_document"`
	// ContentDir is the root of the filesystem content source.
	ContentDir string `yaml:"content_dir"`
	// CacheFile is where local snapshots of the source are written and read.
	CacheFile string `yaml:"cache_file"`

	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		ConfigDocument: "api",
		ContentDir:     "content",
		CacheFile:      "content-cache.json",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "file:content.db?cache=shared&_fk=1",
		},
		HTTP: HTTPConfig{
			Addr:     ":8080",
			BasePath: "/api/v1",
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing path is
// not an error: the defaults stand.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields every run depends on.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.ConfigDocument, validation.Required),
		validation.Field(&c.Database),
	)
	return wrapValidationError(err)
}

// Validate implements validation.Validatable so the database section is
// checked as part of the parent config.
func (c DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required),
		validation.Field(&c.DSN, validation.Required),
	)
}
