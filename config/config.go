// Package config loads and validates the signing pipeline
// configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Common errors
var (
	ErrConfigurationError   = errors.New("configuration error")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidConfigType    = errors.New("configuration must be a dictionary")
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// FontSourceConfig configures the download of one signature font tier.
type FontSourceConfig struct {
	// Name is the font family name, used only for logging.
	Name string `yaml:"name" json:"name,omitempty"`

	// URLs are tried in order until one of them yields a usable font.
	URLs []string `yaml:"urls" json:"urls"`
}

// Validate validates the font source configuration.
func (c *FontSourceConfig) Validate() error {
	if len(c.URLs) == 0 {
		return NewConfigError("urls", "at least one font URL is required")
	}
	for i, raw := range c.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return NewConfigError("urls", fmt.Sprintf("entry %d is not a valid http(s) URL", i))
		}
	}
	return nil
}

// FontsConfig configures signature font loading. Each tier falls back
// to a built-in standard font when its download fails, so every entry
// is optional.
type FontsConfig struct {
	// FetchTimeout bounds each tier's download, in seconds.
	FetchTimeout int `yaml:"fetch-timeout" json:"fetch_timeout,omitempty"`

	// Disable skips font downloads entirely and uses standard fonts.
	Disable bool `yaml:"disable" json:"disable,omitempty"`

	// Signature, Signatura and Signaturia override the built-in source
	// URL chains for the three typed-signature styles.
	Signature  *FontSourceConfig `yaml:"signature" json:"signature,omitempty"`
	Signatura  *FontSourceConfig `yaml:"signatura" json:"signatura,omitempty"`
	Signaturia *FontSourceConfig `yaml:"signaturia" json:"signaturia,omitempty"`
}

// Validate validates the fonts configuration.
func (c *FontsConfig) Validate() error {
	for field, src := range map[string]*FontSourceConfig{
		"signature":  c.Signature,
		"signatura":  c.Signatura,
		"signaturia": c.Signaturia,
	} {
		if src == nil {
			continue
		}
		if err := src.Validate(); err != nil {
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				return NewConfigError(field+"."+cfgErr.Field, cfgErr.Message)
			}
			return err
		}
	}
	return nil
}

// AuditConfig configures the appended audit trail page.
type AuditConfig struct {
	// Disable leaves the audit trail page off the signed output.
	Disable bool `yaml:"disable" json:"disable,omitempty"`

	// Brand is the product name shown on the page footer.
	Brand string `yaml:"brand" json:"brand,omitempty"`
}

// PipelineConfig configures the signing pipeline.
type PipelineConfig struct {
	// ViewerWidth is the width in pixels that field coordinates were
	// captured against. Defaults to 800.
	ViewerWidth float64 `yaml:"viewer-width" json:"viewer_width,omitempty"`

	// Fonts configures signature font loading.
	Fonts *FontsConfig `yaml:"fonts" json:"fonts,omitempty"`

	// Audit configures the audit trail page.
	Audit *AuditConfig `yaml:"audit" json:"audit,omitempty"`
}

// Validate validates the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	if c.ViewerWidth < 0 {
		return NewConfigError("viewer-width", "must not be negative")
	}
	if c.Fonts != nil {
		if err := c.Fonts.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level,omitempty"`

	// Output is the log output (stdout, stderr, or a file path).
	Output string `yaml:"output" json:"output,omitempty"`
}

// SetDefaults sets default values for logging configuration.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// AppConfig contains the complete application configuration.
type AppConfig struct {
	// Pipeline contains signing pipeline configuration.
	Pipeline *PipelineConfig `yaml:"pipeline" json:"pipeline,omitempty"`

	// Logging contains logging configuration.
	Logging *LoggingConfig `yaml:"logging" json:"logging,omitempty"`
}

// ParseConfig parses configuration from YAML data.
func ParseConfig(data []byte) (*AppConfig, error) {
	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Pipeline == nil {
		config.Pipeline = &PipelineConfig{}
	}
	if err := config.Pipeline.Validate(); err != nil {
		return nil, err
	}

	if config.Logging == nil {
		config.Logging = &LoggingConfig{}
	}
	config.Logging.SetDefaults()

	return &config, nil
}

// LoadConfig loads the application configuration from a YAML file.
func LoadConfig(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}
