package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brettbedarf/dok/internal/util"
	"gopkg.in/yaml.v3"
)

// Remote gateway types
const (
	RemoteHTTP   = "http"
	RemoteMemory = "memory"
)

// Save body encodings understood by the /save route
const (
	SaveEncodingJSON = "json" // {"path": ..., "content": ...}
	SaveEncodingForm = "form" // path in query, form-encoded content
)

// CLI verbosity values accepted by [ConfigOverride].LogLvl
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultRemoteType     = RemoteHTTP
	DefaultServerURL      = "http://localhost:8080"
	DefaultSaveEncoding   = SaveEncodingJSON
	DefaultSaveDelayMs    = 500
	DefaultRequestTimeout = 10.0
	DefaultLocale         = "en"
	DefaultLogLvl         = util.InfoLevel
)

// Config contains runtime configuration values for the editor client.
type Config struct {
	RemoteType     string            // Gateway implementation registered in adapters (Default "http")
	ServerURL      string            // Base URL of the file operations API (Default http://localhost:8080)
	Headers        map[string]string // Extra headers sent with every request
	SaveEncoding   string            // "json" or "form" body for saves (Default "json")
	SaveDelayMs    int               // Autosave debounce delay in milliseconds (Default 500)
	RequestTimeout float64           // Per request timeout in seconds; 0 disables (Default 10)
	Locale         string            // BCP 47 tag used to collate names in the tree (Default "en")
	LogLvl         util.LogLevel
}

// SaveDelay returns the autosave debounce delay
func (c *Config) SaveDelay() time.Duration {
	return time.Duration(c.SaveDelayMs) * time.Millisecond
}

// Timeout returns the per request timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout * float64(time.Second))
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	RemoteType     *string            `yaml:"remote_type,omitempty" json:"remote_type,omitempty"`
	ServerURL      *string            `yaml:"server_url,omitempty" json:"server_url,omitempty"`
	Headers        *map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	SaveEncoding   *string            `yaml:"save_encoding,omitempty" json:"save_encoding,omitempty"`
	SaveDelayMs    *int               `yaml:"save_delay_ms,omitempty" json:"save_delay_ms,omitempty"`
	RequestTimeout *float64           `yaml:"request_timeout,omitempty" json:"request_timeout,omitempty"`
	Locale         *string            `yaml:"locale,omitempty" json:"locale,omitempty"`
	// LogLvl is the CLI style verbosity between 1 (error) and 5 (trace)
	LogLvl *int `yaml:"verbose,omitempty" json:"verbose,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		RemoteType:     DefaultRemoteType,
		ServerURL:      DefaultServerURL,
		Headers:        map[string]string{},
		SaveEncoding:   DefaultSaveEncoding,
		SaveDelayMs:    DefaultSaveDelayMs,
		RequestTimeout: DefaultRequestTimeout,
		Locale:         DefaultLocale,
		LogLvl:         DefaultLogLvl,
	}
}

// NewConfig returns the defaults with override applied; override may be nil
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.RemoteType != nil {
		c.RemoteType = *override.RemoteType
	}
	if override.ServerURL != nil {
		c.ServerURL = *override.ServerURL
	}
	if override.Headers != nil {
		c.Headers = *override.Headers
	}
	if override.SaveEncoding != nil {
		c.SaveEncoding = *override.SaveEncoding
	}
	if override.SaveDelayMs != nil {
		c.SaveDelayMs = *override.SaveDelayMs
	}
	if override.RequestTimeout != nil {
		c.RequestTimeout = *override.RequestTimeout
	}
	if override.Locale != nil {
		c.Locale = *override.Locale
	}
	if override.LogLvl != nil {
		c.LogLvl = VerbosityToLogLevel(*override.LogLvl)
	}
}

// VerbosityToLogLevel maps CLI verbosity 1 (error) .. 5 (trace) to a LogLevel,
// clamping values out of range
func VerbosityToLogLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(verbose, TraceVerbose))
	lvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return lvls[verbose-1]
}

// Validate reports the first field with an unusable value
func (c *Config) Validate() error {
	switch c.SaveEncoding {
	case SaveEncodingJSON, SaveEncodingForm:
	default:
		return fmt.Errorf("invalid save_encoding %q: must be %q or %q", c.SaveEncoding, SaveEncodingJSON, SaveEncodingForm)
	}
	if c.SaveDelayMs <= 0 {
		return fmt.Errorf("invalid save_delay_ms %d: must be positive", c.SaveDelayMs)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("invalid request_timeout %v: must not be negative", c.RequestTimeout)
	}
	if c.RemoteType == RemoteHTTP && strings.TrimSpace(c.ServerURL) == "" {
		return fmt.Errorf("server_url is required for the %q remote", RemoteHTTP)
	}
	return nil
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
