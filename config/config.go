package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"trafficdash/strutil"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "trafficdash.yaml"

// EnvVar names the environment variable that overrides DefaultFile.
const EnvVar = "TRAFFICDASH_CONFIG"

const (
	UIModeTview    = "tview"
	UIModeANSI     = "ansi"
	UIModeHeadless = "headless"
)

// Config represents the complete dashboard configuration.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	UI       UIConfig       `yaml:"ui"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EndpointConfig describes the polled metrics endpoint.
type EndpointConfig struct {
	URL            string `yaml:"url"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	// RequestTimeoutMS of 0 leaves requests bounded only by shutdown.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`
}

// UIConfig selects and tunes the renderer.
type UIConfig struct {
	Mode        string `yaml:"mode"`
	EnableMouse bool   `yaml:"enable_mouse"`
	TargetFPS   int    `yaml:"target_fps"`
	Color       bool   `yaml:"color"`
	ExportDir   string `yaml:"export_dir"`
	LogLines    int    `yaml:"log_lines"`
}

// LoggingConfig controls the optional daily log files.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// DefaultConfig returns the pinned defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint: EndpointConfig{
			URL:              "http://127.0.0.1:5000/data",
			PollIntervalMS:   5000,
			RequestTimeoutMS: 0,
		},
		UI: UIConfig{
			Mode:        UIModeTview,
			EnableMouse: true,
			TargetFPS:   30,
			Color:       true,
			ExportDir:   ".",
			LogLines:    200,
		},
		Logging: LoggingConfig{
			Enabled:       false,
			Dir:           "logs",
			RetentionDays: 7,
		},
	}
}

func (c *Config) normalize() {
	if c == nil {
		return
	}
	def := DefaultConfig()
	c.Endpoint.URL = strings.TrimSpace(c.Endpoint.URL)
	if c.Endpoint.URL == "" {
		c.Endpoint.URL = def.Endpoint.URL
	}
	if c.Endpoint.PollIntervalMS <= 0 {
		c.Endpoint.PollIntervalMS = def.Endpoint.PollIntervalMS
	}
	if c.Endpoint.RequestTimeoutMS < 0 {
		c.Endpoint.RequestTimeoutMS = 0
	}
	c.UI.Mode = strutil.NormalizeLower(c.UI.Mode)
	if c.UI.Mode == "" {
		c.UI.Mode = def.UI.Mode
	}
	if c.UI.TargetFPS <= 0 {
		c.UI.TargetFPS = def.UI.TargetFPS
	}
	if c.UI.TargetFPS > 120 {
		c.UI.TargetFPS = 120
	}
	if strings.TrimSpace(c.UI.ExportDir) == "" {
		c.UI.ExportDir = def.UI.ExportDir
	}
	if c.UI.LogLines <= 0 {
		c.UI.LogLines = def.UI.LogLines
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = def.Logging.Dir
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = def.Logging.RetentionDays
	}
}

// Validate performs sanity checks on the configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint.URL)
	if err != nil {
		return fmt.Errorf("endpoint.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint.url must be http or https, got %q", c.Endpoint.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint.url has no host: %q", c.Endpoint.URL)
	}
	switch c.UI.Mode {
	case UIModeTview, UIModeANSI, UIModeHeadless:
	default:
		return fmt.Errorf("ui.mode must be one of tview, ansi, headless; got %q", c.UI.Mode)
	}
	return nil
}

// PollInterval is the configured period between poll cycles.
func (e EndpointConfig) PollInterval() time.Duration {
	return time.Duration(e.PollIntervalMS) * time.Millisecond
}

// RequestTimeout is the per-request bound; zero means none.
func (e EndpointConfig) RequestTimeout() time.Duration {
	return time.Duration(e.RequestTimeoutMS) * time.Millisecond
}

// WindowLabel renders the poll interval for subtitles, e.g. "5s".
func (e EndpointConfig) WindowLabel() string {
	return e.PollInterval().String()
}

// LoadFile reads a YAML file over the defaults. Keys absent from the file
// keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	bs, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Load resolves the config path and loads it. An explicit path (flag) wins
// over EnvVar; both must exist. Without either, DefaultFile is used if
// present and the defaults otherwise. The returned string is the file
// actually read, empty when running on defaults.
func Load(explicit string) (Config, string, error) {
	path := strings.TrimSpace(explicit)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvVar))
	}
	if path == "" {
		if _, err := os.Stat(DefaultFile); errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			return cfg, "", cfg.Validate()
		}
		path = DefaultFile
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, path, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}
