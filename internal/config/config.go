package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	ICAMap      ICAMapConfig `yaml:"ica_map"`
	Feeders     FeederConfig `yaml:"feeders"`
	OutputDir   string       `yaml:"output_dir,omitempty"`      // Where per-feeder csv files are written (default: ./timeseries)
	Retries     int          `yaml:"retries,omitempty"`         // Retry attempts per feeder request (default: 5)
	TimeoutSecs int          `yaml:"timeout_seconds,omitempty"` // Per-request timeout (default: 30)
	MQTT        MQTTConfig   `yaml:"mqtt,omitempty"`
}

// ICAMapConfig holds credentials and endpoints for the utility's ICA map
type ICAMapConfig struct {
	LoginURL  string   `yaml:"login_url,omitempty"` // ICA map login page
	DataURL   string   `yaml:"data_url,omitempty"`  // Base URL for per-feeder downloads
	Username  string   `yaml:"username,omitempty"`
	Password  string   `yaml:"password,omitempty"`
	AuthToken string   `yaml:"auth_token,omitempty"`
	Cookies   []Cookie `yaml:"cookies"`
}

// FeederConfig selects where the feeder inventory comes from
type FeederConfig struct {
	Source    string `yaml:"source,omitempty"`    // "shapefile", "index", or "file"
	Shapefile string `yaml:"shapefile,omitempty"` // Path to the ICA feeder-detail shapefile
	IndexURL  string `yaml:"index_url,omitempty"` // JSON index endpoint listing feeder IDs
	ListFile  string `yaml:"list_file,omitempty"` // Newline-delimited feeder ID list
}

// Cookie represents a browser cookie
type Cookie struct {
	Name     string  `yaml:"name"`
	Value    string  `yaml:"value"`
	Domain   string  `yaml:"domain"`
	Path     string  `yaml:"path"`
	Expires  float64 `yaml:"expires,omitempty"`
	HTTPOnly bool    `yaml:"httpOnly,omitempty"`
	Secure   bool    `yaml:"secure,omitempty"`
	SameSite string  `yaml:"sameSite,omitempty"`
}

// MQTTConfig holds settings for publishing run summaries
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker,omitempty"` // host:port
	Topic    string `yaml:"topic,omitempty"`  // Default: icafetch/runs
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// PG&E defaults; override in config.yaml for another utility's map.
const (
	defaultLoginURL = "https://www.pge.com/b2b/distribution-resource-planning/integration-capacity-map.shtml"
	defaultDataURL  = "https://www.pge.com/b2b/distribution-resource-planning/downloads/integration-capacity/"
)

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetLoginURL returns the ICA map login URL, defaulting to PG&E's
func (c *Config) GetLoginURL() string {
	if c.ICAMap.LoginURL != "" {
		return c.ICAMap.LoginURL
	}
	return defaultLoginURL
}

// GetDataURL returns the per-feeder download base URL, defaulting to PG&E's
func (c *Config) GetDataURL() string {
	if c.ICAMap.DataURL != "" {
		return c.ICAMap.DataURL
	}
	return defaultDataURL
}

// GetOutputDir returns the output directory with a default of ./timeseries
func (c *Config) GetOutputDir() string {
	if c.OutputDir == "" {
		return "timeseries"
	}
	return c.OutputDir
}

// GetRetries returns the per-feeder retry budget with a default of 5
func (c *Config) GetRetries() int {
	if c.Retries <= 0 {
		return 5
	}
	return c.Retries
}

// GetTimeout returns the per-request timeout with a default of 30s
func (c *Config) GetTimeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// GetMQTTTopic returns the MQTT topic with a default of icafetch/runs
func (c *Config) GetMQTTTopic() string {
	if c.MQTT.Topic == "" {
		return "icafetch/runs"
	}
	return c.MQTT.Topic
}

// GetFeederSource returns the configured feeder source name. When unset it is
// inferred from which path is present: shapefile wins, then list file, then
// the index endpoint.
func (c *Config) GetFeederSource() string {
	if c.Feeders.Source != "" {
		return c.Feeders.Source
	}
	if c.Feeders.Shapefile != "" {
		return "shapefile"
	}
	if c.Feeders.ListFile != "" {
		return "file"
	}
	return "index"
}
