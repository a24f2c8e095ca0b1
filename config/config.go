package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	CryptoScan CryptoScanConfig `yaml:"cryptoscan"`
}

// CryptoScanConfig is the project configuration.
type CryptoScanConfig struct {
	Tenant  string        `yaml:"tenant"`
	Auth    AuthConfig    `yaml:"auth"`
	Sources SourcesConfig `yaml:"sources"`
	Scan    ScanConfig    `yaml:"scan"`
	Rules   RulesConfig   `yaml:"rules"`
	Output  OutputConfig  `yaml:"output"`
	Store   StoreConfig   `yaml:"store"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// AuthConfig controls token acquisition.
type AuthConfig struct {
	TokenURL     string        `yaml:"token_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	StaticToken  string        `yaml:"static_token"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SourcesConfig controls which content sources a scan covers.
type SourcesConfig struct {
	Email      *bool             `yaml:"email"`
	SharePoint *bool             `yaml:"sharepoint"`
	OneDrive   *bool             `yaml:"onedrive"`
	Teams      *bool             `yaml:"teams"`
	Local      *bool             `yaml:"local"`
	Cloud      *bool             `yaml:"cloud"`
	LocalPaths []string          `yaml:"local_paths"`
	Graph      GraphSourceConfig `yaml:"graph"`
}

// GraphSourceConfig controls the remote content API.
type GraphSourceConfig struct {
	BaseURL string            `yaml:"base_url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// ScanConfig controls scan behavior.
type ScanConfig struct {
	Depth    string `yaml:"depth"`
	MaxItems int    `yaml:"max_items"`
}

// RulesConfig controls supplemental Sigma rules.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OutputConfig controls output.
type OutputConfig struct {
	Mode string           `yaml:"mode"`
	File FileOutputConfig `yaml:"file"`
	HTTP HTTPOutputConfig `yaml:"http"`
}

// StoreConfig controls scan-result persistence.
type StoreConfig struct {
	Enabled bool        `yaml:"enabled"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig controls the Redis result store.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
	RecentMax int64         `yaml:"recent_max"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
