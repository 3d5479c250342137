// Package config loads csom settings from a YAML file overlaid by CSOM_*
// environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every command.
type Config struct {
	SiteURL         string `mapstructure:"site_url" yaml:"site_url"`
	AccessToken     string `mapstructure:"access_token" yaml:"access_token,omitempty"`
	ApplicationName string `mapstructure:"application_name" yaml:"application_name"`
	Timeout         string `mapstructure:"timeout" yaml:"timeout"`
	RetryCount      int    `mapstructure:"retry_count" yaml:"retry_count"`
	Journal         string `mapstructure:"journal" yaml:"journal,omitempty"`
	LCID            int    `mapstructure:"lcid" yaml:"lcid"`
}

// keys lists every setting, for environment binding.
var keys = []string{
	"site_url",
	"access_token",
	"application_name",
	"timeout",
	"retry_count",
	"journal",
	"lcid",
}

func defaults() *Config {
	return &Config{
		ApplicationName: "csom",
		Timeout:         "60s",
		RetryCount:      0,
		LCID:            1033,
	}
}

// Load reads path as YAML. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaults(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
// The file may hold an access token and is written owner-only.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// DiscoverPath returns the config file to use: flagPath, then
// $CSOM_CONFIG, then ~/.csom/config.yaml.
func DiscoverPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if envPath := os.Getenv("CSOM_CONFIG"); envPath != "" {
		return envPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".csom", "config.yaml")
	}
	return filepath.Join(homeDir, ".csom", "config.yaml")
}

// LoadWithEnv reads path (if it exists) and overlays CSOM_* environment
// variables, e.g. CSOM_SITE_URL and CSOM_ACCESS_TOKEN.
func LoadWithEnv(path string) (*Config, error) {
	v := viper.New()

	d := defaults()
	v.SetDefault("application_name", d.ApplicationName)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("retry_count", d.RetryCount)
	v.SetDefault("lcid", d.LCID)

	v.SetEnvPrefix("CSOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TimeoutDuration parses Timeout, falling back to 60s when it is empty or
// invalid.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Validate reports settings a network command cannot run without.
func (c *Config) Validate() error {
	if c.SiteURL == "" {
		return fmt.Errorf("site_url is not set (use --site-url, CSOM_SITE_URL or the config file)")
	}
	if !strings.HasPrefix(c.SiteURL, "https://") && !strings.HasPrefix(c.SiteURL, "http://") {
		return fmt.Errorf("site_url %q must be an http(s) URL", c.SiteURL)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("retry_count must not be negative")
	}
	if c.LCID < 0 || c.LCID > math.MaxInt32 {
		return fmt.Errorf("lcid %d must be between 1 and %d", c.LCID, math.MaxInt32)
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("timeout %q must be a positive duration such as 60s", c.Timeout)
		}
	}
	return nil
}
