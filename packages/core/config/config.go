package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the per-project settings shared by every rawhit command.
// Durations are Go duration strings such as "30s" or "500ms".
type Config struct {
	Placeholder     string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	ParseKey        string            `json:"parseKey,omitempty" yaml:"parseKey,omitempty"`
	Strategy        string            `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	HTMLPattern     string            `json:"htmlPattern,omitempty" yaml:"htmlPattern,omitempty"`
	HTMLHost        string            `json:"htmlHost,omitempty" yaml:"htmlHost,omitempty"`
	Timeout         string            `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // sent unless the template sets them
	Concurrency     int               `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Retries         int               `json:"retries,omitempty" yaml:"retries,omitempty"`
	RetryDelay      string            `json:"retryDelay,omitempty" yaml:"retryDelay,omitempty"`
	EnvFile         string            `json:"envFile,omitempty" yaml:"envFile,omitempty"`
	Variables       map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// BoolPtr is a helper for building configs in code.
func BoolPtr(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects is true unless a file or flag turned redirects off.
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL is true unless --insecure or validateSSL: false is set.
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// TimeoutDuration parses Timeout. Call Validate first; an unparsable value
// yields zero.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

func (c *Config) RetryDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryDelay)
	return d
}

// ConfigFilenames are searched in order.
var ConfigFilenames = []string{
	".rawhit.yaml",
	".rawhit.yml",
	"rawhit.yaml",
	".rawhit.json",
}

// LoadConfig loads path, or searches the current directory when path is
// empty.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig returns the defaults when dir has no config file.
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fileConfig := &Config{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, fileConfig)
	} else {
		err = yaml.Unmarshal(data, fileConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := fileConfig.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return DefaultConfig().Merge(fileConfig), nil
}

// Merge returns a copy of c with every set field of other applied on top.
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Placeholder != "" {
		result.Placeholder = other.Placeholder
	}
	if other.ParseKey != "" {
		result.ParseKey = other.ParseKey
	}
	if other.Strategy != "" {
		result.Strategy = other.Strategy
	}
	if other.HTMLPattern != "" {
		result.HTMLPattern = other.HTMLPattern
	}
	if other.HTMLHost != "" {
		result.HTMLHost = other.HTMLHost
	}
	if other.Timeout != "" {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.Retries > 0 {
		result.Retries = other.Retries
	}
	if other.RetryDelay != "" {
		result.RetryDelay = other.RetryDelay
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}

	// nil pointers mean unset
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}

	result.Headers = mergeMaps(c.Headers, other.Headers)
	result.Variables = mergeMaps(c.Variables, other.Variables)

	return &result
}

func mergeMaps(base, over map[string]string) map[string]string {
	if len(over) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged
}

// SaveConfig writes c as YAML, or as JSON when path ends in .json.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
