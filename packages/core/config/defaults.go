package config

import (
	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Placeholder:     template.DefaultPlaceholder,
		Strategy:        "",
		Timeout:         "30s",
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		Concurrency:     4,
		Retries:         0,
		RetryDelay:      "1s",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Placeholder == defaults.Placeholder &&
		c.ParseKey == defaults.ParseKey &&
		c.Strategy == defaults.Strategy &&
		c.HTMLPattern == defaults.HTMLPattern &&
		c.HTMLHost == defaults.HTMLHost &&
		c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == defaults.Proxy &&
		len(c.Headers) == 0 &&
		c.Concurrency == defaults.Concurrency &&
		c.Retries == defaults.Retries &&
		c.RetryDelay == defaults.RetryDelay &&
		c.EnvFile == defaults.EnvFile &&
		len(c.Variables) == 0
}
