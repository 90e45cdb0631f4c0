package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/rawhit/packages/core/config"
	"github.com/abdul-hamid-achik/rawhit/packages/core/env"
	"github.com/abdul-hamid-achik/rawhit/packages/extract"
	"github.com/abdul-hamid-achik/rawhit/packages/http"
	"github.com/abdul-hamid-achik/rawhit/packages/target"
	"github.com/spf13/cobra"
)

// Flags shared by every command that builds a target. An empty value leaves
// the config file setting in place.
var (
	placeholderFlag string
	keyFlag         string
	strategyFlag    string
	htmlPatternFlag string
	htmlHostFlag    string
	timeoutFlag     string
	proxyFlag       string
	insecureFlag    bool
	envFileFlag     string
	varFlags        []string
	retriesFlag     int
	retryDelayFlag  string
	outputFlag      string
)

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&keyFlag, "key", getEnvString("RAWHIT_KEY", ""), "Key-path or CSS selector of the reply, e.g. choices[0].message.content (env: RAWHIT_KEY)")
	cmd.Flags().StringVar(&strategyFlag, "strategy", getEnvString("RAWHIT_STRATEGY", ""), "Extraction strategy: json, html, css (default: raw body, or json when --key is set) (env: RAWHIT_STRATEGY)")
	cmd.Flags().StringVar(&htmlPatternFlag, "html-pattern", getEnvString("RAWHIT_HTML_PATTERN", ""), "Regular expression for the html strategy (env: RAWHIT_HTML_PATTERN)")
	cmd.Flags().StringVar(&htmlHostFlag, "html-host", getEnvString("RAWHIT_HTML_HOST", ""), "Host prefixed to html strategy matches (env: RAWHIT_HTML_HOST)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("RAWHIT_OUTPUT", "console"), "Output format: console, json (env: RAWHIT_OUTPUT)")
}

func addTemplateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&placeholderFlag, "placeholder", getEnvString("RAWHIT_PLACEHOLDER", ""), "Placeholder pattern, a regular expression (default {PROMPT}) (env: RAWHIT_PLACEHOLDER)")
	cmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("RAWHIT_ENV_FILE", ""), "Path to .env file for variable interpolation (env: RAWHIT_ENV_FILE)")
	cmd.Flags().StringArrayVar(&varFlags, "var", nil, "Template variable as name=value (repeatable)")
}

func addTargetFlags(cmd *cobra.Command) {
	addTemplateFlags(cmd)
	addExtractFlags(cmd)
	cmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("RAWHIT_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m) (env: RAWHIT_TIMEOUT)")
	cmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("RAWHIT_PROXY", ""), "Proxy URL for HTTP requests (env: RAWHIT_PROXY)")
	cmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("RAWHIT_INSECURE", false), "Disable SSL certificate validation (env: RAWHIT_INSECURE)")
	cmd.Flags().IntVar(&retriesFlag, "retries", getEnvInt("RAWHIT_RETRIES", 0), "Retries after a transport error (env: RAWHIT_RETRIES)")
	cmd.Flags().StringVar(&retryDelayFlag, "retry-delay", getEnvString("RAWHIT_RETRY_DELAY", ""), "Wait between retries (env: RAWHIT_RETRY_DELAY)")
}

// loadSettings layers flags over the config file and validates the result.
func loadSettings() (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withCode(ExitConfigError, err)
	}

	vars := make(map[string]string)
	for _, kv := range varFlags {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, usageError(fmt.Errorf("invalid --var %q (want name=value)", kv))
		}
		vars[name] = value
	}

	overrides := &config.Config{
		Placeholder: placeholderFlag,
		ParseKey:    keyFlag,
		Strategy:    strategyFlag,
		HTMLPattern: htmlPatternFlag,
		HTMLHost:    htmlHostFlag,
		Timeout:     timeoutFlag,
		Proxy:       proxyFlag,
		Retries:     retriesFlag,
		RetryDelay:  retryDelayFlag,
		EnvFile:     envFileFlag,
		Variables:   vars,
	}
	if insecureFlag {
		overrides.ValidateSSL = config.BoolPtr(false)
	}

	cfg := fileConfig.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, withCode(ExitConfigError, err)
	}
	return cfg, nil
}

// newResolver seeds template variables from RAWHIT_VAR_*, the config file,
// the env file and --var, in increasing order of precedence.
func newResolver(cfg *config.Config, logger *slog.Logger) (*env.Resolver, error) {
	resolver := env.NewResolver()
	resolver.SetWarnFunc(func(format string, args ...any) {
		logger.Warn(fmt.Sprintf(format, args...))
	})

	var fileVars map[string]string
	if cfg.EnvFile != "" {
		var err error
		fileVars, err = env.LoadAndExportDotEnv(cfg.EnvFile)
		if err != nil {
			return nil, withCode(ExitConfigError, err)
		}
	}

	resolver.SetVariables(env.MergeVariables(
		env.LoadSystemEnv(env.VariablePrefix),
		fileVars,
		cfg.Variables,
	))
	return resolver, nil
}

func newStrategy(cfg *config.Config) (extract.Strategy, error) {
	name := cfg.Strategy
	if name == "" {
		if cfg.ParseKey == "" {
			return nil, nil
		}
		name = "json"
	}

	if name == "html" {
		var pattern *regexp.Regexp
		if cfg.HTMLPattern != "" {
			var err error
			pattern, err = regexp.Compile(cfg.HTMLPattern)
			if err != nil {
				return nil, withCode(ExitConfigError, fmt.Errorf("invalid html pattern: %w", err))
			}
		}
		return extract.NewHTMLStrategy(pattern, cfg.HTMLHost), nil
	}

	s, ok := extract.NewRegistry().Get(name)
	if !ok {
		return nil, withCode(ExitConfigError, fmt.Errorf("unknown strategy %q", name))
	}
	return s, nil
}

func newClient(cfg *config.Config) *http.Client {
	return http.NewClient(
		http.WithTimeout(cfg.TimeoutDuration()),
		http.WithFollowRedirects(cfg.GetFollowRedirects()),
		http.WithMaxRedirects(cfg.MaxRedirects),
		http.WithValidateSSL(cfg.GetValidateSSL()),
		http.WithProxy(cfg.Proxy),
		http.WithDefaultHeaders(cfg.Headers),
	)
}

func readTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", usageError(fmt.Errorf("cannot read template: %w", err))
	}
	return string(data), nil
}

// newTarget reads the template at path and wires it to cfg. The template is
// re-read only when newTarget is called again.
func newTarget(path string, cfg *config.Config, logger *slog.Logger) (*target.HTTPTarget, error) {
	raw, err := readTemplate(path)
	if err != nil {
		return nil, err
	}

	resolver, err := newResolver(cfg, logger)
	if err != nil {
		return nil, err
	}

	strategy, err := newStrategy(cfg)
	if err != nil {
		return nil, err
	}

	opts := []target.Option{
		target.WithPlaceholder(cfg.Placeholder),
		target.WithParseKey(cfg.ParseKey),
		target.WithClient(newClient(cfg)),
		target.WithResolver(resolver.Resolve),
		target.WithLogger(logger),
		target.WithRetry(cfg.Retries, cfg.RetryDelayDuration()),
	}
	if strategy != nil {
		opts = append(opts, target.WithStrategy(strategy))
	}

	tgt, err := target.NewHTTPTarget(raw, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tgt, nil
}
