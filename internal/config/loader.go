package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// EnvConfigPath names the environment variable consulted by DiscoverConfigPath.
const EnvConfigPath = "TWILIO_GW_CONFIG"

// Load reads and parses configuration from a file. A directory is accepted
// when it contains config.yaml.
func Load(configPath string) (*Config, error) {
	// Resolve to absolute path for consistent relative path resolution
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	cfg.Path = absPath
	return cfg, nil
}

// Parse decodes YAML config bytes over the defaults, interpolating ${VAR}
// references first, then validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader([]byte(interpolateEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyConfigDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DiscoverConfigPath finds the config file by checking standard locations.
// Priority order: $TWILIO_GW_CONFIG, ~/.config/twilio-gw/config.yaml,
// /etc/twilio-gw/config.yaml, ./config.yaml.
func DiscoverConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	var candidates []string
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "twilio-gw", "config.yaml"))
	}
	candidates = append(candidates, "/etc/twilio-gw/config.yaml", "./config.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config found (checked: $%s, ~/.config/twilio-gw/config.yaml, /etc/twilio-gw/config.yaml, ./config.yaml)", EnvConfigPath)
}

// applyConfigDefaults fills values an explicit empty key would otherwise clear.
// Reply templates are exempt: an empty template means "reply with nothing".
func applyConfigDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Service.Name == "" {
		cfg.Service.Name = def.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = def.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = def.Service.LogFormat
	}
	if cfg.Twilio.BaseURL == "" {
		cfg.Twilio.BaseURL = def.Twilio.BaseURL
	}
	if cfg.Twilio.Timeout == 0 {
		cfg.Twilio.Timeout = def.Twilio.Timeout
	}
	if cfg.Webhooks.MessagePath == "" {
		cfg.Webhooks.MessagePath = def.Webhooks.MessagePath
	}
	if cfg.Webhooks.CallPath == "" {
		cfg.Webhooks.CallPath = def.Webhooks.CallPath
	}
	cfg.Service.LogLevel = strings.ToLower(cfg.Service.LogLevel)
	cfg.Service.LogFormat = strings.ToLower(cfg.Service.LogFormat)
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Unset variables are left in place and caught by validation.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if err := requireResolved("twilio.account_sid", cfg.Twilio.AccountSID); err != nil {
		return err
	}
	if err := requireResolved("twilio.auth_token", cfg.Twilio.AuthToken); err != nil {
		return err
	}
	if cfg.Twilio.Timeout < 0 {
		return fmt.Errorf("twilio.timeout must be positive")
	}

	if cfg.Webhooks.Listen == "" {
		return fmt.Errorf("webhooks.listen is required")
	}
	for _, p := range []struct{ key, value string }{
		{"webhooks.message_path", cfg.Webhooks.MessagePath},
		{"webhooks.call_path", cfg.Webhooks.CallPath},
	} {
		if !strings.HasPrefix(p.value, "/") {
			return fmt.Errorf("%s must start with / (got %q)", p.key, p.value)
		}
	}
	if cfg.Webhooks.EventsToken != "" {
		if err := requireResolved("webhooks.events_token", cfg.Webhooks.EventsToken); err != nil {
			return err
		}
	}
	if cfg.Webhooks.MessagePath == cfg.Webhooks.CallPath {
		return fmt.Errorf("webhooks.message_path and webhooks.call_path must differ")
	}

	if cfg.Inbox.IsEnabled() && cfg.Inbox.Path == "" {
		return fmt.Errorf("inbox.path is required when the inbox is enabled")
	}
	return nil
}

// requireResolved rejects empty values and leftover ${VAR} placeholders.
func requireResolved(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", key)
	}
	if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", key, matches[1])
	}
	return nil
}
