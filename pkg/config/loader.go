package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, FRAGE_CONFIG env, ./frage.yaml, /etc/frage/config.yaml)
//  3. FRAGE_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. FRAGE_CONFIG environment variable
// 3. ./frage.yaml in the current directory
// 4. /etc/frage/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("FRAGE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"frage.yaml",
		"/etc/frage/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps FRAGE_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FRAGE_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("FRAGE_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("FRAGE_AUTH_SCHEME"); v != "" {
		cfg.Backend.AuthScheme = v
	}
	if v := os.Getenv("FRAGE_AUTH_HEADER"); v != "" {
		cfg.Backend.AuthHeader = v
	}
	if v := os.Getenv("FRAGE_JWT_SECRET"); v != "" {
		cfg.Backend.JWTSecret = v
	}
	if v := os.Getenv("FRAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	if v := os.Getenv("FRAGE_MODEL"); v != "" {
		cfg.Defaults.Model = v
	}
	if v := os.Getenv("FRAGE_RECORDER"); v != "" {
		cfg.Recorder.Type = v
	}
	if v := os.Getenv("FRAGE_RECORDER_DSN"); v != "" {
		cfg.Recorder.Postgres.DSN = v
	}
	if v := os.Getenv("FRAGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FRAGE_DEBUG"); v != "" {
		cfg.Logging.Debug = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	if cfg.Backend.APIKeyFile != "" && cfg.Backend.APIKey == "" {
		val, err := readSecretFile(cfg.Backend.APIKeyFile)
		if err != nil {
			return fmt.Errorf("backend.api_key_file: %w", err)
		}
		cfg.Backend.APIKey = val
	}

	if cfg.Backend.JWTSecretFile != "" && cfg.Backend.JWTSecret == "" {
		val, err := readSecretFile(cfg.Backend.JWTSecretFile)
		if err != nil {
			return fmt.Errorf("backend.jwt_secret_file: %w", err)
		}
		cfg.Backend.JWTSecret = val
	}

	if cfg.Recorder.Postgres.DSNFile != "" && cfg.Recorder.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Recorder.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("recorder.postgres.dsn_file: %w", err)
		}
		cfg.Recorder.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
