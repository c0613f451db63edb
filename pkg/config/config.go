// Package config provides unified configuration for the frage client and
// its commands.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (FRAGE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for frage.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Recorder RecorderConfig `yaml:"recorder"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BackendConfig holds the Chat Completions backend endpoint and credential.
type BackendConfig struct {
	URL        string        `yaml:"url"`          // required
	Timeout    time.Duration `yaml:"timeout"`      // one-shot request timeout, default: 120s
	AuthScheme string        `yaml:"auth_scheme"`  // "bearer", "header", "jwt", "none", default: "bearer"
	APIKey     string        `yaml:"api_key"`      // for bearer/header schemes
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	AuthHeader string        `yaml:"auth_header"`  // header name for scheme=header, default: "api-key"

	// JWT credential settings for auth_scheme=jwt.
	JWTSecret     string `yaml:"jwt_secret"`
	JWTSecretFile string `yaml:"jwt_secret_file"`
	JWTSubject    string `yaml:"jwt_subject"`
	JWTIssuer     string `yaml:"jwt_issuer"`
}

// DefaultsConfig holds client-level request parameter defaults. Unset
// fields fall back to the documented wire defaults in pkg/chat.
type DefaultsConfig struct {
	Model            string   `yaml:"model"`
	Temperature      *float64 `yaml:"temperature"`
	TopP             *float64 `yaml:"top_p"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty"`
	PresencePenalty  *float64 `yaml:"presence_penalty"`
	MaxTokens        *int     `yaml:"max_tokens"`
	Stop             []string `yaml:"stop"`
}

// RecorderConfig holds exchange transcript settings.
type RecorderConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory", or "postgres", default: "none"
	MaxSize  int            `yaml:"max_size"` // for memory recorder, default: 1000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific recorder settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// LoggingConfig holds slog level and debug category settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // ERROR, WARN, INFO, DEBUG, TRACE; default: INFO
	Debug string `yaml:"debug"` // comma-separated debug categories
}

// Defaults returns a Config populated with built-in defaults.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			Timeout:    120 * time.Second,
			AuthScheme: "bearer",
			AuthHeader: "api-key",
		},
		Recorder: RecorderConfig{
			Type:    "none",
			MaxSize: 1000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}
