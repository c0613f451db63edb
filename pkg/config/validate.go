package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Backend.URL == "" {
		errs = append(errs, fmt.Errorf("backend.url is required"))
	}

	switch c.Backend.AuthScheme {
	case "bearer", "header", "jwt", "none":
		// valid
	default:
		errs = append(errs, fmt.Errorf("backend.auth_scheme must be \"bearer\", \"header\", \"jwt\", or \"none\", got %q", c.Backend.AuthScheme))
	}

	if c.Backend.AuthScheme == "header" && c.Backend.AuthHeader == "" {
		errs = append(errs, fmt.Errorf("backend.auth_header is required when backend.auth_scheme is \"header\""))
	}

	if c.Backend.AuthScheme == "jwt" && c.Backend.JWTSecret == "" && c.Backend.JWTSecretFile == "" {
		errs = append(errs, fmt.Errorf("backend.jwt_secret or backend.jwt_secret_file is required when backend.auth_scheme is \"jwt\""))
	}

	switch c.Recorder.Type {
	case "none", "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("recorder.type must be \"none\", \"memory\", or \"postgres\", got %q", c.Recorder.Type))
	}

	if c.Recorder.Type == "postgres" {
		if c.Recorder.Postgres.DSN == "" && c.Recorder.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("recorder.postgres.dsn or recorder.postgres.dsn_file is required when recorder.type is \"postgres\""))
		}
	}

	return errors.Join(errs...)
}
