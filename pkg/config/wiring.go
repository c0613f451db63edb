package config

import (
	"github.com/frage-dev/frage/pkg/auth"
	"github.com/frage-dev/frage/pkg/chat"
)

// Credentials builds the auth.Credentials described by the backend config.
func (c *Config) Credentials() auth.Credentials {
	switch c.Backend.AuthScheme {
	case "header":
		return auth.Header{Name: c.Backend.AuthHeader, Key: c.Backend.APIKey}
	case "jwt":
		return auth.SignedJWT{
			Secret:  []byte(c.Backend.JWTSecret),
			Subject: c.Backend.JWTSubject,
			Issuer:  c.Backend.JWTIssuer,
		}
	case "none":
		return auth.None{}
	default:
		return auth.Bearer{Key: c.Backend.APIKey}
	}
}

// ClientDefaults builds the client-level chat.Params from the defaults
// config. Unset fields stay nil and take the documented wire defaults
// inside pkg/chat.
func (c *Config) ClientDefaults() chat.Params {
	return chat.Params{
		Model:            c.Defaults.Model,
		Temperature:      c.Defaults.Temperature,
		TopP:             c.Defaults.TopP,
		FrequencyPenalty: c.Defaults.FrequencyPenalty,
		PresencePenalty:  c.Defaults.PresencePenalty,
		MaxTokens:        c.Defaults.MaxTokens,
		Stop:             c.Defaults.Stop,
	}
}
