package chat

import "github.com/frage-dev/frage/pkg/api"

// Default request parameters, applied for every field a caller leaves unset:
//
//	temperature        0.7
//	top_p              1
//	frequency_penalty  0
//	presence_penalty   0
//	max_tokens         60
//	stop               [] (empty sequence, always serialized)
const (
	DefaultTemperature      = 0.7
	DefaultTopP             = 1.0
	DefaultFrequencyPenalty = 0.0
	DefaultPresencePenalty  = 0.0
	DefaultMaxTokens        = 60
)

// Params holds per-call overrides for the request payload. Nil pointer
// fields and zero-value strings fall back to the documented defaults.
type Params struct {
	Model            string
	Temperature      *float64
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	MaxTokens        *int
	Stop             []string
	ResponseFormat   *api.ResponseFormat
	Seed             *int
	User             string
}

// Float returns a pointer to v, for use in Params literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for use in Params literals.
func Int(v int) *int { return &v }

// merge builds the request body from the client defaults and the call-level
// overrides. Overrides win field by field; each unset field takes its
// default in exactly one place here. Merging is idempotent: the same
// inputs always produce the same request.
func merge(defaults, overrides *Params, messages []api.Message) api.ChatCompletionRequest {
	p := Params{}
	if defaults != nil {
		p = *defaults
	}
	if overrides != nil {
		if overrides.Model != "" {
			p.Model = overrides.Model
		}
		if overrides.Temperature != nil {
			p.Temperature = overrides.Temperature
		}
		if overrides.TopP != nil {
			p.TopP = overrides.TopP
		}
		if overrides.FrequencyPenalty != nil {
			p.FrequencyPenalty = overrides.FrequencyPenalty
		}
		if overrides.PresencePenalty != nil {
			p.PresencePenalty = overrides.PresencePenalty
		}
		if overrides.MaxTokens != nil {
			p.MaxTokens = overrides.MaxTokens
		}
		if overrides.Stop != nil {
			p.Stop = overrides.Stop
		}
		if overrides.ResponseFormat != nil {
			p.ResponseFormat = overrides.ResponseFormat
		}
		if overrides.Seed != nil {
			p.Seed = overrides.Seed
		}
		if overrides.User != "" {
			p.User = overrides.User
		}
	}

	if p.Temperature == nil {
		p.Temperature = Float(DefaultTemperature)
	}
	if p.TopP == nil {
		p.TopP = Float(DefaultTopP)
	}
	if p.FrequencyPenalty == nil {
		p.FrequencyPenalty = Float(DefaultFrequencyPenalty)
	}
	if p.PresencePenalty == nil {
		p.PresencePenalty = Float(DefaultPresencePenalty)
	}
	if p.MaxTokens == nil {
		p.MaxTokens = Int(DefaultMaxTokens)
	}
	if p.Stop == nil {
		p.Stop = []string{}
	}

	return api.ChatCompletionRequest{
		Model:            p.Model,
		Messages:         messages,
		Temperature:      p.Temperature,
		TopP:             p.TopP,
		FrequencyPenalty: p.FrequencyPenalty,
		PresencePenalty:  p.PresencePenalty,
		MaxTokens:        p.MaxTokens,
		Stop:             p.Stop,
		ResponseFormat:   p.ResponseFormat,
		Seed:             p.Seed,
		User:             p.User,
	}
}
