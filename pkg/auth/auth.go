// Package auth provides credential strategies for outgoing requests.
//
// A Credentials implementation injects the API-key material into an HTTP
// request. Three strategies are supported: a bearer token in the
// Authorization header (the OpenAI convention), a raw key in a named
// header (e.g. the Azure "api-key" convention), and a self-signed HS256
// JWT minted per request for gateways that authenticate with a shared
// signing secret.
package auth

import (
	"fmt"
	"net/http"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Credentials applies authentication material to an outgoing request.
type Credentials interface {
	// Apply sets the credential header(s) on req.
	Apply(req *http.Request) error
}

// None is a Credentials that sets nothing, for unauthenticated backends.
type None struct{}

// Apply implements Credentials.
func (None) Apply(*http.Request) error { return nil }

// Bearer sends the key as "Authorization: Bearer <key>".
type Bearer struct {
	Key string
}

// Apply implements Credentials.
func (b Bearer) Apply(req *http.Request) error {
	if b.Key != "" {
		req.Header.Set("Authorization", "Bearer "+b.Key)
	}
	return nil
}

// Header sends the key verbatim in a named header, e.g. "api-key" for
// Azure OpenAI deployments.
type Header struct {
	Name string
	Key  string
}

// Apply implements Credentials.
func (h Header) Apply(req *http.Request) error {
	if h.Name == "" {
		return fmt.Errorf("credential header name is empty")
	}
	if h.Key != "" {
		req.Header.Set(h.Name, h.Key)
	}
	return nil
}

// SignedJWT mints a short-lived HS256 token per request and sends it as a
// bearer token. Gateways configured with the same shared secret (e.g.
// LiteLLM JWT auth) accept these without a static API key.
type SignedJWT struct {
	// Secret is the shared HMAC signing secret.
	Secret []byte

	// Subject becomes the "sub" claim. Optional.
	Subject string

	// Issuer becomes the "iss" claim. Optional.
	Issuer string

	// TTL bounds token validity. Defaults to one minute.
	TTL time.Duration

	// now allows tests to pin the clock.
	now func() time.Time
}

// Apply implements Credentials.
func (s SignedJWT) Apply(req *http.Request) error {
	if len(s.Secret) == 0 {
		return fmt.Errorf("jwt signing secret is empty")
	}

	nowFn := s.now
	if nowFn == nil {
		nowFn = time.Now
	}
	ttl := s.TTL
	if ttl == 0 {
		ttl = time.Minute
	}

	now := nowFn()
	claims := jwtlib.RegisteredClaims{
		Subject:   s.Subject,
		Issuer:    s.Issuer,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return fmt.Errorf("signing request token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
