package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/frage-dev/frage/pkg/api"
	"github.com/frage-dev/frage/pkg/auth"
)

const (
	completionsPath = "/v1/chat/completions"
	modelsPath      = "/v1/models"
)

// Client performs HTTP requests against an OpenAI-compatible Chat
// Completions backend. The endpoint and credential are fixed for the
// lifetime of the client; calls are independent and share no state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      auth.Credentials
	defaults   Params
	observer   Observer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client, e.g. for proxying or tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the one-shot request timeout. It has no effect on
// streaming calls, which rely on context cancellation instead.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithDefaults replaces the client-level default parameters. Per-call
// overrides still win field by field.
func WithDefaults(p Params) Option {
	return func(c *Client) { c.defaults = p }
}

// WithObserver attaches an observability collaborator.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a Client for the backend at baseURL. The path
// /v1/chat/completions is appended to it for completion calls.
func New(baseURL string, creds auth.Credentials, opts ...Option) *Client {
	if creds == nil {
		creds = auth.None{}
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		observer:   NopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete performs non-streaming inference. The documented defaults are
// merged with overrides (which may be nil), the request is sent once, and
// the full body is parsed. A response whose first choice did not finish
// with reason "stop" is an error, not a partial success.
func (c *Client) Complete(ctx context.Context, messages []api.Message, overrides *Params) (*api.ChatCompletionResponse, error) {
	req := merge(&c.defaults, overrides, messages)

	start := time.Now()
	c.observer.RequestStarted("complete", req.Model)

	resp, err := c.complete(ctx, &req)

	outcome := Outcome{Duration: time.Since(start), Err: err}
	if resp != nil {
		outcome.Usage = resp.Usage
	}
	c.observer.RequestFinished("complete", req.Model, outcome)

	return resp, err
}

func (c *Client) complete(ctx context.Context, req *api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
	httpResp, err := c.post(ctx, c.httpClient, req, false)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	var resp api.ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("parsing backend response: %s", err.Error()))
	}

	// A 200 body can still carry a backend error envelope.
	if resp.Error != nil && resp.Error.Message != "" {
		return nil, api.NewModelError(resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return nil, api.NewServerError("invalid response: no choices")
	}

	// Anything but a natural stop (length limit, content filter, absent)
	// is a failure even though a body is present.
	if reason := resp.Choices[0].FinishReason; reason != "stop" {
		if reason == "" {
			reason = "none"
		}
		return nil, api.NewModelError(fmt.Sprintf("completion did not finish normally: finish_reason=%s", reason))
	}

	return &resp, nil
}

// Stream performs streaming inference. It returns a channel of events fed
// by a single background reader; the channel is closed when the backend
// ends the stream, a fatal frame is encountered, or ctx is cancelled. A
// fatal condition is delivered as the final event's Err.
//
// The HTTP client timeout is not applied for streaming requests because a
// stream can legitimately outlast any fixed timeout. Lifecycle control
// relies on context cancellation instead.
func (c *Client) Stream(ctx context.Context, messages []api.Message, overrides *Params) (<-chan StreamEvent, error) {
	req := merge(&c.defaults, overrides, messages)
	req.Stream = true

	start := time.Now()
	c.observer.RequestStarted("stream", req.Model)

	streamClient := &http.Client{Transport: c.httpClient.Transport}

	httpResp, err := c.post(ctx, streamClient, &req, true)
	if err != nil {
		c.observer.RequestFinished("stream", req.Model, Outcome{Duration: time.Since(start), Err: err})
		return nil, err
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := mapHTTPError(httpResp)
		httpResp.Body.Close()
		c.observer.RequestFinished("stream", req.Model, Outcome{Duration: time.Since(start), Err: apiErr})
		return nil, apiErr
	}

	ch := make(chan StreamEvent, 16)

	go func() {
		defer close(ch)
		defer httpResp.Body.Close()

		events, err := c.readStream(ctx, httpResp.Body, req.Model, ch)
		c.observer.RequestFinished("stream", req.Model, Outcome{
			Duration: time.Since(start),
			Events:   events,
			Err:      err,
		})
	}()

	return ch, nil
}

// ListModels queries /v1/models on the backend.
func (c *Client) ListModels(ctx context.Context) ([]api.Model, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+modelsPath, nil)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("creating HTTP request: %s", err.Error()))
	}
	if err := c.creds.Apply(httpReq); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("applying credentials: %s", err.Error()))
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	var modelsResp api.ModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&modelsResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("parsing models response: %s", err.Error()))
	}
	return modelsResp.Data, nil
}

// post marshals req and issues the POST to the completions endpoint.
func (c *Client) post(ctx context.Context, hc *http.Client, req *api.ChatCompletionRequest, streaming bool) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("marshaling request: %s", err.Error()))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("creating HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if err := c.creds.Apply(httpReq); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("applying credentials: %s", err.Error()))
	}

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}
	return httpResp, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
