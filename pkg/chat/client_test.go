package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/frage-dev/frage/pkg/api"
	"github.com/frage-dev/frage/pkg/auth"
)

func completionBody(content, finishReason string) string {
	resp := api.ChatCompletionResponse{
		ID:      "chatcmpl-42",
		Object:  "chat.completion",
		Created: 1700000000,
		Model:   "test-model",
		Choices: []api.Choice{
			{
				Index:        0,
				Message:      api.ResponseMessage{Role: "assistant", Content: content},
				FinishReason: finishReason,
			},
		},
		Usage: &api.Usage{PromptTokens: 9, CompletionTokens: 4, TotalTokens: 13},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestComplete_Success(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		io.WriteString(w, completionBody("Paris.", "stop"))
	}))
	defer srv.Close()

	c := New(srv.URL, auth.Bearer{Key: "sk-test"})
	resp, err := c.Complete(context.Background(), []api.Message{api.UserText("Capital of France?")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q, want /v1/chat/completions", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want bearer key", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if resp.Choices[0].Message.Content != "Paris." {
		t.Errorf("content = %q, want %q", resp.Choices[0].Message.Content, "Paris.")
	}
	if resp.Usage.TotalTokens != 13 {
		t.Errorf("total tokens = %d, want 13", resp.Usage.TotalTokens)
	}
}

func TestComplete_AbnormalFinishReason(t *testing.T) {
	cases := []string{"length", "content_filter", ""}

	for _, reason := range cases {
		name := reason
		if name == "" {
			name = "absent"
		}
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// The body is populated; the call must still fail.
				io.WriteString(w, completionBody("truncated output", reason))
			}))
			defer srv.Close()

			c := New(srv.URL, auth.None{})
			_, err := c.Complete(context.Background(), []api.Message{api.UserText("hi")}, nil)
			if err == nil {
				t.Fatal("expected error for abnormal finish reason")
			}
			if !strings.Contains(err.Error(), "finish_reason") {
				t.Errorf("error = %q, want a finish_reason error", err.Error())
			}
		})
	}
}

func TestComplete_ServerSignaledError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":{"message":"model overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, auth.None{})
	_, err := c.Complete(context.Background(), []api.Message{api.UserText("hi")}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("error = %q, want backend message", err.Error())
	}
}

func TestComplete_HTTPErrorMapping(t *testing.T) {
	cases := []struct {
		status   int
		wantType api.ErrorType
	}{
		{http.StatusBadRequest, api.ErrorTypeInvalidRequest},
		{http.StatusUnauthorized, api.ErrorTypeServerError},
		{http.StatusNotFound, api.ErrorTypeNotFound},
		{http.StatusTooManyRequests, api.ErrorTypeTooManyRequests},
		{http.StatusInternalServerError, api.ErrorTypeServerError},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, `{"error":{"message":"nope"}}`)
			}))
			defer srv.Close()

			c := New(srv.URL, auth.None{})
			_, err := c.Complete(context.Background(), []api.Message{api.UserText("hi")}, nil)

			var apiErr *api.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %T (%v), want *api.APIError", err, err)
			}
			if apiErr.Type != tc.wantType {
				t.Errorf("error type = %q, want %q", apiErr.Type, tc.wantType)
			}
			if !strings.Contains(apiErr.Message, "nope") {
				t.Errorf("message = %q, want body text included", apiErr.Message)
			}
		})
	}
}

func TestComplete_NetworkError(t *testing.T) {
	// Point at a closed server.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, auth.None{})
	_, err := c.Complete(context.Background(), []api.Message{api.UserText("hi")}, nil)
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !strings.Contains(err.Error(), "connection") {
		t.Errorf("error = %q, want a connection error", err.Error())
	}
}

func TestComplete_DefaultMergeIdempotent(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		io.WriteString(w, completionBody("ok", "stop"))
	}))
	defer srv.Close()

	c := New(srv.URL, auth.None{})
	msgs := []api.Message{api.UserText("same prompt")}
	for i := 0; i < 2; i++ {
		if _, err := c.Complete(context.Background(), msgs, nil); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	if len(bodies) != 2 || bodies[0] != bodies[1] {
		t.Fatalf("request bodies differ:\n%s\n%s", bodies[0], bodies[1])
	}

	// The documented defaults appear in the serialized body.
	var req map[string]any
	if err := json.Unmarshal([]byte(bodies[0]), &req); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if req["temperature"] != 0.7 {
		t.Errorf("temperature = %v, want 0.7", req["temperature"])
	}
	if req["top_p"] != 1.0 {
		t.Errorf("top_p = %v, want 1", req["top_p"])
	}
	if req["max_tokens"] != 60.0 {
		t.Errorf("max_tokens = %v, want 60", req["max_tokens"])
	}
	if stop, ok := req["stop"].([]any); !ok || len(stop) != 0 {
		t.Errorf("stop = %v, want empty sequence", req["stop"])
	}
	if _, present := req["stream"]; present {
		t.Errorf("stream flag present in one-shot request: %v", req["stream"])
	}
}

func TestComplete_Overrides(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		io.WriteString(w, completionBody("ok", "stop"))
	}))
	defer srv.Close()

	c := New(srv.URL, auth.None{}, WithDefaults(Params{Model: "base-model"}))
	_, err := c.Complete(context.Background(), []api.Message{api.UserText("hi")}, &Params{
		Model:       "override-model",
		Temperature: Float(0),
		MaxTokens:   Int(200),
		Stop:        []string{"END"},
		Seed:        Int(7),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if body["model"] != "override-model" {
		t.Errorf("model = %v, want override-model", body["model"])
	}
	if body["temperature"] != 0.0 {
		t.Errorf("temperature = %v, want explicit 0", body["temperature"])
	}
	if body["max_tokens"] != 200.0 {
		t.Errorf("max_tokens = %v, want 200", body["max_tokens"])
	}
	if body["seed"] != 7.0 {
		t.Errorf("seed = %v, want 7", body["seed"])
	}
	if stop, ok := body["stop"].([]any); !ok || len(stop) != 1 || stop[0] != "END" {
		t.Errorf("stop = %v, want [END]", body["stop"])
	}
	// Untouched fields keep their defaults.
	if body["top_p"] != 1.0 {
		t.Errorf("top_p = %v, want default 1", body["top_p"])
	}
}

func TestStream_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if !req.Stream {
			t.Error("stream flag not set on streaming request")
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		for _, delta := range []string{"Hel", "lo"} {
			io.WriteString(w, `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"test-model","choices":[{"index":0,"delta":{"content":"`+delta+`"},"finish_reason":null}]}`+"\n\n")
			fl.Flush()
		}
		io.WriteString(w, `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"test-model","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`+"\n\ndata: [DONE]\n")
	}))
	defer srv.Close()

	c := New(srv.URL, auth.Bearer{Key: "sk-test"})
	ch, err := c.Stream(context.Background(), []api.Message{api.UserText("hi")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var text strings.Builder
	var finish string
	for ev := range ch {
		if ev.Err != nil {
			t.Fatalf("stream error: %v", ev.Err)
		}
		text.WriteString(ev.Chunk.DeltaContent())
		if len(ev.Chunk.Choices) > 0 && ev.Chunk.Choices[0].FinishReason != nil {
			finish = *ev.Chunk.Choices[0].FinishReason
		}
	}

	if text.String() != "Hello" {
		t.Errorf("assembled text = %q, want %q", text.String(), "Hello")
	}
	if finish != "stop" {
		t.Errorf("finish reason = %q, want stop", finish)
	}
}

func TestStream_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "upstream down")
	}))
	defer srv.Close()

	c := New(srv.URL, auth.None{})
	_, err := c.Stream(context.Background(), []api.Message{api.UserText("hi")}, nil)
	if err == nil {
		t.Fatal("expected error before any events")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "upstream down") {
		t.Errorf("error = %q, want status code and body text", err.Error())
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"object":"list","data":[{"id":"test-model","object":"model","owned_by":"frage"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, auth.None{})
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0].ID != "test-model" {
		t.Errorf("models = %+v", models)
	}
}
