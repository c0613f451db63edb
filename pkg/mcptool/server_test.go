package mcptool

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/frage-dev/frage/pkg/api"
	"github.com/frage-dev/frage/pkg/chat"
)

// fakeClient returns canned responses and records the last call.
type fakeClient struct {
	lastMessages  []api.Message
	lastOverrides *chat.Params

	completeResp *api.ChatCompletionResponse
	completeErr  error

	models    []api.Model
	modelsErr error
}

func (f *fakeClient) Complete(_ context.Context, messages []api.Message, overrides *chat.Params) (*api.ChatCompletionResponse, error) {
	f.lastMessages = messages
	f.lastOverrides = overrides
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return f.completeResp, nil
}

func (f *fakeClient) ListModels(_ context.Context) ([]api.Model, error) {
	return f.models, f.modelsErr
}

func completionWith(text string) *api.ChatCompletionResponse {
	return &api.ChatCompletionResponse{
		ID:      "chatcmpl-1",
		Object:  "chat.completion",
		Model:   "m-test",
		Choices: []api.Choice{{Message: api.ResponseMessage{Role: "assistant", Content: text}, FinishReason: "stop"}},
	}
}

// textContent extracts the single TextContent these tools return.
func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("content length = %d, want 1", len(result.Content))
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want *mcp.TextContent", result.Content[0])
	}
	return tc.Text
}

func TestNewServer_RequiresClient(t *testing.T) {
	_, err := NewServer(Config{})
	if err == nil || !strings.Contains(err.Error(), "chat client is required") {
		t.Errorf("NewServer(Config{}) = %v, want chat client error", err)
	}
}

func TestNewServer_Handler(t *testing.T) {
	s, err := NewServer(Config{Client: &fakeClient{}})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if s.Handler() == nil {
		t.Error("Handler() = nil, want non-nil")
	}
}

func TestHandleChat(t *testing.T) {
	fc := &fakeClient{completeResp: completionWith("Berlin")}
	s, err := NewServer(Config{Client: fc})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	maxTokens := 30
	result, _, err := s.handleChat(context.Background(), nil, ChatInput{
		Prompt:    "Capital of Germany?",
		System:    "Answer with one word.",
		Model:     "m-test",
		MaxTokens: &maxTokens,
	})
	if err != nil {
		t.Fatalf("handleChat: %v", err)
	}
	if result.IsError {
		t.Fatalf("result.IsError = true, content = %+v", result.Content)
	}

	if len(fc.lastMessages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(fc.lastMessages))
	}
	if fc.lastMessages[0].Role != "system" || fc.lastMessages[1].Role != "user" {
		t.Errorf("roles = %q, %q, want system, user", fc.lastMessages[0].Role, fc.lastMessages[1].Role)
	}
	if fc.lastOverrides.Model != "m-test" {
		t.Errorf("overrides.Model = %q, want %q", fc.lastOverrides.Model, "m-test")
	}
	if fc.lastOverrides.MaxTokens == nil || *fc.lastOverrides.MaxTokens != 30 {
		t.Errorf("overrides.MaxTokens = %v, want 30", fc.lastOverrides.MaxTokens)
	}

	text := textContent(t, result)
	if text != "Berlin" {
		t.Errorf("text = %q, want %q", text, "Berlin")
	}
}

func TestHandleChat_EmptyPrompt(t *testing.T) {
	s, err := NewServer(Config{Client: &fakeClient{}})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	result, _, err := s.handleChat(context.Background(), nil, ChatInput{Prompt: "   "})
	if err != nil {
		t.Fatalf("handleChat: %v", err)
	}
	if !result.IsError {
		t.Error("result.IsError = false, want true for empty prompt")
	}
}

func TestHandleChat_BackendError(t *testing.T) {
	fc := &fakeClient{completeErr: api.NewModelError("model overloaded")}
	s, err := NewServer(Config{Client: fc})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	result, _, err := s.handleChat(context.Background(), nil, ChatInput{Prompt: "hi"})
	if err != nil {
		t.Fatalf("handleChat: %v", err)
	}
	if !result.IsError {
		t.Fatal("result.IsError = false, want true")
	}
	if text := textContent(t, result); !strings.Contains(text, "model overloaded") {
		t.Errorf("error text = %q, want mention of overload", text)
	}
}

func TestHandleListModels(t *testing.T) {
	fc := &fakeClient{models: []api.Model{
		{ID: "m-small", Object: "model"},
		{ID: "m-large", Object: "model"},
	}}
	s, err := NewServer(Config{Client: fc})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	result, _, err := s.handleListModels(context.Background(), nil, struct{}{})
	if err != nil {
		t.Fatalf("handleListModels: %v", err)
	}
	text := textContent(t, result)
	if !strings.Contains(text, "m-small") || !strings.Contains(text, "m-large") {
		t.Errorf("text = %q, want both model IDs", text)
	}
}
