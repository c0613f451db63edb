// Package mcptool exposes the chat client as MCP (Model Context Protocol)
// tools, so agents speaking MCP can run completions through a configured
// backend without knowing its URL or credentials.
package mcptool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/frage-dev/frage/pkg/api"
	"github.com/frage-dev/frage/pkg/chat"
	"github.com/frage-dev/frage/pkg/debug"
)

// ChatClient is the subset of chat.Client the tools need.
type ChatClient interface {
	Complete(ctx context.Context, messages []api.Message, overrides *chat.Params) (*api.ChatCompletionResponse, error)
	ListModels(ctx context.Context) ([]api.Model, error)
}

// Config holds MCP server settings.
type Config struct {
	// Client performs the actual backend calls.
	Client ChatClient

	// Version reported in the MCP handshake.
	Version string

	// Logger is the configured slog logger. Nil uses slog.Default.
	Logger *slog.Logger
}

// Server wraps an mcp.Server exposing the "chat" and "list_models" tools.
type Server struct {
	client    ChatClient
	logger    *slog.Logger
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// ChatInput is the input schema of the "chat" tool.
type ChatInput struct {
	Prompt      string   `json:"prompt" jsonschema_description:"The user prompt to send"`
	System      string   `json:"system,omitempty" jsonschema_description:"Optional system instruction"`
	Model       string   `json:"model,omitempty" jsonschema_description:"Model to use; the configured default applies when empty"`
	MaxTokens   *int     `json:"max_tokens,omitempty" jsonschema_description:"Completion length limit in tokens"`
	Temperature *float64 `json:"temperature,omitempty" jsonschema_description:"Sampling temperature"`
}

// NewServer creates an MCP server backed by the given chat client.
func NewServer(c Config) (*Server, error) {
	if c.Client == nil {
		return nil, errors.New("chat client is required")
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	s := &Server{
		client: c.Client,
		logger: c.Logger,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{Name: "frage", Version: c.Version},
		nil,
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "chat",
		Description: "Runs a chat completion against the configured backend and returns the assistant text",
	}, s.handleChat)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "list_models",
		Description: "Lists the model IDs available on the configured backend",
	}, s.handleListModels)

	s.mcpServer = mcpServer

	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the streamable HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleChat(ctx context.Context, _ *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, struct{}, error) {
	if strings.TrimSpace(input.Prompt) == "" {
		return toolError("prompt must not be empty"), struct{}{}, nil
	}

	var messages []api.Message
	if input.System != "" {
		messages = append(messages, api.SystemText(input.System))
	}
	messages = append(messages, api.UserText(input.Prompt))

	overrides := &chat.Params{
		Model:       input.Model,
		MaxTokens:   input.MaxTokens,
		Temperature: input.Temperature,
	}

	debug.Log("mcp", "chat tool invoked", "model", input.Model, "prompt_len", len(input.Prompt))

	resp, err := s.client.Complete(ctx, messages, overrides)
	if err != nil {
		s.logger.Warn("chat tool call failed", "model", input.Model, "error", err)
		return toolError(err.Error()), struct{}{}, nil
	}

	text := resp.Choices[0].Message.Content
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, struct{}{}, nil
}

func (s *Server) handleListModels(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, struct{}, error) {
	models, err := s.client.ListModels(ctx)
	if err != nil {
		s.logger.Warn("list_models tool call failed", "error", err)
		return toolError(err.Error()), struct{}{}, nil
	}

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Available models: %s", strings.Join(ids, ", "))},
		},
	}, struct{}{}, nil
}

// toolError reports a failure through the MCP result rather than a
// protocol-level error, so the calling agent sees the message.
func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
