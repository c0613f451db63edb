// Package api defines the Chat Completions wire types and the structured
// error taxonomy shared across frage. The types mirror the OpenAI Chat
// Completions API format and are serialized as-is onto the wire.
package api
