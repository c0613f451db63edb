// Package chat provides a client for OpenAI-compatible Chat Completions
// backends, in one-shot and SSE streaming modes. It handles request
// serialization, default parameter merging, response parsing, stream frame
// reassembly, and error mapping.
//
// All policy is delegated to the backend: the client performs no retries,
// no rate limiting, no token counting, and no conversation state
// management. Callers impose deadlines via context cancellation.
package chat
