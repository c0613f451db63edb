package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/frage-dev/frage/pkg/api"
)

// StreamEvent is one element of the lazy event sequence produced by
// Stream. Exactly one of Chunk and Err is set; an event with Err set is
// always the last one before the channel closes.
type StreamEvent struct {
	Chunk *api.ChatCompletionChunk
	Err   error
}

// dataLine matches a complete SSE data frame carrying a JSON object.
// Anything else on the wire (blank keep-alive lines, ": ..." comments,
// the "data: [DONE]" sentinel) is protocol framing and is dropped.
var dataLine = regexp.MustCompile(`^data: (\{.*\})$`)

// readStream is the stream frame reassembler. It consumes raw byte chunks
// from body, carries bytes after the last line terminator over to the next
// read, and yields one decoded event per valid frame, in byte-stream
// order. Each input byte is consumed exactly once.
//
// Three conditions are fatal for the whole stream: a frame payload that is
// not valid JSON, a frame carrying error.message, and a frame whose
// choices field is absent or not an array. The fatal error is delivered as
// the final event and returned.
//
// Returns the number of yielded chunks and the terminal error, if any.
func (c *Client) readStream(ctx context.Context, body io.Reader, model string, ch chan<- StreamEvent) (int, error) {
	var (
		carry  string
		events int
		buf    = make([]byte, 4096)
	)

	for {
		if ctx.Err() != nil {
			return events, ctx.Err()
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			window := carry + string(buf[:n])

			// Everything after the last terminator is not yet a
			// complete line; carry it into the next read.
			idx := strings.LastIndexByte(window, '\n')
			if idx < 0 {
				carry = window
			} else {
				carry = window[idx+1:]
				for _, line := range strings.Split(window[:idx], "\n") {
					chunk, err := decodeFrame(line)
					if err != nil {
						c.send(ctx, ch, StreamEvent{Err: err})
						return events, err
					}
					if chunk == nil {
						continue
					}
					if !c.send(ctx, ch, StreamEvent{Chunk: chunk}) {
						return events, ctx.Err()
					}
					events++
					c.observer.StreamEvent(model)
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				// Cancellation tears down the transport; the
				// resulting read error is not a stream failure.
				return events, ctx.Err()
			}
			err := api.NewServerError("stream read error: " + readErr.Error())
			c.send(ctx, ch, StreamEvent{Err: err})
			return events, err
		}
	}

	// The backend ended the stream without terminating the last line.
	// Rather than dropping the residue (which would silently truncate a
	// final frame sent without a trailing newline), give it one parse
	// attempt as if it were a complete line.
	if carry != "" {
		chunk, err := decodeFrame(carry)
		if err != nil {
			c.send(ctx, ch, StreamEvent{Err: err})
			return events, err
		}
		if chunk != nil {
			if !c.send(ctx, ch, StreamEvent{Chunk: chunk}) {
				return events, ctx.Err()
			}
			events++
			c.observer.StreamEvent(model)
		}
	}

	return events, nil
}

// decodeFrame turns one reassembled line into a decoded chunk. Lines that
// are not data frames yield (nil, nil); malformed frames yield an error
// that is fatal for the stream.
func decodeFrame(line string) (*api.ChatCompletionChunk, error) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return nil, nil
	}

	m := dataLine.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	payload := []byte(m[1])

	// Probe the frame shape before the typed decode: a server-signaled
	// error aborts with its message, and choices must be an array.
	var probe struct {
		Error   *api.ErrorDetail `json:"error"`
		Choices json.RawMessage  `json:"choices"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, api.NewServerError("decoding stream frame: " + err.Error())
	}
	if probe.Error != nil && probe.Error.Message != "" {
		return nil, api.NewModelError(probe.Error.Message)
	}
	if !isJSONArray(probe.Choices) {
		return nil, api.NewServerError("invalid response: choices is not an array")
	}

	var chunk api.ChatCompletionChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, api.NewServerError("decoding stream frame: " + err.Error())
	}
	return &chunk, nil
}

// isJSONArray reports whether raw is present and its first significant
// byte opens an array.
func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// send delivers ev unless the context is cancelled first. It reports
// whether the event was delivered.
func (c *Client) send(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
