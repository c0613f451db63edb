package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/frage-dev/frage/pkg/api"
)

// mapHTTPError converts a response with a non-2xx status code into an
// APIError. The message carries the status code, status text, and body
// text; when the body parses as a backend error envelope, its message is
// used instead of the raw body.
func mapHTTPError(resp *http.Response) *api.APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	detail := string(body)
	var env api.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		detail = env.Error.Message
	}

	message := fmt.Sprintf("backend returned %d %s: %s",
		resp.StatusCode, http.StatusText(resp.StatusCode), detail)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return api.NewInvalidRequestError("", message)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return api.NewServerError(message)
	case resp.StatusCode == http.StatusNotFound:
		return api.NewNotFoundError(message)
	case resp.StatusCode == http.StatusTooManyRequests:
		return api.NewTooManyRequestsError(message)
	default:
		return api.NewServerError(message)
	}
}

// mapNetworkError converts a network-level error (connection refused,
// timeout, DNS failure) into an APIError. The underlying error is
// propagated unchanged in the message; there is no retry.
func mapNetworkError(err error) *api.APIError {
	return api.NewServerError(fmt.Sprintf("backend connection error: %s", err.Error()))
}
