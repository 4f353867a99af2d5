package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultResponderURL is where the responder service listens by default.
const DefaultResponderURL = "http://127.0.0.1:8000/chat"

// StatusError reports a non-2xx answer from the responder.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("responder returned status %d", e.Code)
}

// ErrMalformedReply is returned when the body lacks a response string.
var ErrMalformedReply = errors.New("malformed responder reply")

// HTTPResponder posts {"query": ...} to a fixed endpoint and expects
// {"response": ...} back. It makes exactly one attempt per call.
type HTTPResponder struct {
	url        string
	httpClient *http.Client
}

// NewHTTPResponder creates an HTTPResponder. A nil httpClient means a
// client without a timeout; bound calls through the context instead.
func NewHTTPResponder(url string, httpClient *http.Client) *HTTPResponder {
	if url == "" {
		url = DefaultResponderURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPResponder{url: url, httpClient: httpClient}
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Response *string `json:"response"`
}

// Respond sends one query and returns the reply text.
func (h *HTTPResponder) Respond(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return "", fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Code: resp.StatusCode}
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if out.Response == nil {
		return "", fmt.Errorf("%w: missing response field", ErrMalformedReply)
	}
	return *out.Response, nil
}
