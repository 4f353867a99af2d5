package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultModelURL is the base URL of a local Ollama server.
const DefaultModelURL = "http://127.0.0.1:11434"

// DefaultTemperature keeps answers close to the retrieved context.
const DefaultTemperature = 0.1

// ErrModelNotFound is returned when the server does not know the model.
var ErrModelNotFound = errors.New("model not found")

// ModelError is a non-2xx answer from the model server.
type ModelError struct {
	Status  int
	Message string
}

func (e *ModelError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("model server returned status %d", e.Status)
	}
	return fmt.Sprintf("model server returned status %d: %s", e.Status, e.Message)
}

type modelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type modelOptions struct {
	Temperature float64 `json:"temperature"`
}

type modelChatRequest struct {
	Model    string         `json:"model"`
	Messages []modelMessage `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *modelOptions  `json:"options,omitempty"`
}

type modelChatResponse struct {
	Message modelMessage `json:"message"`
	Done    bool         `json:"done"`
}

type modelErrorBody struct {
	Error string `json:"error"`
}

// ModelClient asks an Ollama-compatible /api/chat endpoint for a single,
// non-streamed completion.
type ModelClient struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewModelClient creates a ModelClient. An empty baseURL means
// DefaultModelURL; a nil httpClient means http.DefaultClient.
func NewModelClient(baseURL, model string, httpClient *http.Client) *ModelClient {
	if baseURL == "" {
		baseURL = DefaultModelURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ModelClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: DefaultTemperature,
		httpClient:  httpClient,
	}
}

// Complete sends prompt as one user message and returns the model's answer.
func (c *ModelClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(modelChatRequest{
		Model:    c.model,
		Messages: []modelMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options:  &modelOptions{Temperature: c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encode model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrModelNotFound, c.model)
	}
	if resp.StatusCode != http.StatusOK {
		var eb modelErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return "", &ModelError{Status: resp.StatusCode, Message: eb.Error}
	}

	var out modelChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	return out.Message.Content, nil
}
