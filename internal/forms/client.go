// Package forms relays contact-form submissions to a third-party forms
// service (web3forms-compatible).
package forms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/atinyakov/healthchat/internal/models"
)

// DefaultURL is the public web3forms submit endpoint.
const DefaultURL = "https://api.web3forms.com/submit"

// RejectedError is returned when the relay answers with success=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "form submission rejected"
	}
	return "form submission rejected: " + e.Message
}

// Client posts contact forms to the relay. One attempt per submission.
type Client struct {
	url        string
	accessKey  string
	httpClient *http.Client
}

// NewClient creates a Client. A nil httpClient means http.DefaultClient.
func NewClient(url, accessKey string, httpClient *http.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, accessKey: accessKey, httpClient: httpClient}
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Submit sends the form as multipart/form-data with the access key.
func (c *Client) Submit(ctx context.Context, form models.ContactForm) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := []struct{ name, value string }{
		{"access_key", c.accessKey},
		{"Name", form.Name},
		{"mobile", form.Mobile},
		{"Message", form.Message},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("encode field %s: %w", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit form: %w", err)
	}
	defer resp.Body.Close()

	// The relay reports failures in the body, often with a 4xx status.
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode relay response (status %d): %w", resp.StatusCode, err)
	}
	if !out.Success {
		return &RejectedError{Message: out.Message}
	}
	return nil
}
