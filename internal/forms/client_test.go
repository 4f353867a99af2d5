package forms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/healthchat/internal/models"
)

func TestSubmit_SendsMultipartFields(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		got = map[string]string{
			"access_key": r.FormValue("access_key"),
			"Name":       r.FormValue("Name"),
			"mobile":     r.FormValue("mobile"),
			"Message":    r.FormValue("Message"),
		}
		_, _ = w.Write([]byte(`{"success": true, "message": "Email sent"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123", srv.Client())
	err := c.Submit(context.Background(), models.ContactForm{Name: "Asha", Mobile: "9876543210", Message: "Hi there"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"access_key": "key-123",
		"Name":       "Asha",
		"mobile":     "9876543210",
		"Message":    "Hi there",
	}, got)
}

func TestSubmit_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success": false, "message": "Invalid access key"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "bad", srv.Client()).Submit(context.Background(), models.ContactForm{Name: "a"})

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected), "want RejectedError, got %v", err)
	assert.Equal(t, "Invalid access key", rejected.Message)
}

func TestSubmit_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k", srv.Client()).Submit(context.Background(), models.ContactForm{})
	require.Error(t, err)
	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected))
}

func TestSubmit_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(url, "k", nil).Submit(context.Background(), models.ContactForm{})
	assert.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", "k", nil)
	assert.Equal(t, DefaultURL, c.url)
	assert.Same(t, http.DefaultClient, c.httpClient)
}
