package cohere

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "test-key", BaseURL: srv.URL, BreakerFailures: 2, BreakerCooldown: time.Minute}, nil)
}

func TestEmbed(t *testing.T) {
	var got embedRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embed" {
			t.Errorf("path = %s, want /v1/embed", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"id":"x","embeddings":[[0.1,0.2,0.3]]}`))
	})

	vecs, err := c.Embed(context.Background(), []string{"Study Lamp bright LED desk lamp"}, "")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != 3 {
		t.Fatalf("Embed() = %v, want one 3-d vector", vecs)
	}
	if got.Model != DefaultEmbedModel {
		t.Errorf("model = %q, want %q", got.Model, DefaultEmbedModel)
	}
	if got.InputType != InputTypeDocument {
		t.Errorf("input_type = %q, want %q", got.InputType, InputTypeDocument)
	}
}

func TestEmbedMissingKey(t *testing.T) {
	c := New(Config{}, nil)
	_, err := c.Embed(context.Background(), []string{"x"}, "")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Embed() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestEmbedAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid model"}`))
	})

	_, err := c.Embed(context.Background(), []string{"x"}, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Embed() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "invalid model" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings":[]}`))
	})

	if _, err := c.Embed(context.Background(), []string{"x"}, ""); err == nil {
		t.Error("Embed() error = nil, want mismatch error")
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 2; i++ {
		if _, err := c.Embed(context.Background(), []string{"x"}, ""); err == nil {
			t.Fatal("Embed() error = nil, want failure")
		}
	}

	_, err := c.Embed(context.Background(), []string{"x"}, "")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Embed() error = %v, want ErrOpenState", err)
	}
	if calls != 2 {
		t.Errorf("server calls = %d, want 2", calls)
	}
}

func TestChat(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat" {
			t.Errorf("path = %s, want /v1/chat", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"text":"  Bright and sturdy, but the cable is short.  "}`))
	})

	text, err := c.Chat(context.Background(), "summarise")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if text != "Bright and sturdy, but the cable is short." {
		t.Errorf("Chat() = %q", text)
	}
	if got.Model != DefaultChatModel || got.MaxTokens != 100 || got.Temperature != 0.3 {
		t.Errorf("chat request = %+v", got)
	}
}

func TestChatEmptyText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":""}`))
	})

	if _, err := c.Chat(context.Background(), "summarise"); err == nil {
		t.Error("Chat() error = nil, want empty response error")
	}
}
