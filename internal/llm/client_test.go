package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantErr  bool
	}{
		{"anthropic", ProviderAnthropic, "key", false},
		{"openai", ProviderOpenAI, "key", false},
		{"missing key", ProviderAnthropic, "", true},
		{"unknown provider", "cohere", "key", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.provider, tt.apiKey, "")
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Provider() != tt.provider {
				t.Errorf("expected provider %q, got %q", tt.provider, c.Provider())
			}
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := NewFromEnv(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured for empty env, got %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "key")
	c, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}
	if c.Provider() != ProviderAnthropic {
		t.Errorf("expected anthropic autodetection, got %q", c.Provider())
	}

	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "key")
	c, err = NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}
	if c.Provider() != ProviderOpenAI {
		t.Errorf("expected explicit openai provider, got %q", c.Provider())
	}

	t.Setenv("LLM_PROVIDER", "cohere")
	if _, err := NewFromEnv(); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestAnthropicGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("expected anthropic-version header")
		}
		w.Write([]byte(`{"content":[{"text":"analysis text"}]}`))
	}))
	defer srv.Close()

	a := NewAnthropic("test-key", "")
	a.baseURL = srv.URL

	out, err := a.GenerateText(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if out != "analysis text" {
		t.Errorf("expected %q, got %q", "analysis text", out)
	}
}

func TestAnthropicErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	a := NewAnthropic("test-key", "")
	a.baseURL = srv.URL

	if _, err := a.GenerateText(context.Background(), "prompt"); err == nil ||
		!strings.Contains(err.Error(), "429") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestOpenAIGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"openai text"}}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("test-key", "")
	o.baseURL = srv.URL

	out, err := o.GenerateText(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if out != "openai text" {
		t.Errorf("expected %q, got %q", "openai text", out)
	}
}
