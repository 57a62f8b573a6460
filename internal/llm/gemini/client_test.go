package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/argus/internal/llm"
)

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"text": "part one "},
					{"text": "part two"},
				}}},
			},
		})
	}))
	defer srv.Close()

	c := New("test-key", "gemini-2.0-flash", srv.URL, 5*time.Second)
	got, err := c.Generate(context.Background(), &llm.Request{Prompt: "explain"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "part one part two" {
		t.Errorf("text = %q, want %q", got, "part one part two")
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := New("k", "m", srv.URL, 5*time.Second)
	if _, err := c.Generate(context.Background(), &llm.Request{Prompt: "x"}); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
