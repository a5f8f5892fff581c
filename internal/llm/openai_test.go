// ABOUTME: Tests for the OpenAI-compatible client
// ABOUTME: Uses httptest servers speaking the completions wire format

package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{"Hel", "lo ", "world"}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, "test-model", 5*time.Second)

	ch, err := client.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	var got string
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Err)
		}
		got += chunk.Text
	}

	if got != "Hello world" {
		t.Errorf("streamed text = %q, want %q", got, "Hello world")
	}
}

func TestClient_Stream_SkipsEmptyAndUnparseable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[]}\n\n")
		fmt.Fprint(w, ": comment line\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient("", srv.URL, "test-model", 5*time.Second)

	ch, err := client.Stream(context.Background(), nil)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	var got string
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Err)
		}
		got += chunk.Text
	}
	if got != "ok" {
		t.Errorf("streamed text = %q, want %q", got, "ok")
	}
}

func TestClient_Stream_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient("", srv.URL, "test-model", 5*time.Second)

	if _, err := client.Stream(context.Background(), nil); err == nil {
		t.Error("Stream() should fail on non-success status")
	}
}

func TestClient_Title(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"title\":\"Go Basics\"}"}}]}`)
	}))
	defer srv.Close()

	client := NewClient("", srv.URL, "test-model", 5*time.Second)

	got := client.Title(context.Background(), "explain go interfaces")
	if got != "Go Basics" {
		t.Errorf("Title() = %q, want %q", got, "Go Basics")
	}
}

func TestClient_Title_FallsBackOnBadJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"non-json content", `{"choices":[{"message":{"content":"not json at all"}}]}`},
		{"empty title", `{"choices":[{"message":{"content":"{\"title\":\"  \"}"}}]}`},
		{"no choices", `{"choices":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			client := NewClient("", srv.URL, "test-model", 5*time.Second)
			if got := client.Title(context.Background(), "whatever"); got != DefaultTitle {
				t.Errorf("Title() = %q, want %q", got, DefaultTitle)
			}
		})
	}
}

func TestClient_Title_FallsBackOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient("", srv.URL, "test-model", 5*time.Second)
	if got := client.Title(context.Background(), "whatever"); got != DefaultTitle {
		t.Errorf("Title() = %q, want %q", got, DefaultTitle)
	}
}
