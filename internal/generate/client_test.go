package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatStub(t *testing.T, fn http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", fn)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "k", Model: "test-model"})
}

func TestComplete_ReturnsAnswer(t *testing.T) {
	c := chatStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request: %v", err)
		}
		if req.Stream {
			t.Error("blocking call must not request streaming")
		}
		if req.MaxTokens != 1024 {
			t.Errorf("expected default max_tokens 1024, got %d", req.MaxTokens)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  the answer  "}},
			},
		})
	})

	got, err := c.Complete(context.Background(), []Turn{{Role: "user", Content: "q"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "the answer" {
		t.Errorf("expected trimmed answer, got %q", got)
	}
}

func TestComplete_AuthFailureIsUnavailable(t *testing.T) {
	c := chatStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	})
	_, err := c.Complete(context.Background(), []Turn{{Role: "user", Content: "q"}})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func sseFrame(content string) string {
	chunk := map[string]any{
		"choices": []map[string]any{
			{"delta": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(chunk)
	return "data: " + string(b) + "\n\n"
}

func TestStream_FragmentsThenDone(t *testing.T) {
	c := chatStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("streaming call must request streaming")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseFrame("Hello"))
		fmt.Fprint(w, sseFrame(" world"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	fragments, errc := c.Stream(context.Background(), []Turn{{Role: "user", Content: "q"}})
	var got []string
	for f := range fragments {
		got = append(got, f)
	}
	if err := <-errc; err != nil {
		t.Fatalf("unexpected terminal error: %v", err)
	}
	if strings.Join(got, "") != "Hello world" {
		t.Errorf("expected concatenation to reproduce the answer, got %q", got)
	}
	if len(got) < 2 {
		t.Errorf("expected at least 2 fragments, got %d", len(got))
	}
}

func TestStream_TruncatedStreamSurfacesError(t *testing.T) {
	c := chatStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseFrame("partial"))
		// Connection ends without a [DONE] marker.
	})

	fragments, errc := c.Stream(context.Background(), []Turn{{Role: "user", Content: "q"}})
	var got []string
	for f := range fragments {
		got = append(got, f)
	}
	err := <-errc
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected terminal ErrUnavailable, got %v", err)
	}
	// Partial text already delivered stays with the consumer.
	if strings.Join(got, "") != "partial" {
		t.Errorf("expected the delivered fragment to be retained, got %q", got)
	}
}

func TestStream_EndpointDownSurfacesError(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "m"})
	fragments, errc := c.Stream(context.Background(), []Turn{{Role: "user", Content: "q"}})
	for range fragments {
		t.Error("expected no fragments from an unreachable endpoint")
	}
	if err := <-errc; !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestStream_ConsumerCancellation(t *testing.T) {
	release := make(chan struct{})
	c := chatStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		f, _ := w.(http.Flusher)
		fmt.Fprint(w, sseFrame("one"))
		if f != nil {
			f.Flush()
		}
		<-release // hold the connection open
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	fragments, errc := c.Stream(ctx, []Turn{{Role: "user", Content: "q"}})

	if first := <-fragments; first != "one" {
		t.Fatalf("expected first fragment, got %q", first)
	}
	cancel() // consumer walks away

	// The producer must terminate rather than buffer indefinitely.
	for range fragments {
	}
	if err := <-errc; err == nil {
		t.Fatal("expected a terminal error after cancellation")
	}
}
