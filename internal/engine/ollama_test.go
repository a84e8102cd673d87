package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"inferd/internal/inferr"
)

func newOllamaTestServer(t *testing.T, models []string, generate func(w http.ResponseWriter, req ollamaGenerateRequest)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		var resp ollamaTagsResponse
		for _, m := range models {
			resp.Models = append(resp.Models, struct {
				Name string `json:"name"`
			}{Name: m})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		generate(w, req)
	})
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaLoadResolvesModel(t *testing.T) {
	srv := newOllamaTestServer(t, []string{"llama2-7b:latest"}, nil)
	a := NewOllamaAdapter(srv.URL, zerolog.Nop())

	h, err := a.Load(context.Background(), "llama2-7b")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer h.Close()
	if got := h.(*ollamaHandle).model; got != "llama2-7b:latest" {
		t.Fatalf("expected tagged name, got %q", got)
	}
}

func TestOllamaLoadModelNotFound(t *testing.T) {
	srv := newOllamaTestServer(t, []string{"mistral-7b"}, nil)
	a := NewOllamaAdapter(srv.URL, zerolog.Nop())

	_, err := a.Load(context.Background(), "missing")
	if !inferr.IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
}

func TestOllamaLoadServerUnreachable(t *testing.T) {
	a := NewOllamaAdapter("http://127.0.0.1:1", zerolog.Nop())
	_, err := a.Load(context.Background(), "any")
	if !inferr.IsEngine(err) {
		t.Fatalf("expected engine error, got %v", err)
	}
}

func TestOllamaRunMapsOptionsAndResult(t *testing.T) {
	var seen ollamaGenerateRequest
	srv := newOllamaTestServer(t, []string{"m"}, func(w http.ResponseWriter, req ollamaGenerateRequest) {
		seen = req
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model: req.Model, Response: "hello", Done: true,
			PromptEvalCount: 3, EvalCount: 7,
		})
	})
	a := NewOllamaAdapter(srv.URL, zerolog.Nop())
	h, err := a.Load(context.Background(), "m")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := a.Run(context.Background(), h, Input{"prompt": "hi"}, Options{"max_length": 64, "temperature": 0.5})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if seen.Prompt != "hi" || seen.Stream {
		t.Fatalf("unexpected request: %+v", seen)
	}
	if seen.Options["num_predict"] != float64(64) {
		t.Fatalf("max_length not mapped to num_predict: %v", seen.Options)
	}
	if out["text"] != "hello" || out["completion_tokens"] != 7 {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestOllamaRunBackendOverloaded(t *testing.T) {
	srv := newOllamaTestServer(t, []string{"m"}, func(w http.ResponseWriter, req ollamaGenerateRequest) {
		http.Error(w, "loaded models at capacity", http.StatusServiceUnavailable)
	})
	a := NewOllamaAdapter(srv.URL, zerolog.Nop())
	h, err := a.Load(context.Background(), "m")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err = a.Run(context.Background(), h, Input{"prompt": "hi"}, nil)
	if !inferr.IsResourceExhausted(err) {
		t.Fatalf("expected resource exhausted, got %v", err)
	}
}

func TestOllamaHealthy(t *testing.T) {
	srv := newOllamaTestServer(t, nil, nil)
	a := NewOllamaAdapter(srv.URL, zerolog.Nop())
	if !a.Healthy(context.Background()) {
		t.Fatalf("expected healthy")
	}
	down := NewOllamaAdapter("http://127.0.0.1:1", zerolog.Nop())
	if down.Healthy(context.Background()) {
		t.Fatalf("expected unhealthy")
	}
}
