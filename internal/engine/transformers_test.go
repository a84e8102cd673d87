package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"inferd/internal/inferr"
)

type transformersTestServer struct {
	*httptest.Server
	loads   atomic.Int32
	unloads atomic.Int32
}

func newTransformersTestServer(t *testing.T, knownModels map[string]bool, infer func(req transformersInferRequest) (map[string]any, int)) *transformersTestServer {
	t.Helper()
	ts := &transformersTestServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/models/load", func(w http.ResponseWriter, r *http.Request) {
		var req transformersLoadRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !knownModels[req.ModelName] {
			http.Error(w, "unknown model", http.StatusNotFound)
			return
		}
		ts.loads.Add(1)
		_, _ = w.Write([]byte(`{"status":"loaded"}`))
	})
	mux.HandleFunc("/models/unload", func(w http.ResponseWriter, r *http.Request) {
		ts.unloads.Add(1)
		_, _ = w.Write([]byte(`{"status":"unloaded"}`))
	})
	mux.HandleFunc("/infer", func(w http.ResponseWriter, r *http.Request) {
		var req transformersInferRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		result, status := infer(req)
		if status != http.StatusOK {
			http.Error(w, "infer failed", status)
			return
		}
		_ = json.NewEncoder(w).Encode(transformersInferResponse{Result: result})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestTransformersLoadAndClose(t *testing.T) {
	ts := newTransformersTestServer(t, map[string]bool{"whisper-large": true}, nil)
	a := NewTransformersAdapter(ts.URL, zerolog.Nop())

	h, err := a.Load(context.Background(), "whisper-large")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ts.loads.Load() != 1 {
		t.Fatalf("expected one sidecar load, got %d", ts.loads.Load())
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if ts.unloads.Load() != 1 {
		t.Fatalf("expected one sidecar unload, got %d", ts.unloads.Load())
	}
}

func TestTransformersLoadNotFound(t *testing.T) {
	ts := newTransformersTestServer(t, map[string]bool{}, nil)
	a := NewTransformersAdapter(ts.URL, zerolog.Nop())
	_, err := a.Load(context.Background(), "missing")
	if !inferr.IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
}

func TestTransformersRun(t *testing.T) {
	ts := newTransformersTestServer(t, map[string]bool{"trocr-base": true}, func(req transformersInferRequest) (map[string]any, int) {
		if req.ModelName != "trocr-base" {
			return nil, http.StatusNotFound
		}
		if req.Inputs["image"] != "img.png" {
			return nil, http.StatusBadRequest
		}
		return map[string]any{"text": "recognized"}, http.StatusOK
	})
	a := NewTransformersAdapter(ts.URL, zerolog.Nop())
	h, err := a.Load(context.Background(), "trocr-base")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := a.Run(context.Background(), h, Input{"image": "img.png"}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out["text"] != "recognized" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestTransformersRunEngineFailure(t *testing.T) {
	ts := newTransformersTestServer(t, map[string]bool{"m": true}, func(req transformersInferRequest) (map[string]any, int) {
		return nil, http.StatusInternalServerError
	})
	a := NewTransformersAdapter(ts.URL, zerolog.Nop())
	h, err := a.Load(context.Background(), "m")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err = a.Run(context.Background(), h, Input{}, nil)
	if !inferr.IsEngine(err) {
		t.Fatalf("expected engine error, got %v", err)
	}
}

func TestLlamaStubFailsFastWithoutTag(t *testing.T) {
	if llamaBuilt {
		t.Skip("built with llama tag")
	}
	a := NewLlamaAdapter(t.TempDir(), 0, 0, zerolog.Nop())
	if _, err := a.Load(context.Background(), "any"); !inferr.IsEngine(err) {
		t.Fatalf("expected engine error from stub, got %v", err)
	}
	if a.Healthy(context.Background()) {
		t.Fatalf("stub must not report healthy")
	}
}

func TestOptionsAccessors(t *testing.T) {
	o := Options{"a": 3, "b": 2.5, "c": "x"}
	if o.Int("a", 0) != 3 || o.Int("b", 0) != 2 || o.Int("c", 9) != 9 || o.Int("missing", 7) != 7 {
		t.Fatalf("Int accessor wrong")
	}
	if o.Float("b", 0) != 2.5 || o.Float("a", 0) != 3 || o.Float("missing", 1.5) != 1.5 {
		t.Fatalf("Float accessor wrong")
	}
}
