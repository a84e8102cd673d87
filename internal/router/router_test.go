package router

import (
	"context"
	"testing"

	"inferd/internal/engine"
	"inferd/internal/inferr"
)

// nullAdapter satisfies engine.Adapter for routing tests; no backend calls.
type nullAdapter struct{ name string }

func (a nullAdapter) Name() string { return a.name }
func (a nullAdapter) Load(ctx context.Context, modelName string) (engine.Handle, error) {
	return nil, inferr.New(inferr.KindEngine, "null adapter")
}
func (a nullAdapter) Run(ctx context.Context, h engine.Handle, in engine.Input, opts engine.Options) (engine.Output, error) {
	return nil, inferr.New(inferr.KindEngine, "null adapter")
}
func (a nullAdapter) Healthy(ctx context.Context) bool { return true }

func newTestRouter() *Router {
	return New([]engine.Adapter{
		nullAdapter{name: engine.EngineOllama},
		nullAdapter{name: engine.EngineTransformers},
	})
}

func TestResolveKnownCombinations(t *testing.T) {
	r := newTestRouter()
	cases := []struct{ task, eng string }{
		{"text-generation", "ollama"},
		{"text-generation", "transformers"},
		{"text-generation-ollama", "ollama"},
		{"text-generation-hf", "transformers"},
		{"vlm", "transformers"},
		{"asr", "transformers"},
		{"ocr-hf", "transformers"},
		{"video-summary", "transformers"},
	}
	for _, c := range cases {
		route, err := r.Resolve(c.task, c.eng)
		if err != nil {
			t.Fatalf("Resolve(%s, %s): %v", c.task, c.eng, err)
		}
		if route.Adapter.Name() != c.eng {
			t.Fatalf("Resolve(%s, %s): wrong adapter %q", c.task, c.eng, route.Adapter.Name())
		}
		if route.Handler.Task() != c.task {
			t.Fatalf("Resolve(%s, %s): wrong handler %q", c.task, c.eng, route.Handler.Task())
		}
	}
}

func TestResolveUnknownTask(t *testing.T) {
	r := newTestRouter()
	_, err := r.Resolve("time-travel", "ollama")
	if !inferr.IsUnsupportedTask(err) {
		t.Fatalf("expected unsupported task, got %v", err)
	}
}

func TestResolveIncompatibleEngine(t *testing.T) {
	r := newTestRouter()
	// ollama supports only text generation tasks
	for _, task := range []string{"vlm", "asr", "ocr", "video-analysis"} {
		_, err := r.Resolve(task, "ollama")
		if !inferr.IsUnsupportedTask(err) {
			t.Fatalf("Resolve(%s, ollama): expected unsupported task, got %v", task, err)
		}
	}
	if _, err := r.Resolve("text-generation-hf", "ollama"); !inferr.IsUnsupportedTask(err) {
		t.Fatalf("expected unsupported task for hf-pinned task on ollama")
	}
}

func TestResolveUnconfiguredEngine(t *testing.T) {
	// llama is compatible with text-generation but not configured here.
	r := newTestRouter()
	_, err := r.Resolve("text-generation", "llama")
	if !inferr.IsUnsupportedTask(err) {
		t.Fatalf("expected unsupported task for unconfigured engine, got %v", err)
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := newTestRouter()
	first, err := r.Resolve("asr", "transformers")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for i := 0; i < 10; i++ {
		route, err := r.Resolve("asr", "transformers")
		if err != nil {
			t.Fatalf("resolve #%d: %v", i, err)
		}
		if route.Adapter != first.Adapter || route.Handler != first.Handler {
			t.Fatalf("resolution not deterministic on call %d", i)
		}
	}
}

func TestCatalogListsOnlyConfiguredEngines(t *testing.T) {
	r := newTestRouter()
	cat := r.Catalog()
	if len(cat) != len(r.Tasks()) {
		t.Fatalf("catalog size %d != task count %d", len(cat), len(r.Tasks()))
	}
	tg := cat["text-generation"]
	for _, e := range tg.Engines {
		if e == "llama" {
			t.Fatalf("catalog lists unconfigured llama engine")
		}
	}
	if len(tg.Engines) != 2 {
		t.Fatalf("expected 2 engines for text-generation, got %v", tg.Engines)
	}
	if cat["asr"].InputFormat["audio"] == "" {
		t.Fatalf("asr catalog entry missing input format")
	}
}

func TestHealthy(t *testing.T) {
	if !newTestRouter().Healthy() {
		t.Fatalf("expected healthy router")
	}
}
