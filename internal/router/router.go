// Package router validates and resolves a (task, engine) pair into the
// adapter/handler pair that executes it. The compatibility table is static
// configuration, populated once at startup and read-only thereafter.
package router

import (
	"sort"
	"strings"

	"inferd/internal/engine"
	"inferd/internal/handler"
	"inferd/internal/inferr"
)

// Route is the concrete adapter+handler pair chosen for one request. It is
// valid for the lifetime of that request only.
type Route struct {
	Task    string
	Engine  string
	Adapter engine.Adapter
	Handler handler.Handler
}

// Router maps (task, engine) to an adapter/handler pair.
type Router struct {
	adapters   map[string]engine.Adapter
	handlers   map[string]handler.Handler
	taskEngine map[string][]string // task -> compatible engine names
}

// taskEngines declares which engines may serve each task. Ollama is a text
// generation backend only; llama likewise; transformers hosts everything.
func taskEngines() map[string][]string {
	te := map[string][]string{
		"text-generation":        {engine.EngineOllama, engine.EngineTransformers, engine.EngineLlama},
		"text-generation-ollama": {engine.EngineOllama},
		"text-generation-hf":     {engine.EngineTransformers},
	}
	for _, task := range []string{
		"vlm", "asr", "asr-hf", "vad-hf", "ocr", "ocr-hf",
		"audio-classification", "video-analysis", "scene-detection",
		"document-analysis", "image-captioning", "video-summary",
		"audio-transcription",
	} {
		te[task] = []string{engine.EngineTransformers}
	}
	return te
}

// New builds a Router over the given adapters. Handlers come from the static
// task registry.
func New(adapters []engine.Adapter) *Router {
	r := &Router{
		adapters:   make(map[string]engine.Adapter, len(adapters)),
		handlers:   handler.Registry(),
		taskEngine: taskEngines(),
	}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Resolve validates the (task, engine) combination and returns the route for
// it. Either exact support or rejection; no partial matches.
func (r *Router) Resolve(task, eng string) (Route, error) {
	engines, ok := r.taskEngine[task]
	if !ok {
		return Route{}, inferr.New(inferr.KindUnsupportedTask, "unsupported task: %q (supported: %s)", task, strings.Join(r.Tasks(), ", ")).
			WithContext(task, eng, "")
	}
	if !contains(engines, eng) {
		return Route{}, inferr.New(inferr.KindUnsupportedTask, "task %q does not support engine %q (supported engines: %s)", task, eng, strings.Join(engines, ", ")).
			WithContext(task, eng, "")
	}
	adapter, ok := r.adapters[eng]
	if !ok {
		return Route{}, inferr.New(inferr.KindUnsupportedTask, "engine %q is not configured on this server", eng).
			WithContext(task, eng, "")
	}
	return Route{Task: task, Engine: eng, Adapter: adapter, Handler: r.handlers[task]}, nil
}

// Tasks returns the sorted supported task identifiers.
func (r *Router) Tasks() []string {
	out := make([]string, 0, len(r.taskEngine))
	for task := range r.taskEngine {
		out = append(out, task)
	}
	sort.Strings(out)
	return out
}

// Engines returns the names of the configured adapters, sorted.
func (r *Router) Engines() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Adapter returns the configured adapter by name.
func (r *Router) Adapter(name string) (engine.Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Healthy reports liveness of the routing tables without mutating state.
func (r *Router) Healthy() bool {
	return r != nil && len(r.taskEngine) > 0 && len(r.handlers) > 0
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
