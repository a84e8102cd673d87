// Package engine defines the uniform execution primitive over inference
// backends and the concrete adapters (ollama, transformers, llama). An
// adapter translates Load/Run into the backend's native invocation; it is
// also responsible for serializing calls on handles that are not safe for
// concurrent use.
package engine

import "context"

// Input is the engine-ready payload produced by a handler's preprocess step.
type Input map[string]any

// Output is the raw engine result handed to a handler's postprocess step.
type Output map[string]any

// Options are pass-through generation parameters (max_length, temperature,
// top_p, ...). Adapters pick the keys they understand.
type Options map[string]any

// EngineLlama is the engine identifier for the in-process llama backend.
const EngineLlama = "llama"

// Handle is a loaded model owned by the cache. Closing it releases the
// backend resource.
type Handle interface {
	Close() error
}

// Adapter loads a named model and exposes a uniform run primitive. One
// concrete adapter exists per backend family.
type Adapter interface {
	// Name returns the engine identifier used in requests.
	Name() string
	// Load resolves and loads modelName, returning a handle owned by the
	// caller. Resolution failures carry the model-not-found kind.
	Load(ctx context.Context, modelName string) (Handle, error)
	// Run executes one inference on a handle previously returned by Load.
	Run(ctx context.Context, h Handle, in Input, opts Options) (Output, error)
	// Healthy reports backend reachability without mutating state.
	Healthy(ctx context.Context) bool
}

// Float pulls a float option, accepting json-decoded numbers.
func (o Options) Float(key string, def float64) float64 {
	switch v := o[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Int pulls an integer option, accepting json-decoded numbers.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}
