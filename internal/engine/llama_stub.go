//go:build !llama

package engine

// No-CGO stub for the in-process llama adapter, compiled when the 'llama'
// build tag is not set. Default builds and CI stay CGO-free; requests naming
// the llama engine fail fast instead of being mocked.

import (
	"context"

	"github.com/rs/zerolog"

	"inferd/internal/inferr"
)

var llamaBuilt = false

type LlamaAdapter struct{}

func NewLlamaAdapter(modelsDir string, ctxSize, threads int, log zerolog.Logger) *LlamaAdapter {
	return &LlamaAdapter{}
}

func (a *LlamaAdapter) Name() string { return EngineLlama }

func (a *LlamaAdapter) Load(ctx context.Context, modelName string) (Handle, error) {
	return nil, inferr.New(inferr.KindEngine, "llama support not built (missing 'llama' build tag)")
}

func (a *LlamaAdapter) Run(ctx context.Context, h Handle, in Input, opts Options) (Output, error) {
	return nil, inferr.New(inferr.KindEngine, "llama support not built (missing 'llama' build tag)")
}

func (a *LlamaAdapter) Healthy(ctx context.Context) bool { return false }

var _ Adapter = (*LlamaAdapter)(nil)
