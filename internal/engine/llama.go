//go:build llama

package engine

import (
	"context"
	"os"
	"path/filepath"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"

	"inferd/internal/inferr"
)

// llamaBuilt indicates this binary was compiled with in-process llama support.
var llamaBuilt = true

// LlamaAdapter runs models in-process through go-llama.cpp. Model names
// resolve to .gguf files under modelsDir. A llama context is not safe for
// concurrent prediction, so each handle serializes its own Run calls.
type LlamaAdapter struct {
	modelsDir string
	ctxSize   int
	threads   int
	log       zerolog.Logger
}

func NewLlamaAdapter(modelsDir string, ctxSize, threads int, log zerolog.Logger) *LlamaAdapter {
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	if threads <= 0 {
		threads = 4
	}
	return &LlamaAdapter{
		modelsDir: modelsDir,
		ctxSize:   ctxSize,
		threads:   threads,
		log:       log.With().Str("engine", EngineLlama).Logger(),
	}
}

func (a *LlamaAdapter) Name() string { return EngineLlama }

type llamaHandle struct {
	model   *llama.LLama
	threads int
	gen     chan struct{} // size 1: serialize predictions on this context
}

func (h *llamaHandle) Close() error {
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

func (a *LlamaAdapter) Load(ctx context.Context, modelName string) (Handle, error) {
	path := filepath.Join(a.modelsDir, modelName+".gguf")
	if _, err := os.Stat(path); err != nil {
		return nil, inferr.New(inferr.KindModelNotFound, "model file %q not found", path)
	}
	m, err := llama.New(path, llama.SetContext(a.ctxSize))
	if err != nil {
		return nil, inferr.Wrap(inferr.KindModelLoad, err, "llama: load %q", modelName)
	}
	a.log.Info().Str("model", modelName).Msg("model loaded")
	return &llamaHandle{model: m, threads: a.threads, gen: make(chan struct{}, 1)}, nil
}

func (a *LlamaAdapter) Run(ctx context.Context, h Handle, in Input, opts Options) (Output, error) {
	lh, ok := h.(*llamaHandle)
	if !ok {
		return nil, inferr.New(inferr.KindEngine, "llama: foreign handle type %T", h)
	}
	select {
	case lh.gen <- struct{}{}:
		defer func() { <-lh.gen }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	prompt, _ := in["prompt"].(string)
	po := []llama.PredictOption{
		llama.SetTokens(opts.Int("max_length", 128)),
		llama.SetThreads(lh.threads),
		llama.SetTemperature(float32(opts.Float("temperature", float64(llama.DefaultOptions.Temperature)))),
		llama.SetTopP(float32(opts.Float("top_p", float64(llama.DefaultOptions.TopP)))),
	}
	text, err := lh.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, inferr.Wrap(inferr.KindEngine, err, "llama: predict failed")
	}
	return Output{"text": text}, nil
}

func (a *LlamaAdapter) Healthy(ctx context.Context) bool {
	fi, err := os.Stat(a.modelsDir)
	return err == nil && fi.IsDir()
}

var _ Adapter = (*LlamaAdapter)(nil)
