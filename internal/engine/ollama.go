package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/inferr"
)

// EngineOllama is the engine identifier for the Ollama backend.
const EngineOllama = "ollama"

// OllamaAdapter talks to an Ollama server. Loading a model verifies it is
// present in the server's tag list; running posts a non-streaming generate
// call. The server multiplexes requests itself, so handles are safe for
// concurrent use.
type OllamaAdapter struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewOllamaAdapter returns an adapter for the Ollama server at baseURL.
func NewOllamaAdapter(baseURL string, log zerolog.Logger) *OllamaAdapter {
	return &OllamaAdapter{
		baseURL: baseURL,
		// No client timeout: generation may legitimately run long. Callers
		// bound the call through ctx.
		http: &http.Client{},
		log:  log.With().Str("engine", EngineOllama).Logger(),
	}
}

func (a *OllamaAdapter) Name() string { return EngineOllama }

type ollamaHandle struct {
	adapter *OllamaAdapter
	model   string
}

func (h *ollamaHandle) Close() error { return nil }

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Load verifies the model is registered with the server. Ollama loads model
// weights lazily on first generate; the tag check is the resolution step.
func (a *OllamaAdapter) Load(ctx context.Context, modelName string) (Handle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "ollama: build tags request")
	}
	res, err := a.http.Do(req)
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "ollama: server unreachable")
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return nil, statusToError(res, "ollama: list models")
	}
	var tags ollamaTagsResponse
	if err := json.NewDecoder(res.Body).Decode(&tags); err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "ollama: decode tags")
	}
	for _, m := range tags.Models {
		if m.Name == modelName || trimTag(m.Name) == modelName {
			a.log.Debug().Str("model", modelName).Msg("model resolved")
			return &ollamaHandle{adapter: a, model: m.Name}, nil
		}
	}
	return nil, inferr.New(inferr.KindModelNotFound, "model %q not found on ollama server", modelName)
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	TotalDuration   int64  `json:"total_duration"`
}

func (a *OllamaAdapter) Run(ctx context.Context, h Handle, in Input, opts Options) (Output, error) {
	oh, ok := h.(*ollamaHandle)
	if !ok {
		return nil, inferr.New(inferr.KindEngine, "ollama: foreign handle type %T", h)
	}
	prompt, _ := in["prompt"].(string)
	greq := ollamaGenerateRequest{
		Model:  oh.model,
		Prompt: prompt,
		Stream: false,
	}
	if len(opts) > 0 {
		greq.Options = mapOllamaOptions(opts)
	}
	body, err := json.Marshal(greq)
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "ollama: encode generate request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "ollama: build generate request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := a.http.Do(req)
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "ollama: generate call failed")
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return nil, statusToError(res, "ollama: generate")
	}
	var gres ollamaGenerateResponse
	if err := json.NewDecoder(res.Body).Decode(&gres); err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "ollama: decode generate response")
	}
	a.log.Debug().Str("model", oh.model).Dur("dur", time.Since(start)).Msg("generate done")
	return Output{
		"text":              gres.Response,
		"prompt_tokens":     gres.PromptEvalCount,
		"completion_tokens": gres.EvalCount,
	}, nil
}

// Healthy probes the server's version endpoint.
func (a *OllamaAdapter) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/version", nil)
	if err != nil {
		return false
	}
	res, err := a.http.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return res.StatusCode/100 == 2
}

// mapOllamaOptions translates the generic option names used by handlers to
// the names the ollama API expects.
func mapOllamaOptions(opts Options) map[string]any {
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		switch k {
		case "max_length":
			out["num_predict"] = v
		default:
			out[k] = v
		}
	}
	return out
}

// statusToError maps a backend HTTP status onto the failure taxonomy.
func statusToError(res *http.Response, op string) error {
	msg := readErrorBody(res.Body)
	switch {
	case res.StatusCode == http.StatusNotFound:
		return inferr.New(inferr.KindModelNotFound, "%s: %s", op, msg)
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode == http.StatusServiceUnavailable:
		return inferr.New(inferr.KindResourceExhausted, "%s: backend at capacity: %s", op, msg)
	default:
		return inferr.New(inferr.KindEngine, "%s: status %d: %s", op, res.StatusCode, msg)
	}
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(b) == 0 {
		return "(no body)"
	}
	return string(b)
}

// trimTag strips an ollama ":tag" suffix so "llama2-7b" matches
// "llama2-7b:latest".
func trimTag(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return name[:i]
		}
	}
	return name
}

var _ Adapter = (*OllamaAdapter)(nil)
