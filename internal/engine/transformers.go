package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/inferr"
)

// EngineTransformers is the engine identifier for the transformers sidecar.
const EngineTransformers = "transformers"

// TransformersAdapter talks to a transformers serving sidecar over HTTP. The
// sidecar hosts the multimodal tasks (vlm, asr, ocr, ...) behind two
// endpoints: POST /models/load and POST /infer. Handles are safe for
// concurrent use; the sidecar queues work per model.
type TransformersAdapter struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewTransformersAdapter returns an adapter for the sidecar at baseURL.
func NewTransformersAdapter(baseURL string, log zerolog.Logger) *TransformersAdapter {
	return &TransformersAdapter{
		baseURL: baseURL,
		http:    &http.Client{},
		log:     log.With().Str("engine", EngineTransformers).Logger(),
	}
}

func (a *TransformersAdapter) Name() string { return EngineTransformers }

type transformersHandle struct {
	adapter *TransformersAdapter
	model   string
}

// Close asks the sidecar to drop the model so its memory is reclaimed.
func (h *transformersHandle) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	body, _ := json.Marshal(map[string]string{"model_name": h.model})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.adapter.baseURL+"/models/unload", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := h.adapter.http.Do(req)
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

type transformersLoadRequest struct {
	ModelName string `json:"model_name"`
}

// Load instructs the sidecar to load the named model into memory.
func (a *TransformersAdapter) Load(ctx context.Context, modelName string) (Handle, error) {
	body, err := json.Marshal(transformersLoadRequest{ModelName: modelName})
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "transformers: encode load request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/models/load", bytes.NewReader(body))
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "transformers: build load request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := a.http.Do(req)
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "transformers: sidecar unreachable")
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		if res.StatusCode == http.StatusInternalServerError {
			// The sidecar resolved the model but could not bring it up.
			return nil, inferr.New(inferr.KindModelLoad, "transformers: load %q failed: %s", modelName, readErrorBody(res.Body))
		}
		return nil, statusToError(res, "transformers: load "+modelName)
	}
	a.log.Info().Str("model", modelName).Dur("dur", time.Since(start)).Msg("model loaded")
	return &transformersHandle{adapter: a, model: modelName}, nil
}

type transformersInferRequest struct {
	ModelName string         `json:"model_name"`
	Inputs    map[string]any `json:"inputs"`
	Options   map[string]any `json:"options,omitempty"`
}

type transformersInferResponse struct {
	Result map[string]any `json:"result"`
}

func (a *TransformersAdapter) Run(ctx context.Context, h Handle, in Input, opts Options) (Output, error) {
	th, ok := h.(*transformersHandle)
	if !ok {
		return nil, inferr.New(inferr.KindEngine, "transformers: foreign handle type %T", h)
	}
	body, err := json.Marshal(transformersInferRequest{
		ModelName: th.model,
		Inputs:    in,
		Options:   opts,
	})
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "transformers: encode infer request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/infer", bytes.NewReader(body))
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "transformers: build infer request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.http.Do(req)
	if err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "transformers: infer call failed")
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return nil, statusToError(res, "transformers: infer "+th.model)
	}
	var ires transformersInferResponse
	if err := json.NewDecoder(res.Body).Decode(&ires); err != nil {
		return nil, inferr.Wrap(inferr.KindEngine, err, "transformers: decode infer response")
	}
	return Output(ires.Result), nil
}

// Healthy probes the sidecar health endpoint.
func (a *TransformersAdapter) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/health", nil)
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

var _ Adapter = (*TransformersAdapter)(nil)
