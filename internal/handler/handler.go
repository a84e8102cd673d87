// Package handler provides the task-specific halves of the inference
// pipeline: preprocess turns a raw request payload into engine input and
// postprocess shapes the raw engine output into the response payload.
package handler

import (
	"strings"

	"inferd/internal/engine"
	"inferd/internal/inferr"
)

// Handler is the task-specific pre/post-processing logic paired with an
// adapter at routing time.
type Handler interface {
	// Task returns the task identifier this handler serves.
	Task() string
	// RequiredFields lists the data fields a request must carry.
	RequiredFields() []string
	// Preprocess converts validated request data into engine input.
	Preprocess(data map[string]any, opts engine.Options) (engine.Input, error)
	// Postprocess shapes raw engine output into the response payload.
	Postprocess(out engine.Output, opts engine.Options) (map[string]any, error)
}

// TextGenerationHandler serves the text-generation task family. The request
// carries the prompt under "inputs"; the engine returns generated text under
// "text".
type TextGenerationHandler struct {
	task string
}

// NewTextGenerationHandler returns a handler for one of the text-generation
// task identifiers.
func NewTextGenerationHandler(task string) *TextGenerationHandler {
	return &TextGenerationHandler{task: task}
}

func (h *TextGenerationHandler) Task() string             { return h.task }
func (h *TextGenerationHandler) RequiredFields() []string { return []string{"inputs"} }

func (h *TextGenerationHandler) Preprocess(data map[string]any, opts engine.Options) (engine.Input, error) {
	raw, ok := data["inputs"].(string)
	if !ok {
		return nil, inferr.New(inferr.KindValidation, "task %s: field \"inputs\" must be a string", h.task)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, inferr.New(inferr.KindValidation, "task %s: field \"inputs\" is empty", h.task)
	}
	return engine.Input{"prompt": raw}, nil
}

func (h *TextGenerationHandler) Postprocess(out engine.Output, opts engine.Options) (map[string]any, error) {
	text, ok := out["text"].(string)
	if !ok {
		return nil, inferr.New(inferr.KindExecution, "task %s: engine returned no text", h.task)
	}
	result := map[string]any{"generated_text": text}
	if pt, ok := out["prompt_tokens"]; ok {
		result["usage"] = map[string]any{
			"prompt_tokens":     pt,
			"completion_tokens": out["completion_tokens"],
		}
	}
	return result, nil
}

// VLMHandler serves vision-language tasks: an image plus a prompt in, a text
// answer out.
type VLMHandler struct{}

func (VLMHandler) Task() string             { return "vlm" }
func (VLMHandler) RequiredFields() []string { return []string{"image", "prompt"} }

func (VLMHandler) Preprocess(data map[string]any, opts engine.Options) (engine.Input, error) {
	in := engine.Input{}
	for _, f := range []string{"image", "prompt"} {
		s, ok := data[f].(string)
		if !ok || s == "" {
			return nil, inferr.New(inferr.KindValidation, "task vlm: field %q must be a non-empty string", f)
		}
		in[f] = s
	}
	return in, nil
}

func (VLMHandler) Postprocess(out engine.Output, opts engine.Options) (map[string]any, error) {
	return map[string]any(out), nil
}

// MediaHandler is the shared implementation for the single-payload media
// tasks (asr, ocr, audio-classification, video-analysis, ...). The payload
// field differs per task; the engine output passes through unchanged.
type MediaHandler struct {
	task  string
	field string
}

// NewMediaHandler returns a pass-through handler requiring one media field.
func NewMediaHandler(task, field string) *MediaHandler {
	return &MediaHandler{task: task, field: field}
}

func (h *MediaHandler) Task() string             { return h.task }
func (h *MediaHandler) RequiredFields() []string { return []string{h.field} }

func (h *MediaHandler) Preprocess(data map[string]any, opts engine.Options) (engine.Input, error) {
	s, ok := data[h.field].(string)
	if !ok || s == "" {
		return nil, inferr.New(inferr.KindValidation, "task %s: field %q must be a non-empty string", h.task, h.field)
	}
	return engine.Input{h.field: s}, nil
}

func (h *MediaHandler) Postprocess(out engine.Output, opts engine.Options) (map[string]any, error) {
	if len(out) == 0 {
		return nil, inferr.New(inferr.KindExecution, "task %s: engine returned empty output", h.task)
	}
	return map[string]any(out), nil
}

// Registry returns the static task → handler table. Populated once at
// startup, read-only thereafter.
func Registry() map[string]Handler {
	handlers := map[string]Handler{
		"text-generation":        NewTextGenerationHandler("text-generation"),
		"text-generation-ollama": NewTextGenerationHandler("text-generation-ollama"),
		"text-generation-hf":     NewTextGenerationHandler("text-generation-hf"),
		"vlm":                    VLMHandler{},
	}
	media := map[string]string{
		"asr":                  "audio",
		"asr-hf":               "audio",
		"vad-hf":               "audio",
		"audio-classification": "audio",
		"audio-transcription":  "audio",
		"ocr":                  "image",
		"ocr-hf":               "image",
		"image-captioning":     "image",
		"video-analysis":       "video",
		"scene-detection":      "video",
		"video-summary":        "video",
		"document-analysis":    "document",
	}
	for task, field := range media {
		handlers[task] = NewMediaHandler(task, field)
	}
	return handlers
}

var (
	_ Handler = (*TextGenerationHandler)(nil)
	_ Handler = VLMHandler{}
	_ Handler = (*MediaHandler)(nil)
)
