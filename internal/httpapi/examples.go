package httpapi

import (
	"inferd/pkg/types"
)

// exampleData maps each task's primary input field to a sample value.
var exampleData = map[string]map[string]any{
	"text-generation":        {"inputs": "Write a short poem about the sea."},
	"text-generation-ollama": {"inputs": "Explain HTTP in one paragraph."},
	"text-generation-hf":     {"inputs": "Once upon a time"},
	"vlm":                    {"image": "<base64 image>", "prompt": "Describe this picture."},
	"asr":                    {"audio": "<base64 audio or path>"},
	"asr-hf":                 {"audio": "<base64 audio or path>"},
	"vad-hf":                 {"audio": "<base64 audio or path>"},
	"audio-classification":   {"audio": "<base64 audio or path>"},
	"audio-transcription":    {"audio": "<base64 audio or path>"},
	"ocr":                    {"image": "<base64 image or path>"},
	"ocr-hf":                 {"image": "<base64 image or path>"},
	"image-captioning":       {"image": "<base64 image or path>"},
	"video-analysis":         {"video": "<path or url>"},
	"scene-detection":        {"video": "<path or url>"},
	"video-summary":          {"video": "<path or url>"},
	"document-analysis":      {"document": "<path or base64 document>"},
}

// examplePayloads builds a ready-to-send request body per supported task.
func examplePayloads(catalog map[string]types.TaskInfo) map[string]any {
	out := make(map[string]any, len(catalog))
	for task, info := range catalog {
		data, ok := exampleData[task]
		if !ok {
			data = map[string]any{}
		}
		eng := ""
		if len(info.Engines) > 0 {
			eng = info.Engines[0]
		}
		model := ""
		if len(info.Examples) > 0 {
			model = info.Examples[0]
		}
		out[task] = types.InferRequest{
			Task:      task,
			Engine:    eng,
			ModelName: model,
			Data:      data,
		}
	}
	return map[string]any{"examples": out, "count": len(out)}
}
