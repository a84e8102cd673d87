package router

import "inferd/pkg/types"

// Catalog returns the task catalog served by GET /inference/supported-tasks.
// Only tasks whose engines are actually configured keep those engines listed.
func (r *Router) Catalog() map[string]types.TaskInfo {
	descriptions := map[string]types.TaskInfo{
		"text-generation": {
			Description: "text generation (generic, engine-agnostic)",
			InputFormat: map[string]string{"inputs": "input text"},
			Examples:    []string{"llama2-7b", "mistral-7b"},
		},
		"text-generation-ollama": {
			Description: "text generation pinned to the ollama engine",
			InputFormat: map[string]string{"inputs": "input text"},
			Examples:    []string{"llama2-7b", "mistral-7b"},
		},
		"text-generation-hf": {
			Description: "text generation pinned to the transformers engine",
			InputFormat: map[string]string{"inputs": "input text"},
			Examples:    []string{"gpt2", "bloom-560m"},
		},
		"vlm": {
			Description: "vision-language understanding over an image and a prompt",
			InputFormat: map[string]string{"image": "base64 image or path", "prompt": "prompt text"},
			Examples:    []string{"llava-1.5-7b", "blip2-t5"},
		},
		"asr": {
			Description: "automatic speech recognition (generic)",
			InputFormat: map[string]string{"audio": "audio file path"},
			Examples:    []string{"whisper-large", "wav2vec2-large"},
		},
		"asr-hf": {
			Description: "automatic speech recognition (transformers)",
			InputFormat: map[string]string{"audio": "audio file path"},
			Examples:    []string{"whisper-large", "wav2vec2-large"},
		},
		"vad-hf": {
			Description: "voice activity detection",
			InputFormat: map[string]string{"audio": "audio file path"},
			Examples:    []string{"silero-vad"},
		},
		"ocr": {
			Description: "optical character recognition (generic)",
			InputFormat: map[string]string{"image": "image file path"},
			Examples:    []string{"trocr-base", "paddleocr"},
		},
		"ocr-hf": {
			Description: "optical character recognition (transformers)",
			InputFormat: map[string]string{"image": "image file path"},
			Examples:    []string{"trocr-base", "trocr-large"},
		},
		"audio-classification": {
			Description: "audio content classification",
			InputFormat: map[string]string{"audio": "audio file path"},
			Examples:    []string{"ast-finetuned", "wav2vec2-audio"},
		},
		"video-analysis": {
			Description: "video content and scene analysis",
			InputFormat: map[string]string{"video": "video file path"},
			Examples:    []string{"videomae-large", "vivit-base"},
		},
		"scene-detection": {
			Description: "scene change detection in video",
			InputFormat: map[string]string{"video": "video file path"},
		},
		"document-analysis": {
			Description: "document structure and content extraction",
			InputFormat: map[string]string{"document": "document file path"},
			Examples:    []string{"layoutlm-large", "donut-base"},
		},
		"image-captioning": {
			Description: "caption generation for images",
			InputFormat: map[string]string{"image": "image file path"},
			Examples:    []string{"blip-image-captioning"},
		},
		"video-summary": {
			Description: "video content summarization",
			InputFormat: map[string]string{"video": "video file path"},
		},
		"audio-transcription": {
			Description: "audio to text transcription",
			InputFormat: map[string]string{"audio": "audio file path"},
			Examples:    []string{"whisper-large-v2"},
		},
	}
	out := make(map[string]types.TaskInfo, len(r.taskEngine))
	for task, engines := range r.taskEngine {
		info := descriptions[task]
		configured := make([]string, 0, len(engines))
		for _, e := range engines {
			if _, ok := r.adapters[e]; ok {
				configured = append(configured, e)
			}
		}
		info.Engines = configured
		out[task] = info
	}
	return out
}
