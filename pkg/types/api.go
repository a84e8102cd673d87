package types

// InferRequest is the unified inference request payload.
type InferRequest struct {
	// Task type to execute.
	// example: text-generation
	Task string `json:"task" example:"text-generation"`
	// Engine that should execute the task.
	// example: ollama
	Engine string `json:"engine" example:"ollama"`
	// Registered model name to run.
	// example: llama2-7b
	ModelName string `json:"model_name" example:"llama2-7b"`
	// Input data; required fields depend on the task.
	Data map[string]any `json:"data"`
	// Optional generation parameters (max_length, temperature, top_p, ...).
	Options map[string]any `json:"options,omitempty"`
}

// InferResponse wraps a successful inference result.
type InferResponse struct {
	// Always true on a 2xx response; failures use ErrorResponse instead.
	// example: true
	Success bool `json:"success" example:"true"`
	// Task-specific result payload.
	Result map[string]any `json:"result"`
	// Task that was executed.
	// example: text-generation
	Task string `json:"task" example:"text-generation"`
	// Engine that executed it.
	// example: ollama
	Engine string `json:"engine" example:"ollama"`
	// Model that served the request.
	// example: llama2-7b
	ModelName string `json:"model_name" example:"llama2-7b"`
	// Wall-clock processing time in seconds.
	// example: 0.42
	ProcessingTime float64 `json:"processing_time" example:"0.42"`
	// Server-assigned request identifier.
	// example: 0b8f9c3e-0d9a-4a5e-9f0f-0a1b2c3d4e5f
	RequestID string `json:"request_id" example:"0b8f9c3e-0d9a-4a5e-9f0f-0a1b2c3d4e5f"`
	// Completion time in unix seconds.
	// example: 1700000000
	Timestamp int64 `json:"timestamp" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: unsupported task: x
	Error string `json:"error" example:"unsupported task: x"`
	// Stable error kind name.
	// example: UnsupportedTaskError
	ErrorType string `json:"error_type,omitempty" example:"UnsupportedTaskError"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatsResponse is returned by GET /inference/stats.
type StatsResponse struct {
	// Total inference calls since process start.
	// example: 120
	Total uint64 `json:"total" example:"120"`
	// Calls that reached the succeeded terminal state.
	// example: 115
	Successful uint64 `json:"successful" example:"115"`
	// Calls that reached the failed terminal state.
	// example: 5
	Failed uint64 `json:"failed" example:"5"`
	// Model cache hits.
	// example: 110
	CacheHits uint64 `json:"cache_hits" example:"110"`
	// Model cache misses (each triggers a load).
	// example: 10
	CacheMisses uint64 `json:"cache_misses" example:"10"`
	// successful / max(total, 1), computed from one consistent snapshot.
	// example: 0.958
	SuccessRate float64 `json:"success_rate" example:"0.958"`
	// cache_hits / max(hits+misses, 1), same snapshot.
	// example: 0.916
	CacheHitRate float64 `json:"cache_hit_rate" example:"0.916"`
	// Models currently resident in the cache.
	// example: 3
	LoadedModelCount int `json:"loaded_model_count" example:"3"`
	// Supported task identifiers.
	SupportedTasks []string `json:"supported_tasks"`
	// Server time in unix seconds.
	// example: 1700000000
	Timestamp int64 `json:"timestamp" example:"1700000000"`
}

// HealthResponse is returned by GET /inference/health.
type HealthResponse struct {
	// Overall status: healthy or unhealthy.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Per-component liveness.
	Components map[string]bool `json:"components"`
	// Server time in unix seconds.
	// example: 1700000000
	Timestamp int64 `json:"timestamp" example:"1700000000"`
}

// ClearCacheResponse acknowledges POST /inference/clear-cache.
type ClearCacheResponse struct {
	// example: true
	Success bool `json:"success" example:"true"`
	// Number of model instances that were released.
	// example: 3
	Released int `json:"released" example:"3"`
	// example: 1700000000
	Timestamp int64 `json:"timestamp" example:"1700000000"`
}

// TaskInfo describes one supported task for GET /inference/supported-tasks.
type TaskInfo struct {
	// Engines able to execute the task.
	Engines []string `json:"engines"`
	// Human-readable description.
	// example: general text generation
	Description string `json:"description" example:"general text generation"`
	// Required input fields and their meaning.
	InputFormat map[string]string `json:"input_format"`
	// Example model names.
	Examples []string `json:"examples,omitempty"`
}

// TasksResponse wraps the task catalog.
type TasksResponse struct {
	Tasks map[string]TaskInfo `json:"tasks"`
	// example: 16
	TotalTasks int `json:"total_tasks" example:"16"`
}
