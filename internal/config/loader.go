package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr            string `json:"addr" yaml:"addr" toml:"addr"`
	CacheCapacity   int    `json:"cache_capacity" yaml:"cache_capacity" toml:"cache_capacity"`
	OllamaURL       string `json:"ollama_url" yaml:"ollama_url" toml:"ollama_url"`
	TransformersURL string `json:"transformers_url" yaml:"transformers_url" toml:"transformers_url"`
	LlamaModelsDir  string `json:"llama_models_dir" yaml:"llama_models_dir" toml:"llama_models_dir"`
	LlamaCtx        int    `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads    int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	LogLevel        string `json:"log_level" yaml:"log_level" toml:"log_level"`
	MaxBodyBytes    int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled     bool   `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
