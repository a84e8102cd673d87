package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\ncache_capacity: 4\nollama_url: http://localhost:11434\ntransformers_url: http://localhost:8500\nlog_level: debug\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.CacheCapacity != 4 || cfg.OllamaURL != "http://localhost:11434" ||
		cfg.TransformersURL != "http://localhost:8500" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","cache_capacity":2,"llama_models_dir":"/models","llama_ctx":4096,"llama_threads":8,"max_body_bytes":1048576}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.CacheCapacity != 2 || cfg.LlamaModelsDir != "/models" ||
		cfg.LlamaCtx != 4096 || cfg.LlamaThreads != 8 || cfg.MaxBodyBytes != 1048576 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\ncache_capacity=9\nollama_url=\"http://o:1\"\ncors_enabled=true\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.CacheCapacity != 9 || cfg.OllamaURL != "http://o:1" || !cfg.CORSEnabled {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestLoadInvalidPayloads(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"bad.yaml": "addr: :8080\n: broken\n",
		"bad.json": `{ "addr": ":8080", "cache_capacity": }`,
		"bad.toml": "addr=:8080\ncache_capacity\n",
	}
	for name, content := range cases {
		p := writeTempFile(t, d, name, content)
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected unmarshal error", name)
		}
	}
}
