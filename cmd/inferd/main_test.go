package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerParsesLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"bogus": zerolog.InfoLevel,
		"":      zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := newLogger(in).GetLevel(); got != want {
			t.Fatalf("newLogger(%q) level = %v, want %v", in, got, want)
		}
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("INFERD_TEST_KEY", "set")
	if got := envOr("INFERD_TEST_KEY", "def"); got != "set" {
		t.Fatalf("got %q", got)
	}
	if got := envOr("INFERD_TEST_KEY_UNSET", "def"); got != "def" {
		t.Fatalf("got %q", got)
	}
}

func TestTasksCommandListsCatalog(t *testing.T) {
	cmd := buildTasksCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("tasks: %v", err)
	}
	s := out.String()
	for _, task := range []string{"text-generation", "ocr", "asr", "document-analysis"} {
		if !strings.Contains(s, task) {
			t.Fatalf("output missing %q:\n%s", task, s)
		}
	}
}
