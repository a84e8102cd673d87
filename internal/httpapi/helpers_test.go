package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"off":     LevelOff,
		"":        LevelOff,
		"error":   LevelError,
		"info":    LevelInfo,
		"debug":   LevelDebug,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestRequestLogLevelOverrides(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/inference/stats?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override = %d", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/inference/stats", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override = %d", got)
	}
}

func TestItoa(t *testing.T) {
	for _, tc := range []struct {
		n    int
		want string
	}{{0, "0"}, {200, "200"}, {404, "404"}, {503, "503"}} {
		if got := itoa(tc.n); got != tc.want {
			t.Fatalf("itoa(%d) = %q", tc.n, got)
		}
	}
}

func TestRoutePatternOrPathFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/raw/path", nil)
	if got := routePatternOrPath(r); got != "/raw/path" {
		t.Fatalf("got %q", got)
	}
}

func TestRequestContextFollowsShutdown(t *testing.T) {
	base, cancelBase := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)

	r := httptest.NewRequest(http.MethodGet, "/inference/stats", nil)
	ctx, cancel := requestContext(r)
	defer cancel()
	cancelBase()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("request context not canceled on shutdown")
	}
}

func TestRequestContextFollowsClientDisconnect(t *testing.T) {
	rctx, disconnect := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/inference/stats", nil).WithContext(rctx)
	ctx, cancel := requestContext(r)
	defer cancel()
	disconnect()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("request context not canceled on disconnect")
	}
}

func TestSetMaxBodyBytesResetsOnNonPositive(t *testing.T) {
	SetMaxBodyBytes(42)
	if maxBodyBytes != 42 {
		t.Fatalf("maxBodyBytes = %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("maxBodyBytes = %d", maxBodyBytes)
	}
}
