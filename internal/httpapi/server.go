package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/inferr"
	"inferd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Infer(ctx context.Context, req types.InferRequest) (*types.InferResponse, error)
	Stats() types.StatsResponse
	ClearCache() types.ClearCacheResponse
	Health(ctx context.Context) types.HealthResponse
	Ready() bool
	Catalog() map[string]types.TaskInfo
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/inference", func(r chi.Router) {
		r.Post("/infer", handleInfer(svc))
		r.Get("/stats", handleStats(svc))
		r.Get("/supported-tasks", handleSupportedTasks(svc))
		r.Get("/examples", handleExamples(svc))
		r.Post("/clear-cache", handleClearCache(svc))
		r.Get("/health", handleHealth(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleInfer godoc
// @Summary      Execute an inference request
// @Description  Runs one task/engine/model inference and returns the result.
// @Accept       json
// @Produce      json
// @Param        request body types.InferRequest true "inference request"
// @Success      200 {object} types.InferResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      500 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /inference/infer [post]
func handleInfer(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "ValidationError", "Content-Type must be application/json")
			return
		}
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.InferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
			writeJSONError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body")
			return
		}

		start := time.Now()
		lvl := requestLogLevel(r)
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Str("task", req.Task).Str("engine", req.Engine).Str("model", req.ModelName)
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("infer start")
		}

		// Shutdown cancels in-flight work along with client disconnects.
		ctx, cancel := requestContext(r)
		defer cancel()
		resp, err := svc.Infer(ctx, req)
		if err != nil {
			// If context was canceled (client disconnect), just return.
			if r.Context().Err() != nil || baseCtx.Err() != nil {
				return
			}
			status := inferr.HTTPStatus(err)
			writeJSONError(w, status, inferr.TypeName(err), err.Error())
			if lvl >= LevelInfo && zlog != nil {
				z := zlog.Info().Int("status", status).Dur("dur", time.Since(start))
				if rid := middleware.GetReqID(r.Context()); rid != "" {
					z = z.Str("request_id", rid)
				}
				z.Err(err).Msg("infer end")
			}
			return
		}
		writeJSON(w, http.StatusOK, resp)
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Int("status", 200).Dur("dur", time.Since(start))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("infer end")
		}
	}
}

// handleStats godoc
// @Summary      Execution statistics
// @Produce      json
// @Success      200 {object} types.StatsResponse
// @Router       /inference/stats [get]
func handleStats(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Stats())
	}
}

// handleSupportedTasks godoc
// @Summary      Supported task/engine catalog
// @Produce      json
// @Success      200 {object} types.TasksResponse
// @Router       /inference/supported-tasks [get]
func handleSupportedTasks(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalog := svc.Catalog()
		writeJSON(w, http.StatusOK, types.TasksResponse{
			Tasks:      catalog,
			TotalTasks: len(catalog),
		})
	}
}

// handleExamples godoc
// @Summary      Example request payloads per task
// @Produce      json
// @Success      200 {object} map[string]any
// @Router       /inference/examples [get]
func handleExamples(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, examplePayloads(svc.Catalog()))
	}
}

// handleClearCache godoc
// @Summary      Evict all cached models
// @Produce      json
// @Success      200 {object} types.ClearCacheResponse
// @Router       /inference/clear-cache [post]
func handleClearCache(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := svc.ClearCache()
		if zlog != nil {
			zlog.Info().Int("released", resp.Released).Msg("cache cleared via API")
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleHealth godoc
// @Summary      Component health report
// @Produce      json
// @Success      200 {object} types.HealthResponse
// @Router       /inference/health [get]
func handleHealth(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := svc.Health(r.Context())
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("failed to encode response")
	}
}
