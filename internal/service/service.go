// Package service hosts the process-wide inference service: the single
// public Infer entry point plus stats, cache administration, and health. It
// owns the router, the model cache, the execution coordinator, and the only
// mutable shared counters.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inferd/internal/cache"
	"inferd/internal/engine"
	"inferd/internal/inferr"
	"inferd/internal/router"
	"inferd/pkg/types"
)

// Config carries the tunables for Service construction.
type Config struct {
	Adapters      []engine.Adapter
	CacheCapacity int
	Logger        zerolog.Logger
}

const defaultCacheCapacity = 8

// Service is the unified inference service.
type Service struct {
	router *router.Router
	cache  *cache.Cache
	coord  *Coordinator
	log    zerolog.Logger

	statsMu sync.Mutex
	stats   counters

	startTime time.Time
}

// counters are the process-wide execution statistics. All mutation happens
// under Service.statsMu; reads copy the struct under the same lock.
type counters struct {
	total       uint64
	successful  uint64
	failed      uint64
	cacheHits   uint64
	cacheMisses uint64
}

var (
	defaultOnce sync.Once
	defaultSvc  *Service
)

// Default returns the process-wide singleton, constructing it from cfg on
// first call. Construction runs exactly once even under concurrent first use;
// later calls ignore cfg.
func Default(cfg Config) *Service {
	defaultOnce.Do(func() {
		defaultSvc = New(cfg)
	})
	return defaultSvc
}

// New constructs an independent Service. Production code goes through
// Default; tests construct their own instances.
func New(cfg Config) *Service {
	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	log := cfg.Logger.With().Str("component", "service").Logger()
	c := cache.New(capacity)
	c.SetEvictHook(func(key string) {
		cacheEventsTotal.WithLabelValues("eviction").Inc()
		log.Info().Str("model", key).Msg("model evicted")
	})
	s := &Service{
		router:    router.New(cfg.Adapters),
		cache:     c,
		log:       log,
		startTime: time.Now(),
	}
	s.coord = NewCoordinator(c, cfg.Logger)
	log.Info().Int("cache_capacity", capacity).Strs("engines", s.router.Engines()).Msg("inference service initialized")
	return s
}

// Infer executes one inference request end to end. Known failure kinds
// propagate unchanged; anything unrecognized is wrapped as an execution
// failure. Statistics always count the call exactly once as successful or
// failed.
func (s *Service) Infer(ctx context.Context, req types.InferRequest) (*types.InferResponse, error) {
	requestID := uuid.NewString()
	start := time.Now()

	s.statsMu.Lock()
	s.stats.total++
	s.statsMu.Unlock()

	result, hit, err := s.infer(ctx, req)

	s.statsMu.Lock()
	if err != nil {
		s.stats.failed++
	} else {
		s.stats.successful++
	}
	s.statsMu.Unlock()
	loadedModels.Set(float64(s.cache.Len()))

	if err != nil {
		inferencesTotal.WithLabelValues(req.Task, req.Engine, "failure").Inc()
		s.log.Warn().Str("request_id", requestID).Str("task", req.Task).
			Str("engine", req.Engine).Str("model", req.ModelName).
			Dur("dur", time.Since(start)).Err(err).Msg("inference failed")
		var ie *inferr.Error
		if !errors.As(err, &ie) {
			ie = inferr.Wrap(inferr.KindExecution, err, "inference failed").(*inferr.Error)
		}
		return nil, ie.WithContext(req.Task, req.Engine, req.ModelName)
	}

	elapsed := time.Since(start)
	inferencesTotal.WithLabelValues(req.Task, req.Engine, "success").Inc()
	inferenceDuration.WithLabelValues(req.Task, req.Engine).Observe(elapsed.Seconds())
	s.log.Info().Str("request_id", requestID).Str("task", req.Task).
		Str("engine", req.Engine).Str("model", req.ModelName).
		Bool("cache_hit", hit).Dur("dur", elapsed).Msg("inference complete")

	return &types.InferResponse{
		Success:        true,
		Result:         result,
		Task:           req.Task,
		Engine:         req.Engine,
		ModelName:      req.ModelName,
		ProcessingTime: elapsed.Seconds(),
		RequestID:      requestID,
		Timestamp:      time.Now().Unix(),
	}, nil
}

// infer is the request state machine: received -> validated -> routed ->
// model_acquired -> executed. No step transitions backwards; the caller
// records the terminal state.
func (s *Service) infer(ctx context.Context, req types.InferRequest) (map[string]any, bool, error) {
	if err := validateRequest(req); err != nil {
		return nil, false, err
	}
	route, err := s.router.Resolve(req.Task, req.Engine)
	if err != nil {
		return nil, false, err
	}
	result, hit, looked, err := s.coord.Execute(ctx, route, req.ModelName, req.Data, engine.Options(req.Options))
	// Exactly one hit or miss per call that consulted the cache, whether or
	// not a later pipeline stage failed.
	if looked {
		s.recordLookup(hit)
	}
	return result, hit, err
}

func (s *Service) recordLookup(hit bool) {
	s.statsMu.Lock()
	if hit {
		s.stats.cacheHits++
	} else {
		s.stats.cacheMisses++
	}
	s.statsMu.Unlock()
	if hit {
		cacheEventsTotal.WithLabelValues("hit").Inc()
	} else {
		cacheEventsTotal.WithLabelValues("miss").Inc()
	}
}

// validateRequest enforces the request shape constraints before routing.
func validateRequest(req types.InferRequest) error {
	var missing []string
	if strings.TrimSpace(req.Task) == "" {
		missing = append(missing, "task")
	}
	if strings.TrimSpace(req.Engine) == "" {
		missing = append(missing, "engine")
	}
	if strings.TrimSpace(req.ModelName) == "" {
		missing = append(missing, "model_name")
	}
	if len(missing) > 0 {
		return inferr.New(inferr.KindValidation, "required request fields missing or empty: %v", missing)
	}
	// Data content is checked per task by the coordinator, which names the
	// missing fields; an empty object fails there with the concrete names.
	return nil
}

// Stats copies the counters under the lock, then computes derived ratios
// outside it. The ratios are always consistent with the captured counters.
func (s *Service) Stats() types.StatsResponse {
	s.statsMu.Lock()
	snap := s.stats
	s.statsMu.Unlock()

	total := snap.total
	if total == 0 {
		total = 1
	}
	lookups := snap.cacheHits + snap.cacheMisses
	if lookups == 0 {
		lookups = 1
	}
	return types.StatsResponse{
		Total:            snap.total,
		Successful:       snap.successful,
		Failed:           snap.failed,
		CacheHits:        snap.cacheHits,
		CacheMisses:      snap.cacheMisses,
		SuccessRate:      float64(snap.successful) / float64(total),
		CacheHitRate:     float64(snap.cacheHits) / float64(lookups),
		LoadedModelCount: s.cache.Len(),
		SupportedTasks:   s.router.Tasks(),
		Timestamp:        time.Now().Unix(),
	}
}

// ClearCache evicts and releases every cached model. Statistics are
// preserved.
func (s *Service) ClearCache() types.ClearCacheResponse {
	released := s.cache.Clear()
	loadedModels.Set(0)
	s.log.Info().Int("released", released).Msg("model cache cleared")
	return types.ClearCacheResponse{
		Success:   true,
		Released:  released,
		Timestamp: time.Now().Unix(),
	}
}

// Health reports component liveness without mutating state.
func (s *Service) Health(ctx context.Context) types.HealthResponse {
	comps := map[string]bool{
		"router": s.router.Healthy(),
		"cache":  s.cache.Healthy(),
	}
	for _, name := range s.router.Engines() {
		if a, ok := s.router.Adapter(name); ok {
			comps["engine:"+name] = a.Healthy(ctx)
		}
	}
	status := "healthy"
	// Engine reachability is reported but does not flip overall status; the
	// core itself is alive as long as router and cache are.
	if !comps["router"] || !comps["cache"] {
		status = "unhealthy"
	}
	return types.HealthResponse{
		Status:     status,
		Components: comps,
		Timestamp:  time.Now().Unix(),
	}
}

// Ready reports whether the service can accept traffic.
func (s *Service) Ready() bool {
	return s.router.Healthy() && s.cache.Healthy()
}

// Catalog exposes the router's task catalog.
func (s *Service) Catalog() map[string]types.TaskInfo { return s.router.Catalog() }

// Uptime reports time since construction.
func (s *Service) Uptime() time.Duration { return time.Since(s.startTime) }
