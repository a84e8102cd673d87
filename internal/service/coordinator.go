package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/cache"
	"inferd/internal/engine"
	"inferd/internal/inferr"
	"inferd/internal/router"
)

// Coordinator runs one request to completion given a resolved route. It holds
// no per-request state; any number of executions may run concurrently over
// the shared cache.
type Coordinator struct {
	cache *cache.Cache
	log   zerolog.Logger
}

// NewCoordinator returns a coordinator over the shared model cache.
func NewCoordinator(c *cache.Cache, log zerolog.Logger) *Coordinator {
	return &Coordinator{cache: c, log: log.With().Str("component", "coordinator").Logger()}
}

// Execute validates the input, acquires the model, and runs the
// preprocess/run/postprocess pipeline. hit reports whether the model
// acquisition was a cache hit; looked reports whether the cache was consulted
// at all, so the caller can account the lookup even when a later stage fails.
func (co *Coordinator) Execute(ctx context.Context, route router.Route, modelName string, data map[string]any, opts engine.Options) (result map[string]any, hit, looked bool, err error) {
	// Unknown panics from handlers or adapters are caught exactly once, here,
	// and surfaced as execution failures with the cause preserved.
	defer func() {
		if r := recover(); r != nil {
			err = inferr.Wrap(inferr.KindExecution, fmt.Errorf("panic: %v", r), "inference pipeline panicked")
		}
	}()

	if missing := missingFields(route.Handler.RequiredFields(), data); len(missing) > 0 {
		return nil, false, false, inferr.New(inferr.KindValidation, "task %q is missing required data fields: %v", route.Task, missing).
			WithContext(route.Task, route.Engine, modelName)
	}

	start := time.Now()
	looked = true
	model, hit, err := co.cache.GetOrLoad(ctx, route.Engine, modelName, func(ctx context.Context) (cache.Handle, error) {
		h, err := route.Adapter.Load(ctx, modelName)
		if err != nil {
			// Resolution failures keep their kind; everything else is a
			// load failure with the original cause attached.
			return nil, inferr.Wrap(inferr.KindModelLoad, err, "loading model %q on %s failed", modelName, route.Engine)
		}
		return h, nil
	})
	if err != nil {
		return nil, hit, looked, err
	}
	defer co.cache.Release(model)
	if !hit {
		co.log.Info().Str("model", modelName).Str("engine", route.Engine).
			Dur("load_dur", model.LoadDuration).Msg("model loaded")
		modelLoadDuration.WithLabelValues(route.Engine).Observe(model.LoadDuration.Seconds())
	}

	in, err := route.Handler.Preprocess(data, opts)
	if err != nil {
		return nil, hit, looked, inferr.Wrap(inferr.KindExecution, err, "preprocess failed")
	}
	raw, err := route.Adapter.Run(ctx, model.Handle.(engine.Handle), in, opts)
	if err != nil {
		return nil, hit, looked, inferr.Wrap(inferr.KindExecution, err, "engine run failed")
	}
	out, err := route.Handler.Postprocess(raw, opts)
	if err != nil {
		return nil, hit, looked, inferr.Wrap(inferr.KindExecution, err, "postprocess failed")
	}
	co.log.Debug().Str("task", route.Task).Str("model", modelName).
		Dur("dur", time.Since(start)).Msg("execution complete")
	return out, hit, looked, nil
}

// missingFields returns the required fields absent from data, sorted.
func missingFields(required []string, data map[string]any) []string {
	var missing []string
	for _, f := range required {
		if _, ok := data[f]; !ok {
			missing = append(missing, f)
		}
	}
	sort.Strings(missing)
	return missing
}
