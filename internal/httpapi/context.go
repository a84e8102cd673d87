package httpapi

import (
	"context"
	"net/http"
)

// baseCtx is canceled on daemon shutdown so in-flight inferences stop with
// the server instead of outliving it.
var baseCtx = context.Background()

// SetBaseContext installs the shutdown context consulted by handlers. Passing
// nil restores the default.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		baseCtx = context.Background()
		return
	}
	baseCtx = ctx
}

// requestContext derives the context one inference runs under: done when the
// client disconnects or the daemon shuts down, whichever comes first. The
// cancel func must be called when the handler returns.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
