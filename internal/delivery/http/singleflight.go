package http

import (
	"context"
)

// singleflightBuild collapses concurrent identical builds on this handler. A
// caller whose context ends stops waiting without cancelling the shared build.
func (h *Handler) singleflightBuild(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := h.builds.DoChan(key, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
