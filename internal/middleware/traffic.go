package middleware

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/valyala/fasthttp"
)

// Traffic applies a global request-rate ceiling at the gateway boundary.
// It protects the process as a whole; the per-session velocity limit is
// enforced separately inside the ledger.
func Traffic(perSecond float64, burst int, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if perSecond <= 0 {
		perSecond = 100
	}
	if burst <= 0 {
		burst = int(perSecond)
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if !limiter.Allow() {
				logger.Warn("gateway traffic limit hit",
					zap.String("path", string(ctx.Path())),
					zap.String("remote", ctx.RemoteAddr().String()))
				ctx.Response.Header.Set("Retry-After", "1")
				ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
				return
			}
			next(ctx)
		}
	}
}
