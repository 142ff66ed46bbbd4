package middleware

import (
	"testing"

	"github.com/valyala/fasthttp"
)

func TestTraffic_PassesUnderLimit(t *testing.T) {
	handled := false
	wrapped := Traffic(100, 100, nil)(func(ctx *fasthttp.RequestCtx) {
		handled = true
	})

	ctx := &fasthttp.RequestCtx{}
	wrapped(ctx)

	if !handled {
		t.Fatal("request under the limit must reach the handler")
	}
}

func TestTraffic_RejectsBeyondBurst(t *testing.T) {
	wrapped := Traffic(1, 1, nil)(func(ctx *fasthttp.RequestCtx) {})

	first := &fasthttp.RequestCtx{}
	wrapped(first)

	second := &fasthttp.RequestCtx{}
	wrapped(second)

	if second.Response.StatusCode() != fasthttp.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", second.Response.StatusCode())
	}
	if retry := string(second.Response.Header.Peek("Retry-After")); retry == "" {
		t.Fatal("missing Retry-After header")
	}
}
