package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/paytab/backend/api/transport"
	"github.com/paytab/backend/domain"
	"github.com/paytab/backend/pkg/httpcontext"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	if dErr, ok := domain.AsDomainError(err); ok && dErr.Code == domain.ErrCodeRateLimited {
		// Advisory and self-clearing: tell the caller when to come back.
		secs := int(dErr.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		ctx.Response.Header.Set("Retry-After", strconv.Itoa(secs))
	}
	h.respondJSON(ctx, status, transport.NewError(code, err.Error(), nil))
}

func mapError(err error) (int, string) {
	dErr, ok := domain.AsDomainError(err)
	if !ok {
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
	switch dErr.Code {
	case domain.ErrCodeInvalid:
		return http.StatusBadRequest, string(domain.ErrCodeInvalid)
	case domain.ErrCodeNotFound:
		return http.StatusNotFound, string(domain.ErrCodeNotFound)
	case domain.ErrCodeAlreadyOpen:
		return http.StatusConflict, string(domain.ErrCodeAlreadyOpen)
	case domain.ErrCodeClosed:
		return http.StatusConflict, string(domain.ErrCodeClosed)
	case domain.ErrCodeExceedsAllowance:
		return http.StatusConflict, string(domain.ErrCodeExceedsAllowance)
	case domain.ErrCodeRateLimited:
		return http.StatusTooManyRequests, string(domain.ErrCodeRateLimited)
	case domain.ErrCodeMirrorFailed:
		return http.StatusBadGateway, string(domain.ErrCodeMirrorFailed)
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}
