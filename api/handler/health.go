package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/paytab/backend/api/transport"
	"github.com/paytab/backend/internal/infrastructure/monitor"
	"github.com/paytab/backend/internal/services"
	"github.com/paytab/backend/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor    *monitor.Monitor
	divergence *services.DivergenceReporter
}

func NewHealthHandler(mon *monitor.Monitor, divergence *services.DivergenceReporter, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
		divergence:  divergence,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"services": map[string]interface{}{
			"vault": status.Vault,
			"journal": map[string]interface{}{
				"online": status.Journal,
				"size":   status.JournalSize,
			},
		},
		"diverged_sessions": h.divergence.Count(),
	}

	if status.Vault && status.Journal {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}
