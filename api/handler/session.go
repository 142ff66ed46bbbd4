package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/paytab/backend/api/transport"
	"github.com/paytab/backend/domain"
	"github.com/paytab/backend/pkg/httpcontext"
	ledgerUC "github.com/paytab/backend/usecase/ledger"
)

type SessionHandler struct {
	baseHandler
	uc *ledgerUC.UseCase
}

func NewSessionHandler(uc *ledgerUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Open a pre-funded spending session
// @Tags sessions
// @Router /api/v1/sessions/open [post]
func (h *SessionHandler) Open(ctx *fasthttp.RequestCtx) {
	var req transport.OpenSessionRequest
	if !h.parseBody(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	res, err := h.uc.Open(stdCtx, req.SessionID, req.User, req.Merchant, req.Allowance)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, res)
}

// @Summary Debit an open session
// @Tags sessions
// @Router /api/v1/sessions/spend [post]
func (h *SessionHandler) Spend(ctx *fasthttp.RequestCtx) {
	var req transport.SpendRequest
	if !h.parseBody(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	res, err := h.uc.Spend(stdCtx, req.SessionID, req.Delta)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, res)
}

// @Summary Close a session and settle the net spend
// @Tags sessions
// @Router /api/v1/sessions/settle [post]
func (h *SessionHandler) Settle(ctx *fasthttp.RequestCtx) {
	var req transport.SettleRequest
	if !h.parseBody(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	res, err := h.uc.Settle(stdCtx, req.SessionID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, res)
}

// @Summary Fetch a session snapshot
// @Tags sessions
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) Get(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing session id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.Get(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, session)
}

func (h *SessionHandler) parseBody(ctx *fasthttp.RequestCtx, out interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), out); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return false
	}
	return true
}
