package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/paytab/backend/domain"
	"github.com/paytab/backend/internal/ratelimit"
	"github.com/paytab/backend/repository/memory"
	ledgerUC "github.com/paytab/backend/usecase/ledger"
)

type stubBridge struct {
	fail error
}

func (s *stubBridge) MirrorOpen(ctx context.Context, id, user, merchant string, allowance int64) (string, error) {
	if s.fail != nil {
		return "", domain.NewMirrorFailed("open", s.fail)
	}
	return "0xopen", nil
}

func (s *stubBridge) MirrorSpend(ctx context.Context, id string, newTotal int64) (string, error) {
	if s.fail != nil {
		return "", domain.NewMirrorFailed("spend", s.fail)
	}
	return "0xspend", nil
}

func (s *stubBridge) MirrorSettle(ctx context.Context, id string) (string, error) {
	if s.fail != nil {
		return "", domain.NewMirrorFailed("settle", s.fail)
	}
	return "0xsettle", nil
}

func newTestHandler(bridge *stubBridge) *SessionHandler {
	uc := ledgerUC.New(memory.NewSessionRepository(), bridge, ratelimit.New(10*time.Second, 5), "merchant-1", nil)
	return NewSessionHandler(uc, nil, nil)
}

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func postJSON(t *testing.T, handle fasthttp.RequestHandler, body string) (*fasthttp.RequestCtx, envelope) {
	t.Helper()
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetBodyString(body)
	handle(ctx)

	var env envelope
	if err := json.Unmarshal(ctx.Response.Body(), &env); err != nil {
		t.Fatalf("malformed envelope %q: %v", ctx.Response.Body(), err)
	}
	return ctx, env
}

func TestOpen_Created(t *testing.T) {
	h := newTestHandler(&stubBridge{})

	ctx, env := postJSON(t, h.Open, `{"session_id":"s1","user":"alice","allowance":2000000}`)
	if ctx.Response.StatusCode() != http.StatusCreated {
		t.Fatalf("status = %d, want 201", ctx.Response.StatusCode())
	}
	if env.Status != "success" {
		t.Fatalf("envelope = %+v", env)
	}

	var data struct {
		TxRef string `json:"tx_ref"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("data: %v", err)
	}
	if data.TxRef != "0xopen" {
		t.Fatalf("tx_ref = %s", data.TxRef)
	}
}

func TestOpen_DuplicateConflict(t *testing.T) {
	h := newTestHandler(&stubBridge{})

	postJSON(t, h.Open, `{"session_id":"s1","user":"alice","allowance":100}`)
	ctx, env := postJSON(t, h.Open, `{"session_id":"s1","user":"alice","allowance":100}`)

	if ctx.Response.StatusCode() != http.StatusConflict {
		t.Fatalf("status = %d, want 409", ctx.Response.StatusCode())
	}
	if env.Code != string(domain.ErrCodeAlreadyOpen) {
		t.Fatalf("code = %s, want ALREADY_OPEN", env.Code)
	}
}

func TestOpen_MalformedBody(t *testing.T) {
	h := newTestHandler(&stubBridge{})

	ctx, env := postJSON(t, h.Open, `{not json`)
	if ctx.Response.StatusCode() != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", ctx.Response.StatusCode())
	}
	if env.Code != string(domain.ErrCodeInvalid) {
		t.Fatalf("code = %s, want INVALID", env.Code)
	}
}

func TestSpend_FlowAndErrors(t *testing.T) {
	h := newTestHandler(&stubBridge{})

	postJSON(t, h.Open, `{"session_id":"s1","user":"alice","allowance":1000}`)

	ctx, env := postJSON(t, h.Spend, `{"session_id":"s1","delta":400}`)
	if ctx.Response.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d, want 200", ctx.Response.StatusCode())
	}
	var data struct {
		NewTotal int64 `json:"new_total"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("data: %v", err)
	}
	if data.NewTotal != 400 {
		t.Fatalf("new_total = %d, want 400", data.NewTotal)
	}

	ctx, env = postJSON(t, h.Spend, `{"session_id":"s1","delta":700}`)
	if ctx.Response.StatusCode() != http.StatusConflict || env.Code != string(domain.ErrCodeExceedsAllowance) {
		t.Fatalf("status = %d code = %s, want 409 EXCEEDS_ALLOWANCE", ctx.Response.StatusCode(), env.Code)
	}

	ctx, env = postJSON(t, h.Spend, `{"session_id":"nope","delta":1}`)
	if ctx.Response.StatusCode() != http.StatusNotFound || env.Code != string(domain.ErrCodeNotFound) {
		t.Fatalf("status = %d code = %s, want 404 NOT_FOUND", ctx.Response.StatusCode(), env.Code)
	}
}

func TestSpend_RateLimitedSetsRetryAfter(t *testing.T) {
	h := newTestHandler(&stubBridge{})

	postJSON(t, h.Open, `{"session_id":"s1","user":"alice","allowance":1000000}`)
	for i := 0; i < 5; i++ {
		ctx, _ := postJSON(t, h.Spend, `{"session_id":"s1","delta":1}`)
		if ctx.Response.StatusCode() != http.StatusOK {
			t.Fatalf("spend %d: status = %d", i+1, ctx.Response.StatusCode())
		}
	}

	ctx, env := postJSON(t, h.Spend, `{"session_id":"s1","delta":1}`)
	if ctx.Response.StatusCode() != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", ctx.Response.StatusCode())
	}
	if env.Code != string(domain.ErrCodeRateLimited) {
		t.Fatalf("code = %s, want RATE_LIMITED", env.Code)
	}
	if retry := string(ctx.Response.Header.Peek("Retry-After")); retry == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestSettle_AndMirrorFailure(t *testing.T) {
	bridge := &stubBridge{}
	h := newTestHandler(bridge)

	postJSON(t, h.Open, `{"session_id":"s1","user":"alice","allowance":1000}`)
	postJSON(t, h.Spend, `{"session_id":"s1","delta":600}`)

	ctx, env := postJSON(t, h.Settle, `{"session_id":"s1"}`)
	if ctx.Response.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d, want 200", ctx.Response.StatusCode())
	}
	var data struct {
		Paid   int64 `json:"paid_total"`
		Refund int64 `json:"refund"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("data: %v", err)
	}
	if data.Paid != 600 || data.Refund != 400 {
		t.Fatalf("paid = %d refund = %d, want 600/400", data.Paid, data.Refund)
	}

	// Mirror failures surface as 502 with the typed code; the local close
	// still stands, so a follow-up spend sees CLOSED.
	postJSON(t, h.Open, `{"session_id":"s2","user":"alice","allowance":1000}`)
	bridge.fail = errors.New("vault down")

	ctx, env = postJSON(t, h.Settle, `{"session_id":"s2"}`)
	if ctx.Response.StatusCode() != http.StatusBadGateway {
		t.Fatalf("settle status = %d, want 502", ctx.Response.StatusCode())
	}
	if env.Code != string(domain.ErrCodeMirrorFailed) {
		t.Fatalf("code = %s, want MIRROR_FAILED", env.Code)
	}

	ctx, env = postJSON(t, h.Spend, `{"session_id":"s2","delta":1}`)
	if ctx.Response.StatusCode() != http.StatusConflict || env.Code != string(domain.ErrCodeClosed) {
		t.Fatalf("status = %d code = %s, want 409 CLOSED", ctx.Response.StatusCode(), env.Code)
	}
}

func TestGet_Snapshot(t *testing.T) {
	h := newTestHandler(&stubBridge{})

	postJSON(t, h.Open, `{"session_id":"s1","user":"alice","allowance":1000}`)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.SetUserValue("id", "s1")
	h.Get(ctx)

	if ctx.Response.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d, want 200", ctx.Response.StatusCode())
	}
	var env envelope
	if err := json.Unmarshal(ctx.Response.Body(), &env); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	var session domain.Session
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatalf("session: %v", err)
	}
	if session.ID != "s1" || session.State != domain.SessionOpen || session.Allowance != 1000 {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestGet_MissingID(t *testing.T) {
	h := newTestHandler(&stubBridge{})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	h.Get(ctx)

	if ctx.Response.StatusCode() != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", ctx.Response.StatusCode())
	}
}

func TestMapError_UnknownErrorIsInternal(t *testing.T) {
	status, code := mapError(fmt.Errorf("plain failure"))
	if status != http.StatusInternalServerError || code != string(domain.ErrCodeInternal) {
		t.Fatalf("got %d/%s, want 500/INTERNAL", status, code)
	}
}
