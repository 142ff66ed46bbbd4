package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ClientConfig carries the vault endpoint settings.
type ClientConfig struct {
	RPCURL      string
	AccountKey  string
	CallTimeout time.Duration
}

// Client submits vault transactions over the vault's JSON RPC surface and
// blocks until the vault confirms or the call deadline passes.
type Client struct {
	http    *fasthttp.Client
	rpcURL  string
	key     string
	timeout time.Duration
	logger  *zap.Logger
}

type rpcRequest struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type rpcResponse struct {
	TxRef string `json:"tx_ref"`
	Error string `json:"error,omitempty"`
}

// NewClient builds a vault client. CallTimeout bounds every transaction
// wait; it is the only release valve for a hung settlement call.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: &fasthttp.Client{
			ReadTimeout:  cfg.CallTimeout,
			WriteTimeout: cfg.CallTimeout,
		},
		rpcURL:  cfg.RPCURL,
		key:     cfg.AccountKey,
		timeout: cfg.CallTimeout,
		logger:  logger,
	}
}

func (c *Client) OpenSession(ctx context.Context, id, user, merchant string, allowance int64) (string, error) {
	return c.submit(ctx, "vault_openSession", map[string]any{
		"id":        id,
		"user":      user,
		"merchant":  merchant,
		"allowance": allowance,
	})
}

func (c *Client) AccountSpend(ctx context.Context, id string, newTotal int64) (string, error) {
	return c.submit(ctx, "vault_accountOffchainSpend", map[string]any{
		"id":              id,
		"new_total_spent": newTotal,
	})
}

func (c *Client) Settle(ctx context.Context, id string) (string, error) {
	return c.submit(ctx, "vault_settle", map[string]any{
		"id": id,
	})
}

func (c *Client) submit(ctx context.Context, method string, params map[string]any) (string, error) {
	body, err := json.Marshal(rpcRequest{Method: method, Params: params})
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.rpcURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
	req.SetBody(body)

	start := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Warn("vault call failed",
			zap.String("method", method),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, method, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("vault %s rejected: HTTP %d", method, resp.StatusCode())
	}

	var out rpcResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("vault %s: malformed response: %w", method, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("vault %s rejected: %s", method, out.Error)
	}
	if out.TxRef == "" {
		return "", fmt.Errorf("vault %s: confirmation without tx ref", method)
	}

	c.logger.Debug("vault call confirmed",
		zap.String("method", method),
		zap.String("tx_ref", out.TxRef),
		zap.Duration("elapsed", time.Since(start)))
	return out.TxRef, nil
}
