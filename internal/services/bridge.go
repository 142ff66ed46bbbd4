package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/paytab/backend/domain"
	"github.com/paytab/backend/internal/infrastructure/journal"
	"github.com/paytab/backend/internal/vault"
	"github.com/paytab/backend/usecase"
)

// SettlementBridge forwards every locally accepted mutation to the vault
// and waits for confirmation. It owns the call timeout, the circuit breaker
// around the vault, and the audit journal; it carries no session state and
// performs no compensation on failure.
type SettlementBridge struct {
	vault   vault.Vault
	breaker *vault.CircuitBreaker
	journal *journal.Store
	timeout time.Duration
	logger  *zap.Logger
}

// NewSettlementBridge wires the bridge. The journal and breaker are
// optional; timeout bounds each mirror call and defaults to 15s.
func NewSettlementBridge(v vault.Vault, breaker *vault.CircuitBreaker, jrnl *journal.Store, timeout time.Duration, logger *zap.Logger) *SettlementBridge {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementBridge{
		vault:   v,
		breaker: breaker,
		journal: jrnl,
		timeout: timeout,
		logger:  logger,
	}
}

func (b *SettlementBridge) MirrorOpen(ctx context.Context, id, user, merchant string, allowance int64) (string, error) {
	return b.mirror(ctx, journal.OpOpen, id, 0, func(callCtx context.Context) (string, error) {
		return b.vault.OpenSession(callCtx, id, user, merchant, allowance)
	})
}

func (b *SettlementBridge) MirrorSpend(ctx context.Context, id string, newTotal int64) (string, error) {
	return b.mirror(ctx, journal.OpSpend, id, newTotal, func(callCtx context.Context) (string, error) {
		return b.vault.AccountSpend(callCtx, id, newTotal)
	})
}

func (b *SettlementBridge) MirrorSettle(ctx context.Context, id string) (string, error) {
	return b.mirror(ctx, journal.OpSettle, id, 0, func(callCtx context.Context) (string, error) {
		return b.vault.Settle(callCtx, id)
	})
}

func (b *SettlementBridge) mirror(ctx context.Context, op, sessionID string, newTotal int64, call func(context.Context) (string, error)) (string, error) {
	if b.breaker != nil && !b.breaker.Allow() {
		b.record(sessionID, op, newTotal, "", vault.ErrCircuitOpen)
		return "", domain.NewMirrorFailed(op, vault.ErrCircuitOpen)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	txRef, err := call(callCtx)
	if err != nil {
		b.breaker.OnFailure()
		b.logger.Error("settlement mirror failed, local state ahead of vault",
			zap.String("session_id", sessionID),
			zap.String("op", op),
			zap.Error(err))
		b.record(sessionID, op, newTotal, "", err)
		return "", domain.NewMirrorFailed(op, err)
	}

	b.breaker.OnSuccess()
	b.record(sessionID, op, newTotal, txRef, nil)
	return txRef, nil
}

func (b *SettlementBridge) record(sessionID, op string, newTotal int64, txRef string, callErr error) {
	if b.journal == nil {
		return
	}
	entry := journal.Entry{
		SessionID: sessionID,
		Op:        op,
		NewTotal:  newTotal,
		TxRef:     txRef,
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if err := b.journal.Append(entry); err != nil {
		b.logger.Warn("failed to journal mirror attempt", zap.Error(err))
	}
}

var _ usecase.SettlementBridge = (*SettlementBridge)(nil)
