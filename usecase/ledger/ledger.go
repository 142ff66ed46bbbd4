// Package ledger is the single-process authority for session admission
// decisions. It owns the session records, enforces the allowance and
// velocity invariants, and keeps each locally committed mutation in step
// with the settlement bridge.
package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/paytab/backend/domain"
	"github.com/paytab/backend/internal/keylock"
	"github.com/paytab/backend/internal/ratelimit"
	"github.com/paytab/backend/repository"
	"github.com/paytab/backend/usecase"
)

// OpenResult reports a session creation and its mirror confirmation.
type OpenResult struct {
	Session *domain.Session `json:"session"`
	TxRef   string          `json:"tx_ref"`
}

// SpendResult reports a committed debit.
type SpendResult struct {
	NewTotal int64  `json:"new_total"`
	TxRef    string `json:"tx_ref"`
}

// SettleResult reports a closed session's final accounting.
type SettleResult struct {
	Paid   int64  `json:"paid_total"`
	Refund int64  `json:"refund"`
	TxRef  string `json:"tx_ref"`
}

// UseCase implements the session ledger. All three mutating operations on
// one session id run under that id's exclusive lock, covering the whole
// check-then-commit-then-mirror sequence: while a session's bridge call is
// outstanding, later operations on the same session queue instead of
// racing ahead of the pending mirror. Operations on different ids never
// contend.
type UseCase struct {
	sessions        repository.SessionRepository
	bridge          usecase.SettlementBridge
	limiter         *ratelimit.Limiter
	locks           *keylock.Map
	defaultMerchant string
	logger          *zap.Logger
	now             func() time.Time
}

func New(sessions repository.SessionRepository, bridge usecase.SettlementBridge, limiter *ratelimit.Limiter, defaultMerchant string, logger *zap.Logger) *UseCase {
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.DefaultWindow, ratelimit.DefaultThreshold)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		sessions:        sessions,
		bridge:          bridge,
		limiter:         limiter,
		locks:           keylock.New(),
		defaultMerchant: defaultMerchant,
		logger:          logger,
		now:             time.Now,
	}
}

// Open creates a fresh session with spent = 0 and mirrors the creation to
// the vault. A closed session's id may be reused; an open one may not.
func (uc *UseCase) Open(ctx context.Context, id, user, merchant string, allowance int64) (*OpenResult, error) {
	if id == "" || user == "" {
		return nil, domain.ErrInvalidPayload
	}
	if allowance < 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "allowance must be non-negative")
	}
	if merchant == "" {
		merchant = uc.defaultMerchant
	}
	if merchant == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "merchant required")
	}

	uc.locks.Lock(id)
	defer uc.locks.Unlock(id)

	if existing, err := uc.sessions.Get(ctx, id); err == nil && existing.IsOpen() {
		return nil, domain.ErrSessionOpen
	}

	now := uc.now()
	session := &domain.Session{
		ID:          id,
		User:        user,
		Merchant:    merchant,
		Allowance:   allowance,
		Spent:       0,
		State:       domain.SessionOpen,
		MirrorState: domain.MirrorPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	// Reused ids must not inherit the previous session's velocity history.
	uc.limiter.Forget(id)

	txRef, err := uc.bridge.MirrorOpen(ctx, id, user, merchant, allowance)
	if err != nil {
		uc.markMirror(ctx, session, domain.MirrorFail, "")
		return nil, err
	}
	uc.markMirror(ctx, session, domain.MirrorOk, txRef)

	uc.logger.Info("session opened",
		zap.String("session_id", id),
		zap.String("user", user),
		zap.Int64("allowance", allowance),
		zap.String("tx_ref", txRef))
	return &OpenResult{Session: session.Clone(), TxRef: txRef}, nil
}

// Spend admits a debit against the session's remaining allowance under the
// velocity limit, commits it locally and mirrors the new total. The
// velocity check runs before the allowance check, and its window slot is
// consumed only when the debit commits.
func (uc *UseCase) Spend(ctx context.Context, id string, delta int64) (*SpendResult, error) {
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}
	if delta <= 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "delta must be positive")
	}

	uc.locks.Lock(id)
	defer uc.locks.Unlock(id)

	session, err := uc.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, domain.ErrSessionClosed
	}

	now := uc.now()
	if dec := uc.limiter.Check(id, now); !dec.Allowed {
		return nil, domain.NewRateLimited(dec.RetryAfter)
	}

	// Compare against the headroom instead of summing: spent and delta are
	// both non-negative, and spent never exceeds the allowance, so the
	// subtraction cannot overflow where spent+delta could.
	if delta > session.Allowance-session.Spent {
		return nil, domain.ErrExceedsAllowance
	}
	candidate := session.Spent + delta

	session.Spent = candidate
	session.MirrorState = domain.MirrorPending
	session.UpdatedAt = now
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	uc.limiter.Record(id, now)

	txRef, err := uc.bridge.MirrorSpend(ctx, id, candidate)
	if err != nil {
		uc.markMirror(ctx, session, domain.MirrorFail, "")
		return nil, err
	}
	uc.markMirror(ctx, session, domain.MirrorOk, txRef)

	return &SpendResult{NewTotal: candidate, TxRef: txRef}, nil
}

// Settle closes the session and mirrors the final settlement. Closing is
// terminal locally even when the settle mirror fails; the settlement
// reference is recorded only on a confirmed mirror.
func (uc *UseCase) Settle(ctx context.Context, id string) (*SettleResult, error) {
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}

	uc.locks.Lock(id)
	defer uc.locks.Unlock(id)

	session, err := uc.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, domain.ErrSessionClosed
	}

	paid := session.Spent
	refund := session.Remaining()

	session.State = domain.SessionClosed
	session.MirrorState = domain.MirrorPending
	session.UpdatedAt = uc.now()
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	uc.limiter.Forget(id)

	txRef, err := uc.bridge.MirrorSettle(ctx, id)
	if err != nil {
		uc.markMirror(ctx, session, domain.MirrorFail, "")
		return nil, err
	}
	session.SettlementRef = txRef
	uc.markMirror(ctx, session, domain.MirrorOk, txRef)

	uc.logger.Info("session settled",
		zap.String("session_id", id),
		zap.Int64("paid", paid),
		zap.Int64("refund", refund),
		zap.String("tx_ref", txRef))
	return &SettleResult{Paid: paid, Refund: refund, TxRef: txRef}, nil
}

// Get returns a consistent snapshot of the session.
func (uc *UseCase) Get(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}
	return uc.sessions.Get(ctx, id)
}

// Diverged lists sessions whose latest mirror failed, the sessions whose
// local record is ahead of the vault.
func (uc *UseCase) Diverged(ctx context.Context) ([]domain.Session, error) {
	sessions, err := uc.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	diverged := sessions[:0]
	for _, s := range sessions {
		if s.MirrorState == domain.MirrorFail {
			diverged = append(diverged, s)
		}
	}
	return diverged, nil
}

func (uc *UseCase) markMirror(ctx context.Context, session *domain.Session, state domain.MirrorState, txRef string) {
	session.MirrorState = state
	if txRef != "" {
		session.LastTxRef = txRef
	}
	session.UpdatedAt = uc.now()
	if err := uc.sessions.Save(ctx, session); err != nil {
		uc.logger.Error("failed to persist mirror state",
			zap.String("session_id", session.ID),
			zap.String("mirror_state", string(state)),
			zap.Error(err))
	}
}
