package usecase

import "context"

// SettlementBridge mirrors locally committed ledger mutations to the
// external settlement system and blocks until it confirms or the call
// fails. The returned reference identifies the confirming transaction.
//
// A failed mirror means the local record is ahead of the external ledger;
// the bridge reports that, it never rolls back or retries.
type SettlementBridge interface {
	MirrorOpen(ctx context.Context, id, user, merchant string, allowance int64) (string, error)
	MirrorSpend(ctx context.Context, id string, newTotal int64) (string, error)
	MirrorSettle(ctx context.Context, id string) (string, error)
}
