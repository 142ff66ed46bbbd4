package journal

import (
	"time"

	"github.com/google/uuid"
)

const (
	OpOpen   = "open"
	OpSpend  = "spend"
	OpSettle = "settle"

	OutcomeOk     = "ok"
	OutcomeFailed = "failed"
)

// Entry records one settlement mirror attempt: which session, which
// operation, the committed value it carried, and whether the vault
// confirmed it. Failed entries are the durable trace of local/external
// divergence that operators reconcile from.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Op        string    `json:"op"`
	NewTotal  int64     `json:"new_total,omitempty"`
	TxRef     string    `json:"tx_ref,omitempty"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Outcome == "" {
		if e.Error != "" {
			e.Outcome = OutcomeFailed
		} else {
			e.Outcome = OutcomeOk
		}
	}
}
