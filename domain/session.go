package domain

import "time"

// SessionState tracks the local lifecycle of a spending session.
// Closed is terminal: a session never reopens.
type SessionState string

const (
	SessionOpen   SessionState = "open"
	SessionClosed SessionState = "closed"
)

// MirrorState tracks whether the external settlement system has confirmed
// the most recent locally committed mutation. It is independent of the
// session state: a closed session with a failed mirror is a valid,
// reportable combination awaiting operator reconciliation.
type MirrorState string

const (
	MirrorPending MirrorState = "pending"
	MirrorOk      MirrorState = "ok"
	MirrorFail    MirrorState = "failed"
)

// Session is the unit of allowance and settlement. Amounts are non-negative
// integers in base currency units (1/1,000,000 of the display unit).
type Session struct {
	ID            string       `json:"id"`
	User          string       `json:"user"`
	Merchant      string       `json:"merchant"`
	Allowance     int64        `json:"allowance"`
	Spent         int64        `json:"spent"`
	State         SessionState `json:"state"`
	MirrorState   MirrorState  `json:"mirror_state"`
	SettlementRef string       `json:"settlement_ref,omitempty"`
	LastTxRef     string       `json:"last_tx_ref,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (s *Session) IsOpen() bool {
	return s != nil && s.State == SessionOpen
}

// Remaining returns the unspent headroom, floored at zero.
func (s *Session) Remaining() int64 {
	if s == nil {
		return 0
	}
	if r := s.Allowance - s.Spent; r > 0 {
		return r
	}
	return 0
}

// Clone returns an independent copy so readers never observe a record
// mid-mutation.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	copied := *s
	return &copied
}
