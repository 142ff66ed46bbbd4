package transport

// OpenSessionRequest pre-funds a spending allowance. Merchant falls back to
// the configured merchant account when omitted. Allowance is in base units
// (6 decimals).
type OpenSessionRequest struct {
	SessionID string `json:"session_id"`
	User      string `json:"user"`
	Merchant  string `json:"merchant,omitempty"`
	Allowance int64  `json:"allowance"`
}

// SpendRequest debits the session by delta base units.
type SpendRequest struct {
	SessionID string `json:"session_id"`
	Delta     int64  `json:"delta"`
}

// SettleRequest closes the session and settles the net spend.
type SettleRequest struct {
	SessionID string `json:"session_id"`
}
