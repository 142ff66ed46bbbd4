package monitor

import "time"

type Status struct {
	Vault       bool      `json:"vault"`
	Journal     bool      `json:"journal"`
	JournalSize int       `json:"journal_size"`
	LastCheck   time.Time `json:"last_check"`
}
