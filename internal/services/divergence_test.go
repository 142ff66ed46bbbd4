package services

import (
	"context"
	"testing"
	"time"

	"github.com/paytab/backend/domain"
)

type staticSource struct {
	sessions []domain.Session
}

func (s staticSource) Diverged(context.Context) ([]domain.Session, error) {
	return s.sessions, nil
}

func TestSweep_CountsDivergedSessions(t *testing.T) {
	source := staticSource{sessions: []domain.Session{
		{ID: "a", MirrorState: domain.MirrorFail},
		{ID: "b", MirrorState: domain.MirrorFail},
	}}
	r := NewDivergenceReporter(source, nil, ReporterConfig{Interval: time.Minute})

	r.Sweep(context.Background())
	if r.Count() != 2 {
		t.Fatalf("count = %d, want 2", r.Count())
	}

	r.source = staticSource{}
	r.Sweep(context.Background())
	if r.Count() != 0 {
		t.Fatalf("count = %d, want 0 after recovery", r.Count())
	}
}

func TestNewDivergenceReporter_SchedulesSubSecondInterval(t *testing.T) {
	r := NewDivergenceReporter(staticSource{}, nil, ReporterConfig{Interval: 500 * time.Millisecond})
	if got := len(r.cron.Entries()); got != 1 {
		t.Fatalf("scheduled entries = %d, want 1", got)
	}
}
