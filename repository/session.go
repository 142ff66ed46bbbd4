package repository

import (
	"context"

	"github.com/paytab/backend/domain"
)

// SessionRepository stores session records. Implementations must give
// readers a consistent snapshot: a Get or List never observes a record
// mid-mutation.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	List(ctx context.Context) ([]domain.Session, error)
}
