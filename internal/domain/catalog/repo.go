package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateOffering = errors.New("center already offers this test")
	ErrInvalidReference  = errors.New("referenced record does not exist")
)

type CenterRepository interface {
	Create(ctx context.Context, hc *HealthCenter) error
	GetByID(ctx context.Context, id uuid.UUID) (*HealthCenter, error)
	Update(ctx context.Context, hc *HealthCenter) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params map[string]string, limit, offset int) ([]*HealthCenter, int, error)
}

type TestRepository interface {
	Create(ctx context.Context, t *DiagnosticTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error)
	Update(ctx context.Context, t *DiagnosticTest) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params map[string]string, limit, offset int) ([]*DiagnosticTest, int, error)
}

type OfferingRepository interface {
	Create(ctx context.Context, o *Offering) error
	GetByID(ctx context.Context, id uuid.UUID) (*Offering, error)
	Update(ctx context.Context, o *Offering) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByCenter(ctx context.Context, centerID uuid.UUID, limit, offset int) ([]*Offering, int, error)
}
