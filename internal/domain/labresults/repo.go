package labresults

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no report matches the given id.
	ErrNotFound = errors.New("lab report not found")
	// ErrInvalidReference is returned when the patient a report points at
	// does not exist.
	ErrInvalidReference = errors.New("referenced patient does not exist")
	// ErrUnsupportedType is returned for uploads in a format centers may
	// not store.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrInvalidFilter is returned when a list filter cannot be parsed.
	ErrInvalidFilter = errors.New("invalid filter")
)

// ReportRepository persists lab report metadata. List accepts optional
// filters: "patient" (uuid), "q" (substring over test and file name),
// "from"/"to" (upload time bounds, RFC 3339).
type ReportRepository interface {
	Create(ctx context.Context, r *LabReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabReport, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params map[string]string, limit, offset int) ([]*LabReport, int, error)
	CountByHash(ctx context.Context, hash string) (int, error)
}
