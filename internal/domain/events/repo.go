package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventRepository owns event rows and the capacity counters. Adjust is the
// single write path for slots_filled.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	// LockForUpdate reads the event and takes a row lock so units of work on
	// the same event serialize. Must be called inside a transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Event, error)
	// Update writes catalog fields only. Slot counters are never touched here.
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params map[string]string, limit, offset int) ([]*Event, int, error)
	// Adjust applies delta to slots_filled only if the result stays within
	// [0, slots_total], in one atomic statement. Returns the new count.
	// Fails with ErrNotFound or ErrCapacityViolation, mutating nothing.
	Adjust(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

// RegistrationRepository owns registration rows.
type RegistrationRepository interface {
	// Create inserts the registration, assigning ID and RegisteredAt.
	// Fails with ErrDuplicateRegistration when the (event, patient) pair
	// exists, ErrInvalidReference when the event does not.
	Create(ctx context.Context, r *Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*Registration, error)
	GetByEventAndPatient(ctx context.Context, eventID, patientID uuid.UUID) (*Registration, error)
	// SetStatus overwrites the status. Capacity bookkeeping is the caller's job.
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByEvent(ctx context.Context, eventID uuid.UUID, status string, limit, offset int) ([]*Registration, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Registration, int, error)
	// ClaimOldestWaitlisted flips the event's earliest waitlisted registration
	// to confirmed in one atomic statement, so exactly one concurrent claimant
	// wins. Ordering is (registered_at ASC, id ASC). Fails with ErrNotFound
	// when the waitlist is empty.
	ClaimOldestWaitlisted(ctx context.Context, eventID uuid.UUID) (*Registration, error)
	// WaitlistPosition returns the 1-based rank of (registeredAt, id) among
	// the event's waitlisted registrations, in the same order the claim uses.
	WaitlistPosition(ctx context.Context, eventID uuid.UUID, registeredAt time.Time, id uuid.UUID) (int, error)
}

// TxRunner executes fn as one atomic unit of work. Production wiring runs a
// pgx transaction carried in the context; tests substitute an in-memory runner.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error
