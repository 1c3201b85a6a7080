package events

import (
	"time"

	"github.com/google/uuid"
)

// Event maps to the events table. SlotsFilled is written only through the
// EventRepository.Adjust path; catalog updates never touch the counters.
type Event struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	EventType   *string    `db:"event_type" json:"event_type,omitempty"`
	CenterID    *uuid.UUID `db:"center_id" json:"center_id,omitempty"`
	Venue       *string    `db:"venue" json:"venue,omitempty"`
	StartsAt    time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt      *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	SlotsTotal  int        `db:"slots_total" json:"slots_total"`
	SlotsFilled int        `db:"slots_filled" json:"slots_filled"`
	CreatedBy   *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// SlotsRemaining reports how many confirmed registrations the event can still take.
func (e *Event) SlotsRemaining() int { return e.SlotsTotal - e.SlotsFilled }

// Registration maps to the event_registrations table. PatientName and
// PatientContact are snapshots taken at registration time, not references.
type Registration struct {
	ID             uuid.UUID `db:"id" json:"id"`
	EventID        uuid.UUID `db:"event_id" json:"event_id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	Status         string    `db:"status" json:"status"`
	PatientName    string    `db:"patient_name" json:"patient_name"`
	PatientContact *string   `db:"patient_contact" json:"patient_contact,omitempty"`
	Note           *string   `db:"note" json:"note,omitempty"`
	RegisteredAt   time.Time `db:"registered_at" json:"registered_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	// WaitlistPosition is computed on read paths for waitlisted registrations.
	// 1-based rank by (registered_at, id).
	WaitlistPosition int `db:"-" json:"waitlist_position,omitempty"`
}

const (
	StatusConfirmed = "confirmed"
	StatusWaitlist  = "waitlist"
	StatusCancelled = "cancelled"
	StatusAttended  = "attended"
)

var validStatuses = map[string]bool{
	StatusConfirmed: true, StatusWaitlist: true,
	StatusCancelled: true, StatusAttended: true,
}

// ValidStatus reports whether s names a known registration status.
func ValidStatus(s string) bool { return validStatuses[s] }

// allowedTransitions encodes the registration state machine. Cancelled and
// attended are terminal. A same-status change is handled as a no-op before
// this table is consulted.
var allowedTransitions = map[string]map[string]bool{
	StatusWaitlist:  {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusCancelled: true, StatusAttended: true},
}

// CanTransition reports whether a registration may move from one status to another.
func CanTransition(from, to string) bool { return allowedTransitions[from][to] }

// RegistrationDetails carries the patient snapshot captured when registering.
type RegistrationDetails struct {
	PatientName    string  `json:"patient_name"`
	PatientContact *string `json:"patient_contact,omitempty"`
	Note           *string `json:"note,omitempty"`
}
