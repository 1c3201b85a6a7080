package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service is the registration coordinator. Every writing operation runs as one
// atomic unit of work: the event row is locked first so operations on the same
// event serialize, and any failure rolls back both the counters and the
// registration rows together.
type Service struct {
	events   EventRepository
	regs     RegistrationRepository
	promoter *PromotionEngine
	runTx    TxRunner
	log      zerolog.Logger
}

func NewService(events EventRepository, regs RegistrationRepository, promoter *PromotionEngine, runTx TxRunner, log zerolog.Logger) *Service {
	return &Service{events: events, regs: regs, promoter: promoter, runTx: runTx, log: log}
}

// -- Events catalog --

func (s *Service) CreateEvent(ctx context.Context, e *Event) error {
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	if e.StartsAt.IsZero() {
		return fmt.Errorf("starts_at is required")
	}
	if e.SlotsTotal < 0 {
		return fmt.Errorf("slots_total must not be negative")
	}
	e.SlotsFilled = 0
	return s.events.Create(ctx, e)
}

func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.events.GetByID(ctx, id)
}

func (s *Service) UpdateEvent(ctx context.Context, e *Event) error {
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	return s.events.Update(ctx, e)
}

func (s *Service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return s.events.Delete(ctx, id)
}

func (s *Service) ListEvents(ctx context.Context, params map[string]string, limit, offset int) ([]*Event, int, error) {
	return s.events.List(ctx, params, limit, offset)
}

// -- Coordinator operations --

// Register books a slot for the patient, or joins the waitlist when the event
// is full. Never fails on a full event. A duplicate attempt returns the
// patient's existing registration alongside ErrDuplicateRegistration.
func (s *Service) Register(ctx context.Context, eventID, patientID uuid.UUID, details RegistrationDetails) (*Registration, error) {
	if details.PatientName == "" {
		return nil, fmt.Errorf("patient_name is required")
	}

	var reg *Registration
	err := s.runTx(ctx, func(ctx context.Context) error {
		ev, err := s.events.LockForUpdate(ctx, eventID)
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidReference
		}
		if err != nil {
			return err
		}

		status := StatusWaitlist
		if ev.SlotsRemaining() > 0 {
			if _, err := s.events.Adjust(ctx, eventID, +1); err != nil {
				return err
			}
			status = StatusConfirmed
		}

		r := &Registration{
			EventID:        eventID,
			PatientID:      patientID,
			Status:         status,
			PatientName:    details.PatientName,
			PatientContact: details.PatientContact,
			Note:           details.Note,
		}
		if err := s.regs.Create(ctx, r); err != nil {
			return err
		}
		reg = r
		return nil
	})
	if errors.Is(err, ErrDuplicateRegistration) {
		existing, gerr := s.regs.GetByEventAndPatient(ctx, eventID, patientID)
		if gerr != nil {
			return nil, err
		}
		s.attachPosition(ctx, existing)
		return existing, err
	}
	if err != nil {
		return nil, err
	}

	s.attachPosition(ctx, reg)
	s.log.Info().
		Str("event_id", eventID.String()).
		Str("patient_id", patientID.String()).
		Str("status", reg.Status).
		Msg("patient registered")
	return reg, nil
}

// ChangeStatus moves a registration through the state machine. Changing to the
// current status is a no-op. A move into confirmed consumes a slot (failing
// with ErrCapacityFull when none remain); a move out of confirmed frees one
// and promotes the oldest waitlisted registration in the same unit of work.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, newStatus string) (*Registration, error) {
	if !ValidStatus(newStatus) {
		return nil, ErrInvalidTransition
	}

	var out *Registration
	err := s.runTx(ctx, func(ctx context.Context) error {
		r, err := s.regs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.events.LockForUpdate(ctx, r.EventID); err != nil {
			return err
		}
		// A concurrent unit of work may have moved this registration (a
		// promotion, say) while we waited on the event lock. Only the
		// status read under the lock is trustworthy.
		r, err = s.regs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Status == newStatus {
			out = r
			return nil
		}
		if !CanTransition(r.Status, newStatus) {
			return ErrInvalidTransition
		}

		wasConfirmed := r.Status == StatusConfirmed
		if newStatus == StatusConfirmed {
			if _, err := s.events.Adjust(ctx, r.EventID, +1); err != nil {
				if errors.Is(err, ErrCapacityViolation) {
					return ErrCapacityFull
				}
				return err
			}
		}
		if wasConfirmed {
			if _, err := s.events.Adjust(ctx, r.EventID, -1); err != nil {
				return err
			}
		}

		if err := s.regs.SetStatus(ctx, id, newStatus); err != nil {
			return err
		}
		r.Status = newStatus

		if wasConfirmed {
			if _, err := s.promoter.Promote(ctx, r.EventID); err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.attachPosition(ctx, out)
	return out, nil
}

// Delete removes a registration. Deleting a confirmed one frees its slot and
// promotes from the waitlist before the row goes away; deleting any other
// status touches no counters.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.runTx(ctx, func(ctx context.Context) error {
		r, err := s.regs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		// Lock the event before branching on status: the registration may
		// be promoted to confirmed while we wait for the lock.
		if _, err := s.events.LockForUpdate(ctx, r.EventID); err != nil {
			return err
		}
		r, err = s.regs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Status == StatusConfirmed {
			if _, err := s.events.Adjust(ctx, r.EventID, -1); err != nil {
				return err
			}
			if _, err := s.promoter.Promote(ctx, r.EventID); err != nil {
				return err
			}
		}
		return s.regs.Delete(ctx, id)
	})
}

func (s *Service) GetRegistration(ctx context.Context, id uuid.UUID) (*Registration, error) {
	r, err := s.regs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.attachPosition(ctx, r)
	return r, nil
}

func (s *Service) ListByEvent(ctx context.Context, eventID uuid.UUID, status string, limit, offset int) ([]*Registration, int, error) {
	if status != "" && !ValidStatus(status) {
		return nil, 0, fmt.Errorf("%w: status %q", ErrInvalidFilter, status)
	}
	items, total, err := s.regs.ListByEvent(ctx, eventID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, r := range items {
		s.attachPosition(ctx, r)
	}
	return items, total, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Registration, int, error) {
	items, total, err := s.regs.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, r := range items {
		s.attachPosition(ctx, r)
	}
	return items, total, nil
}

// attachPosition annotates a waitlisted registration with its 1-based queue
// rank. Position is presentation data, so a lookup failure only logs.
func (s *Service) attachPosition(ctx context.Context, r *Registration) {
	if r == nil || r.Status != StatusWaitlist {
		return
	}
	pos, err := s.regs.WaitlistPosition(ctx, r.EventID, r.RegisteredAt, r.ID)
	if err != nil {
		s.log.Warn().Err(err).
			Str("registration_id", r.ID.String()).
			Msg("waitlist position lookup failed")
		return
	}
	r.WaitlistPosition = pos
}
