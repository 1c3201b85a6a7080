package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PromotionEngine moves the oldest waitlisted registration of an event into a
// freed slot. It must run inside the unit of work that freed the slot, with
// the event row already locked.
type PromotionEngine struct {
	events EventRepository
	regs   RegistrationRepository
	log    zerolog.Logger
}

func NewPromotionEngine(events EventRepository, regs RegistrationRepository, log zerolog.Logger) *PromotionEngine {
	return &PromotionEngine{events: events, regs: regs, log: log}
}

// Promote confirms the event's earliest waitlisted registration if a slot is
// free. Returns (nil, nil) when there is nothing to promote: no free slot, an
// empty waitlist, or a concurrent claimant consumed the capacity first. In
// that last case the claimed registration is put back on the waitlist, so the
// outcome is all-or-nothing either way.
func (p *PromotionEngine) Promote(ctx context.Context, eventID uuid.UUID) (*Registration, error) {
	ev, err := p.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.SlotsRemaining() <= 0 {
		return nil, nil
	}

	claimed, err := p.regs.ClaimOldestWaitlisted(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := p.events.Adjust(ctx, eventID, +1); err != nil {
		if errors.Is(err, ErrCapacityViolation) {
			if rerr := p.regs.SetStatus(ctx, claimed.ID, StatusWaitlist); rerr != nil {
				return nil, rerr
			}
			p.log.Debug().
				Str("event_id", eventID.String()).
				Str("registration_id", claimed.ID.String()).
				Msg("promotion lost capacity race, claim reverted")
			return nil, nil
		}
		return nil, err
	}

	claimed.Status = StatusConfirmed
	p.log.Info().
		Str("event_id", eventID.String()).
		Str("registration_id", claimed.ID.String()).
		Msg("waitlisted registration promoted")
	return claimed, nil
}
