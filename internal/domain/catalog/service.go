package catalog

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

type Service struct {
	centers   CenterRepository
	tests     TestRepository
	offerings OfferingRepository
}

func NewService(centers CenterRepository, tests TestRepository, offerings OfferingRepository) *Service {
	return &Service{centers: centers, tests: tests, offerings: offerings}
}

var hoursRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func validHours(s *string) bool {
	return s == nil || hoursRe.MatchString(*s)
}

// -- Health centers --

func (s *Service) CreateCenter(ctx context.Context, hc *HealthCenter) error {
	if hc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validHours(hc.OpensAt) || !validHours(hc.ClosesAt) {
		return fmt.Errorf("opening hours must be HH:MM")
	}
	hc.Active = true
	return s.centers.Create(ctx, hc)
}

func (s *Service) GetCenter(ctx context.Context, id uuid.UUID) (*HealthCenter, error) {
	return s.centers.GetByID(ctx, id)
}

func (s *Service) UpdateCenter(ctx context.Context, hc *HealthCenter) error {
	if hc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validHours(hc.OpensAt) || !validHours(hc.ClosesAt) {
		return fmt.Errorf("opening hours must be HH:MM")
	}
	return s.centers.Update(ctx, hc)
}

func (s *Service) DeleteCenter(ctx context.Context, id uuid.UUID) error {
	return s.centers.Delete(ctx, id)
}

func (s *Service) ListCenters(ctx context.Context, params map[string]string, limit, offset int) ([]*HealthCenter, int, error) {
	if p, ok := params["open_at"]; ok && !hoursRe.MatchString(p) {
		return nil, 0, fmt.Errorf("open_at must be HH:MM")
	}
	return s.centers.List(ctx, params, limit, offset)
}

// -- Diagnostic tests --

func (s *Service) CreateTest(ctx context.Context, t *DiagnosticTest) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.BasePrice < 0 {
		return fmt.Errorf("base_price must not be negative")
	}
	return s.tests.Create(ctx, t)
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error) {
	return s.tests.GetByID(ctx, id)
}

func (s *Service) UpdateTest(ctx context.Context, t *DiagnosticTest) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.BasePrice < 0 {
		return fmt.Errorf("base_price must not be negative")
	}
	return s.tests.Update(ctx, t)
}

func (s *Service) DeleteTest(ctx context.Context, id uuid.UUID) error {
	return s.tests.Delete(ctx, id)
}

func (s *Service) ListTests(ctx context.Context, params map[string]string, limit, offset int) ([]*DiagnosticTest, int, error) {
	return s.tests.List(ctx, params, limit, offset)
}

// -- Offerings --

func (s *Service) AddOffering(ctx context.Context, o *Offering) error {
	if o.CenterID == uuid.Nil || o.TestID == uuid.Nil {
		return fmt.Errorf("center_id and test_id are required")
	}
	if o.Price != nil && *o.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	o.Available = true
	return s.offerings.Create(ctx, o)
}

func (s *Service) UpdateOffering(ctx context.Context, o *Offering) error {
	if o.Price != nil && *o.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	return s.offerings.Update(ctx, o)
}

func (s *Service) RemoveOffering(ctx context.Context, id uuid.UUID) error {
	return s.offerings.Delete(ctx, id)
}

func (s *Service) ListOfferings(ctx context.Context, centerID uuid.UUID, limit, offset int) ([]*Offering, int, error) {
	return s.offerings.ListByCenter(ctx, centerID, limit, offset)
}
