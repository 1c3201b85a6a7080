package catalog

import (
	"time"

	"github.com/google/uuid"
)

// HealthCenter maps to the health_centers table. OpensAt/ClosesAt are local
// times of day in "HH:MM" form.
type HealthCenter struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	Email       *string   `db:"email" json:"email,omitempty"`
	AddressLine *string   `db:"address_line" json:"address_line,omitempty"`
	District    *string   `db:"district" json:"district,omitempty"`
	Province    *string   `db:"province" json:"province,omitempty"`
	OpensAt     *string   `db:"opens_at" json:"opens_at,omitempty"`
	ClosesAt    *string   `db:"closes_at" json:"closes_at,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DiagnosticTest maps to the diagnostic_tests table. BasePrice is the default
// price; centers may override it per offering.
type DiagnosticTest struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        *string   `db:"code" json:"code,omitempty"`
	Category    *string   `db:"category" json:"category,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	BasePrice   float64   `db:"base_price" json:"base_price"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Offering maps to the center_services table: a diagnostic test a center
// performs, optionally at its own price.
type Offering struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CenterID  uuid.UUID `db:"center_id" json:"center_id"`
	TestID    uuid.UUID `db:"test_id" json:"test_id"`
	Price     *float64  `db:"price" json:"price,omitempty"`
	Available bool      `db:"available" json:"available"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// TestName is joined in on read paths.
	TestName string `db:"-" json:"test_name,omitempty"`
}

// EffectivePrice is the offering's own price when set, else the test's base price.
func (o *Offering) EffectivePrice(test *DiagnosticTest) float64 {
	if o.Price != nil {
		return *o.Price
	}
	return test.BasePrice
}
