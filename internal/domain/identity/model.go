package identity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RolePatient     = "patient"
	RoleCenterAdmin = "center_admin"
	RoleAdmin       = "admin"
)

var validRoles = map[string]bool{
	RolePatient: true, RoleCenterAdmin: true, RoleAdmin: true,
}

// ValidRole reports whether r names a known account role.
func ValidRole(r string) bool { return validRoles[r] }

// User maps to the users table.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Gender       *string    `db:"gender" json:"gender,omitempty"`
	BirthDate    *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	AddressLine  *string    `db:"address_line" json:"address_line,omitempty"`
	District     *string    `db:"district" json:"district,omitempty"`
	Province     *string    `db:"province" json:"province,omitempty"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

type SignupRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
