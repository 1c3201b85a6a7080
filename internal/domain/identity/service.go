package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medislot/medislot/internal/platform/auth"
)

type Service struct {
	users     UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewService(users UserRepository, jwtSecret []byte, tokenTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: log}
}

// Signup creates a patient account and signs it in. Staff roles are assigned
// by an admin afterwards, never self-selected at signup.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if req.Name == "" || req.Email == "" {
		return nil, fmt.Errorf("name and email are required")
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Name:         req.Name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         RolePatient,
		Phone:        req.Phone,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	token, err := auth.SignToken(s.jwtSecret, u.ID, u.Role, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID.String()).Msg("user signed up")
	return &AuthResponse{Token: token, User: u}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		// Same failure for unknown email and wrong password.
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, ErrInvalidCredentials
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := auth.SignToken(s.jwtSecret, u.ID, u.Role, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: u}, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile writes the fields a user may change about themselves. Role and
// active flag are preserved from the stored record.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, updated *User) (*User, error) {
	cur, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated.Name != "" {
		cur.Name = updated.Name
	}
	cur.Phone = updated.Phone
	cur.Gender = updated.Gender
	cur.BirthDate = updated.BirthDate
	cur.AddressLine = updated.AddressLine
	cur.District = updated.District
	cur.Province = updated.Province
	if err := s.users.Update(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, req ChangePasswordRequest) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		return ErrInvalidCredentials
	}
	if len(req.NewPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.users.SetPasswordHash(ctx, id, hash)
}

// -- Admin operations --

func (s *Service) ListUsers(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, params, limit, offset)
}

func (s *Service) UpdateUser(ctx context.Context, u *User) (*User, error) {
	if u.Role != "" && !ValidRole(u.Role) {
		return nil, fmt.Errorf("invalid role: %s", u.Role)
	}
	cur, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if u.Name != "" {
		cur.Name = u.Name
	}
	if u.Role != "" {
		cur.Role = u.Role
	}
	cur.Active = u.Active
	if err := s.users.Update(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}
