package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Revoker is the write side of the token blacklist.
type Revoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

type Service struct {
	repo    Repository
	revoker Revoker
	secret  []byte
	expiry  time.Duration
	log     zerolog.Logger
}

func NewService(repo Repository, revoker Revoker, secret []byte, expiry time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		revoker: revoker,
		secret:  secret,
		expiry:  expiry,
		log:     log,
	}
}

type Session struct {
	Token  string
	UserID int64
	Name   string
	Login  string
	Role   string
}

// Login verifies credentials and issues a bearer token. The role is derived
// from the party row: health professionals log in as doctors, patients as
// patients.
func (s *Service) Login(ctx context.Context, login, password string) (*Session, error) {
	user, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if user.OTPVerified != "true" {
		return nil, ErrRegistrationIncomplete
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	flags, err := s.repo.GetPartyFlags(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrPartyNotFound) {
			return nil, ErrPartyNotFound
		}
		return nil, fmt.Errorf("load party flags: %w", err)
	}

	role := RoleUnknown
	switch {
	case flags.IsHealthProf:
		role = RoleDoctor
	case flags.IsPatient:
		role = RolePatient
	}

	token, err := IssueToken(s.secret, s.expiry, user.ID, user.Name, user.Login, role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Str("role", role).Msg("user logged in")

	return &Session{
		Token:  token,
		UserID: user.ID,
		Name:   user.Name,
		Login:  user.Login,
		Role:   role,
	}, nil
}

// Logout blacklists the presented token for the remainder of its life.
func (s *Service) Logout(ctx context.Context, rawToken string, claims *Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoker.Revoke(ctx, rawToken, ttl); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	s.log.Info().Int64("user_id", claims.UserID).Msg("user logged out")
	return nil
}
