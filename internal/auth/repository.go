package auth

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("invalid login or password")
	ErrRegistrationIncomplete = errors.New("registration is not completed")
	ErrPartyNotFound          = errors.New("party information not found")
)

// User mirrors the res_user row this service reads.
type User struct {
	ID           int64
	Name         string
	Login        string
	PasswordHash string
	OTPVerified  string
}

// PartyFlags are the role markers on the party linked to a user.
type PartyFlags struct {
	IsHealthProf bool
	IsPatient    bool
}

type Repository interface {
	GetUserByLogin(ctx context.Context, login string) (*User, error)
	GetPartyFlags(ctx context.Context, userID int64) (*PartyFlags, error)
}
