package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) GetUserByLogin(ctx context.Context, login string) (*User, error) {
	var u User
	var otpVerified *string

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, login, password_hash, otp_verified
		FROM res_user
		WHERE login = $1
	`, login).Scan(&u.ID, &u.Name, &u.Login, &u.PasswordHash, &otpVerified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if otpVerified != nil {
		u.OTPVerified = *otpVerified
	}
	return &u, nil
}

func (r *PgRepository) GetPartyFlags(ctx context.Context, userID int64) (*PartyFlags, error) {
	var f PartyFlags

	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(is_healthprof, false), COALESCE(is_patient, false)
		FROM party_party
		WHERE internal_user = $1
	`, userID).Scan(&f.IsHealthProf, &f.IsPatient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPartyNotFound
		}
		return nil, err
	}

	return &f, nil
}
