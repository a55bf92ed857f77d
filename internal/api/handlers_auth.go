package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medbridge/hospital-api/internal/auth"
)

func loginHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Login == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_credentials", "login and password are required")
			return
		}

		session, err := svc.Login(r.Context(), req.Login, req.Password)
		if err != nil {
			handleAuthError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{
			AccessToken: session.Token,
			TokenType:   "Bearer",
			User: UserInfo{
				ID:    session.UserID,
				Name:  session.Name,
				Login: session.Login,
				Role:  session.Role,
			},
		})
	}
}

func logoutHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}
		raw, ok := auth.RawTokenFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "no bearer token on request")
			return
		}

		if err := svc.Logout(r.Context(), raw, claims); err != nil {
			writeInternalError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}
}

func meHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, UserInfo{
			ID:    claims.UserID,
			Name:  claims.Name,
			Login: claims.Login,
			Role:  claims.Role,
		})
	}
}

func handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "login or password is incorrect")
	case errors.Is(err, auth.ErrRegistrationIncomplete):
		writeError(w, http.StatusForbidden, "registration_incomplete", "account registration has not been completed")
	case errors.Is(err, auth.ErrPartyNotFound):
		writeError(w, http.StatusForbidden, "party_not_found", "no party record is linked to this account")
	default:
		writeInternalError(w, err)
	}
}
