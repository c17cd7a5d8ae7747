package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const maxBodyBytes = 1 << 16

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	AccessToken           string    `json:"accessToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

type identityResponse struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if !decode(w, r, &in) {
		return
	}
	session, err := s.users.Register(r.Context(), in.Email, in.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if !decode(w, r, &in) {
		return
	}
	session, err := s.users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if !decode(w, r, &in) {
		return
	}
	session, err := s.users.RefreshToken(r.Context(), in.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if !decode(w, r, &in) {
		return
	}
	if err := s.users.Logout(r.Context(), in.RefreshToken); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "missing token")
		return
	}
	out := identityResponse{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "store not ready", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	return true
}

func toSessionResponse(s *models.Session) sessionResponse {
	return sessionResponse{
		AccessToken:           s.AccessToken,
		AccessTokenExpiresAt:  s.AccessTokenExpiresAt,
		RefreshToken:          s.RefreshToken,
		RefreshTokenExpiresAt: s.RefreshTokenExpiresAt,
	}
}

// writeServiceError maps service errors to statuses. Messages are the
// sentinel texts only.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", common.ErrEmailTaken.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", common.ErrInvalidCredentials.Error())
	case errors.Is(err, common.ErrInvalidOrExpiredRefreshToken):
		writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", common.ErrInvalidOrExpiredRefreshToken.Error())
	case errors.Is(err, common.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", common.ErrInvalidInput.Error())
	case errors.Is(err, common.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", common.ErrUnavailable.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", common.ErrorInternal.Error())
	}
}
