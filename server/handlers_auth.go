package server

import (
	"net/http"

	"github.com/jrsteele09/go-hris-auth/auth"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/internal/metrics"
	"github.com/jrsteele09/go-hris-auth/token/refresh"
	"github.com/rs/zerolog/log"
)

// LoginHandler checks the throttle before verifying credentials and records
// the outcome after. Only a rejected credential counts as a failure.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !s.decode(w, r, &req) {
			return
		}
		ctx := r.Context()
		ip := clientIP(r)

		locked, retryAfter, err := s.deps.Throttle.IsLocked(ctx, req.CompanyCode, req.Username)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if locked {
			metrics.LoginAttemptsTotal.WithLabelValues("locked").Inc()
			log.Info().Str("tenant", req.CompanyCode).Str("username", req.Username).Str("ip", ip).Msg("login attempt while locked")
			writeLocked(w, retryAfter)
			return
		}

		pair, err := s.deps.Auth.Login(ctx, auth.LoginRequest{
			CompanyCode: req.CompanyCode,
			Username:    req.Username,
			Password:    req.Password,
			Meta:        requestMeta(r),
		})
		if autherrors.Is(err, autherrors.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
			result, ferr := s.deps.Throttle.RegisterFailure(ctx, req.CompanyCode, req.Username, ip)
			if ferr != nil {
				writeError(w, r, ferr)
				return
			}
			if result.LockedNow {
				writeLocked(w, result.RetryAfter)
				return
			}
			writeError(w, r, err)
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}

		if err := s.deps.Throttle.Clear(ctx, req.CompanyCode, req.Username); err != nil {
			// Tokens are already issued at this point.
			log.Err(err).Str("tenant", req.CompanyCode).Str("username", req.Username).Msg("failed to clear login throttle")
		}
		metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
		writeJSON(w, http.StatusOK, pair)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !s.decode(w, r, &req) {
			return
		}
		pair, err := s.deps.Auth.Refresh(r.Context(), req.RefreshToken, requestMeta(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// LogoutHandler revokes the refresh chain and denylists the bearer token
// that authenticated the request.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logoutRequest
		if !s.decode(w, r, &req) {
			return
		}
		claims, _ := claimsFromContext(r.Context())

		logout := auth.LogoutRequest{
			RefreshToken: req.RefreshToken,
			Meta:         requestMeta(r),
		}
		if claims != nil {
			logout.AccessTokenID = claims.ID
			if claims.ExpiresAt != nil {
				logout.AccessTokenExpiry = claims.ExpiresAt.Time
			}
		}
		if err := s.deps.Auth.Logout(r.Context(), logout); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

type meResponse struct {
	UserID    string   `json:"userId"`
	CompanyID string   `json:"companyId"`
	Username  string   `json:"username"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles"`
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, r, autherrors.ErrInvalidToken)
			return
		}
		writeJSON(w, http.StatusOK, meResponse{
			UserID:    claims.Subject,
			CompanyID: claims.TenantID,
			Username:  claims.Username,
			Email:     claims.Email,
			Roles:     claims.Roles,
		})
	}
}

// decode writes the 400 itself and reports whether the handler should go on.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return accept(w, r, s.decodeJSON(w, r, dst))
}

func accept(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return true
	}
	var verr *validationError
	if autherrors.As(err, &verr) {
		writeValidation(w, verr)
	} else {
		writeError(w, r, err)
	}
	return false
}

func requestMeta(r *http.Request) refresh.Metadata {
	return refresh.Metadata{IP: clientIP(r), UserAgent: r.UserAgent()}
}
