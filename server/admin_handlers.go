package server

import (
	"net/http"
	"time"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/tenants"
	"github.com/jrsteele09/go-hris-auth/users"
	"github.com/rs/zerolog/log"
)

type lockStatusResponse struct {
	CompanyCode       string     `json:"companyCode"`
	Username          string     `json:"username"`
	Locked            bool       `json:"locked"`
	MaxAttempts       int        `json:"maxAttempts"`
	RetryAfterSeconds int64      `json:"retryAfterSeconds"`
	LockUntilUTC      *time.Time `json:"lockUntilUtc,omitempty"`
}

// LockStatusHandler reports the throttle state of a user in the caller's company.
func (s *Server) LockStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := lockStatusQuery{
			CompanyCode: r.URL.Query().Get("companyCode"),
			Username:    r.URL.Query().Get("username"),
		}
		if !s.validateOrReject(w, r, &query) {
			return
		}
		if _, ok := s.callerTenant(w, r, query.CompanyCode); !ok {
			return
		}

		locked, retryAfter, err := s.deps.Throttle.IsLocked(r.Context(), query.CompanyCode, query.Username)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp := lockStatusResponse{
			CompanyCode: query.CompanyCode,
			Username:    query.Username,
			Locked:      locked,
			MaxAttempts: s.deps.Throttle.MaxAttempts(),
		}
		if locked {
			until := time.Now().UTC().Add(retryAfter).Truncate(time.Second)
			resp.RetryAfterSeconds = int64(retryAfter / time.Second)
			resp.LockUntilUTC = &until
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// UnlockHandler clears all throttle state for a user in the caller's company.
func (s *Server) UnlockHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req unlockRequest
		if !s.decode(w, r, &req) {
			return
		}
		if _, ok := s.callerTenant(w, r, req.CompanyCode); !ok {
			return
		}
		if err := s.deps.Throttle.Clear(r.Context(), req.CompanyCode, req.Username); err != nil {
			writeError(w, r, err)
			return
		}
		claims, _ := claimsFromContext(r.Context())
		log.Info().Str("tenant", req.CompanyCode).Str("username", req.Username).
			Str("by", claims.Subject).Msg("login unlocked by admin")
		w.WriteHeader(http.StatusNoContent)
	}
}

type userResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Active    bool      `json:"active"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateUserHandler adds a user to the caller's company.
func (s *Server) CreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if !s.decode(w, r, &req) {
			return
		}
		claims, _ := claimsFromContext(r.Context())

		user, err := s.deps.Users.CreateUser(r.Context(), users.CreateUserRequest{
			TenantID:  claims.TenantID,
			Username:  req.Username,
			Password:  req.Password,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Roles:     req.Roles,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newUserResponse(user))
	}
}

type userListResponse struct {
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
	Users  []userResponse `json:"users"`
}

// ListUsersHandler pages through the users of the caller's company.
func (s *Server) ListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := parseListUsersQuery(r)
		if !accept(w, r, err) || !s.validateOrReject(w, r, &query) {
			return
		}
		claims, _ := claimsFromContext(r.Context())

		list, err := s.deps.Users.ListUsers(r.Context(), claims.TenantID, query.Offset, query.Limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp := userListResponse{Offset: query.Offset, Limit: query.Limit, Users: make([]userResponse, 0, len(list))}
		for _, u := range list {
			resp.Users = append(resp.Users, newUserResponse(u))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func newUserResponse(user *users.User) userResponse {
	return userResponse{
		ID:        user.ID,
		CompanyID: user.TenantID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Active:    user.Active,
		Roles:     user.Roles,
		CreatedAt: user.DateJoined,
	}
}

// callerTenant resolves code and rejects it unless it is the caller's own company.
func (s *Server) callerTenant(w http.ResponseWriter, r *http.Request, code string) (*tenants.Tenant, bool) {
	claims, _ := claimsFromContext(r.Context())
	tenant, err := s.deps.Tenants.GetByCode(r.Context(), code)
	if autherrors.Is(err, autherrors.ErrNotFound) || (err == nil && tenant.ID != claims.TenantID) {
		writeProblem(w, http.StatusForbidden, "Forbidden", "Company is outside the caller's scope.")
		return nil, false
	}
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return tenant, true
}

func (s *Server) validateOrReject(w http.ResponseWriter, r *http.Request, v any) bool {
	return accept(w, r, s.validateStruct(v))
}
