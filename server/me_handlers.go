package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-hris-auth/users"
)

type profileBody struct {
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Phone      string     `json:"phone"`
	Department string     `json:"department"`
	JobTitle   string     `json:"jobTitle"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

type profileResponse struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Profile  profileBody `json:"profile"`
	PhotoURL *string     `json:"photoUrl"`
}

type preferencesResponse struct {
	Prefs string `json:"prefs"`
}

// GetProfileHandler returns the caller's own profile.
func (s *Server) GetProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		user, profile, err := s.deps.Users.Profile(r.Context(), claims.TenantID, claims.Subject)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp := profileResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Profile: profileBody{
				FirstName:  profile.FirstName,
				LastName:   profile.LastName,
				Phone:      profile.Phone,
				Department: profile.Department,
				JobTitle:   profile.JobTitle,
			},
		}
		if !profile.UpdatedAt.IsZero() {
			resp.Profile.UpdatedAt = &profile.UpdatedAt
		}
		if profile.PhotoURL != "" {
			resp.PhotoURL = &profile.PhotoURL
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// UpdateProfileHandler replaces every editable profile field of the caller.
func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateProfileRequest
		if !s.decode(w, r, &req) {
			return
		}
		claims, _ := claimsFromContext(r.Context())
		err := s.deps.Users.UpdateProfile(r.Context(), claims.TenantID, claims.Subject, users.ProfileUpdate{
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Phone:      req.Phone,
			Department: req.Department,
			JobTitle:   req.JobTitle,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) GetPreferencesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		prefs, err := s.deps.Users.Preferences(r.Context(), claims.TenantID, claims.Subject)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, preferencesResponse{Prefs: prefs})
	}
}

func (s *Server) UpdatePreferencesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updatePreferencesRequest
		if !s.decode(w, r, &req) {
			return
		}
		claims, _ := claimsFromContext(r.Context())
		if err := s.deps.Users.UpdatePreferences(r.Context(), claims.TenantID, claims.Subject, *req.PrefsJSON); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) UpdatePhotoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updatePhotoRequest
		if !s.decode(w, r, &req) {
			return
		}
		claims, _ := claimsFromContext(r.Context())
		if err := s.deps.Users.UpdatePhoto(r.Context(), claims.TenantID, claims.Subject, req.PhotoURL); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
