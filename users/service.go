package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

// CreateUserRequest is an admin request to add a user to a tenant.
type CreateUserRequest struct {
	TenantID  string
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

// Service manages users on behalf of tenant administrators.
type Service struct {
	users   UserRepo
	roles   RoleRepo
	hasher  *PasswordHasher
	nowFunc func() time.Time
}

func NewService(userRepo UserRepo, roleRepo RoleRepo, hasher *PasswordHasher) (*Service, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("[users.NewService] user repo is required")
	}
	if roleRepo == nil {
		return nil, fmt.Errorf("[users.NewService] role repo is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("[users.NewService] password hasher is required")
	}
	return &Service{users: userRepo, roles: roleRepo, hasher: hasher, nowFunc: time.Now}, nil
}

// CreateUser validates the request against the tenant's roles and existing
// usernames, then stores the user with a hashed password.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	username := NormalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", autherrors.ErrValidation)
	}

	roles, err := s.resolveRoles(ctx, req.TenantID, req.Roles)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.UsernameExists(ctx, req.TenantID, username)
	if err != nil {
		return nil, fmt.Errorf("users.CreateUser: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("username %q is already taken: %w", username, autherrors.ErrConflict)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("users.CreateUser hash: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		TenantID:     req.TenantID,
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Active:       true,
		Roles:        roles,
		DateJoined:   s.nowFunc().UTC(),
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("users.CreateUser upsert: %w", err)
	}

	log.Info().Str("tenant_id", user.TenantID).Str("user_id", user.ID).Strs("roles", roles).Msg("user created")
	return user, nil
}

// resolveRoles maps requested names onto the tenant's canonical role names.
// Unknown names are reported together.
func (s *Service) resolveRoles(ctx context.Context, tenantID string, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, fmt.Errorf("at least one role is required: %w", autherrors.ErrValidation)
	}
	defined, err := s.roles.ListRoles(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("users.CreateUser roles: %w", err)
	}
	byName := make(map[string]string, len(defined))
	for _, r := range defined {
		byName[strings.ToLower(r.Name)] = r.Name
	}

	var resolved, unknown []string
	seen := make(map[string]bool)
	for _, name := range requested {
		canonical, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if !seen[canonical] {
			seen[canonical] = true
			resolved = append(resolved, canonical)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown roles %s: %w", strings.Join(unknown, ", "), autherrors.ErrValidation)
	}
	return resolved, nil
}

// ListUsers pages through a tenant's users ordered by username.
func (s *Service) ListUsers(ctx context.Context, tenantID string, offset, limit int) ([]*User, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant is required: %w", autherrors.ErrValidation)
	}
	list, err := s.users.List(ctx, tenantID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("users.ListUsers: %w", err)
	}
	return list, nil
}

// owned loads a user and hides users of other tenants behind ErrNotFound.
func (s *Service) owned(ctx context.Context, tenantID, userID string) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TenantID != tenantID {
		return nil, autherrors.ErrNotFound
	}
	return user, nil
}

// Profile returns the user together with their profile.
func (s *Service) Profile(ctx context.Context, tenantID, userID string) (*User, *Profile, error) {
	user, err := s.owned(ctx, tenantID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("users.Profile: %w", err)
	}
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("users.Profile: %w", err)
	}
	return user, profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, tenantID, userID string, update ProfileUpdate) error {
	if _, err := s.owned(ctx, tenantID, userID); err != nil {
		return fmt.Errorf("users.UpdateProfile: %w", err)
	}
	err := s.users.UpdateProfile(ctx, &Profile{
		UserID:     userID,
		FirstName:  strings.TrimSpace(update.FirstName),
		LastName:   strings.TrimSpace(update.LastName),
		Phone:      strings.TrimSpace(update.Phone),
		Department: strings.TrimSpace(update.Department),
		JobTitle:   strings.TrimSpace(update.JobTitle),
		UpdatedAt:  s.nowFunc().UTC(),
	})
	if err != nil {
		return fmt.Errorf("users.UpdateProfile: %w", err)
	}
	return nil
}

func (s *Service) UpdatePhoto(ctx context.Context, tenantID, userID, photoURL string) error {
	photoURL = strings.TrimSpace(photoURL)
	if photoURL == "" {
		return fmt.Errorf("photo url is required: %w", autherrors.ErrValidation)
	}
	if _, err := s.owned(ctx, tenantID, userID); err != nil {
		return fmt.Errorf("users.UpdatePhoto: %w", err)
	}
	if err := s.users.SetPhotoURL(ctx, userID, photoURL, s.nowFunc().UTC()); err != nil {
		return fmt.Errorf("users.UpdatePhoto: %w", err)
	}
	return nil
}

// Preferences returns the stored preferences document, DefaultPreferences
// when there is none.
func (s *Service) Preferences(ctx context.Context, tenantID, userID string) (string, error) {
	if _, err := s.owned(ctx, tenantID, userID); err != nil {
		return "", fmt.Errorf("users.Preferences: %w", err)
	}
	prefs, err := s.users.GetPreferences(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("users.Preferences: %w", err)
	}
	if prefs == "" {
		return DefaultPreferences, nil
	}
	return prefs, nil
}

// UpdatePreferences stores prefs as given. Blank documents reset to
// DefaultPreferences.
func (s *Service) UpdatePreferences(ctx context.Context, tenantID, userID, prefs string) error {
	if strings.TrimSpace(prefs) == "" {
		prefs = DefaultPreferences
	}
	if _, err := s.owned(ctx, tenantID, userID); err != nil {
		return fmt.Errorf("users.UpdatePreferences: %w", err)
	}
	if err := s.users.SetPreferences(ctx, userID, prefs, s.nowFunc().UTC()); err != nil {
		return fmt.Errorf("users.UpdatePreferences: %w", err)
	}
	return nil
}
