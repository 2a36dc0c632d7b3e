package database

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/users"
)

// userColumns selects a user with its current role names. Queries using it
// alias users as u.
const userColumns = `u.id, u.company_id, u.username, u.email, u.password_hash, u.first_name, u.last_name,
	u.active, u.created_at, u.last_login_at,
	ARRAY(SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = u.id ORDER BY r.name)`

type UserRepo struct {
	db *pgxpool.Pool
}

var (
	_ users.UserRepo = (*UserRepo)(nil)
	_ users.RoleRepo = (*UserRepo)(nil)
)

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: db}
}

// Upsert writes the user and replaces its role assignment in one transaction.
func (r *UserRepo) Upsert(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO users (id, company_id, username, email, password_hash, first_name, last_name, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				username = EXCLUDED.username, email = EXCLUDED.email, password_hash = EXCLUDED.password_hash,
				first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, active = EXCLUDED.active`
		if _, err := tx.Exec(ctx, query, user.ID, user.TenantID, users.NormalizeUsername(user.Username), user.Email,
			user.PasswordHash, user.FirstName, user.LastName, user.Active, user.DateJoined); err != nil {
			return err
		}
		return setRoles(ctx, tx, user.ID, user.Roles)
	})
	return storeErr("users.Upsert", err)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	u, err := scanUser(row)
	return u, storeErr("users.GetByID", err)
}

func (r *UserRepo) GetByUsername(ctx context.Context, tenantID, username string) (*users.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.company_id = $1 AND lower(u.username) = $2`,
		tenantID, users.NormalizeUsername(username))
	u, err := scanUser(row)
	return u, storeErr("users.GetByUsername", err)
}

func (r *UserRepo) UsernameExists(ctx context.Context, tenantID, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE company_id = $1 AND lower(username) = $2)`,
		tenantID, users.NormalizeUsername(username)).Scan(&exists)
	return exists, storeErr("users.UsernameExists", err)
}

func (r *UserRepo) List(ctx context.Context, tenantID string, offset, limit int) ([]*users.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users u
		WHERE ($1::text = '' OR u.company_id = $1) ORDER BY u.username OFFSET $2 LIMIT $3`, tenantID, offset, limit)
	if err != nil {
		return nil, storeErr("users.List", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*users.User, error) {
		return scanUser(row)
	})
	return list, storeErr("users.List", err)
}

func (r *UserRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, "users.SetLastLogin", `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
}

func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateOne(ctx, "users.SetActive", `UPDATE users SET active = $2 WHERE id = $1`, id, active)
}

func (r *UserRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.updateOne(ctx, "users.SetPasswordHash", `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (r *UserRepo) SetRoles(ctx context.Context, id string, roles []string) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return setRoles(ctx, tx, id, roles)
	})
	return storeErr("users.SetRoles", err)
}

func (r *UserRepo) GetProfile(ctx context.Context, id string) (*users.Profile, error) {
	p := &users.Profile{}
	var updatedAt *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT u.id, u.first_name, u.last_name, COALESCE(p.phone, ''), COALESCE(p.department, ''),
			COALESCE(p.job_title, ''), COALESCE(ph.photo_url, ''), p.updated_at
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		LEFT JOIN user_profile_photos ph ON ph.user_id = u.id
		WHERE u.id = $1`, id).Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.Department, &p.JobTitle,
		&p.PhotoURL, &updatedAt)
	if err != nil {
		return nil, storeErr("users.GetProfile", err)
	}
	if updatedAt != nil {
		p.UpdatedAt = *updatedAt
	}
	return p, nil
}

// UpdateProfile writes the name columns on users and the remaining fields to
// user_profiles in one transaction.
func (r *UserRepo) UpdateProfile(ctx context.Context, profile *users.Profile) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET first_name = $2, last_name = $3 WHERE id = $1`,
			profile.UserID, profile.FirstName, profile.LastName)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO user_profiles (user_id, phone, department, job_title, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				phone = EXCLUDED.phone, department = EXCLUDED.department,
				job_title = EXCLUDED.job_title, updated_at = EXCLUDED.updated_at`,
			profile.UserID, profile.Phone, profile.Department, profile.JobTitle, profile.UpdatedAt)
		return err
	})
	return storeErr("users.UpdateProfile", err)
}

func (r *UserRepo) SetPhotoURL(ctx context.Context, id, url string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_profile_photos (user_id, photo_url, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET photo_url = EXCLUDED.photo_url, updated_at = EXCLUDED.updated_at`,
		id, url, at)
	return storeErr("users.SetPhotoURL", err)
}

func (r *UserRepo) GetPreferences(ctx context.Context, id string) (string, error) {
	var prefs *string
	err := r.db.QueryRow(ctx, `
		SELECT p.prefs_json FROM users u LEFT JOIN user_preferences p ON p.user_id = u.id
		WHERE u.id = $1`, id).Scan(&prefs)
	if err != nil {
		return "", storeErr("users.GetPreferences", err)
	}
	if prefs == nil {
		return "", nil
	}
	return *prefs, nil
}

func (r *UserRepo) SetPreferences(ctx context.Context, id, prefs string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_preferences (user_id, prefs_json, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET prefs_json = EXCLUDED.prefs_json, updated_at = EXCLUDED.updated_at`,
		id, prefs, at)
	return storeErr("users.SetPreferences", err)
}

func (r *UserRepo) updateOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return storeErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return autherrors.Wrapf(autherrors.ErrNotFound, "%s", op)
	}
	return nil
}

// setRoles replaces the assignment with the named roles of the user's company.
// Names without a matching role are ignored.
func setRoles(ctx context.Context, q querier, userID string, roles []string) error {
	if _, err := q.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(roles) == 0 {
		return nil
	}
	lowered := make([]string, len(roles))
	for i, r := range roles {
		lowered[i] = strings.ToLower(r)
	}
	_, err := q.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT u.id, r.id FROM users u JOIN roles r ON r.company_id = u.company_id
		WHERE u.id = $1 AND lower(r.name) = ANY($2)
		ON CONFLICT DO NOTHING`, userID, lowered)
	return err
}

func (r *UserRepo) UpsertRole(ctx context.Context, role *users.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO roles (id, company_id, name) VALUES ($1, $2, $3)
		ON CONFLICT (company_id, lower(name)) DO UPDATE SET name = roles.name
		RETURNING id`, role.ID, role.TenantID, role.Name).Scan(&role.ID)
	return storeErr("roles.Upsert", err)
}

func (r *UserRepo) ListRoles(ctx context.Context, tenantID string) ([]*users.Role, error) {
	rows, err := r.db.Query(ctx, `SELECT id, company_id, name FROM roles WHERE company_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, storeErr("roles.List", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*users.Role, error) {
		role := &users.Role{}
		return role, row.Scan(&role.ID, &role.TenantID, &role.Name)
	})
	return list, storeErr("roles.List", err)
}

func scanUser(row pgx.Row) (*users.User, error) {
	return scanUserWith(row)
}

// scanUserWith scans userColumns after any leading destinations the caller
// selected in front of them.
func scanUserWith(row pgx.Row, leading ...any) (*users.User, error) {
	u := &users.User{}
	var lastLogin *time.Time
	dest := append(leading, &u.ID, &u.TenantID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Active, &u.DateJoined, &lastLogin, &u.Roles)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if lastLogin != nil {
		u.LastLogin = *lastLogin
	}
	return u, nil
}
