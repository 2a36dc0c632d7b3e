package fakeuserrepo

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/users"
)

var (
	_ users.UserRepo = (*FakeUserRepo)(nil)
	_ users.RoleRepo = (*FakeUserRepo)(nil)
)

// FakeUserRepo keeps users and roles in memory. Returned users are copies so
// callers can't mutate stored state.
type FakeUserRepo struct {
	users     map[string]*users.User
	usernames map[string]string // tenantID/username to user id
	roles     map[string][]*users.Role
	profiles  map[string]users.Profile // phone, department, job title and photo by user id
	prefs     map[string]string
	lock      sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:     make(map[string]*users.User),
		usernames: make(map[string]string),
		roles:     make(map[string][]*users.Role),
		profiles:  make(map[string]users.Profile),
		prefs:     make(map[string]string),
	}
}

func usernameKey(tenantID, username string) string {
	return tenantID + "/" + users.NormalizeUsername(username)
}

func clone(u *users.User) *users.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if old, ok := ur.users[user.ID]; ok {
		delete(ur.usernames, usernameKey(old.TenantID, old.Username))
	}
	ur.users[user.ID] = clone(user)
	ur.usernames[usernameKey(user.TenantID, user.Username)] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return clone(u), nil
}

func (ur *FakeUserRepo) GetByUsername(_ context.Context, tenantID, username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernames[usernameKey(tenantID, username)]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return clone(ur.users[id]), nil
}

func (ur *FakeUserRepo) UsernameExists(_ context.Context, tenantID, username string) (bool, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	_, ok := ur.usernames[usernameKey(tenantID, username)]
	return ok, nil
}

func (ur *FakeUserRepo) List(_ context.Context, tenantID string, offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0)
	for _, v := range ur.users {
		if tenantID != "" && v.TenantID != tenantID {
			continue
		}
		userList = append(userList, clone(v))
	}

	sort.Slice(userList, func(i, j int) bool {
		return userList[i].Username < userList[j].Username
	})

	if offset >= len(userList) {
		return nil, nil
	}
	end := min(offset+limit, len(userList))
	return userList[offset:end], nil
}

func (ur *FakeUserRepo) update(id string, fn func(u *users.User)) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[id]
	if !ok {
		return autherrors.ErrNotFound
	}
	fn(u)
	return nil
}

func (ur *FakeUserRepo) SetLastLogin(_ context.Context, id string, at time.Time) error {
	return ur.update(id, func(u *users.User) { u.LastLogin = at })
}

func (ur *FakeUserRepo) SetActive(_ context.Context, id string, active bool) error {
	return ur.update(id, func(u *users.User) { u.Active = active })
}

func (ur *FakeUserRepo) SetRoles(_ context.Context, id string, roles []string) error {
	return ur.update(id, func(u *users.User) { u.Roles = slices.Clone(roles) })
}

func (ur *FakeUserRepo) SetPasswordHash(_ context.Context, id, hash string) error {
	return ur.update(id, func(u *users.User) { u.PasswordHash = hash })
}

func (ur *FakeUserRepo) GetProfile(_ context.Context, id string) (*users.Profile, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	p := ur.profiles[id]
	p.UserID = id
	p.FirstName = u.FirstName
	p.LastName = u.LastName
	return &p, nil
}

func (ur *FakeUserRepo) UpdateProfile(_ context.Context, profile *users.Profile) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[profile.UserID]
	if !ok {
		return autherrors.ErrNotFound
	}
	u.FirstName = profile.FirstName
	u.LastName = profile.LastName
	p := ur.profiles[profile.UserID]
	p.Phone = profile.Phone
	p.Department = profile.Department
	p.JobTitle = profile.JobTitle
	p.UpdatedAt = profile.UpdatedAt
	ur.profiles[profile.UserID] = p
	return nil
}

func (ur *FakeUserRepo) SetPhotoURL(_ context.Context, id, url string, _ time.Time) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.users[id]; !ok {
		return autherrors.ErrNotFound
	}
	p := ur.profiles[id]
	p.PhotoURL = url
	ur.profiles[id] = p
	return nil
}

func (ur *FakeUserRepo) GetPreferences(_ context.Context, id string) (string, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if _, ok := ur.users[id]; !ok {
		return "", autherrors.ErrNotFound
	}
	return ur.prefs[id], nil
}

func (ur *FakeUserRepo) SetPreferences(_ context.Context, id, prefs string, _ time.Time) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.users[id]; !ok {
		return autherrors.ErrNotFound
	}
	ur.prefs[id] = prefs
	return nil
}

func (ur *FakeUserRepo) UpsertRole(_ context.Context, role *users.Role) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	for _, r := range ur.roles[role.TenantID] {
		if strings.EqualFold(r.Name, role.Name) {
			role.ID = r.ID
			return nil
		}
	}
	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	c := *role
	ur.roles[role.TenantID] = append(ur.roles[role.TenantID], &c)
	return nil
}

func (ur *FakeUserRepo) ListRoles(_ context.Context, tenantID string) ([]*users.Role, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	roles := make([]*users.Role, 0, len(ur.roles[tenantID]))
	for _, r := range ur.roles[tenantID] {
		c := *r
		roles = append(roles, &c)
	}
	return roles, nil
}
