package refreshrepofake

import (
	"context"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/token/refresh"
	"github.com/jrsteele09/go-hris-auth/users"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

// FakeRefreshTokenRepo keeps records in memory and resolves the bound user
// from a users.UserRepo, mirroring the join the database performs.
type FakeRefreshTokenRepo struct {
	records map[string]*refresh.Record // id to record
	hashes  map[string]string          // token hash to id
	users   users.UserRepo
	lock    sync.Mutex
}

func NewFakeRefreshTokenRepo(userRepo users.UserRepo) *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		records: make(map[string]*refresh.Record),
		hashes:  make(map[string]string),
		users:   userRepo,
	}
}

func (tr *FakeRefreshTokenRepo) FindActiveByHash(ctx context.Context, hash string, now time.Time) (*refresh.Record, error) {
	tr.lock.Lock()
	id, ok := tr.hashes[hash]
	var found refresh.Record
	if ok {
		found = *tr.records[id]
	}
	tr.lock.Unlock()

	if !ok || !found.IsActive(now) {
		return nil, autherrors.ErrNotFound
	}
	user, err := tr.users.GetByID(ctx, found.UserID)
	if err != nil {
		return nil, err
	}
	found.User = user
	return &found, nil
}

func (tr *FakeRefreshTokenRepo) Add(_ context.Context, record *refresh.Record) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.add(record)
	return nil
}

func (tr *FakeRefreshTokenRepo) add(record *refresh.Record) {
	c := *record
	c.User = nil
	tr.records[c.ID] = &c
	tr.hashes[c.TokenHash] = c.ID
}

// Rotate is a compare-and-swap on the stored copy of old.
func (tr *FakeRefreshTokenRepo) Rotate(_ context.Context, old, next *refresh.Record, now time.Time) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	stored, ok := tr.records[old.ID]
	if !ok || !stored.IsActive(now) {
		return autherrors.ErrInvalidRefreshToken
	}
	revokedAt := now
	stored.RevokedAt = &revokedAt
	stored.ReplacedBy = next.ID
	stored.RevokedByIP = next.CreatedByIP
	tr.add(next)
	return nil
}

func (tr *FakeRefreshTokenRepo) RevokeByHash(_ context.Context, hash string, now time.Time, meta refresh.Metadata) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	id, ok := tr.hashes[hash]
	if !ok {
		return nil
	}
	stored := tr.records[id]
	if stored.RevokedAt != nil {
		return nil
	}
	revokedAt := now
	stored.RevokedAt = &revokedAt
	stored.RevokedByIP = meta.IP
	return nil
}

func (tr *FakeRefreshTokenRepo) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	var n int64
	for id, r := range tr.records {
		if r.ExpiresAt.Before(cutoff) || (r.RevokedAt != nil && r.RevokedAt.Before(cutoff)) {
			delete(tr.hashes, r.TokenHash)
			delete(tr.records, id)
			n++
		}
	}
	return n, nil
}

// Get returns a copy of a record by id, for assertions on chain state.
func (tr *FakeRefreshTokenRepo) Get(id string) (*refresh.Record, bool) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	r, ok := tr.records[id]
	if !ok {
		return nil, false
	}
	c := *r
	return &c, true
}
