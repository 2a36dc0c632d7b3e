package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/token/refresh"
)

type RefreshTokenRepo struct {
	db *pgxpool.Pool
}

var _ refresh.Repo = (*RefreshTokenRepo)(nil)

func NewRefreshTokenRepo(db *pgxpool.Pool) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

func (r *RefreshTokenRepo) FindActiveByHash(ctx context.Context, hash string, now time.Time) (*refresh.Record, error) {
	query := `
		SELECT t.id, t.user_id, t.token_hash, t.created_at, t.expires_at, t.created_by_ip, t.user_agent, ` + userColumns + `
		FROM refresh_tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1 AND t.revoked_at IS NULL AND t.expires_at > $2`
	rec := &refresh.Record{}
	user, err := scanUserWith(r.db.QueryRow(ctx, query, hash, now),
		&rec.ID, &rec.UserID, &rec.TokenHash, &rec.CreatedAt, &rec.ExpiresAt, &rec.CreatedByIP, &rec.UserAgent)
	if err != nil {
		return nil, storeErr("refresh.FindActiveByHash", err)
	}
	rec.User = user
	return rec, nil
}

func (r *RefreshTokenRepo) Add(ctx context.Context, record *refresh.Record) error {
	return storeErr("refresh.Add", insertRefresh(ctx, r.db, record))
}

// Rotate inserts next before revoking old so the replaced_by reference holds.
// The conditional update is the compare and swap: losing it rolls back next.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, old, next *refresh.Record, now time.Time) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertRefresh(ctx, tx, next); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE refresh_tokens SET revoked_at = $2, replaced_by = $3, revoked_by_ip = $4
			WHERE id = $1 AND revoked_at IS NULL AND expires_at > $2`,
			old.ID, now, next.ID, next.CreatedByIP)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return autherrors.ErrInvalidRefreshToken
		}
		return nil
	})
	if autherrors.Is(err, autherrors.ErrInvalidRefreshToken) {
		return err
	}
	return storeErr("refresh.Rotate", err)
}

func (r *RefreshTokenRepo) RevokeByHash(ctx context.Context, hash string, now time.Time, meta refresh.Metadata) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3
		WHERE token_hash = $1 AND revoked_at IS NULL`, hash, now, meta.IP)
	return storeErr("refresh.RevokeByHash", err)
}

func (r *RefreshTokenRepo) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1 OR revoked_at < $1`, cutoff)
	if err != nil {
		return 0, storeErr("refresh.Purge", err)
	}
	return tag.RowsAffected(), nil
}

func insertRefresh(ctx context.Context, q querier, rec *refresh.Record) error {
	_, err := q.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at, created_by_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.UserID, rec.TokenHash, rec.CreatedAt, rec.ExpiresAt, rec.CreatedByIP, rec.UserAgent)
	return err
}
