package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aidrelay/aidrelay-api/internal/models"
)

// InviteRepository owns the invite table and the tombstone writes that
// accompany deletions. All mutations are row-scoped by invite ID, so
// concurrent delete/sweep on the same row resolve to at-most-one-winner
// without cross-row locking.
type InviteRepository struct {
	db *sqlx.DB
}

// NewInviteRepository constructs the repository.
func NewInviteRepository(db *sqlx.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

// ListByGroup returns live invites for a group: pending ones before expiry
// and decrypted ones still inside the retention window. The wrapped key is
// intentionally not selected; list rendering must not hold key material.
func (r *InviteRepository) ListByGroup(ctx context.Context, groupID string, now time.Time, retention time.Duration) ([]models.Invite, error) {
	const query = `SELECT id, broadcast_id, group_id, region, categories, created_at, expires_at, decrypted_at
FROM invites
WHERE group_id = $1
  AND ((decrypted_at IS NULL AND expires_at > $2) OR (decrypted_at IS NOT NULL AND decrypted_at > $3))
ORDER BY created_at DESC`
	decryptedCutoff := now.Add(-retention)
	var invites []models.Invite
	if err := r.db.SelectContext(ctx, &invites, query, groupID, now, decryptedCutoff); err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	return invites, nil
}

// GetByID returns a full invite row including the wrapped key.
func (r *InviteRepository) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	const query = `SELECT id, broadcast_id, group_id, wrapped_key, region, categories, created_at, expires_at, decrypted_at
FROM invites WHERE id = $1`
	var invite models.Invite
	if err := r.db.GetContext(ctx, &invite, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get invite: %w", err)
	}
	return &invite, nil
}

// MarkDecrypted sets decryptedAt exactly once. The decrypted_at IS NULL
// guard makes the operation idempotent: a second call changes nothing and
// reports changed=false, and the original timestamp is never overwritten.
func (r *InviteRepository) MarkDecrypted(ctx context.Context, id string, at time.Time) (changed bool, err error) {
	const query = `UPDATE invites SET decrypted_at = $2 WHERE id = $1 AND decrypted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("mark invite decrypted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark invite decrypted: %w", err)
	}
	return affected == 1, nil
}

// DeleteWithTombstone hard-deletes the invite and appends exactly one
// tombstone in the same transaction. When the row is already gone (repeat
// delete, or a sweep won the race) it reports deleted=false and writes no
// tombstone, so a delete/sweep race produces one tombstone at most.
func (r *InviteRepository) DeleteWithTombstone(ctx context.Context, id string, deletionType models.DeletionType, at time.Time) (deleted bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var removed models.Invite
	err = tx.GetContext(ctx, &removed,
		`DELETE FROM invites WHERE id = $1 RETURNING id, region, categories`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = tx.Commit()
			return false, err
		}
		return false, fmt.Errorf("delete invite: %w", err)
	}

	tombstone := models.Tombstone{
		ID:           uuid.NewString(),
		Categories:   removed.Categories,
		Region:       removed.Region,
		DeletionType: deletionType,
		DeletedAt:    at,
	}
	if _, err = tx.NamedExecContext(ctx,
		`INSERT INTO tombstones (id, categories, region, deletion_type, deleted_at)
VALUES (:id, :categories, :region, :deletion_type, :deleted_at)`, tombstone); err != nil {
		return false, fmt.Errorf("write tombstone: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete tx: %w", err)
	}
	return true, nil
}

// SweepExpired removes up to limit invites whose TTL elapsed without any
// decryption. No tombstone is written: nothing was ever readable, so there
// is nothing to account for.
func (r *InviteRepository) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `DELETE FROM invites WHERE id IN (
  SELECT id FROM invites
  WHERE decrypted_at IS NULL AND expires_at <= $1
  ORDER BY expires_at ASC
  LIMIT $2
  FOR UPDATE SKIP LOCKED
)`
	result, err := r.db.ExecContext(ctx, query, now, limit)
	if err != nil {
		return 0, fmt.Errorf("sweep expired invites: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep expired invites: %w", err)
	}
	return int(affected), nil
}

// SweepRetention removes up to limit invites whose post-decryption
// retention window elapsed, writing one AUTO_INACTIVITY tombstone per
// deleted row inside the same transaction. SKIP LOCKED keeps concurrent
// sweeps and explicit deletes from blocking each other.
func (r *InviteRepository) SweepRetention(ctx context.Context, now time.Time, retention time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := now.Add(-retention)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin retention sweep tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var victims []models.Invite
	err = tx.SelectContext(ctx, &victims,
		`SELECT id, region, categories FROM invites
WHERE decrypted_at IS NOT NULL AND decrypted_at <= $1
ORDER BY decrypted_at ASC
LIMIT $2
FOR UPDATE SKIP LOCKED`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("select retention victims: %w", err)
	}
	if len(victims) == 0 {
		err = tx.Commit()
		return 0, err
	}

	for _, victim := range victims {
		if _, err = tx.ExecContext(ctx, `DELETE FROM invites WHERE id = $1`, victim.ID); err != nil {
			return 0, fmt.Errorf("sweep invite %s: %w", victim.ID, err)
		}
		tombstone := models.Tombstone{
			ID:           uuid.NewString(),
			Categories:   victim.Categories,
			Region:       victim.Region,
			DeletionType: models.DeletionAutoInactivity,
			DeletedAt:    now,
		}
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO tombstones (id, categories, region, deletion_type, deleted_at)
VALUES (:id, :categories, :region, :deletion_type, :deleted_at)`, tombstone); err != nil {
			return 0, fmt.Errorf("write sweep tombstone: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit retention sweep tx: %w", err)
	}
	return len(victims), nil
}
