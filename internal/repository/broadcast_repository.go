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

// BroadcastRepository persists broadcasts and their invite fan-out.
type BroadcastRepository struct {
	db *sqlx.DB
}

// NewBroadcastRepository constructs the repository.
func NewBroadcastRepository(db *sqlx.DB) *BroadcastRepository {
	return &BroadcastRepository{db: db}
}

// CreateWithInvites stores the broadcast row and one invite row per
// recipient in a single transaction: either the whole fan-out becomes
// visible or none of it does. The submission ID is unique; a replay (client
// retry after a timeout) creates nothing and returns the existing broadcast
// ID with created=false.
func (r *BroadcastRepository) CreateWithInvites(ctx context.Context, broadcast *models.Broadcast, invites []models.Invite) (broadcastID string, created bool, err error) {
	if broadcast.ID == "" {
		broadcast.ID = uuid.NewString()
	}
	if broadcast.CreatedAt.IsZero() {
		broadcast.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("begin broadcast tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertBroadcast = `INSERT INTO broadcasts (id, submission_id, ciphertext, nonce, region, categories, created_at)
VALUES (:id, :submission_id, :ciphertext, :nonce, :region, :categories, :created_at)
ON CONFLICT (submission_id) DO NOTHING`
	result, err := tx.NamedExecContext(ctx, insertBroadcast, broadcast)
	if err != nil {
		return "", false, fmt.Errorf("create broadcast: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("create broadcast: %w", err)
	}
	if affected == 0 {
		// Idempotent replay: the fan-out already exists from the first
		// submission with this ID.
		var existingID string
		if err = tx.GetContext(ctx, &existingID,
			`SELECT id FROM broadcasts WHERE submission_id = $1`, broadcast.SubmissionID); err != nil {
			return "", false, fmt.Errorf("resolve replayed submission: %w", err)
		}
		if err = tx.Commit(); err != nil {
			return "", false, fmt.Errorf("commit broadcast tx: %w", err)
		}
		return existingID, false, nil
	}

	const insertInvite = `INSERT INTO invites (id, broadcast_id, group_id, wrapped_key, region, categories, created_at, expires_at)
VALUES (:id, :broadcast_id, :group_id, :wrapped_key, :region, :categories, :created_at, :expires_at)`
	for i := range invites {
		invite := &invites[i]
		if invite.ID == "" {
			invite.ID = uuid.NewString()
		}
		invite.BroadcastID = broadcast.ID
		if invite.CreatedAt.IsZero() {
			invite.CreatedAt = broadcast.CreatedAt
		}
		if _, err = tx.NamedExecContext(ctx, insertInvite, invite); err != nil {
			return "", false, fmt.Errorf("create invite for group %s: %w", invite.GroupID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", false, fmt.Errorf("commit broadcast tx: %w", err)
	}
	return broadcast.ID, true, nil
}

// GetByID returns a broadcast row.
func (r *BroadcastRepository) GetByID(ctx context.Context, id string) (*models.Broadcast, error) {
	const query = `SELECT id, submission_id, ciphertext, nonce, region, categories, created_at
FROM broadcasts WHERE id = $1`
	var broadcast models.Broadcast
	if err := r.db.GetContext(ctx, &broadcast, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get broadcast: %w", err)
	}
	return &broadcast, nil
}
