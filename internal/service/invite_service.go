package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	"github.com/aidrelay/aidrelay-api/internal/models"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
)

type inviteStore interface {
	ListByGroup(ctx context.Context, groupID string, now time.Time, retention time.Duration) ([]models.Invite, error)
	GetByID(ctx context.Context, id string) (*models.Invite, error)
	MarkDecrypted(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteWithTombstone(ctx context.Context, id string, deletionType models.DeletionType, at time.Time) (bool, error)
}

type broadcastReader interface {
	GetByID(ctx context.Context, id string) (*models.Broadcast, error)
}

type inviteObserver interface {
	ObserveInviteDecrypted()
	ObserveInviteDeleted(deletionType string)
}

// InviteConfig carries the retention window used to derive purge deadlines.
type InviteConfig struct {
	RetentionWindow time.Duration
}

// InviteService serves a group's invite inbox. Every operation is scoped by
// the caller's group: an invite belonging to another group is reported as
// not found, never as forbidden, so probing cannot confirm its existence.
type InviteService struct {
	invites    inviteStore
	broadcasts broadcastReader
	metrics    inviteObserver
	logger     *zap.Logger
	cfg        InviteConfig
}

// NewInviteService constructs the invite service.
func NewInviteService(invites inviteStore, broadcasts broadcastReader, metrics inviteObserver, logger *zap.Logger, cfg InviteConfig) *InviteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetentionWindow <= 0 {
		cfg.RetentionWindow = 72 * time.Hour
	}
	return &InviteService{invites: invites, broadcasts: broadcasts, metrics: metrics, logger: logger, cfg: cfg}
}

// List returns the metadata-only inbox for the caller's group.
func (s *InviteService) List(ctx context.Context, groupID string) ([]dto.InviteListItem, error) {
	now := time.Now().UTC()
	invites, err := s.invites.ListByGroup(ctx, groupID, now, s.cfg.RetentionWindow)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invites")
	}
	items := make([]dto.InviteListItem, 0, len(invites))
	for _, invite := range invites {
		items = append(items, s.toListItem(invite, now))
	}
	return items, nil
}

// Get returns one invite with its wrapped key. Expired invites answer 410:
// the row may still exist until the sweep runs, but its material is no
// longer served.
func (s *InviteService) Get(ctx context.Context, groupID, inviteID string) (*dto.InviteDetailResponse, error) {
	invite, err := s.loadOwned(ctx, groupID, inviteID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if !invite.Fetchable(now, s.cfg.RetentionWindow) {
		return nil, appErrors.ErrGone
	}
	return &dto.InviteDetailResponse{
		InviteListItem: s.toListItem(*invite, now),
		WrappedKey:     base64.StdEncoding.EncodeToString(invite.WrappedKey),
	}, nil
}

// GetCiphertext returns the sealed broadcast payload for local decryption.
func (s *InviteService) GetCiphertext(ctx context.Context, groupID, inviteID string) (*dto.CiphertextResponse, error) {
	invite, err := s.loadOwned(ctx, groupID, inviteID)
	if err != nil {
		return nil, err
	}
	if !invite.Fetchable(time.Now().UTC(), s.cfg.RetentionWindow) {
		return nil, appErrors.ErrGone
	}
	broadcast, err := s.broadcasts.GetByID(ctx, invite.BroadcastID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrGone
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load broadcast")
	}
	return &dto.CiphertextResponse{
		Ciphertext: base64.StdEncoding.EncodeToString(broadcast.Ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(broadcast.Nonce),
	}, nil
}

// MarkDecrypted records the first successful local decryption and starts the
// retention countdown. Repeat calls succeed without moving the timestamp.
func (s *InviteService) MarkDecrypted(ctx context.Context, groupID, inviteID string) (*dto.InviteListItem, error) {
	invite, err := s.loadOwned(ctx, groupID, inviteID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if invite.Status(now, s.cfg.RetentionWindow) == models.InviteStatusExpired {
		return nil, appErrors.ErrGone
	}
	changed, err := s.invites.MarkDecrypted(ctx, inviteID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark invite decrypted")
	}
	if changed {
		invite.DecryptedAt = &now
		if s.metrics != nil {
			s.metrics.ObserveInviteDecrypted()
		}
	}
	item := s.toListItem(*invite, now)
	return &item, nil
}

// Delete removes the invite and writes a MANUAL tombstone. Deleting an
// already-removed invite succeeds: the caller wanted it gone and it is.
func (s *InviteService) Delete(ctx context.Context, groupID, inviteID string) error {
	invite, err := s.loadOwned(ctx, groupID, inviteID)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrNotFound.Code {
			return nil
		}
		return err
	}
	deleted, err := s.invites.DeleteWithTombstone(ctx, invite.ID, models.DeletionManual, time.Now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete invite")
	}
	if deleted && s.metrics != nil {
		s.metrics.ObserveInviteDeleted(string(models.DeletionManual))
	}
	return nil
}

func (s *InviteService) loadOwned(ctx context.Context, groupID, inviteID string) (*models.Invite, error) {
	invite, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invite")
	}
	if invite.GroupID != groupID {
		return nil, appErrors.ErrNotFound
	}
	return invite, nil
}

func (s *InviteService) toListItem(invite models.Invite, now time.Time) dto.InviteListItem {
	return dto.InviteListItem{
		ID:          invite.ID,
		Region:      invite.Region,
		Categories:  invite.Categories,
		Status:      string(invite.Status(now, s.cfg.RetentionWindow)),
		CreatedAt:   invite.CreatedAt,
		ExpiresAt:   invite.ExpiresAt,
		DecryptedAt: invite.DecryptedAt,
		PurgeAt:     invite.PurgeDeadline(s.cfg.RetentionWindow),
	}
}
