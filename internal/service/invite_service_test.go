package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrelay/aidrelay-api/internal/models"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
)

type inviteRepoStub struct {
	invites map[string]*models.Invite

	listItems []models.Invite
	listErr   error

	markChanged bool
	markErr     error
	markedAt    []time.Time

	deleteOK   bool
	deleteErr  error
	deletedIDs []string
}

func (s *inviteRepoStub) ListByGroup(ctx context.Context, groupID string, now time.Time, retention time.Duration) ([]models.Invite, error) {
	return s.listItems, s.listErr
}

func (s *inviteRepoStub) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	if invite, ok := s.invites[id]; ok {
		copied := *invite
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *inviteRepoStub) MarkDecrypted(ctx context.Context, id string, at time.Time) (bool, error) {
	s.markedAt = append(s.markedAt, at)
	return s.markChanged, s.markErr
}

func (s *inviteRepoStub) DeleteWithTombstone(ctx context.Context, id string, deletionType models.DeletionType, at time.Time) (bool, error) {
	s.deletedIDs = append(s.deletedIDs, id)
	return s.deleteOK, s.deleteErr
}

type broadcastReaderStub struct {
	broadcast *models.Broadcast
	err       error
}

func (s broadcastReaderStub) GetByID(ctx context.Context, id string) (*models.Broadcast, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.broadcast == nil {
		return nil, sql.ErrNoRows
	}
	return s.broadcast, nil
}

func pendingInvite(id, groupID string) *models.Invite {
	now := time.Now().UTC()
	return &models.Invite{
		ID:          id,
		BroadcastID: "bc-1",
		GroupID:     groupID,
		WrappedKey:  []byte("wrapped key material"),
		Region:      "Berlin",
		Categories:  pq.StringArray{"FOOD"},
		CreatedAt:   now.Add(-time.Hour),
		ExpiresAt:   now.Add(24 * time.Hour),
	}
}

func TestInviteGetReturnsWrappedKey(t *testing.T) {
	repo := &inviteRepoStub{invites: map[string]*models.Invite{"inv-1": pendingInvite("inv-1", "grp-1")}}
	svc := NewInviteService(repo, broadcastReaderStub{}, nil, nil, InviteConfig{})

	detail, err := svc.Get(context.Background(), "grp-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("wrapped key material")), detail.WrappedKey)
	assert.Equal(t, string(models.InviteStatusPending), detail.Status)
}

func TestInviteGetOtherGroupLooksAbsent(t *testing.T) {
	repo := &inviteRepoStub{invites: map[string]*models.Invite{"inv-1": pendingInvite("inv-1", "grp-1")}}
	svc := NewInviteService(repo, broadcastReaderStub{}, nil, nil, InviteConfig{})

	_, err := svc.Get(context.Background(), "grp-other", "inv-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestInviteGetExpiredIsGone(t *testing.T) {
	invite := pendingInvite("inv-1", "grp-1")
	invite.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	repo := &inviteRepoStub{invites: map[string]*models.Invite{"inv-1": invite}}
	svc := NewInviteService(repo, broadcastReaderStub{}, nil, nil, InviteConfig{})

	_, err := svc.Get(context.Background(), "grp-1", "inv-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGone.Code, appErrors.FromError(err).Code)
}

func TestInviteGetPastPurgeDeadlineIsGone(t *testing.T) {
	invite := pendingInvite("inv-1", "grp-1")
	decrypted := time.Now().UTC().Add(-100 * time.Hour)
	invite.DecryptedAt = &decrypted
	repo := &inviteRepoStub{invites: map[string]*models.Invite{"inv-1": invite}}
	svc := NewInviteService(repo, broadcastReaderStub{}, nil, nil, InviteConfig{RetentionWindow: 72 * time.Hour})

	// Still within its expiresAt, but 28h past decryptedAt + retention: the
	// key material must stop being served even before the sweep removes it.
	_, err := svc.Get(context.Background(), "grp-1", "inv-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGone.Code, appErrors.FromError(err).Code)

	_, err = svc.GetCiphertext(context.Background(), "grp-1", "inv-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGone.Code, appErrors.FromError(err).Code)
}

func TestInviteGetCiphertext(t *testing.T) {
	repo := &inviteRepoStub{invites: map[string]*models.Invite{"inv-1": pendingInvite("inv-1", "grp-1")}}
	reader := broadcastReaderStub{broadcast: &models.Broadcast{
		ID:         "bc-1",
		Ciphertext: []byte("sealed"),
		Nonce:      []byte("nonce"),
	}}
	svc := NewInviteService(repo, reader, nil, nil, InviteConfig{})

	resp, err := svc.GetCiphertext(context.Background(), "grp-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("sealed")), resp.Ciphertext)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("nonce")), resp.Nonce)
}

func TestInviteMarkDecryptedFirstTime(t *testing.T) {
	repo := &inviteRepoStub{
		invites:     map[string]*models.Invite{"inv-1": pendingInvite("inv-1", "grp-1")},
		markChanged: true,
	}
	metrics := &metricsStub{}
	svc := NewInviteService(repo, broadcastReaderStub{}, metrics, nil, InviteConfig{RetentionWindow: 72 * time.Hour})

	item, err := svc.MarkDecrypted(context.Background(), "grp-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.InviteStatusDecrypted), item.Status)
	require.NotNil(t, item.DecryptedAt)
	assert.Equal(t, item.DecryptedAt.Add(72*time.Hour), item.PurgeAt)
	assert.Equal(t, 1, metrics.decrypted)
}

func TestInviteMarkDecryptedRepeatKeepsTimestamp(t *testing.T) {
	invite := pendingInvite("inv-1", "grp-1")
	first := time.Now().UTC().Add(-time.Hour)
	invite.DecryptedAt = &first
	repo := &inviteRepoStub{
		invites:     map[string]*models.Invite{"inv-1": invite},
		markChanged: false,
	}
	metrics := &metricsStub{}
	svc := NewInviteService(repo, broadcastReaderStub{}, metrics, nil, InviteConfig{})

	item, err := svc.MarkDecrypted(context.Background(), "grp-1", "inv-1")
	require.NoError(t, err)
	require.NotNil(t, item.DecryptedAt)
	assert.True(t, item.DecryptedAt.Equal(first))
	assert.Zero(t, metrics.decrypted)
}

func TestInviteMarkDecryptedExpired(t *testing.T) {
	invite := pendingInvite("inv-1", "grp-1")
	invite.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	repo := &inviteRepoStub{invites: map[string]*models.Invite{"inv-1": invite}}
	svc := NewInviteService(repo, broadcastReaderStub{}, nil, nil, InviteConfig{})

	_, err := svc.MarkDecrypted(context.Background(), "grp-1", "inv-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGone.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.markedAt)
}

func TestInviteDeleteWritesTombstone(t *testing.T) {
	repo := &inviteRepoStub{
		invites:  map[string]*models.Invite{"inv-1": pendingInvite("inv-1", "grp-1")},
		deleteOK: true,
	}
	metrics := &metricsStub{}
	svc := NewInviteService(repo, broadcastReaderStub{}, metrics, nil, InviteConfig{})

	err := svc.Delete(context.Background(), "grp-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"inv-1"}, repo.deletedIDs)
	assert.Equal(t, []string{string(models.DeletionManual)}, metrics.deleted)
}

func TestInviteDeleteAlreadyGoneSucceeds(t *testing.T) {
	repo := &inviteRepoStub{invites: map[string]*models.Invite{}}
	svc := NewInviteService(repo, broadcastReaderStub{}, nil, nil, InviteConfig{})

	err := svc.Delete(context.Background(), "grp-1", "inv-missing")
	assert.NoError(t, err)
	assert.Empty(t, repo.deletedIDs)
}

func TestInviteListMapsStatus(t *testing.T) {
	now := time.Now().UTC()
	decrypted := now.Add(-time.Hour)
	repo := &inviteRepoStub{listItems: []models.Invite{
		{ID: "inv-1", Region: "Berlin", Categories: pq.StringArray{"FOOD"}, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(24 * time.Hour)},
		{ID: "inv-2", Region: "Berlin", Categories: pq.StringArray{"MEDICAL"}, CreatedAt: now.Add(-3 * time.Hour), ExpiresAt: now.Add(24 * time.Hour), DecryptedAt: &decrypted},
	}}
	svc := NewInviteService(repo, broadcastReaderStub{}, nil, nil, InviteConfig{RetentionWindow: 72 * time.Hour})

	items, err := svc.List(context.Background(), "grp-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, string(models.InviteStatusPending), items[0].Status)
	assert.Equal(t, string(models.InviteStatusDecrypted), items[1].Status)
	assert.Equal(t, decrypted.Add(72*time.Hour), items[1].PurgeAt)
}
