package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	"github.com/aidrelay/aidrelay-api/internal/models"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
	"github.com/aidrelay/aidrelay-api/pkg/envelope"
)

type broadcastRepoStub struct {
	broadcastID string
	created     bool
	err         error

	gotBroadcast *models.Broadcast
	gotInvites   []models.Invite
}

func (s *broadcastRepoStub) CreateWithInvites(ctx context.Context, broadcast *models.Broadcast, invites []models.Invite) (string, bool, error) {
	s.gotBroadcast = broadcast
	s.gotInvites = invites
	if s.err != nil {
		return "", false, s.err
	}
	return s.broadcastID, s.created, nil
}

type eligibilityStub struct {
	eligible map[string]struct{}
	err      error
}

func (s eligibilityStub) FindEligible(ctx context.Context, groupIDs []string) (map[string]struct{}, error) {
	return s.eligible, s.err
}

type metricsStub struct {
	submitted int
	rejected  []string
	decrypted int
	deleted   []string
	swept     map[string]int
}

func (s *metricsStub) ObserveBroadcastSubmitted(inviteCount int) { s.submitted += inviteCount }
func (s *metricsStub) ObserveSubmissionRejected(reason string)  { s.rejected = append(s.rejected, reason) }
func (s *metricsStub) ObserveInviteDecrypted()                  { s.decrypted++ }
func (s *metricsStub) ObserveInviteDeleted(deletionType string) { s.deleted = append(s.deleted, deletionType) }
func (s *metricsStub) ObserveInvitesSwept(reason string, count int) {
	if s.swept == nil {
		s.swept = map[string]int{}
	}
	s.swept[reason] += count
}

func validSubmission(groupIDs ...string) dto.SubmitBroadcastRequest {
	invites := make([]dto.InvitePayload, 0, len(groupIDs))
	for _, id := range groupIDs {
		invites = append(invites, dto.InvitePayload{
			GroupID:    id,
			WrappedKey: base64.StdEncoding.EncodeToString(make([]byte, envelope.MinWrappedSize)),
		})
	}
	return dto.SubmitBroadcastRequest{
		SubmissionID: uuid.NewString(),
		Ciphertext:   base64.StdEncoding.EncodeToString([]byte("sealed payload")),
		Nonce:        base64.StdEncoding.EncodeToString(make([]byte, envelope.NonceSize)),
		Region:       "Berlin",
		Categories:   []string{"FOOD"},
		Invites:      invites,
		ElapsedMs:    10_000,
	}
}

func eligibleSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestBroadcastSubmitStoresFanout(t *testing.T) {
	repo := &broadcastRepoStub{broadcastID: "bc-1", created: true}
	metrics := &metricsStub{}
	svc := NewBroadcastService(repo, eligibilityStub{eligible: eligibleSet("grp-1", "grp-2")}, metrics, nil, BroadcastConfig{})

	resp, err := svc.Submit(context.Background(), validSubmission("grp-1", "grp-2"))
	require.NoError(t, err)
	assert.Equal(t, "bc-1", resp.BroadcastID)
	require.Len(t, repo.gotInvites, 2)
	assert.Equal(t, "grp-1", repo.gotInvites[0].GroupID)
	assert.Equal(t, repo.gotBroadcast.Region, repo.gotInvites[0].Region)
	assert.True(t, repo.gotInvites[0].ExpiresAt.After(repo.gotInvites[0].CreatedAt))
	assert.Equal(t, 2, metrics.submitted)
}

func TestBroadcastSubmitHoneypot(t *testing.T) {
	metrics := &metricsStub{}
	svc := NewBroadcastService(&broadcastRepoStub{}, eligibilityStub{}, metrics, nil, BroadcastConfig{})

	req := validSubmission("grp-1")
	req.Honeypot = "gotcha"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubmissionRejected.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"honeypot"}, metrics.rejected)
}

func TestBroadcastSubmitTooFast(t *testing.T) {
	svc := NewBroadcastService(&broadcastRepoStub{}, eligibilityStub{}, nil, nil, BroadcastConfig{MinElapsed: 3 * time.Second})

	req := validSubmission("grp-1")
	req.ElapsedMs = 500
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubmissionRejected.Code, appErrors.FromError(err).Code)
}

func TestBroadcastSubmitRejectionsAreUniform(t *testing.T) {
	svc := NewBroadcastService(&broadcastRepoStub{}, eligibilityStub{}, nil, nil, BroadcastConfig{MinElapsed: 3 * time.Second})

	honeypot := validSubmission("grp-1")
	honeypot.Honeypot = "x"
	_, honeypotErr := svc.Submit(context.Background(), honeypot)

	fast := validSubmission("grp-1")
	fast.ElapsedMs = 0
	_, fastErr := svc.Submit(context.Background(), fast)

	require.Error(t, honeypotErr)
	require.Error(t, fastErr)
	assert.Equal(t, honeypotErr.Error(), fastErr.Error())
}

func TestBroadcastSubmitNoEligibleRecipients(t *testing.T) {
	repo := &broadcastRepoStub{}
	svc := NewBroadcastService(repo, eligibilityStub{eligible: map[string]struct{}{}}, nil, nil, BroadcastConfig{})

	_, err := svc.Submit(context.Background(), validSubmission("grp-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoRecipients.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.gotBroadcast)
}

func TestBroadcastSubmitIneligibleTarget(t *testing.T) {
	svc := NewBroadcastService(&broadcastRepoStub{}, eligibilityStub{eligible: eligibleSet("grp-1")}, nil, nil, BroadcastConfig{})

	_, err := svc.Submit(context.Background(), validSubmission("grp-1", "grp-revoked"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBroadcastSubmitDuplicateGroup(t *testing.T) {
	svc := NewBroadcastService(&broadcastRepoStub{}, eligibilityStub{eligible: eligibleSet("grp-1")}, nil, nil, BroadcastConfig{})

	_, err := svc.Submit(context.Background(), validSubmission("grp-1", "grp-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBroadcastSubmitBadNonce(t *testing.T) {
	svc := NewBroadcastService(&broadcastRepoStub{}, eligibilityStub{eligible: eligibleSet("grp-1")}, nil, nil, BroadcastConfig{})

	req := validSubmission("grp-1")
	req.Nonce = base64.StdEncoding.EncodeToString(make([]byte, 12))
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBroadcastSubmitShortWrappedKey(t *testing.T) {
	svc := NewBroadcastService(&broadcastRepoStub{}, eligibilityStub{eligible: eligibleSet("grp-1")}, nil, nil, BroadcastConfig{})

	req := validSubmission("grp-1")
	req.Invites[0].WrappedKey = base64.StdEncoding.EncodeToString(make([]byte, envelope.MinWrappedSize-1))
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBroadcastSubmitUnknownCategory(t *testing.T) {
	svc := NewBroadcastService(&broadcastRepoStub{}, eligibilityStub{eligible: eligibleSet("grp-1")}, nil, nil, BroadcastConfig{})

	req := validSubmission("grp-1")
	req.Categories = []string{"FOOD", "PETCARE"}
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBroadcastSubmitFanoutCap(t *testing.T) {
	svc := NewBroadcastService(&broadcastRepoStub{}, eligibilityStub{eligible: eligibleSet("grp-1", "grp-2", "grp-3")}, nil, nil, BroadcastConfig{MaxFanout: 2})

	_, err := svc.Submit(context.Background(), validSubmission("grp-1", "grp-2", "grp-3"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBroadcastSubmitReplayDoesNotCount(t *testing.T) {
	repo := &broadcastRepoStub{broadcastID: "bc-original", created: false}
	metrics := &metricsStub{}
	svc := NewBroadcastService(repo, eligibilityStub{eligible: eligibleSet("grp-1")}, metrics, nil, BroadcastConfig{})

	resp, err := svc.Submit(context.Background(), validSubmission("grp-1"))
	require.NoError(t, err)
	assert.Equal(t, "bc-original", resp.BroadcastID)
	assert.Zero(t, metrics.submitted)
}

func TestBroadcastSubmitStoreFailure(t *testing.T) {
	repo := &broadcastRepoStub{err: errors.New("db down")}
	svc := NewBroadcastService(repo, eligibilityStub{eligible: eligibleSet("grp-1")}, nil, nil, BroadcastConfig{})

	_, err := svc.Submit(context.Background(), validSubmission("grp-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
