package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	"github.com/aidrelay/aidrelay-api/internal/models"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
	"github.com/aidrelay/aidrelay-api/pkg/envelope"
)

type broadcastStore interface {
	CreateWithInvites(ctx context.Context, broadcast *models.Broadcast, invites []models.Invite) (string, bool, error)
}

type eligibilityChecker interface {
	FindEligible(ctx context.Context, groupIDs []string) (map[string]struct{}, error)
}

type submissionObserver interface {
	ObserveBroadcastSubmitted(inviteCount int)
	ObserveSubmissionRejected(reason string)
}

// BroadcastConfig governs the anonymous submission gates and the invite TTL.
type BroadcastConfig struct {
	InviteTTL       time.Duration
	MinElapsed      time.Duration
	MaxFanout       int
	MaxPayloadBytes int64
}

// BroadcastService accepts the single anonymous write of the protocol. The
// handler never authenticates it; all abuse resistance lives in the gates
// here, and they all fail with the same vague rejection so probing one gate
// reveals nothing about the others.
type BroadcastService struct {
	repo      broadcastStore
	directory eligibilityChecker
	metrics   submissionObserver
	validate  *validator.Validate
	logger    *zap.Logger
	cfg       BroadcastConfig
}

// NewBroadcastService constructs the broadcast service.
func NewBroadcastService(repo broadcastStore, directory eligibilityChecker, metrics submissionObserver, logger *zap.Logger, cfg BroadcastConfig) *BroadcastService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = 14 * 24 * time.Hour
	}
	if cfg.MinElapsed <= 0 {
		cfg.MinElapsed = 3 * time.Second
	}
	if cfg.MaxFanout <= 0 {
		cfg.MaxFanout = 50
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 64 * 1024
	}
	validate := validator.New()
	_ = validate.RegisterValidation("help_category", func(fl validator.FieldLevel) bool {
		return models.ValidCategory(fl.Field().String())
	})
	return &BroadcastService{repo: repo, directory: directory, metrics: metrics, validate: validate, logger: logger, cfg: cfg}
}

// Submit validates and stores one broadcast with its full invite fan-out in
// a single transaction. Retries with the same submissionId return the
// original broadcast ID without creating anything.
func (s *BroadcastService) Submit(ctx context.Context, req dto.SubmitBroadcastRequest) (*dto.SubmitBroadcastResponse, error) {
	if err := s.checkAbuseGates(req); err != nil {
		return nil, err
	}

	ciphertext, nonce, err := s.decodePayload(req)
	if err != nil {
		return nil, err
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown help category")
	}
	if len(req.Invites) > s.cfg.MaxFanout {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d recipient groups per broadcast", s.cfg.MaxFanout))
	}

	groupIDs := make([]string, 0, len(req.Invites))
	seen := make(map[string]struct{}, len(req.Invites))
	wrappedKeys := make([][]byte, 0, len(req.Invites))
	for _, inv := range req.Invites {
		if _, dup := seen[inv.GroupID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate recipient group")
		}
		seen[inv.GroupID] = struct{}{}
		groupIDs = append(groupIDs, inv.GroupID)

		wrapped, err := base64.StdEncoding.DecodeString(inv.WrappedKey)
		if err != nil || len(wrapped) < envelope.MinWrappedSize {
			return nil, appErrors.Clone(appErrors.ErrValidation, "malformed wrapped key")
		}
		wrappedKeys = append(wrappedKeys, wrapped)
	}

	eligible, err := s.directory.FindEligible(ctx, groupIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate recipients")
	}
	if len(eligible) == 0 {
		return nil, appErrors.ErrNoRecipients
	}
	for _, id := range groupIDs {
		if _, ok := eligible[id]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "recipient group is not eligible for broadcasts")
		}
	}

	now := time.Now().UTC()
	broadcast := &models.Broadcast{
		SubmissionID: req.SubmissionID,
		Ciphertext:   ciphertext,
		Nonce:        nonce,
		Region:       strings.TrimSpace(req.Region),
		Categories:   pq.StringArray(req.Categories),
		CreatedAt:    now,
	}
	invites := make([]models.Invite, 0, len(req.Invites))
	for i, inv := range req.Invites {
		invites = append(invites, models.Invite{
			GroupID:    inv.GroupID,
			WrappedKey: wrappedKeys[i],
			Region:     broadcast.Region,
			Categories: broadcast.Categories,
			CreatedAt:  now,
			ExpiresAt:  now.Add(s.cfg.InviteTTL),
		})
	}

	broadcastID, created, err := s.repo.CreateWithInvites(ctx, broadcast, invites)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store broadcast")
	}
	if created {
		if s.metrics != nil {
			s.metrics.ObserveBroadcastSubmitted(len(invites))
		}
		s.logger.Info("broadcast stored",
			zap.String("broadcast_id", broadcastID),
			zap.Int("invites", len(invites)),
			zap.Strings("categories", req.Categories))
	}
	return &dto.SubmitBroadcastResponse{BroadcastID: broadcastID}, nil
}

// checkAbuseGates enforces the honeypot and minimum-elapsed gates. Both
// failures return the identical generic rejection.
func (s *BroadcastService) checkAbuseGates(req dto.SubmitBroadcastRequest) error {
	if req.Honeypot != "" {
		if s.metrics != nil {
			s.metrics.ObserveSubmissionRejected("honeypot")
		}
		return appErrors.ErrSubmissionRejected
	}
	if time.Duration(req.ElapsedMs)*time.Millisecond < s.cfg.MinElapsed {
		if s.metrics != nil {
			s.metrics.ObserveSubmissionRejected("elapsed")
		}
		return appErrors.ErrSubmissionRejected
	}
	return nil
}

func (s *BroadcastService) decodePayload(req dto.SubmitBroadcastRequest) (ciphertext, nonce []byte, err error) {
	ciphertext, err = base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil || len(ciphertext) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "malformed ciphertext payload")
	}
	if int64(len(ciphertext)) > s.cfg.MaxPayloadBytes {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "ciphertext payload too large")
	}
	nonce, err = base64.StdEncoding.DecodeString(req.Nonce)
	if err != nil || len(nonce) != envelope.NonceSize {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "malformed nonce")
	}
	return ciphertext, nonce, nil
}
