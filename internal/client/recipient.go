package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	"github.com/aidrelay/aidrelay-api/pkg/envelope"
)

type inviteAPI interface {
	ListInvites(ctx context.Context) ([]dto.InviteListItem, error)
	GetInvite(ctx context.Context, inviteID string) (*dto.InviteDetailResponse, error)
	GetCiphertext(ctx context.Context, inviteID string) (*dto.CiphertextResponse, error)
	MarkDecrypted(ctx context.Context, inviteID string) (*dto.InviteListItem, error)
	DeleteInvite(ctx context.Context, inviteID string) error
}

// OpenedInvite is a locally decrypted help request.
type OpenedInvite struct {
	InviteID string
	Payload  Payload
	// PurgeAt is the server's removal deadline; Countdown renders it for
	// display. The server sweeps regardless of what the client shows.
	PurgeAt time.Time
}

// Recipient drives the receiving side for one group: fetch the wrapped key
// and ciphertext, unwrap and decrypt locally, then acknowledge. The group's
// secret key never leaves this process.
type Recipient struct {
	api       inviteAPI
	secretKey *[envelope.SecretKeySize]byte
}

// NewRecipient constructs a recipient bound to the group's secret key.
func NewRecipient(api inviteAPI, secretKey *[envelope.SecretKeySize]byte) *Recipient {
	return &Recipient{api: api, secretKey: secretKey}
}

// Inbox lists the group's live invites.
func (r *Recipient) Inbox(ctx context.Context) ([]dto.InviteListItem, error) {
	return r.api.ListInvites(ctx)
}

// Open fetches, unwraps, and decrypts one invite. The decryption
// acknowledgement is only sent after the plaintext is actually recovered; a
// failed unwrap leaves the invite pending so another device with the right
// key can still open it.
func (r *Recipient) Open(ctx context.Context, inviteID string) (*OpenedInvite, error) {
	detail, err := r.api.GetInvite(ctx, inviteID)
	if err != nil {
		return nil, fmt.Errorf("fetch invite: %w", err)
	}
	wrapped, err := base64.StdEncoding.DecodeString(detail.WrappedKey)
	if err != nil {
		return nil, envelope.ErrDecryptionFailed
	}
	contentKey, err := envelope.UnwrapKey(wrapped, r.secretKey)
	if err != nil {
		return nil, err
	}

	sealed, err := r.api.GetCiphertext(ctx, inviteID)
	if err != nil {
		return nil, fmt.Errorf("fetch ciphertext: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return nil, envelope.ErrDecryptionFailed
	}
	nonce, err := base64.StdEncoding.DecodeString(sealed.Nonce)
	if err != nil {
		return nil, envelope.ErrDecryptionFailed
	}
	plaintext, err := envelope.DecryptPayload(ciphertext, nonce, contentKey)
	if err != nil {
		return nil, err
	}
	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, envelope.ErrDecryptionFailed
	}

	purgeAt := detail.PurgeAt
	if item, err := r.api.MarkDecrypted(ctx, inviteID); err == nil {
		purgeAt = item.PurgeAt
	}
	// A failed acknowledgement is not fatal: the user already has the
	// plaintext and the next Open or list refresh retries implicitly.

	return &OpenedInvite{
		InviteID: inviteID,
		Payload:  payload,
		PurgeAt:  purgeAt,
	}, nil
}

// Discard deletes an invite the group will not act on.
func (r *Recipient) Discard(ctx context.Context, inviteID string) error {
	return r.api.DeleteInvite(ctx, inviteID)
}
