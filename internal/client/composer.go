package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	"github.com/aidrelay/aidrelay-api/pkg/envelope"
)

// ErrNoRecipients is reported before any encryption or network write when
// the directory lookup matched no groups. The caller can relax the filter
// and try again; nothing has left the device.
var ErrNoRecipients = errors.New("no recipient groups match the filter")

type directoryAPI interface {
	DirectoryLookup(ctx context.Context, region string, categories []string) ([]dto.DirectoryEntryResponse, error)
	SubmitBroadcast(ctx context.Context, req dto.SubmitBroadcastRequest) (*dto.SubmitBroadcastResponse, error)
}

// Payload is the plaintext that gets sealed into a broadcast. The safe word
// rides inside it so a responder can read it back over a phone call and the
// requester knows the responder really decrypted the request.
type Payload struct {
	Message     string `json:"message"`
	ContactInfo string `json:"contactInfo"`
	SafeWord    string `json:"safeWord"`
}

// ComposeRequest is one help request to broadcast.
type ComposeRequest struct {
	Message     string
	ContactInfo string
	Region      string
	Categories  []string
	// ElapsedMs is the time the author spent composing, reported to the
	// server's minimum-elapsed gate.
	ElapsedMs int64
}

// ComposeResult reports what was sent.
type ComposeResult struct {
	BroadcastID string
	Recipients  int
	// SafeWord is shown to the author so responders can later prove they
	// really decrypted the request.
	SafeWord string
}

// Composer drives the sender side: directory lookup, one symmetric
// encryption of the payload, one key wrap per recipient, one submission.
// The content key lives only on this side of the wire and only for the
// duration of Compose.
type Composer struct {
	api             directoryAPI
	wrapConcurrency int
}

// NewComposer constructs a composer. wrapConcurrency bounds the parallel
// key wraps; values below one fall back to a sensible default.
func NewComposer(api directoryAPI, wrapConcurrency int) *Composer {
	if wrapConcurrency <= 0 {
		wrapConcurrency = 8
	}
	return &Composer{api: api, wrapConcurrency: wrapConcurrency}
}

// Compose encrypts the request once, wraps the content key for every
// matching group, and submits the whole fan-out in a single call. The
// submission ID is generated here so a retry after a network timeout cannot
// create a duplicate broadcast.
func (c *Composer) Compose(ctx context.Context, req ComposeRequest) (*ComposeResult, error) {
	if req.Message == "" {
		return nil, errors.New("empty request")
	}

	entries, err := c.api.DirectoryLookup(ctx, req.Region, req.Categories)
	if err != nil {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoRecipients
	}

	recipients, err := decodeRecipients(entries)
	if err != nil {
		return nil, err
	}

	safeWord, err := envelope.GenerateSafeWord()
	if err != nil {
		return nil, fmt.Errorf("generate safe word: %w", err)
	}
	plaintext, err := json.Marshal(Payload{
		Message:     req.Message,
		ContactInfo: req.ContactInfo,
		SafeWord:    safeWord,
	})
	if err != nil {
		return nil, fmt.Errorf("serialize payload: %w", err)
	}

	contentKey, err := envelope.GenerateContentKey()
	if err != nil {
		return nil, fmt.Errorf("generate content key: %w", err)
	}
	ciphertext, nonce, err := envelope.EncryptPayload(plaintext, contentKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt payload: %w", err)
	}

	invites, err := c.wrapAll(ctx, contentKey, recipients)
	if err != nil {
		return nil, err
	}
	// The content key is not referenced past this point; the wraps are the
	// only durable form it takes.

	resp, err := c.api.SubmitBroadcast(ctx, dto.SubmitBroadcastRequest{
		SubmissionID: uuid.NewString(),
		Ciphertext:   base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:        base64.StdEncoding.EncodeToString(nonce),
		Region:       req.Region,
		Categories:   req.Categories,
		Invites:      invites,
		ElapsedMs:    req.ElapsedMs,
	})
	if err != nil {
		return nil, fmt.Errorf("submit broadcast: %w", err)
	}

	return &ComposeResult{
		BroadcastID: resp.BroadcastID,
		Recipients:  len(invites),
		SafeWord:    safeWord,
	}, nil
}

type recipient struct {
	groupID string
	pub     [envelope.PublicKeySize]byte
}

func decodeRecipients(entries []dto.DirectoryEntryResponse) ([]recipient, error) {
	recipients := make([]recipient, 0, len(entries))
	for _, entry := range entries {
		raw, err := base64.StdEncoding.DecodeString(entry.PublicKey)
		if err != nil || len(raw) != envelope.PublicKeySize {
			return nil, fmt.Errorf("directory entry %s has a malformed public key", entry.ID)
		}
		r := recipient{groupID: entry.ID}
		copy(r.pub[:], raw)
		recipients = append(recipients, r)
	}
	return recipients, nil
}

// wrapAll runs the per-recipient key wraps with bounded concurrency.
// Results keep the directory order so the fan-out is deterministic.
func (c *Composer) wrapAll(ctx context.Context, contentKey *[envelope.KeySize]byte, recipients []recipient) ([]dto.InvitePayload, error) {
	invites := make([]dto.InvitePayload, len(recipients))
	wrapErrs := make([]error, len(recipients))
	sem := make(chan struct{}, c.wrapConcurrency)
	var wg sync.WaitGroup

	for i := range recipients {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			wrapped, err := envelope.WrapKey(contentKey, &recipients[i].pub)
			if err != nil {
				wrapErrs[i] = err
				return
			}
			invites[i] = dto.InvitePayload{
				GroupID:    recipients[i].groupID,
				WrappedKey: base64.StdEncoding.EncodeToString(wrapped),
			}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range wrapErrs {
		if err != nil {
			return nil, fmt.Errorf("wrap key for group %s: %w", recipients[i].groupID, err)
		}
	}
	return invites, nil
}
