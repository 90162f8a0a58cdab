package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
)

// API is a thin HTTP client for the relay server. The composer uses it
// unauthenticated; the recipient flow sets a bearer token.
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the API client.
type Option func(*API)

// WithToken sets the bearer token for authenticated invite calls.
func WithToken(token string) Option {
	return func(a *API) { a.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.httpClient = c }
}

// NewAPI constructs a client against the given base URL, e.g.
// "https://relay.example.org/api/v1".
func NewAPI(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type responseEnvelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

// DirectoryLookup fetches verified groups matching the filter.
func (a *API) DirectoryLookup(ctx context.Context, region string, categories []string) ([]dto.DirectoryEntryResponse, error) {
	query := url.Values{}
	if region != "" {
		query.Set("region", region)
	}
	if len(categories) > 0 {
		query.Set("categories", strings.Join(categories, ","))
	}
	path := "/directory"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var entries []dto.DirectoryEntryResponse
	if err := a.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SubmitBroadcast posts one broadcast with its invite fan-out.
func (a *API) SubmitBroadcast(ctx context.Context, req dto.SubmitBroadcastRequest) (*dto.SubmitBroadcastResponse, error) {
	var resp dto.SubmitBroadcastResponse
	if err := a.do(ctx, http.MethodPost, "/broadcasts", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListInvites fetches the caller's invite inbox.
func (a *API) ListInvites(ctx context.Context) ([]dto.InviteListItem, error) {
	var items []dto.InviteListItem
	if err := a.do(ctx, http.MethodGet, "/invites", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetInvite fetches one invite including its wrapped key.
func (a *API) GetInvite(ctx context.Context, inviteID string) (*dto.InviteDetailResponse, error) {
	var detail dto.InviteDetailResponse
	if err := a.do(ctx, http.MethodGet, "/invites/"+url.PathEscape(inviteID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetCiphertext fetches the sealed broadcast payload for an invite.
func (a *API) GetCiphertext(ctx context.Context, inviteID string) (*dto.CiphertextResponse, error) {
	var resp dto.CiphertextResponse
	if err := a.do(ctx, http.MethodGet, "/invites/"+url.PathEscape(inviteID)+"/ciphertext", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkDecrypted acknowledges a successful local decryption.
func (a *API) MarkDecrypted(ctx context.Context, inviteID string) (*dto.InviteListItem, error) {
	var item dto.InviteListItem
	if err := a.do(ctx, http.MethodPost, "/invites/"+url.PathEscape(inviteID)+"/decrypted", nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteInvite removes an invite.
func (a *API) DeleteInvite(ctx context.Context, inviteID string) error {
	return a.do(ctx, http.MethodDelete, "/invites/"+url.PathEscape(inviteID), nil, nil)
}

func (a *API) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env responseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		return env.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return appErrors.New(appErrors.ErrInternal.Code, resp.StatusCode, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
