package models

import (
	"time"

	"github.com/lib/pq"
)

// InviteStatus is derived, never stored. Persisting only decryptedAt and
// expiresAt makes contradictory states (decrypted yet expired) impossible
// to represent.
type InviteStatus string

const (
	InviteStatusPending   InviteStatus = "PENDING"
	InviteStatusDecrypted InviteStatus = "DECRYPTED"
	InviteStatusExpired   InviteStatus = "EXPIRED"
)

// Invite is the per-recipient half of a broadcast: one row per
// (broadcast, group) pair carrying the wrapped content key for that group.
// Region and categories are denormalized from the broadcast so list views
// need no join. decryptedAt is set exactly once and never overwritten.
type Invite struct {
	ID          string         `db:"id" json:"id"`
	BroadcastID string         `db:"broadcast_id" json:"broadcast_id"`
	GroupID     string         `db:"group_id" json:"group_id"`
	WrappedKey  []byte         `db:"wrapped_key" json:"-"`
	Region      string         `db:"region" json:"region"`
	Categories  pq.StringArray `db:"categories" json:"categories"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time      `db:"expires_at" json:"expires_at"`
	DecryptedAt *time.Time     `db:"decrypted_at" json:"decrypted_at,omitempty"`
}

// Status derives the lifecycle state at the given instant. The retention
// window is a parameter because it is configuration, not row data. An invite
// past its purge deadline is EXPIRED even while the row still exists, so key
// material stops being served the moment the deadline passes rather than
// when the sweep next runs.
func (i Invite) Status(now time.Time, retention time.Duration) InviteStatus {
	if !now.Before(i.PurgeDeadline(retention)) {
		return InviteStatusExpired
	}
	if i.DecryptedAt != nil {
		return InviteStatusDecrypted
	}
	return InviteStatusPending
}

// PurgeDeadline returns the instant after which the sweep removes the row,
// and whether such a deadline applies: decryptedAt + retention for
// decrypted invites, expiresAt for never-decrypted ones.
func (i Invite) PurgeDeadline(retention time.Duration) time.Time {
	if i.DecryptedAt != nil {
		return i.DecryptedAt.Add(retention)
	}
	return i.ExpiresAt
}

// Fetchable reports whether wrapped key and ciphertext may still be served:
// only for pending and decrypted invites, never after expiry or past the
// purge deadline.
func (i Invite) Fetchable(now time.Time, retention time.Duration) bool {
	s := i.Status(now, retention)
	return s == InviteStatusPending || s == InviteStatusDecrypted
}
