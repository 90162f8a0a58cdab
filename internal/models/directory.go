package models

import (
	"time"

	"github.com/lib/pq"
)

// VerificationStatus tracks the vetting state of a group. Only verified
// groups are ever visible through the public directory.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRevoked  VerificationStatus = "REVOKED"
)

// Group represents a mutual-aid group as stored in the groups table. Rows
// are owned by the external group-management system; this service reads
// them for directory lookups and fan-out validation only.
type Group struct {
	ID                   string             `db:"id" json:"id"`
	Name                 string             `db:"name" json:"name"`
	ServiceArea          string             `db:"service_area" json:"service_area"`
	BroadcastServiceArea *string            `db:"broadcast_service_area" json:"broadcast_service_area,omitempty"`
	BroadcastCategories  pq.StringArray     `db:"broadcast_categories" json:"broadcast_categories"`
	PublicKey            []byte             `db:"public_key" json:"-"`
	Verification         VerificationStatus `db:"verification_status" json:"verification_status"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// DirectoryEntry is the public, read-only projection of a verified group
// eligible to receive broadcasts.
type DirectoryEntry struct {
	ID                   string         `db:"id" json:"id"`
	Name                 string         `db:"name" json:"name"`
	ServiceArea          string         `db:"service_area" json:"service_area"`
	BroadcastServiceArea *string        `db:"broadcast_service_area" json:"broadcast_service_area,omitempty"`
	BroadcastCategories  pq.StringArray `db:"broadcast_categories" json:"broadcast_categories"`
	PublicKey            []byte         `db:"public_key" json:"public_key"`
}

// EffectiveServiceArea returns the region string used for broadcast
// matching: the broadcast override when set, the profile area otherwise.
func (e DirectoryEntry) EffectiveServiceArea() string {
	if e.BroadcastServiceArea != nil && *e.BroadcastServiceArea != "" {
		return *e.BroadcastServiceArea
	}
	return e.ServiceArea
}

// DirectoryFilter captures the public lookup parameters.
type DirectoryFilter struct {
	Region     string
	Categories []string
	Limit      int
}
