package models

import (
	"time"

	"github.com/lib/pq"
)

// DeletionType records why an invite was removed.
type DeletionType string

const (
	// DeletionManual marks an explicit delete by the owning group.
	DeletionManual DeletionType = "MANUAL"
	// DeletionAutoInactivity marks a sweep delete after the post-decryption
	// retention window elapsed without action.
	DeletionAutoInactivity DeletionType = "AUTO_INACTIVITY"
)

// Tombstone proves that a deletion happened and why, without saying what
// was deleted: no invite, broadcast, or group identifiers, only the coarse
// category/region tags needed for accountability reporting. Append-only,
// retained indefinitely.
type Tombstone struct {
	ID           string         `db:"id" json:"id"`
	Categories   pq.StringArray `db:"categories" json:"categories"`
	Region       string         `db:"region" json:"region"`
	DeletionType DeletionType   `db:"deletion_type" json:"deletion_type"`
	DeletedAt    time.Time      `db:"deleted_at" json:"deleted_at"`
}

// TombstoneAggregate is a reporting bucket: deletions counted by period,
// type, and category.
type TombstoneAggregate struct {
	Period       string       `db:"period" json:"period"`
	DeletionType DeletionType `db:"deletion_type" json:"deletion_type"`
	Category     string       `db:"category" json:"category"`
	Count        int          `db:"count" json:"count"`
}

// TombstoneFilter bounds aggregate queries.
type TombstoneFilter struct {
	From *time.Time
	To   *time.Time
}
