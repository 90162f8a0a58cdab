package models

import (
	"time"

	"github.com/lib/pq"
)

// HelpCategory tags a broadcast with the kind of help requested. The set is
// shared between broadcasts, directory opt-ins, and tombstones.
type HelpCategory string

const (
	CategoryFood      HelpCategory = "FOOD"
	CategoryMedical   HelpCategory = "MEDICAL"
	CategoryShelter   HelpCategory = "SHELTER"
	CategoryTransport HelpCategory = "TRANSPORT"
	CategoryChildcare HelpCategory = "CHILDCARE"
	CategoryLegal     HelpCategory = "LEGAL"
	CategoryOther     HelpCategory = "OTHER"
)

// ValidCategory reports whether the tag is a known help category.
func ValidCategory(c string) bool {
	switch HelpCategory(c) {
	case CategoryFood, CategoryMedical, CategoryShelter, CategoryTransport,
		CategoryChildcare, CategoryLegal, CategoryOther:
		return true
	default:
		return false
	}
}

// Broadcast is one inbound help request. The server stores only the
// symmetric ciphertext and its nonce; the content key never reaches it, so
// the row is unreadable at rest by construction. Immutable after creation.
type Broadcast struct {
	ID           string         `db:"id" json:"id"`
	SubmissionID string         `db:"submission_id" json:"-"`
	Ciphertext   []byte         `db:"ciphertext" json:"-"`
	Nonce        []byte         `db:"nonce" json:"-"`
	Region       string         `db:"region" json:"region"`
	Categories   pq.StringArray `db:"categories" json:"categories"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
