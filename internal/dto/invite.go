package dto

import "time"

// InviteListItem is the metadata-only list view. It deliberately carries
// neither the wrapped key nor any ciphertext so rendering a list cannot
// retain decryptable material.
type InviteListItem struct {
	ID          string     `json:"id"`
	Region      string     `json:"region"`
	Categories  []string   `json:"categories"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	DecryptedAt *time.Time `json:"decryptedAt,omitempty"`
	// PurgeAt is the server-enforced deadline after which the sweep removes
	// the invite; clients may drive an advisory countdown from it.
	PurgeAt time.Time `json:"purgeAt"`
}

// InviteDetailResponse adds the wrapped key for the recipient's local
// unwrap. Served only while the invite is fetchable.
type InviteDetailResponse struct {
	InviteListItem
	WrappedKey string `json:"wrappedKey"`
}

// CiphertextResponse carries the broadcast's sealed payload for local
// decryption.
type CiphertextResponse struct {
	Ciphertext string `json:"ciphertextPayload"`
	Nonce      string `json:"nonce"`
}
