package dto

// DirectoryEntryResponse is the wire form of a directory entry. The public
// key is base64 so independently implemented senders interoperate.
type DirectoryEntryResponse struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	ServiceArea          string   `json:"serviceArea"`
	BroadcastServiceArea *string  `json:"broadcastServiceArea,omitempty"`
	BroadcastCategories  []string `json:"broadcastCategories"`
	PublicKey            string   `json:"publicKey"`
}
