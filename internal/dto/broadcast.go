package dto

// InvitePayload is one fan-out target inside a submission.
type InvitePayload struct {
	GroupID    string `json:"groupId" binding:"required,uuid"`
	WrappedKey string `json:"wrappedKey" binding:"required"`
}

// SubmitBroadcastRequest is the single anonymous write of the protocol. All
// binary fields are base64. Honeypot and ElapsedMs are the anti-abuse gates;
// SubmissionID is the client-generated idempotency key that makes retries
// after a timeout safe.
type SubmitBroadcastRequest struct {
	SubmissionID string          `json:"submissionId" binding:"required,uuid"`
	Ciphertext   string          `json:"ciphertextPayload" binding:"required"`
	Nonce        string          `json:"nonce" binding:"required"`
	Region       string          `json:"region" binding:"required"`
	Categories   []string        `json:"categories" binding:"required,min=1" validate:"required,min=1,dive,help_category"`
	Invites      []InvitePayload `json:"invites" binding:"required,min=1,dive"`
	Honeypot     string          `json:"honeypot"`
	ElapsedMs    int64           `json:"elapsed"`
}

// SubmitBroadcastResponse acknowledges a stored broadcast.
type SubmitBroadcastResponse struct {
	BroadcastID string `json:"broadcastId"`
}
