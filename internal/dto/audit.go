package dto

import "time"

// TombstoneAggregateResponse is one reporting bucket of the deletion ledger.
type TombstoneAggregateResponse struct {
	Period       string `json:"period"`
	DeletionType string `json:"deletionType"`
	Category     string `json:"category"`
	Count        int    `json:"count"`
}

// CreateExportRequest queues an asynchronous tombstone export.
type CreateExportRequest struct {
	Format string     `json:"format" binding:"required,oneof=csv pdf"`
	From   *time.Time `json:"from"`
	To     *time.Time `json:"to"`
}

// ExportJobResponse reports the state of an export job.
type ExportJobResponse struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	ResultURL *string `json:"resultUrl,omitempty"`
	Error     *string `json:"error,omitempty"`
}
