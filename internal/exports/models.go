package exports

import (
	"time"

	"github.com/google/uuid"
)

// Export is a stored workbook.
type Export struct {
	ID          uuid.UUID
	OwnerUserID string
	PlanID      uuid.UUID
	Format      string
	ObjectKey   *string
	SizeBytes   int64
	Status      string
	CreatedAt   time.Time
	Data        []byte // local mode only
}

// ExportDTO is the response representation of an export
type ExportDTO struct {
	ID          uuid.UUID `json:"id"`
	PlanID      uuid.UUID `json:"plan_id"`
	Format      string    `json:"format"`
	DownloadURL string    `json:"download_url"`
	SizeBytes   int64     `json:"size_bytes"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ExportsResponse is the list response
type ExportsResponse struct {
	Exports []ExportDTO `json:"exports"`
}

const (
	StatusReady  = "ready"
	StatusFailed = "failed"
)
