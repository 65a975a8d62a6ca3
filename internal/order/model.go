package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusDeleted    Status = "deleted"
)

func (s Status) String() string {
	return string(s)
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusDeleted:
		return st, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidStatus)
	}
}

// Order binds an exporter and a manufacturer to one accepted bid.
type Order struct {
	ID             uuid.UUID  `json:"id"`
	BidID          uuid.UUID  `json:"bidId"`
	ExporterID     uuid.UUID  `json:"exporterId"`
	ManufacturerID uuid.UUID  `json:"manufacturerId"`
	MachineID      uuid.UUID  `json:"machineId"`
	Status         Status     `json:"status"`
	CreatedDate    time.Time  `json:"createdDate"`
	CompletionDate *time.Time `json:"completionDate,omitempty"`
	Deadline       time.Time  `json:"deadline"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type CreateInput struct {
	BidID          uuid.UUID
	ExporterID     uuid.UUID
	ManufacturerID uuid.UUID
	MachineID      uuid.UUID
	// Status defaults to pending.
	Status   Status
	Deadline time.Time
}
