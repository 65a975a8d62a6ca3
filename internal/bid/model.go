package bid

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/stage"
	"github.com/vasiliy-maslov/garment-costing/internal/user"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

func (s Status) String() string {
	return string(s)
}

func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusActive, StatusInactive} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidStatus)
}

type ResponseStatus string

const (
	ResponsePending   ResponseStatus = "Pending"
	ResponseAccepted  ResponseStatus = "Accepted"
	ResponseRejected  ResponseStatus = "Rejected"
	ResponseCancelled ResponseStatus = "Cancelled"
)

func (s ResponseStatus) String() string {
	return string(s)
}

// Bid offers one stage record to manufacturers. Price is a snapshot taken
// when the bid was opened.
type Bid struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	ModuleType  stage.Kind      `json:"moduleType"`
	ModuleID    uuid.UUID       `json:"moduleId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Owner *user.User `json:"owner,omitempty"`
}

type Response struct {
	ID             uuid.UUID       `json:"id"`
	BidID          uuid.UUID       `json:"bidId"`
	ManufacturerID uuid.UUID       `json:"manufacturerId"`
	Price          decimal.Decimal `json:"price"`
	Message        string          `json:"message"`
	MachineID      uuid.UUID       `json:"machineId"`
	Deadline       time.Time       `json:"deadline"`
	Status         ResponseStatus  `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type CreateBidInput struct {
	UserID      uuid.UUID
	ModuleType  string
	ModuleID    uuid.UUID
	Title       string
	Description string
	Price       decimal.Decimal
	// Status defaults to Active.
	Status Status
}

// EditBidInput carries only the fields to change; nil keeps the stored value.
type EditBidInput struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Status      *Status
}

type CreateResponseInput struct {
	BidID     uuid.UUID
	Price     decimal.Decimal
	Message   string
	MachineID uuid.UUID
	Deadline  time.Time
}
