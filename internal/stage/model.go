package stage

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Attributes are the garment attributes of a project that drive stage costs.
type Attributes struct {
	ShirtType         string
	FabricCategory    string
	FabricSubCategory string
	FabricSize        string
	LogoPosition      string
	PrintingStyle     string
	LogoSize          string
	CuttingStyle      string
	Quantity          int

	// FabricKg is the fabric requirement computed by the fabric quantity stage.
	FabricKg decimal.Decimal
}

// HasLogo reports whether all three logo attributes are present.
func (a Attributes) HasLogo() bool {
	return strings.TrimSpace(a.LogoPosition) != "" &&
		strings.TrimSpace(a.PrintingStyle) != "" &&
		strings.TrimSpace(a.LogoSize) != ""
}

// Drivers holds the stage-specific columns of a record. Each kind uses a subset.
type Drivers struct {
	ShirtType         string          `json:"shirtType,omitempty"`
	FabricSize        string          `json:"fabricSize,omitempty"`
	FabricCategory    string          `json:"fabricCategory,omitempty"`
	FabricSubCategory string          `json:"fabricSubCategory,omitempty"`
	CuttingStyle      string          `json:"cuttingStyle,omitempty"`
	LogoPosition      string          `json:"logoPosition,omitempty"`
	PrintingMethod    string          `json:"printingMethod,omitempty"`
	LogoSize          string          `json:"logoSize,omitempty"`
	Quantity          int             `json:"quantity,omitempty"`
	KgPerPiece        decimal.Decimal `json:"kgPerPiece"`
	FabricKg          decimal.Decimal `json:"fabricKg"`
	Rate              decimal.Decimal `json:"rate"`
}

// Record is one stage cost computation owned by a project.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID uuid.UUID       `json:"projectId"`
	Kind      Kind            `json:"moduleType"`
	Drivers   Drivers         `json:"drivers"`
	Cost      decimal.Decimal `json:"cost"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Outcome is what a calculator reports back to the orchestrator.
type Outcome struct {
	RecordID uuid.UUID
	Cost     decimal.Decimal
	FabricKg decimal.Decimal
	Changed  bool
}
