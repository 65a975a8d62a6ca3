package project

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/stage"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) String() string {
	return string(s)
}

type Project struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"userId"`
	Status             Status          `json:"status"`
	ShirtType          string          `json:"shirtType"`
	FabricCategory     string          `json:"fabricCategory"`
	FabricSubCategory  string          `json:"fabricSubCategory"`
	FabricSize         string          `json:"fabricSize"`
	LogoPosition       string          `json:"logoPosition"`
	PrintingStyle      string          `json:"printingStyle"`
	LogoSize           string          `json:"logoSize"`
	CuttingStyle       string          `json:"cuttingStyle"`
	Quantity           int             `json:"quantity"`
	TotalEstimatedCost decimal.Decimal `json:"totalEstimatedCost"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`

	Records []stage.Record `json:"stageRecords,omitempty"`
}

// Attributes returns the cost drivers of the project.
func (p *Project) Attributes() stage.Attributes {
	return stage.Attributes{
		ShirtType:         p.ShirtType,
		FabricCategory:    p.FabricCategory,
		FabricSubCategory: p.FabricSubCategory,
		FabricSize:        p.FabricSize,
		LogoPosition:      p.LogoPosition,
		PrintingStyle:     p.PrintingStyle,
		LogoSize:          p.LogoSize,
		CuttingStyle:      p.CuttingStyle,
		Quantity:          p.Quantity,
	}
}

type CreateProjectInput struct {
	// ID makes creation idempotent: a second create with the same ID fails
	// with ErrDuplicateProject.
	ID                *uuid.UUID
	UserID            uuid.UUID
	ShirtType         string
	FabricCategory    string
	FabricSubCategory string
	FabricSize        string
	LogoPosition      string
	PrintingStyle     string
	LogoSize          string
	CuttingStyle      string
	Quantity          int
}

// EditProjectInput is a partial update. Setting the three logo fields to ""
// removes the logo.
type EditProjectInput struct {
	ShirtType         *string
	FabricCategory    *string
	FabricSubCategory *string
	FabricSize        *string
	LogoPosition      *string
	PrintingStyle     *string
	LogoSize          *string
	CuttingStyle      *string
	Quantity          *int
}

// apply copies the present fields onto p and reports whether anything changed.
func (in EditProjectInput) apply(p *Project) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src == nil {
			return
		}
		if v := strings.TrimSpace(*src); *dst != v {
			*dst = v
			changed = true
		}
	}
	set(&p.ShirtType, in.ShirtType)
	set(&p.FabricCategory, in.FabricCategory)
	set(&p.FabricSubCategory, in.FabricSubCategory)
	set(&p.FabricSize, in.FabricSize)
	set(&p.LogoPosition, in.LogoPosition)
	set(&p.PrintingStyle, in.PrintingStyle)
	set(&p.LogoSize, in.LogoSize)
	set(&p.CuttingStyle, in.CuttingStyle)
	if in.Quantity != nil && p.Quantity != *in.Quantity {
		p.Quantity = *in.Quantity
		changed = true
	}
	return changed
}
