package stage

import (
	"fmt"
	"strings"

	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
)

// Kind identifies one production stage. Its string form is the bid module_type tag.
type Kind string

const (
	FabricPricing  Kind = "FabricPricing"
	FabricQuantity Kind = "FabricQuantity"
	Cutting        Kind = "Cutting"
	LogoPrinting   Kind = "LogoPrinting"
	Packaging      Kind = "Packaging"
	Stitching      Kind = "Stitching"
)

// Kinds is the cascade list: every stage table owned by a project.
var Kinds = []Kind{FabricQuantity, FabricPricing, LogoPrinting, Cutting, Stitching, Packaging}

var ErrInvalidKind = apperr.New(apperr.InvalidInput, "invalid module type")

func (k Kind) String() string {
	return string(k)
}

func (k Kind) Valid() bool {
	_, ok := tables[k]
	return ok
}

// ParseKind accepts the canonical tag case-insensitively ("cutting", "LogoPrinting").
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidKind)
}

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusPosted   Status = "posted"
	StatusInactive Status = "inactive"
)

var ErrInvalidStatus = apperr.New(apperr.InvalidInput, "invalid stage status")

func (s Status) String() string {
	return string(s)
}

// ParseStatus is case-insensitive, so "Posted" and "posted" are the same status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusDraft, StatusActive, StatusPosted, StatusInactive:
		return st, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidStatus)
	}
}
