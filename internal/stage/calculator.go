package stage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
	"github.com/vasiliy-maslov/garment-costing/internal/config"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/rate"
	"github.com/vasiliy-maslov/garment-costing/internal/reference"
)

var ErrRecordInactive = apperr.New(apperr.Forbidden, "stage record is inactive")

// Calculator is the capability set of one stage kind. All methods run on the
// caller's transaction.
type Calculator interface {
	Kind() Kind
	Create(ctx context.Context, q db.Querier, projectID uuid.UUID, attrs Attributes) (Outcome, error)
	Edit(ctx context.Context, q db.Querier, projectID uuid.UUID, attrs Attributes) (Outcome, error)
	ModuleCost(ctx context.Context, q db.Querier, projectID uuid.UUID) (decimal.Decimal, error)
	// UpdateStatus returns the updated record and the status it had before.
	UpdateStatus(ctx context.Context, q db.Querier, recordID uuid.UUID, status Status) (*Record, Status, error)
}

// pricer holds what differs between stage kinds.
type pricer interface {
	// applies is false for an optional stage the attributes do not ask for.
	applies(a Attributes) bool
	drivers(a Attributes) Drivers
	// price fills the derived drivers and returns the unrounded cost.
	price(ctx context.Context, q db.Querier, d *Drivers) (decimal.Decimal, error)
	same(stored, next Drivers) bool
}

type calculator struct {
	kind   Kind
	store  Store
	pricer pricer
}

// Calculators is ordered for orchestration: fabric quantity runs first because
// fabric pricing consumes its fabric weight.
type Calculators []Calculator

func NewCalculators(refs reference.Store, store Store, cfg config.PricingConfig) Calculators {
	pricers := map[Kind]pricer{
		FabricQuantity: &fabricQuantityPricer{refs: refs},
		FabricPricing:  &fabricPricingPricer{refs: refs},
		LogoPrinting:   &logoPrintingPricer{refs: refs},
		Cutting:        &cuttingPricer{refs: refs, unitPrice: cfg.CuttingPatternUnitPrice},
		Stitching:      &stitchingPricer{refs: refs},
		Packaging:      &packagingPricer{refs: refs},
	}

	calcs := make(Calculators, 0, len(Kinds))
	for _, kind := range Kinds {
		calcs = append(calcs, &calculator{kind: kind, store: store, pricer: pricers[kind]})
	}
	return calcs
}

func (c Calculators) For(kind Kind) (Calculator, error) {
	for _, calc := range c {
		if calc.Kind() == kind {
			return calc, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", kind, ErrInvalidKind)
}

func (c *calculator) Kind() Kind {
	return c.kind
}

func (c *calculator) Create(ctx context.Context, q db.Querier, projectID uuid.UUID, attrs Attributes) (Outcome, error) {
	if !c.pricer.applies(attrs) {
		return Outcome{Cost: decimal.Zero}, nil
	}

	exists, err := c.store.ProjectExists(ctx, q, projectID)
	if err != nil {
		return Outcome{}, err
	}
	if !exists {
		log.Warn().Stringer("project_id", projectID).Stringer("kind", c.kind).Msg("stage: project not found for create")
		return Outcome{}, ErrProjectNotFound
	}

	rec := &Record{
		ProjectID: projectID,
		Kind:      c.kind,
		Drivers:   c.pricer.drivers(attrs),
		Status:    StatusDraft,
	}
	if err := c.compute(ctx, q, rec); err != nil {
		return Outcome{}, err
	}

	if err := c.store.Insert(ctx, q, rec); err != nil {
		return Outcome{}, err
	}

	log.Debug().Stringer("record_id", rec.ID).Stringer("kind", c.kind).Str("cost", rec.Cost.StringFixed(2)).Msg("stage: record created")
	return outcomeOf(rec, true), nil
}

func (c *calculator) Edit(ctx context.Context, q db.Querier, projectID uuid.UUID, attrs Attributes) (Outcome, error) {
	stored, err := c.store.GetByProject(ctx, q, c.kind, projectID)
	if errors.Is(err, ErrRecordNotFound) {
		return c.Create(ctx, q, projectID, attrs)
	}
	if err != nil {
		return Outcome{}, err
	}

	if !c.pricer.applies(attrs) {
		if stored.Status == StatusInactive {
			return Outcome{RecordID: stored.ID, Cost: decimal.Zero}, nil
		}
		if err := c.store.SetStatus(ctx, q, c.kind, stored.ID, StatusInactive); err != nil {
			return Outcome{}, err
		}
		log.Info().Stringer("record_id", stored.ID).Stringer("kind", c.kind).Msg("stage: optional record deactivated")
		return Outcome{RecordID: stored.ID, Cost: decimal.Zero, Changed: true}, nil
	}

	next := c.pricer.drivers(attrs)
	if stored.Status != StatusInactive && c.pricer.same(stored.Drivers, next) {
		// Cost and updated_at stay as stored; only a posted or active status drops back to draft.
		if stored.Status != StatusDraft {
			if err := c.store.ResetDraft(ctx, q, c.kind, stored.ID); err != nil {
				return Outcome{}, err
			}
			stored.Status = StatusDraft
		}
		return outcomeOf(stored, false), nil
	}

	stored.Drivers = next
	stored.Status = StatusDraft
	if err := c.compute(ctx, q, stored); err != nil {
		return Outcome{}, err
	}
	if err := c.store.Update(ctx, q, stored); err != nil {
		return Outcome{}, err
	}

	log.Debug().Stringer("record_id", stored.ID).Stringer("kind", c.kind).Str("cost", stored.Cost.StringFixed(2)).Msg("stage: record recomputed")
	return outcomeOf(stored, true), nil
}

func (c *calculator) ModuleCost(ctx context.Context, q db.Querier, projectID uuid.UUID) (decimal.Decimal, error) {
	rec, err := c.store.GetByProject(ctx, q, c.kind, projectID)
	if err != nil {
		return decimal.Zero, err
	}
	if rec.Status == StatusInactive {
		return decimal.Zero, nil
	}
	return rec.Cost, nil
}

func (c *calculator) UpdateStatus(ctx context.Context, q db.Querier, recordID uuid.UUID, status Status) (*Record, Status, error) {
	rec, err := c.store.GetByID(ctx, q, c.kind, recordID)
	if err != nil {
		return nil, "", err
	}

	prev := rec.Status
	if prev == StatusInactive && status != StatusInactive {
		return nil, prev, ErrRecordInactive
	}
	if prev == status {
		return rec, prev, nil
	}

	if err := c.store.SetStatus(ctx, q, c.kind, recordID, status); err != nil {
		return nil, prev, err
	}
	rec.Status = status
	return rec, prev, nil
}

func (c *calculator) compute(ctx context.Context, q db.Querier, rec *Record) error {
	cost, err := c.pricer.price(ctx, q, &rec.Drivers)
	if err != nil {
		log.Warn().Err(err).Stringer("project_id", rec.ProjectID).Stringer("kind", c.kind).Msg("stage: failed to price record")
		return fmt.Errorf("%s: %w", c.kind, err)
	}
	rec.Cost = cost.Round(2)
	return nil
}

func outcomeOf(rec *Record, changed bool) Outcome {
	return Outcome{
		RecordID: rec.ID,
		Cost:     rec.Cost,
		FabricKg: rec.Drivers.FabricKg,
		Changed:  changed,
	}
}

func sameKey(a, b string) bool {
	return rate.NormalizeKey(a) == rate.NormalizeKey(b)
}
