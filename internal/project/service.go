package project

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/stage"
	"github.com/vasiliy-maslov/garment-costing/internal/user"
)

var (
	// ErrProjectNotFound is shared with the stage package so both layers
	// report a missing project the same way.
	ErrProjectNotFound  = stage.ErrProjectNotFound
	ErrDuplicateProject = apperr.New(apperr.Conflict, "project already exists")
	ErrProjectInactive  = apperr.New(apperr.Forbidden, "project is inactive")
	ErrInvalidInput     = apperr.New(apperr.InvalidInput, "invalid project input")
)

// Service orchestrates the stage calculators. Create and Edit run every
// calculator in one transaction; any failure leaves nothing behind.
type Service interface {
	CreateProject(ctx context.Context, in CreateProjectInput) (*Project, error)
	EditProject(ctx context.Context, id uuid.UUID, in EditProjectInput) (*Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error
	GetProjectByID(ctx context.Context, id uuid.UUID) (*Project, error)
	ListUserProjects(ctx context.Context, userID uuid.UUID) ([]Project, error)
}

type service struct {
	pool   db.Querier
	tx     db.Transactor
	repo   Repository
	stages stage.Store
	calcs  stage.Calculators
	users  user.Repository
}

func NewService(pool db.Querier, tx db.Transactor, repo Repository, stages stage.Store, calcs stage.Calculators, users user.Repository) Service {
	return &service{
		pool:   pool,
		tx:     tx,
		repo:   repo,
		stages: stages,
		calcs:  calcs,
		users:  users,
	}
}

func (s *service) CreateProject(ctx context.Context, in CreateProjectInput) (*Project, error) {
	p := &Project{
		UserID:            in.UserID,
		Status:            StatusPending,
		ShirtType:         strings.TrimSpace(in.ShirtType),
		FabricCategory:    strings.TrimSpace(in.FabricCategory),
		FabricSubCategory: strings.TrimSpace(in.FabricSubCategory),
		FabricSize:        strings.TrimSpace(in.FabricSize),
		LogoPosition:      strings.TrimSpace(in.LogoPosition),
		PrintingStyle:     strings.TrimSpace(in.PrintingStyle),
		LogoSize:          strings.TrimSpace(in.LogoSize),
		CuttingStyle:      strings.TrimSpace(in.CuttingStyle),
		Quantity:          in.Quantity,
	}
	if in.ID != nil {
		p.ID = *in.ID
	}
	if err := validate(p); err != nil {
		log.Warn().Err(err).Stringer("user_id", in.UserID).Msg("service: invalid project input")
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		if _, err := s.users.GetByID(ctx, q, p.UserID); err != nil {
			return err
		}

		if p.ID != uuid.Nil {
			exists, err := s.repo.Exists(ctx, q, p.ID)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateProject
			}
		}

		p.TotalEstimatedCost = decimal.Zero
		if err := s.repo.Create(ctx, q, p); err != nil {
			return err
		}

		total, _, err := s.run(ctx, q, p, stage.Calculator.Create)
		if err != nil {
			return err
		}

		p.TotalEstimatedCost = total
		p.Status = StatusActive
		if err := s.repo.Update(ctx, q, p); err != nil {
			return err
		}

		records, err := s.stages.ListByProject(ctx, q, p.ID)
		if err != nil {
			return err
		}
		p.Records = records
		return nil
	})
	if err != nil {
		return nil, s.classify(err, p.ID, "failed to create project")
	}

	log.Info().
		Stringer("project_id", p.ID).
		Stringer("user_id", p.UserID).
		Str("total_estimated_cost", p.TotalEstimatedCost.StringFixed(2)).
		Msg("service: project created")
	return p, nil
}

func (s *service) EditProject(ctx context.Context, id uuid.UUID, in EditProjectInput) (*Project, error) {
	var edited *Project
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		p, err := s.repo.GetForUpdate(ctx, q, id)
		if err != nil {
			return err
		}
		if p.Status == StatusInactive {
			return ErrProjectInactive
		}

		attrsChanged := in.apply(p)
		if err := validate(p); err != nil {
			return err
		}

		total, stagesChanged, err := s.run(ctx, q, p, stage.Calculator.Edit)
		if err != nil {
			return err
		}

		if attrsChanged || stagesChanged || !total.Equal(p.TotalEstimatedCost) {
			p.TotalEstimatedCost = total
			if err := s.repo.Update(ctx, q, p); err != nil {
				return err
			}
		} else {
			log.Info().Stringer("project_id", id).Msg("service: project attributes are the same, no update needed")
		}

		records, err := s.stages.ListByProject(ctx, q, p.ID)
		if err != nil {
			return err
		}
		p.Records = records
		edited = p
		return nil
	})
	if err != nil {
		return nil, s.classify(err, id, "failed to edit project")
	}

	log.Info().
		Stringer("project_id", id).
		Str("total_estimated_cost", edited.TotalEstimatedCost.StringFixed(2)).
		Msg("service: project edited")
	return edited, nil
}

// DeleteProject is a soft delete cascading to every stage table. Deleting an
// inactive project is acknowledged without writes.
func (s *service) DeleteProject(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		p, err := s.repo.GetForUpdate(ctx, q, id)
		if err != nil {
			return err
		}
		if p.Status == StatusInactive {
			log.Info().Stringer("project_id", id).Msg("service: project is already inactive, no update needed")
			return nil
		}

		if err := s.repo.SetStatus(ctx, q, id, StatusInactive); err != nil {
			return err
		}
		return s.stages.DeactivateByProject(ctx, q, id)
	})
	if err != nil {
		return s.classify(err, id, "failed to delete project")
	}

	log.Info().Stringer("project_id", id).Msg("service: project deleted")
	return nil
}

func (s *service) GetProjectByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	p, err := s.repo.GetByID(ctx, s.pool, id)
	if err != nil {
		return nil, s.classify(err, id, "failed to fetch project by id")
	}

	records, err := s.stages.ListByProject(ctx, s.pool, id)
	if err != nil {
		return nil, s.classify(err, id, "failed to fetch project stage records")
	}
	p.Records = records
	return p, nil
}

func (s *service) ListUserProjects(ctx context.Context, userID uuid.UUID) ([]Project, error) {
	projects, err := s.repo.ListByUser(ctx, s.pool, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user projects in repository")
		return nil, fmt.Errorf("service: failed to fetch user projects: %w", err)
	}
	return projects, nil
}

type stageStep func(c stage.Calculator, ctx context.Context, q db.Querier, projectID uuid.UUID, attrs stage.Attributes) (stage.Outcome, error)

// run applies step to every calculator in order and returns the sum of the
// reported costs. The fabric weight from the quantity stage feeds the stages after it.
func (s *service) run(ctx context.Context, q db.Querier, p *Project, step stageStep) (decimal.Decimal, bool, error) {
	attrs := p.Attributes()
	total := decimal.Zero
	changed := false

	for _, calc := range s.calcs {
		out, err := step(calc, ctx, q, p.ID, attrs)
		if err != nil {
			log.Warn().Err(err).Stringer("project_id", p.ID).Stringer("kind", calc.Kind()).Msg("service: stage calculation failed")
			return decimal.Zero, false, err
		}
		if calc.Kind() == stage.FabricQuantity && !out.FabricKg.IsZero() {
			attrs.FabricKg = out.FabricKg
		}
		total = total.Add(out.Cost)
		changed = changed || out.Changed
	}
	return total, changed, nil
}

func validate(p *Project) error {
	required := []struct{ field, value string }{
		{"shirtType", p.ShirtType},
		{"fabricCategory", p.FabricCategory},
		{"fabricSubCategory", p.FabricSubCategory},
		{"fabricSize", p.FabricSize},
		{"cuttingStyle", p.CuttingStyle},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required: %w", r.field, ErrInvalidInput)
		}
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	return nil
}

func (s *service) classify(err error, id uuid.UUID, msg string) error {
	if apperr.KindOf(err) != apperr.Internal {
		log.Warn().Err(err).Stringer("project_id", id).Msg("service: " + msg)
		return err
	}
	log.Error().Err(err).Stringer("project_id", id).Msg("service: " + msg)
	return fmt.Errorf("service: %s: %w", msg, err)
}
