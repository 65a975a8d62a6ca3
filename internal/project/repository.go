package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/user"
)

const projectPrimaryKey = "projects_pkey"

type Repository interface {
	Create(ctx context.Context, q db.Querier, p *Project) error
	Exists(ctx context.Context, q db.Querier, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Project, error)
	// GetForUpdate locks the project row until the transaction ends.
	GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*Project, error)
	// Update writes the attributes, status and total of p.
	Update(ctx context.Context, q db.Querier, p *Project) error
	SetStatus(ctx context.Context, q db.Querier, id uuid.UUID, status Status) error
	ListByUser(ctx context.Context, q db.Querier, userID uuid.UUID) ([]Project, error)
}

type postgresRepository struct{}

func NewRepository() Repository {
	return &postgresRepository{}
}

const projectColumns = `id, user_id, status, shirt_type, fabric_category, fabric_sub_category, fabric_size,
	logo_position, printing_style, logo_size, cutting_style, quantity, COALESCE(total_estimated_cost, 0), created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, q db.Querier, p *Project) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate project ID: %w", err)
		}
		p.ID = id
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	query := `
		INSERT INTO projects (id, user_id, status, shirt_type, fabric_category, fabric_sub_category, fabric_size,
			logo_position, printing_style, logo_size, cutting_style, quantity, total_estimated_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := q.Exec(ctx, query,
		p.ID,
		p.UserID,
		string(p.Status),
		p.ShirtType,
		p.FabricCategory,
		p.FabricSubCategory,
		p.FabricSize,
		p.LogoPosition,
		p.PrintingStyle,
		p.LogoSize,
		p.CuttingStyle,
		p.Quantity,
		p.TotalEstimatedCost,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err, projectPrimaryKey) {
			return ErrDuplicateProject
		}
		if db.IsForeignKeyViolation(err) {
			return user.ErrUserNotFound
		}
		return fmt.Errorf("repository: failed to insert project: %w", err)
	}
	return nil
}

func (r *postgresRepository) Exists(ctx context.Context, q db.Querier, id uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check project %s: %w", id, err)
	}
	return exists, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Project, error) {
	return r.get(ctx, q, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
}

func (r *postgresRepository) GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*Project, error) {
	return r.get(ctx, q, `SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresRepository) get(ctx context.Context, q db.Querier, query string, id uuid.UUID) (*Project, error) {
	p, err := scanProject(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("repository: failed to select project by id %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresRepository) Update(ctx context.Context, q db.Querier, p *Project) error {
	p.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE projects
		SET status = $1, shirt_type = $2, fabric_category = $3, fabric_sub_category = $4, fabric_size = $5,
			logo_position = $6, printing_style = $7, logo_size = $8, cutting_style = $9, quantity = $10,
			total_estimated_cost = $11, updated_at = $12
		WHERE id = $13
	`
	tag, err := q.Exec(ctx, query,
		string(p.Status),
		p.ShirtType,
		p.FabricCategory,
		p.FabricSubCategory,
		p.FabricSize,
		p.LogoPosition,
		p.PrintingStyle,
		p.LogoSize,
		p.CuttingStyle,
		p.Quantity,
		p.TotalEstimatedCost,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update project %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *postgresRepository) SetStatus(ctx context.Context, q db.Querier, id uuid.UUID, status Status) error {
	tag, err := q.Exec(ctx, `UPDATE projects SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update status of project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, q db.Querier, userID uuid.UUID) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1 AND status <> $2 ORDER BY created_at DESC`
	rows, err := q.Query(ctx, query, userID, string(StatusInactive))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query projects of user %s: %w", userID, err)
	}

	projects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Project, error) {
		p, err := scanProject(row)
		if err != nil {
			return Project{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan projects of user %s: %w", userID, err)
	}
	return projects, nil
}

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Status,
		&p.ShirtType,
		&p.FabricCategory,
		&p.FabricSubCategory,
		&p.FabricSize,
		&p.LogoPosition,
		&p.PrintingStyle,
		&p.LogoSize,
		&p.CuttingStyle,
		&p.Quantity,
		&p.TotalEstimatedCost,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
