package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
)

var (
	ErrUserNotFound         = apperr.New(apperr.NotFound, "user not found")
	ErrManufacturerNotFound = apperr.New(apperr.NotFound, "manufacturer not found")
	ErrMachineNotFound      = apperr.New(apperr.NotFound, "machine not found")
)

// Repository looks up identities and machines on the caller's querier.
type Repository interface {
	GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*User, error)
	// GetManufacturer fails with ErrManufacturerNotFound unless the user exists
	// and has the manufacturer role.
	GetManufacturer(ctx context.Context, q db.Querier, id uuid.UUID) (*User, error)
	GetMachine(ctx context.Context, q db.Querier, id uuid.UUID) (*Machine, error)
}

type postgresRepository struct{}

func NewRepository() Repository {
	return &postgresRepository{}
}

func (r *postgresRepository) GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u User
	err := q.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user by id %s: %w", id, err)
	}

	return &u, nil
}

func (r *postgresRepository) GetManufacturer(ctx context.Context, q db.Querier, id uuid.UUID) (*User, error) {
	u, err := r.GetByID(ctx, q, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrManufacturerNotFound
		}
		return nil, err
	}
	if u.Role != RoleManufacturer {
		return nil, ErrManufacturerNotFound
	}
	return u, nil
}

func (r *postgresRepository) GetMachine(ctx context.Context, q db.Querier, id uuid.UUID) (*Machine, error) {
	query := `
		SELECT id, manufacturer_id, name, machine_type, created_at
		FROM machines
		WHERE id = $1
	`

	var m Machine
	err := q.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.ManufacturerID,
		&m.Name,
		&m.MachineType,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMachineNotFound
		}
		return nil, fmt.Errorf("repository: failed to select machine by id %s: %w", id, err)
	}

	return &m, nil
}
