package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
)

const bidUniqueConstraint = "orders_bid_id_key"

var (
	ErrOrderNotFound = apperr.New(apperr.NotFound, "order not found")
	ErrOrderExists   = apperr.New(apperr.Conflict, "an order already exists for this bid")
)

type Repository interface {
	Create(ctx context.Context, q db.Querier, o *Order) error
	GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, q db.Querier, userID uuid.UUID) ([]Order, error)
	UpdateStatus(ctx context.Context, q db.Querier, id uuid.UUID, status Status, completedAt *time.Time) error
	BidExists(ctx context.Context, q db.Querier, bidID uuid.UUID) (bool, error)
}

type postgresRepository struct{}

func NewRepository() Repository {
	return &postgresRepository{}
}

func (r *postgresRepository) Create(ctx context.Context, q db.Querier, o *Order) error {
	if o.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			log.Error().Err(err).Msg("repository: failed to generate order ID")
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
		o.ID = id
	}

	now := time.Now().UTC()
	o.CreatedDate, o.UpdatedAt = now, now

	query := `
		INSERT INTO orders (id, bid_id, exporter_id, manufacturer_id, machine_id, status, created_date, completion_date, deadline, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.Exec(ctx, query,
		o.ID,
		o.BidID,
		o.ExporterID,
		o.ManufacturerID,
		o.MachineID,
		string(o.Status),
		o.CreatedDate,
		o.CompletionDate,
		o.Deadline,
		o.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err, bidUniqueConstraint) {
			return ErrOrderExists
		}
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Order, error) {
	query := `
		SELECT id, bid_id, exporter_id, manufacturer_id, machine_id, status, created_date, completion_date, deadline, updated_at
		FROM orders
		WHERE id = $1
	`

	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}
	return o, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, q db.Querier, userID uuid.UUID) ([]Order, error) {
	query := `
		SELECT id, bid_id, exporter_id, manufacturer_id, machine_id, status, created_date, completion_date, deadline, updated_at
		FROM orders
		WHERE (exporter_id = $1 OR manufacturer_id = $1) AND status <> $2
		ORDER BY created_date DESC
	`

	rows, err := q.Query(ctx, query, userID, string(StatusDeleted))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %s: %w", userID, err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		o, err := scanOrder(row)
		if err != nil {
			return Order{}, err
		}
		return *o, nil
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan orders for user %s: %w", userID, err)
	}
	return orders, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, q db.Querier, id uuid.UUID, status Status, completedAt *time.Time) error {
	query := `
		UPDATE orders
		SET status = $1, completion_date = COALESCE($2, completion_date), updated_at = $3
		WHERE id = $4
	`
	tag, err := q.Exec(ctx, query, string(status), completedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update status of order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) BidExists(ctx context.Context, q db.Querier, bidID uuid.UUID) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bids WHERE id = $1)`, bidID).Scan(&exists); err != nil {
		return false, fmt.Errorf("repository: failed to check bid %s: %w", bidID, err)
	}
	return exists, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.BidID,
		&o.ExporterID,
		&o.ManufacturerID,
		&o.MachineID,
		&o.Status,
		&o.CreatedDate,
		&o.CompletionDate,
		&o.Deadline,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
