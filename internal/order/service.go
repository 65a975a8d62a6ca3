package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/user"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusInProgress: true,
		StatusCancelled:  true,
		StatusDeleted:    true,
	},
	StatusInProgress: {
		StatusCompleted: true,
		StatusCancelled: true,
		StatusDeleted:   true,
	},
	StatusCompleted: {
		StatusDeleted: true,
	},
	StatusCancelled: {
		StatusDeleted: true,
	},
	StatusDeleted: {},
}

var (
	ErrBidNotFound             = apperr.New(apperr.NotFound, "bid not found")
	ErrMachineNotOwned         = apperr.New(apperr.InvalidInput, "machine does not belong to the manufacturer")
	ErrInvalidStatus           = apperr.New(apperr.InvalidInput, "invalid order status")
	ErrInvalidInput            = apperr.New(apperr.InvalidInput, "invalid order input")
	ErrInvalidStatusTransition = apperr.New(apperr.Conflict, "invalid order status transition")
)

// Service is the order factory. CreateOrderTx joins the caller's transaction;
// the other methods open their own.
type Service interface {
	CreateOrder(ctx context.Context, in CreateInput) (*Order, error)
	CreateOrderTx(ctx context.Context, q db.Querier, in CreateInput) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type service struct {
	pool  db.Querier
	tx    db.Transactor
	repo  Repository
	users user.Repository
	now   func() time.Time
}

func NewService(pool db.Querier, tx db.Transactor, repo Repository, users user.Repository) Service {
	return &service{
		pool:  pool,
		tx:    tx,
		repo:  repo,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateOrder(ctx context.Context, in CreateInput) (*Order, error) {
	var created *Order
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		o, err := s.CreateOrderTx(ctx, q, in)
		created = o
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) CreateOrderTx(ctx context.Context, q db.Querier, in CreateInput) (*Order, error) {
	if in.Deadline.IsZero() {
		log.Warn().Stringer("bid_id", in.BidID).Msg("service: order without deadline")
		return nil, fmt.Errorf("deadline is required: %w", ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	if _, ok := allowedTransitions[status]; !ok || status == StatusDeleted {
		return nil, fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}

	exists, err := s.repo.BidExists(ctx, q, in.BidID)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Warn().Stringer("bid_id", in.BidID).Msg("service: bid not found for order")
		return nil, ErrBidNotFound
	}

	if _, err := s.users.GetByID(ctx, q, in.ExporterID); err != nil {
		log.Warn().Err(err).Stringer("exporter_id", in.ExporterID).Msg("service: exporter lookup failed")
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, q, in.ManufacturerID); err != nil {
		log.Warn().Err(err).Stringer("manufacturer_id", in.ManufacturerID).Msg("service: manufacturer lookup failed")
		return nil, err
	}
	machine, err := s.users.GetMachine(ctx, q, in.MachineID)
	if err != nil {
		log.Warn().Err(err).Stringer("machine_id", in.MachineID).Msg("service: machine lookup failed")
		return nil, err
	}
	if machine.ManufacturerID != in.ManufacturerID {
		return nil, ErrMachineNotOwned
	}

	o := &Order{
		BidID:          in.BidID,
		ExporterID:     in.ExporterID,
		ManufacturerID: in.ManufacturerID,
		MachineID:      in.MachineID,
		Status:         status,
		Deadline:       in.Deadline,
	}
	if err := s.repo.Create(ctx, q, o); err != nil {
		if errors.Is(err, ErrOrderExists) {
			log.Warn().Stringer("bid_id", in.BidID).Msg("service: order already exists for bid")
			return nil, ErrOrderExists
		}
		log.Error().Err(err).Stringer("bid_id", in.BidID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Stringer("bid_id", o.BidID).Msg("service: order created")
	return o, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, s.pool, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, s.pool, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error) {
	var updated *Order
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		current, err := s.repo.GetByID(ctx, q, id)
		if err != nil {
			return err
		}

		if current.Status == status {
			log.Info().Stringer("order_id", id).Stringer("status", status).Msg("service: order status is already the same, no update needed")
			updated = current
			return nil
		}

		transitions, ok := allowedTransitions[current.Status]
		if !ok || !transitions[status] {
			log.Warn().
				Stringer("order_id", id).
				Stringer("current_status", current.Status).
				Stringer("new_status", status).
				Msg("service: invalid status transition attempt")
			return fmt.Errorf("from %s to %s: %w", current.Status, status, ErrInvalidStatusTransition)
		}

		var completedAt *time.Time
		if status == StatusCompleted {
			now := s.now()
			completedAt = &now
			current.CompletionDate = completedAt
		}

		if err := s.repo.UpdateStatus(ctx, q, id, status, completedAt); err != nil {
			return err
		}

		log.Info().Stringer("order_id", id).Stringer("old_status", current.Status).Stringer("new_status", status).Msg("service: order status updated")
		current.Status = status
		updated = current
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.Internal {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Stringer("new_status", status).Msg("service: failed to update order status")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}
	return updated, nil
}

// DeleteOrder is a soft delete; the row is kept with status deleted.
func (s *service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := s.UpdateOrderStatus(ctx, id, StatusDeleted)
	return err
}
