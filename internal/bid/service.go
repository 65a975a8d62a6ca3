package bid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/event"
	"github.com/vasiliy-maslov/garment-costing/internal/order"
	"github.com/vasiliy-maslov/garment-costing/internal/stage"
	"github.com/vasiliy-maslov/garment-costing/internal/user"
)

var (
	ErrBidNotFound        = apperr.New(apperr.NotFound, "bid not found")
	ErrModuleNotFound     = apperr.New(apperr.NotFound, "module record not found")
	ErrResponseNotFound   = apperr.New(apperr.NotFound, "bid response not found")
	ErrInvalidModuleType  = apperr.New(apperr.InvalidInput, "invalid module type")
	ErrInvalidStatus      = apperr.New(apperr.InvalidInput, "invalid bid status")
	ErrInvalidInput       = apperr.New(apperr.InvalidInput, "invalid bid input")
	ErrBidInactive        = apperr.New(apperr.Forbidden, "bid is inactive")
	ErrNotBidOwner        = apperr.New(apperr.Forbidden, "bid belongs to another user")
	ErrNotResponseOwner   = apperr.New(apperr.Forbidden, "response belongs to another manufacturer")
	ErrDuplicateResponse  = apperr.New(apperr.Conflict, "manufacturer already responded to this bid")
	ErrResponseNotPending = apperr.New(apperr.Conflict, "bid response is no longer pending")
)

type Service interface {
	CreateBid(ctx context.Context, in CreateBidInput) (*Bid, error)
	// PostBid opens an active bid on the caller's transaction. Events are left
	// to the caller, which publishes them after its commit.
	PostBid(ctx context.Context, q db.Querier, req stage.PostRequest) (uuid.UUID, error)
	// EditBid and DeactivateBid are allowed to the bid owner only.
	EditBid(ctx context.Context, callerID, bidID uuid.UUID, in EditBidInput) (*Bid, error)
	DeactivateBid(ctx context.Context, callerID, bidID uuid.UUID) (*Bid, error)
	GetAllBids(ctx context.Context) ([]Bid, error)
	GetBidByID(ctx context.Context, bidID uuid.UUID) (*Bid, error)
	ListUserBids(ctx context.Context, userID uuid.UUID) ([]Bid, error)

	CreateBidResponse(ctx context.Context, manufacturerID uuid.UUID, in CreateResponseInput) (*Response, error)
	ListResponses(ctx context.Context, bidID uuid.UUID) ([]Response, error)
	// AcceptResponse turns the response into an order and spends the bid.
	AcceptResponse(ctx context.Context, exporterID, responseID uuid.UUID) (*order.Order, error)
	RejectResponse(ctx context.Context, exporterID, responseID uuid.UUID) (*Response, error)
	CancelResponse(ctx context.Context, manufacturerID, responseID uuid.UUID) (*Response, error)
}

type service struct {
	pool   db.Querier
	tx     db.Transactor
	repo   Repository
	stages stage.Store
	users  user.Repository
	orders order.Service
	events event.Publisher
}

func NewService(
	pool db.Querier,
	tx db.Transactor,
	repo Repository,
	stages stage.Store,
	users user.Repository,
	orders order.Service,
	events event.Publisher,
) Service {
	return &service{
		pool:   pool,
		tx:     tx,
		repo:   repo,
		stages: stages,
		users:  users,
		orders: orders,
		events: events,
	}
}

func (s *service) CreateBid(ctx context.Context, in CreateBidInput) (*Bid, error) {
	var created *Bid
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		b, err := s.create(ctx, q, in)
		created = b
		return err
	})
	if err != nil {
		return nil, s.classify(err, "failed to create bid")
	}

	s.events.Publish(ctx, event.New(event.BidPosted, uuid.Nil, created.ID, created.ModuleID, created.Price))
	return created, nil
}

func (s *service) PostBid(ctx context.Context, q db.Querier, req stage.PostRequest) (uuid.UUID, error) {
	b, err := s.create(ctx, q, CreateBidInput{
		UserID:      req.OwnerID,
		ModuleType:  req.ModuleType.String(),
		ModuleID:    req.ModuleID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Status:      StatusActive,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return b.ID, nil
}

func (s *service) create(ctx context.Context, q db.Querier, in CreateBidInput) (*Bid, error) {
	kind, err := stage.ParseKind(in.ModuleType)
	if err != nil {
		log.Warn().Str("module_type", in.ModuleType).Msg("service: bid with unknown module type")
		return nil, fmt.Errorf("%q: %w", in.ModuleType, ErrInvalidModuleType)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative: %w", ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = StatusActive
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, q, in.UserID); err != nil {
		log.Warn().Err(err).Stringer("user_id", in.UserID).Msg("service: bid owner lookup failed")
		return nil, err
	}

	exists, err := s.stages.Exists(ctx, q, kind, in.ModuleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Warn().Stringer("module_type", kind).Stringer("module_id", in.ModuleID).Msg("service: bid module record not found")
		return nil, ErrModuleNotFound
	}

	b := &Bid{
		UserID:      in.UserID,
		ModuleType:  kind,
		ModuleID:    in.ModuleID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Price:       in.Price.Round(2),
		Status:      status,
	}
	if err := s.repo.Create(ctx, q, b); err != nil {
		return nil, err
	}

	log.Info().Stringer("bid_id", b.ID).Stringer("module_type", kind).Stringer("module_id", b.ModuleID).Msg("service: bid created")
	return b, nil
}

func (s *service) EditBid(ctx context.Context, callerID, bidID uuid.UUID, in EditBidInput) (*Bid, error) {
	var edited *Bid
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		b, err := s.repo.GetForUpdate(ctx, q, bidID)
		if err != nil {
			return err
		}
		if b.UserID != callerID {
			return ErrNotBidOwner
		}
		if b.Status == StatusInactive {
			log.Warn().Stringer("bid_id", bidID).Msg("service: edit attempt on inactive bid")
			return ErrBidInactive
		}

		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return fmt.Errorf("title must not be empty: %w", ErrInvalidInput)
			}
			b.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			b.Description = *in.Description
		}
		if in.Price != nil {
			if in.Price.IsNegative() {
				return fmt.Errorf("price must not be negative: %w", ErrInvalidInput)
			}
			b.Price = in.Price.Round(2)
		}
		if in.Status != nil {
			status, err := ParseStatus(string(*in.Status))
			if err != nil {
				return err
			}
			b.Status = status
		}

		if err := s.repo.Update(ctx, q, b); err != nil {
			return err
		}
		edited = b
		return nil
	})
	if err != nil {
		return nil, s.classify(err, "failed to edit bid")
	}

	log.Info().Stringer("bid_id", bidID).Stringer("status", edited.Status).Msg("service: bid edited")
	return edited, nil
}

// DeactivateBid is idempotent.
func (s *service) DeactivateBid(ctx context.Context, callerID, bidID uuid.UUID) (*Bid, error) {
	var deactivated *Bid
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		b, err := s.repo.GetForUpdate(ctx, q, bidID)
		if err != nil {
			return err
		}
		if b.UserID != callerID {
			return ErrNotBidOwner
		}
		if b.Status == StatusInactive {
			log.Info().Stringer("bid_id", bidID).Msg("service: bid is already inactive, no update needed")
			deactivated = b
			return nil
		}
		if err := s.repo.SetStatus(ctx, q, bidID, StatusInactive); err != nil {
			return err
		}
		b.Status = StatusInactive
		deactivated = b
		return nil
	})
	if err != nil {
		return nil, s.classify(err, "failed to deactivate bid")
	}
	return deactivated, nil
}

func (s *service) GetAllBids(ctx context.Context) ([]Bid, error) {
	bids, err := s.repo.ListActive(ctx, s.pool)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch active bids in repository")
		return nil, fmt.Errorf("service: failed to fetch active bids: %w", err)
	}
	return bids, nil
}

func (s *service) GetBidByID(ctx context.Context, bidID uuid.UUID) (*Bid, error) {
	b, err := s.repo.GetByID(ctx, s.pool, bidID)
	if err != nil {
		if errors.Is(err, ErrBidNotFound) {
			log.Warn().Stringer("bid_id", bidID).Msg("service: bid not found by id")
			return nil, ErrBidNotFound
		}
		log.Error().Err(err).Stringer("bid_id", bidID).Msg("service: failed to fetch bid by id in repository")
		return nil, fmt.Errorf("service: failed to fetch bid by id: %w", err)
	}
	return b, nil
}

func (s *service) ListUserBids(ctx context.Context, userID uuid.UUID) ([]Bid, error) {
	bids, err := s.repo.ListByUser(ctx, s.pool, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user bids in repository")
		return nil, fmt.Errorf("service: failed to fetch user bids: %w", err)
	}
	return bids, nil
}

func (s *service) CreateBidResponse(ctx context.Context, manufacturerID uuid.UUID, in CreateResponseInput) (*Response, error) {
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative: %w", ErrInvalidInput)
	}
	if in.Deadline.IsZero() {
		return nil, fmt.Errorf("deadline is required: %w", ErrInvalidInput)
	}

	var (
		created *Response
		ownerID uuid.UUID
	)
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		// The bid row lock serialises responders on the same bid.
		b, err := s.repo.GetForUpdate(ctx, q, in.BidID)
		if err != nil {
			return err
		}
		if b.Status == StatusInactive {
			return ErrBidInactive
		}
		ownerID = b.UserID

		if _, err := s.users.GetManufacturer(ctx, q, manufacturerID); err != nil {
			return err
		}
		machine, err := s.users.GetMachine(ctx, q, in.MachineID)
		if err != nil {
			return err
		}
		if machine.ManufacturerID != manufacturerID {
			return order.ErrMachineNotOwned
		}

		existing, err := s.repo.FindResponse(ctx, q, in.BidID, manufacturerID)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Warn().
				Stringer("bid_id", in.BidID).
				Stringer("manufacturer_id", manufacturerID).
				Stringer("response_id", existing.ID).
				Msg("service: duplicate bid response")
			return ErrDuplicateResponse
		}

		resp := &Response{
			BidID:          in.BidID,
			ManufacturerID: manufacturerID,
			Price:          in.Price.Round(2),
			Message:        in.Message,
			MachineID:      in.MachineID,
			Deadline:       in.Deadline.UTC(),
			Status:         ResponsePending,
		}
		if err := s.repo.CreateResponse(ctx, q, resp); err != nil {
			return err
		}
		created = resp
		return nil
	})
	if err != nil {
		return nil, s.classify(err, "failed to create bid response")
	}

	log.Info().Stringer("response_id", created.ID).Stringer("bid_id", created.BidID).Msg("service: bid response created")
	s.events.Publish(ctx, event.New(event.ResponseReceived, ownerID, created.BidID, created.ID, created.Price))
	return created, nil
}

func (s *service) ListResponses(ctx context.Context, bidID uuid.UUID) ([]Response, error) {
	if _, err := s.GetBidByID(ctx, bidID); err != nil {
		return nil, err
	}
	responses, err := s.repo.ListResponses(ctx, s.pool, bidID)
	if err != nil {
		log.Error().Err(err).Stringer("bid_id", bidID).Msg("service: failed to fetch bid responses in repository")
		return nil, fmt.Errorf("service: failed to fetch bid responses: %w", err)
	}
	return responses, nil
}

func (s *service) AcceptResponse(ctx context.Context, exporterID, responseID uuid.UUID) (*order.Order, error) {
	var (
		created *order.Order
		price   decimal.Decimal
	)
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		resp, b, err := s.lockForDecision(ctx, q, exporterID, responseID)
		if err != nil {
			return err
		}
		if b.Status == StatusInactive {
			return ErrBidInactive
		}

		if err := s.repo.SetResponseStatus(ctx, q, resp.ID, ResponseAccepted); err != nil {
			return err
		}

		o, err := s.orders.CreateOrderTx(ctx, q, order.CreateInput{
			BidID:          b.ID,
			ExporterID:     b.UserID,
			ManufacturerID: resp.ManufacturerID,
			MachineID:      resp.MachineID,
			Status:         order.StatusPending,
			Deadline:       resp.Deadline,
		})
		if err != nil {
			return err
		}

		rejected, err := s.repo.RejectPending(ctx, q, b.ID, resp.ID)
		if err != nil {
			return err
		}
		if err := s.repo.SetStatus(ctx, q, b.ID, StatusInactive); err != nil {
			return err
		}

		log.Info().
			Stringer("bid_id", b.ID).
			Stringer("response_id", resp.ID).
			Stringer("order_id", o.ID).
			Int64("rejected_responses", rejected).
			Msg("service: bid response accepted")
		created = o
		price = resp.Price
		return nil
	})
	if err != nil {
		return nil, s.classify(err, "failed to accept bid response")
	}

	s.events.Publish(ctx, event.New(event.OrderCreated, created.ManufacturerID, created.BidID, created.ID, price))
	return created, nil
}

func (s *service) RejectResponse(ctx context.Context, exporterID, responseID uuid.UUID) (*Response, error) {
	var rejected *Response
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		resp, _, err := s.lockForDecision(ctx, q, exporterID, responseID)
		if err != nil {
			return err
		}
		if err := s.repo.SetResponseStatus(ctx, q, resp.ID, ResponseRejected); err != nil {
			return err
		}
		resp.Status = ResponseRejected
		rejected = resp
		return nil
	})
	if err != nil {
		return nil, s.classify(err, "failed to reject bid response")
	}
	return rejected, nil
}

func (s *service) CancelResponse(ctx context.Context, manufacturerID, responseID uuid.UUID) (*Response, error) {
	var cancelled *Response
	err := s.tx.WithinTx(ctx, func(q db.Querier) error {
		resp, _, err := s.lockResponse(ctx, q, responseID)
		if err != nil {
			return err
		}
		if resp.ManufacturerID != manufacturerID {
			return ErrNotResponseOwner
		}
		if resp.Status != ResponsePending {
			return fmt.Errorf("response is %s: %w", resp.Status, ErrResponseNotPending)
		}
		if err := s.repo.SetResponseStatus(ctx, q, resp.ID, ResponseCancelled); err != nil {
			return err
		}
		resp.Status = ResponseCancelled
		cancelled = resp
		return nil
	})
	if err != nil {
		return nil, s.classify(err, "failed to cancel bid response")
	}
	return cancelled, nil
}

// lockResponse locks the bid before the response, the same order
// CreateBidResponse and RejectPending take, and returns the response as
// read under both locks.
func (s *service) lockResponse(ctx context.Context, q db.Querier, responseID uuid.UUID) (*Response, *Bid, error) {
	peek, err := s.repo.GetResponse(ctx, q, responseID)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.repo.GetForUpdate(ctx, q, peek.BidID)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.repo.GetResponseForUpdate(ctx, q, responseID)
	if err != nil {
		return nil, nil, err
	}
	return resp, b, nil
}

// lockForDecision locks a pending response and its bid for the bid owner.
func (s *service) lockForDecision(ctx context.Context, q db.Querier, exporterID, responseID uuid.UUID) (*Response, *Bid, error) {
	resp, b, err := s.lockResponse(ctx, q, responseID)
	if err != nil {
		return nil, nil, err
	}
	if b.UserID != exporterID {
		return nil, nil, ErrNotBidOwner
	}
	if resp.Status != ResponsePending {
		return nil, nil, fmt.Errorf("response is %s: %w", resp.Status, ErrResponseNotPending)
	}
	return resp, b, nil
}

// classify passes domain errors through and wraps everything else.
func (s *service) classify(err error, msg string) error {
	if db.IsLockConflict(err) {
		log.Warn().Err(err).Msg("service: " + msg + ", lost a lock conflict")
		return apperr.Wrap(apperr.Conflict, "bid was changed concurrently, retry", err)
	}
	if apperr.KindOf(err) != apperr.Internal {
		log.Warn().Err(err).Msg("service: " + msg)
		return err
	}
	log.Error().Err(err).Msg("service: " + msg)
	return fmt.Errorf("service: %s: %w", msg, err)
}
