package stage

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/event"
)

// PostRequest describes the bid opened when a stage record is posted.
type PostRequest struct {
	OwnerID     uuid.UUID
	ModuleType  Kind
	ModuleID    uuid.UUID
	Title       string
	Description string
	Price       decimal.Decimal
}

// BidPoster opens a bid on the caller's transaction and returns its id.
type BidPoster interface {
	PostBid(ctx context.Context, q db.Querier, req PostRequest) (uuid.UUID, error)
}

type Service interface {
	UpdateStatus(ctx context.Context, kind Kind, recordID uuid.UUID, status Status) (*Record, error)
	Records(ctx context.Context, projectID uuid.UUID) ([]Record, error)
}

type service struct {
	pool   db.Querier
	tx     db.Transactor
	store  Store
	calcs  Calculators
	poster BidPoster
	events event.Publisher
}

func NewService(pool db.Querier, tx db.Transactor, store Store, calcs Calculators, poster BidPoster, events event.Publisher) Service {
	return &service{
		pool:   pool,
		tx:     tx,
		store:  store,
		calcs:  calcs,
		poster: poster,
		events: events,
	}
}

func (s *service) UpdateStatus(ctx context.Context, kind Kind, recordID uuid.UUID, status Status) (*Record, error) {
	calc, err := s.calcs.For(kind)
	if err != nil {
		return nil, err
	}

	var (
		rec   *Record
		bidID uuid.UUID
	)
	err = s.tx.WithinTx(ctx, func(q db.Querier) error {
		updated, prev, err := calc.UpdateStatus(ctx, q, recordID, status)
		if err != nil {
			return err
		}
		rec = updated

		if status != StatusPosted || prev == StatusPosted {
			return nil
		}

		ownerID, err := s.store.ProjectOwner(ctx, q, rec.ProjectID)
		if err != nil {
			return err
		}

		bidID, err = s.poster.PostBid(ctx, q, PostRequest{
			OwnerID:     ownerID,
			ModuleType:  kind,
			ModuleID:    rec.ID,
			Title:       fmt.Sprintf("%s for project %s", kind, rec.ProjectID),
			Description: fmt.Sprintf("%s stage, quantity %d", kind, rec.Drivers.Quantity),
			Price:       rec.Cost,
		})
		return err
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.Internal {
			log.Warn().Err(err).Stringer("record_id", recordID).Stringer("kind", kind).Stringer("status", status).Msg("service: stage status not updated")
			return nil, err
		}
		log.Error().Err(err).Stringer("record_id", recordID).Stringer("kind", kind).Msg("service: failed to update stage status")
		return nil, fmt.Errorf("service: failed to update stage status: %w", err)
	}

	if bidID != uuid.Nil {
		s.events.Publish(ctx, event.New(event.BidPosted, uuid.Nil, bidID, rec.ID, rec.Cost))
	}

	log.Info().Stringer("record_id", recordID).Stringer("kind", kind).Stringer("status", status).Msg("service: stage status updated")
	return rec, nil
}

func (s *service) Records(ctx context.Context, projectID uuid.UUID) ([]Record, error) {
	records, err := s.store.ListByProject(ctx, s.pool, projectID)
	if err != nil {
		log.Error().Err(err).Stringer("project_id", projectID).Msg("service: failed to list stage records")
		return nil, fmt.Errorf("service: failed to list stage records: %w", err)
	}
	return records, nil
}
