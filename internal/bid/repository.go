package bid

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

const responsePairConstraint = "bid_responses_bid_manufacturer_key"

type Repository interface {
	Create(ctx context.Context, q db.Querier, b *Bid) error
	GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Bid, error)
	// GetForUpdate locks the bid row until the transaction ends.
	GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*Bid, error)
	Update(ctx context.Context, q db.Querier, b *Bid) error
	SetStatus(ctx context.Context, q db.Querier, id uuid.UUID, status Status) error
	// ListActive returns active bids newest first with their owners loaded.
	ListActive(ctx context.Context, q db.Querier) ([]Bid, error)
	ListByUser(ctx context.Context, q db.Querier, userID uuid.UUID) ([]Bid, error)

	CreateResponse(ctx context.Context, q db.Querier, r *Response) error
	// FindResponse returns nil, nil when the manufacturer has not responded.
	FindResponse(ctx context.Context, q db.Querier, bidID, manufacturerID uuid.UUID) (*Response, error)
	GetResponse(ctx context.Context, q db.Querier, id uuid.UUID) (*Response, error)
	GetResponseForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*Response, error)
	SetResponseStatus(ctx context.Context, q db.Querier, id uuid.UUID, status ResponseStatus) error
	// RejectPending rejects every pending response of the bid except keepID.
	RejectPending(ctx context.Context, q db.Querier, bidID, keepID uuid.UUID) (int64, error)
	ListResponses(ctx context.Context, q db.Querier, bidID uuid.UUID) ([]Response, error)
}

type postgresRepository struct{}

func NewRepository() Repository {
	return &postgresRepository{}
}

const bidColumns = `id, user_id, module_type, module_id, title, description, price, status, created_at, updated_at`

const responseColumns = `id, bid_id, manufacturer_id, price, message, machine_id, deadline, status, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, q db.Querier, b *Bid) error {
	if b.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate bid ID: %w", err)
		}
		b.ID = id
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	query := `INSERT INTO bids (` + bidColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := q.Exec(ctx, query,
		b.ID,
		b.UserID,
		string(b.ModuleType),
		b.ModuleID,
		b.Title,
		b.Description,
		b.Price,
		string(b.Status),
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return user.ErrUserNotFound
		}
		return fmt.Errorf("repository: failed to insert bid: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Bid, error) {
	return r.getBid(ctx, q, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id)
}

func (r *postgresRepository) GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*Bid, error) {
	return r.getBid(ctx, q, `SELECT `+bidColumns+` FROM bids WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresRepository) getBid(ctx context.Context, q db.Querier, query string, id uuid.UUID) (*Bid, error) {
	b, err := scanBid(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("repository: failed to select bid by id %s: %w", id, err)
	}
	return b, nil
}

func (r *postgresRepository) Update(ctx context.Context, q db.Querier, b *Bid) error {
	b.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE bids
		SET title = $1, description = $2, price = $3, status = $4, updated_at = $5
		WHERE id = $6
	`
	tag, err := q.Exec(ctx, query, b.Title, b.Description, b.Price, string(b.Status), b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to update bid %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBidNotFound
	}
	return nil
}

func (r *postgresRepository) SetStatus(ctx context.Context, q db.Querier, id uuid.UUID, status Status) error {
	tag, err := q.Exec(ctx, `UPDATE bids SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update status of bid %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBidNotFound
	}
	return nil
}

func (r *postgresRepository) ListActive(ctx context.Context, q db.Querier) ([]Bid, error) {
	query := `
		SELECT b.id, b.user_id, b.module_type, b.module_id, b.title, b.description, b.price, b.status, b.created_at, b.updated_at,
			u.id, u.name, u.email, u.role, u.created_at, u.updated_at
		FROM bids b
		JOIN users u ON u.id = b.user_id
		WHERE b.status = $1
		ORDER BY b.created_at DESC
	`
	rows, err := q.Query(ctx, query, string(StatusActive))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query active bids: %w", err)
	}

	bids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Bid, error) {
		var b Bid
		var owner user.User
		err := row.Scan(
			&b.ID, &b.UserID, &b.ModuleType, &b.ModuleID, &b.Title, &b.Description, &b.Price, &b.Status, &b.CreatedAt, &b.UpdatedAt,
			&owner.ID, &owner.Name, &owner.Email, &owner.Role, &owner.CreatedAt, &owner.UpdatedAt,
		)
		b.Owner = &owner
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan active bids: %w", err)
	}
	return bids, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, q db.Querier, userID uuid.UUID) ([]Bid, error) {
	rows, err := q.Query(ctx, `SELECT `+bidColumns+` FROM bids WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query bids of user %s: %w", userID, err)
	}

	bids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Bid, error) {
		b, err := scanBid(row)
		if err != nil {
			return Bid{}, err
		}
		return *b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan bids of user %s: %w", userID, err)
	}
	return bids, nil
}

func (r *postgresRepository) CreateResponse(ctx context.Context, q db.Querier, resp *Response) error {
	if resp.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate response ID: %w", err)
		}
		resp.ID = id
	}
	now := time.Now().UTC()
	resp.CreatedAt, resp.UpdatedAt = now, now

	query := `INSERT INTO bid_responses (` + responseColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := q.Exec(ctx, query,
		resp.ID,
		resp.BidID,
		resp.ManufacturerID,
		resp.Price,
		resp.Message,
		resp.MachineID,
		resp.Deadline,
		string(resp.Status),
		resp.CreatedAt,
		resp.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err, responsePairConstraint) {
			return ErrDuplicateResponse
		}
		return fmt.Errorf("repository: failed to insert bid response: %w", err)
	}
	return nil
}

func (r *postgresRepository) FindResponse(ctx context.Context, q db.Querier, bidID, manufacturerID uuid.UUID) (*Response, error) {
	query := `SELECT ` + responseColumns + ` FROM bid_responses WHERE bid_id = $1 AND manufacturer_id = $2`
	resp, err := scanResponse(q.QueryRow(ctx, query, bidID, manufacturerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: failed to look up response of %s to bid %s: %w", manufacturerID, bidID, err)
	}
	return resp, nil
}

func (r *postgresRepository) GetResponse(ctx context.Context, q db.Querier, id uuid.UUID) (*Response, error) {
	return r.getResponse(ctx, q, `SELECT `+responseColumns+` FROM bid_responses WHERE id = $1`, id)
}

func (r *postgresRepository) GetResponseForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*Response, error) {
	return r.getResponse(ctx, q, `SELECT `+responseColumns+` FROM bid_responses WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresRepository) getResponse(ctx context.Context, q db.Querier, query string, id uuid.UUID) (*Response, error) {
	resp, err := scanResponse(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("repository: failed to select response by id %s: %w", id, err)
	}
	return resp, nil
}

func (r *postgresRepository) SetResponseStatus(ctx context.Context, q db.Querier, id uuid.UUID, status ResponseStatus) error {
	tag, err := q.Exec(ctx, `UPDATE bid_responses SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update status of response %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrResponseNotFound
	}
	return nil
}

func (r *postgresRepository) RejectPending(ctx context.Context, q db.Querier, bidID, keepID uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx, `
		UPDATE bid_responses
		SET status = $1, updated_at = $2
		WHERE bid_id = $3 AND id <> $4 AND status = $5`,
		string(ResponseRejected), time.Now().UTC(), bidID, keepID, string(ResponsePending))
	if err != nil {
		return 0, fmt.Errorf("repository: failed to reject pending responses of bid %s: %w", bidID, err)
	}
	return tag.RowsAffected(), nil
}

func (r *postgresRepository) ListResponses(ctx context.Context, q db.Querier, bidID uuid.UUID) ([]Response, error) {
	rows, err := q.Query(ctx, `SELECT `+responseColumns+` FROM bid_responses WHERE bid_id = $1 ORDER BY created_at`, bidID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query responses of bid %s: %w", bidID, err)
	}

	responses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Response, error) {
		resp, err := scanResponse(row)
		if err != nil {
			return Response{}, err
		}
		return *resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan responses of bid %s: %w", bidID, err)
	}
	return responses, nil
}

func scanBid(row pgx.Row) (*Bid, error) {
	var b Bid
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.ModuleType,
		&b.ModuleID,
		&b.Title,
		&b.Description,
		&b.Price,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanResponse(row pgx.Row) (*Response, error) {
	var resp Response
	err := row.Scan(
		&resp.ID,
		&resp.BidID,
		&resp.ManufacturerID,
		&resp.Price,
		&resp.Message,
		&resp.MachineID,
		&resp.Deadline,
		&resp.Status,
		&resp.CreatedAt,
		&resp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
