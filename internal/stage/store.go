package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
)

var (
	ErrRecordNotFound  = apperr.New(apperr.NotFound, "stage record not found")
	ErrProjectNotFound = apperr.New(apperr.NotFound, "project not found")
	ErrOwnerNotFound   = apperr.New(apperr.NotFound, "project owner not found")
)

type column struct {
	name   string
	value  func(d *Drivers) any
	target func(d *Drivers) any
}

type tableDef struct {
	name    string
	columns []column
}

var (
	colShirtType = column{"shirt_type",
		func(d *Drivers) any { return d.ShirtType }, func(d *Drivers) any { return &d.ShirtType }}
	colFabricSize = column{"fabric_size",
		func(d *Drivers) any { return d.FabricSize }, func(d *Drivers) any { return &d.FabricSize }}
	colFabricCategory = column{"fabric_category",
		func(d *Drivers) any { return d.FabricCategory }, func(d *Drivers) any { return &d.FabricCategory }}
	colFabricSubCategory = column{"fabric_sub_category",
		func(d *Drivers) any { return d.FabricSubCategory }, func(d *Drivers) any { return &d.FabricSubCategory }}
	colCuttingStyle = column{"cutting_style",
		func(d *Drivers) any { return d.CuttingStyle }, func(d *Drivers) any { return &d.CuttingStyle }}
	colLogoPosition = column{"logo_position",
		func(d *Drivers) any { return d.LogoPosition }, func(d *Drivers) any { return &d.LogoPosition }}
	colPrintingMethod = column{"printing_method",
		func(d *Drivers) any { return d.PrintingMethod }, func(d *Drivers) any { return &d.PrintingMethod }}
	colLogoSize = column{"logo_size",
		func(d *Drivers) any { return d.LogoSize }, func(d *Drivers) any { return &d.LogoSize }}
	colQuantity = column{"quantity",
		func(d *Drivers) any { return d.Quantity }, func(d *Drivers) any { return &d.Quantity }}
	colKgPerPiece = column{"kg_per_piece",
		func(d *Drivers) any { return d.KgPerPiece }, func(d *Drivers) any { return &d.KgPerPiece }}
	colFabricKg = column{"fabric_kg",
		func(d *Drivers) any { return d.FabricKg }, func(d *Drivers) any { return &d.FabricKg }}
	colRate = column{"rate",
		func(d *Drivers) any { return d.Rate }, func(d *Drivers) any { return &d.Rate }}
)

var tables = map[Kind]tableDef{
	FabricQuantity: {"fabric_quantity", []column{colShirtType, colFabricSize, colQuantity, colKgPerPiece, colFabricKg, colRate}},
	FabricPricing:  {"fabric_pricing", []column{colFabricCategory, colFabricSubCategory, colFabricKg, colRate}},
	Cutting:        {"cutting", []column{colCuttingStyle, colQuantity, colRate}},
	Stitching:      {"stitching", []column{colShirtType, colQuantity, colRate}},
	Packaging:      {"packaging", []column{colQuantity, colRate}},
	LogoPrinting:   {"logo_printing", []column{colLogoPosition, colPrintingMethod, colLogoSize, colQuantity, colRate}},
}

func (t tableDef) columnNames() string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return strings.Join(names, ", ")
}

func (t tableDef) selectSQL(where string) string {
	return fmt.Sprintf("SELECT id, project_id, status, cost, created_at, updated_at, %s FROM %s WHERE %s",
		t.columnNames(), t.name, where)
}

// Store persists stage records. Every method runs on the caller's querier.
type Store interface {
	Insert(ctx context.Context, q db.Querier, rec *Record) error
	Update(ctx context.Context, q db.Querier, rec *Record) error
	GetByID(ctx context.Context, q db.Querier, kind Kind, id uuid.UUID) (*Record, error)
	GetByProject(ctx context.Context, q db.Querier, kind Kind, projectID uuid.UUID) (*Record, error)
	ListByProject(ctx context.Context, q db.Querier, projectID uuid.UUID) ([]Record, error)
	SetStatus(ctx context.Context, q db.Querier, kind Kind, id uuid.UUID, status Status) error
	// ResetDraft sets status to draft and leaves updated_at untouched.
	ResetDraft(ctx context.Context, q db.Querier, kind Kind, id uuid.UUID) error
	Exists(ctx context.Context, q db.Querier, kind Kind, id uuid.UUID) (bool, error)
	DeactivateByProject(ctx context.Context, q db.Querier, projectID uuid.UUID) error

	ProjectExists(ctx context.Context, q db.Querier, projectID uuid.UUID) (bool, error)
	ProjectOwner(ctx context.Context, q db.Querier, projectID uuid.UUID) (uuid.UUID, error)
}

type postgresStore struct{}

func NewStore() Store {
	return &postgresStore{}
}

func (s *postgresStore) Insert(ctx context.Context, q db.Querier, rec *Record) error {
	def, ok := tables[rec.Kind]
	if !ok {
		return fmt.Errorf("%q: %w", rec.Kind, ErrInvalidKind)
	}

	if rec.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate stage record ID: %w", err)
		}
		rec.ID = id
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	args := []any{rec.ID, rec.ProjectID, string(rec.Status), rec.Cost, rec.CreatedAt, rec.UpdatedAt}
	placeholders := []string{"$1", "$2", "$3", "$4", "$5", "$6"}
	for i, c := range def.columns {
		args = append(args, c.value(&rec.Drivers))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+7))
	}

	query := fmt.Sprintf("INSERT INTO %s (id, project_id, status, cost, created_at, updated_at, %s) VALUES (%s)",
		def.name, def.columnNames(), strings.Join(placeholders, ", "))

	if _, err := q.Exec(ctx, query, args...); err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("repository: failed to insert %s record: %w", rec.Kind, err)
	}
	return nil
}

func (s *postgresStore) Update(ctx context.Context, q db.Querier, rec *Record) error {
	def, ok := tables[rec.Kind]
	if !ok {
		return fmt.Errorf("%q: %w", rec.Kind, ErrInvalidKind)
	}

	rec.UpdatedAt = time.Now().UTC()
	args := []any{rec.ID, string(rec.Status), rec.Cost, rec.UpdatedAt}
	sets := []string{"status = $2", "cost = $3", "updated_at = $4"}
	for i, c := range def.columns {
		args = append(args, c.value(&rec.Drivers))
		sets = append(sets, fmt.Sprintf("%s = $%d", c.name, i+5))
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", def.name, strings.Join(sets, ", "))
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: failed to update %s record %s: %w", rec.Kind, rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *postgresStore) GetByID(ctx context.Context, q db.Querier, kind Kind, id uuid.UUID) (*Record, error) {
	def, ok := tables[kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}
	return scanRecord(q.QueryRow(ctx, def.selectSQL("id = $1"), id), kind, def)
}

func (s *postgresStore) GetByProject(ctx context.Context, q db.Querier, kind Kind, projectID uuid.UUID) (*Record, error) {
	def, ok := tables[kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}
	return scanRecord(q.QueryRow(ctx, def.selectSQL("project_id = $1"), projectID), kind, def)
}

func (s *postgresStore) ListByProject(ctx context.Context, q db.Querier, projectID uuid.UUID) ([]Record, error) {
	records := make([]Record, 0, len(Kinds))
	for _, kind := range Kinds {
		rec, err := s.GetByProject(ctx, q, kind, projectID)
		if errors.Is(err, ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (s *postgresStore) SetStatus(ctx context.Context, q db.Querier, kind Kind, id uuid.UUID, status Status) error {
	def, ok := tables[kind]
	if !ok {
		return fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}

	query := fmt.Sprintf("UPDATE %s SET status = $1, updated_at = $2 WHERE id = $3", def.name)
	tag, err := q.Exec(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		log.Error().Err(err).Stringer("record_id", id).Stringer("kind", kind).Msg("repository: failed to update stage status")
		return fmt.Errorf("repository: failed to update %s status %s: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *postgresStore) ResetDraft(ctx context.Context, q db.Querier, kind Kind, id uuid.UUID) error {
	def, ok := tables[kind]
	if !ok {
		return fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}

	query := fmt.Sprintf("UPDATE %s SET status = $1 WHERE id = $2", def.name)
	tag, err := q.Exec(ctx, query, string(StatusDraft), id)
	if err != nil {
		log.Error().Err(err).Stringer("record_id", id).Stringer("kind", kind).Msg("repository: failed to reset stage status")
		return fmt.Errorf("repository: failed to reset %s status %s: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *postgresStore) Exists(ctx context.Context, q db.Querier, kind Kind, id uuid.UUID) (bool, error) {
	def, ok := tables[kind]
	if !ok {
		return false, fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}

	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", def.name)
	if err := q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("repository: failed to check %s record %s: %w", kind, id, err)
	}
	return exists, nil
}

func (s *postgresStore) DeactivateByProject(ctx context.Context, q db.Querier, projectID uuid.UUID) error {
	now := time.Now().UTC()
	for _, kind := range Kinds {
		query := fmt.Sprintf("UPDATE %s SET status = $1, updated_at = $2 WHERE project_id = $3 AND status <> $1", tables[kind].name)
		if _, err := q.Exec(ctx, query, string(StatusInactive), now, projectID); err != nil {
			return fmt.Errorf("repository: failed to deactivate %s records of project %s: %w", kind, projectID, err)
		}
	}
	return nil
}

func (s *postgresStore) ProjectExists(ctx context.Context, q db.Querier, projectID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, projectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check project %s: %w", projectID, err)
	}
	return exists, nil
}

func (s *postgresStore) ProjectOwner(ctx context.Context, q db.Querier, projectID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := q.QueryRow(ctx, `
		SELECT u.id
		FROM projects p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`, projectID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrOwnerNotFound
		}
		return uuid.Nil, fmt.Errorf("repository: failed to resolve owner of project %s: %w", projectID, err)
	}
	return ownerID, nil
}

func scanRecord(row pgx.Row, kind Kind, def tableDef) (*Record, error) {
	rec := Record{Kind: kind}
	var status string
	dest := []any{&rec.ID, &rec.ProjectID, &status, &rec.Cost, &rec.CreatedAt, &rec.UpdatedAt}
	for _, c := range def.columns {
		dest = append(dest, c.target(&rec.Drivers))
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("repository: failed to scan %s record: %w", kind, err)
	}
	rec.Status = Status(status)
	return &rec, nil
}
