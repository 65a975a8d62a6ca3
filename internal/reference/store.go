// Package reference reads the pre-seeded rate tables. It never writes them.
package reference

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/rate"
)

type Store interface {
	// FabricConsumption rows are keyed by (shirt type, fabric size); Rate is kg per piece.
	FabricConsumption(ctx context.Context, q db.Querier) ([]rate.KeyedRow, error)
	FabricQuantityRates(ctx context.Context, q db.Querier) ([]rate.RangeRow, error)
	// FabricPrices rows are keyed by (category, sub-category); Rate is price per kg.
	FabricPrices(ctx context.Context, q db.Querier) ([]rate.KeyedRow, error)
	CuttingRates(ctx context.Context, q db.Querier, cuttingStyle string) ([]rate.RangeRow, error)
	StitchingRates(ctx context.Context, q db.Querier, shirtType string) ([]rate.RangeRow, error)
	PackagingRates(ctx context.Context, q db.Querier) ([]rate.RangeRow, error)
	// LogoPrices rows are keyed by (position, printing method).
	LogoPrices(ctx context.Context, q db.Querier) ([]rate.SizedRow, error)
}

type postgresStore struct{}

func NewStore() Store {
	return &postgresStore{}
}

func (s *postgresStore) FabricConsumption(ctx context.Context, q db.Querier) ([]rate.KeyedRow, error) {
	return queryKeyed(ctx, q, "fabric consumption", `
		SELECT shirt_type, fabric_size, kg_per_piece
		FROM ref_fabric_consumption
		ORDER BY id`)
}

func (s *postgresStore) FabricQuantityRates(ctx context.Context, q db.Querier) ([]rate.RangeRow, error) {
	rows, err := queryFiltered(ctx, q, "fabric quantity rates", `
		SELECT '', quantity_range, rate_per_kg
		FROM ref_fabric_quantity_rates
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return filterRanges(rows, ""), nil
}

func (s *postgresStore) FabricPrices(ctx context.Context, q db.Querier) ([]rate.KeyedRow, error) {
	return queryKeyed(ctx, q, "fabric prices", `
		SELECT category, sub_category, price_per_kg
		FROM ref_fabric_prices
		ORDER BY id`)
}

func (s *postgresStore) CuttingRates(ctx context.Context, q db.Querier, cuttingStyle string) ([]rate.RangeRow, error) {
	rows, err := queryFiltered(ctx, q, "cutting rates", `
		SELECT cutting_style, quantity_range, rate
		FROM ref_cutting_rates
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return filterRanges(rows, cuttingStyle), nil
}

func (s *postgresStore) StitchingRates(ctx context.Context, q db.Querier, shirtType string) ([]rate.RangeRow, error) {
	rows, err := queryFiltered(ctx, q, "stitching rates", `
		SELECT shirt_type, quantity_range, rate
		FROM ref_stitching_rates
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return filterRanges(rows, shirtType), nil
}

func (s *postgresStore) PackagingRates(ctx context.Context, q db.Querier) ([]rate.RangeRow, error) {
	rows, err := queryFiltered(ctx, q, "packaging rates", `
		SELECT '', quantity_range, rate
		FROM ref_packaging_rates
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return filterRanges(rows, ""), nil
}

func (s *postgresStore) LogoPrices(ctx context.Context, q db.Querier) ([]rate.SizedRow, error) {
	rows, err := q.Query(ctx, `
		SELECT position, printing_method, small_size, medium_size, large_size, xl_size
		FROM ref_logo_prices
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("reference: failed to query logo prices: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rate.SizedRow, error) {
		var position, method string
		var small, medium, large, xl decimal.Decimal
		if err := row.Scan(&position, &method, &small, &medium, &large, &xl); err != nil {
			return rate.SizedRow{}, err
		}
		return rate.SizedRow{
			Key1: position,
			Key2: method,
			Prices: map[string]decimal.Decimal{
				rate.SmallSize:  small,
				rate.MediumSize: medium,
				rate.LargeSize:  large,
				rate.XLSize:     xl,
			},
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reference: failed to scan logo prices: %w", err)
	}
	return result, nil
}

func queryKeyed(ctx context.Context, q db.Querier, table, sql string) ([]rate.KeyedRow, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("reference: failed to query %s: %w", table, err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rate.KeyedRow, error) {
		var r rate.KeyedRow
		err := row.Scan(&r.Key1, &r.Key2, &r.Rate)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("reference: failed to scan %s: %w", table, err)
	}
	return result, nil
}

type filteredRow struct {
	key string
	row rate.RangeRow
}

func queryFiltered(ctx context.Context, q db.Querier, table, sql string) ([]filteredRow, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("reference: failed to query %s: %w", table, err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (filteredRow, error) {
		var r filteredRow
		err := row.Scan(&r.key, &r.row.Range, &r.row.Rate)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("reference: failed to scan %s: %w", table, err)
	}
	return result, nil
}

// filterRanges keeps rows whose key matches after normalization, preserving table order.
func filterRanges(rows []filteredRow, key string) []rate.RangeRow {
	want := rate.NormalizeKey(key)
	out := make([]rate.RangeRow, 0, len(rows))
	for _, r := range rows {
		if rate.NormalizeKey(r.key) == want {
			out = append(out, r.row)
		}
	}
	return out
}
