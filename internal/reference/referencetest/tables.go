// Package referencetest provides in-memory rate tables for unit tests.
package referencetest

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/rate"
)

// StyledRange is a range row filtered by a free-text key (cutting style, shirt type).
type StyledRange struct {
	Key string
	rate.RangeRow
}

// Tables implements reference.Store. Zero-value tables are empty.
type Tables struct {
	Consumption   []rate.KeyedRow
	QuantityRates []rate.RangeRow
	Prices        []rate.KeyedRow
	Cutting       []StyledRange
	Stitching     []StyledRange
	Packaging     []rate.RangeRow
	Logos         []rate.SizedRow

	// Err, when set, is returned by every lookup.
	Err error
}

func (t *Tables) FabricConsumption(ctx context.Context, q db.Querier) ([]rate.KeyedRow, error) {
	return t.Consumption, t.Err
}

func (t *Tables) FabricQuantityRates(ctx context.Context, q db.Querier) ([]rate.RangeRow, error) {
	return t.QuantityRates, t.Err
}

func (t *Tables) FabricPrices(ctx context.Context, q db.Querier) ([]rate.KeyedRow, error) {
	return t.Prices, t.Err
}

func (t *Tables) CuttingRates(ctx context.Context, q db.Querier, cuttingStyle string) ([]rate.RangeRow, error) {
	return filter(t.Cutting, cuttingStyle), t.Err
}

func (t *Tables) StitchingRates(ctx context.Context, q db.Querier, shirtType string) ([]rate.RangeRow, error) {
	return filter(t.Stitching, shirtType), t.Err
}

func (t *Tables) PackagingRates(ctx context.Context, q db.Querier) ([]rate.RangeRow, error) {
	return t.Packaging, t.Err
}

func (t *Tables) LogoPrices(ctx context.Context, q db.Querier) ([]rate.SizedRow, error) {
	return t.Logos, t.Err
}

func filter(rows []StyledRange, key string) []rate.RangeRow {
	want := rate.NormalizeKey(key)
	out := make([]rate.RangeRow, 0, len(rows))
	for _, r := range rows {
		if rate.NormalizeKey(r.Key) == want {
			out = append(out, r.RangeRow)
		}
	}
	return out
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Standard returns a small, fully partitioned rate book:
//
//	regular polo, M: 0.25 kg/piece; fabric 1-24 -> 400/kg, 25-100 -> 380/kg, 101-1000 -> 350/kg
//	cotton / single jersey: 900/kg
//	cutting regular: 1-24 -> 15, 25-50 -> 12, 51-1000 -> 10
//	stitching polo: 1-50 -> 120, 51-1000 -> 100
//	packaging: 1-100 -> 8, 101-1000 -> 6
//	logo front chest / screen print: 20, 30, 40, 55
func Standard() *Tables {
	return &Tables{
		Consumption: []rate.KeyedRow{
			{Key1: "Polo", Key2: "M", Rate: d("0.25")},
			{Key1: "Polo", Key2: "L", Rate: d("0.30")},
			{Key1: "T-Shirt", Key2: "M", Rate: d("0.20")},
		},
		QuantityRates: []rate.RangeRow{
			{Range: "1-24", Rate: d("400")},
			{Range: "25-100", Rate: d("380")},
			{Range: "101-1000", Rate: d("350")},
		},
		Prices: []rate.KeyedRow{
			{Key1: "Cotton", Key2: "Single Jersey", Rate: d("900")},
			{Key1: "Polyester", Key2: "Mesh", Rate: d("650")},
		},
		Cutting: []StyledRange{
			{Key: "regular", RangeRow: rate.RangeRow{Range: "1-24", Rate: d("15")}},
			{Key: "regular", RangeRow: rate.RangeRow{Range: "25-50", Rate: d("12")}},
			{Key: "regular", RangeRow: rate.RangeRow{Range: "51-1000", Rate: d("10")}},
			{Key: "slim", RangeRow: rate.RangeRow{Range: "1-1000", Rate: d("18")}},
		},
		Stitching: []StyledRange{
			{Key: "Polo", RangeRow: rate.RangeRow{Range: "1-50", Rate: d("120")}},
			{Key: "Polo", RangeRow: rate.RangeRow{Range: "51-1000", Rate: d("100")}},
			{Key: "T-Shirt", RangeRow: rate.RangeRow{Range: "1-1000", Rate: d("80")}},
		},
		Packaging: []rate.RangeRow{
			{Range: "1-100", Rate: d("8")},
			{Range: "101-1000", Rate: d("6")},
		},
		Logos: []rate.SizedRow{
			{
				Key1: "Front Chest",
				Key2: "Screen Print",
				Prices: map[string]decimal.Decimal{
					rate.SmallSize:  d("20"),
					rate.MediumSize: d("30"),
					rate.LargeSize:  d("40"),
					rate.XLSize:     d("55"),
				},
			},
		},
	}
}
