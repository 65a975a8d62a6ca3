// Package rate maps quantities and free-text keys to unit prices taken from
// reference tables. Reference data is expected to partition the quantity
// domain; overlapping ranges resolve to the first row in table order.
package rate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
)

var (
	ErrRateNotFound = apperr.New(apperr.Upstream, "rate not found")
	ErrInvalidRange = apperr.New(apperr.InvalidInput, "invalid rate range")
	ErrUnknownSize  = apperr.New(apperr.InvalidInput, "unknown logo size")
)

// Range is an inclusive quantity interval.
type Range struct {
	Min int
	Max int
}

func (r Range) Contains(qty int) bool {
	return qty >= r.Min && qty <= r.Max
}

// RangeRow is one reference row: a range string such as "25-50" or "100" and its rate.
type RangeRow struct {
	Range string
	Rate  decimal.Decimal
}

// KeyedRow is one reference row looked up by a pair of keys.
type KeyedRow struct {
	Key1 string
	Key2 string
	Rate decimal.Decimal
}

// SizedRow holds one price per size column for a pair of keys.
type SizedRow struct {
	Key1   string
	Key2   string
	Prices map[string]decimal.Decimal
}

// ParseRange accepts "min-max" or a single value "n" (min = max = n).
func ParseRange(s string) (Range, error) {
	minPart, maxPart, hasMax := strings.Cut(strings.TrimSpace(s), "-")

	lo, err := strconv.Atoi(strings.TrimSpace(minPart))
	if err != nil {
		return Range{}, fmt.Errorf("%q: %w", s, ErrInvalidRange)
	}

	hi := lo
	if hasMax && strings.TrimSpace(maxPart) != "" {
		hi, err = strconv.Atoi(strings.TrimSpace(maxPart))
		if err != nil {
			return Range{}, fmt.Errorf("%q: %w", s, ErrInvalidRange)
		}
	}

	if lo < 0 || hi < lo {
		return Range{}, fmt.Errorf("%q: bounds out of order: %w", s, ErrInvalidRange)
	}

	return Range{Min: lo, Max: hi}, nil
}

// ResolveRate returns the rate of the first row whose range contains qty.
func ResolveRate(rows []RangeRow, qty int) (decimal.Decimal, error) {
	if len(rows) == 0 {
		return decimal.Zero, fmt.Errorf("empty rate table: %w", ErrRateNotFound)
	}

	for _, row := range rows {
		r, err := ParseRange(row.Range)
		if err != nil {
			return decimal.Zero, err
		}
		if r.Contains(qty) {
			return row.Rate, nil
		}
	}

	return decimal.Zero, fmt.Errorf("no range contains quantity %d: %w", qty, ErrRateNotFound)
}

// ResolveByKey is an equality lookup on normalized keys.
func ResolveByKey(rows []KeyedRow, key1, key2 string) (decimal.Decimal, error) {
	k1, k2 := NormalizeKey(key1), NormalizeKey(key2)
	for _, row := range rows {
		if NormalizeKey(row.Key1) == k1 && NormalizeKey(row.Key2) == k2 {
			return row.Rate, nil
		}
	}
	return decimal.Zero, fmt.Errorf("no rate for %q/%q: %w", key1, key2, ErrRateNotFound)
}

// ResolveBySize looks up the row for (key1, key2) and picks the column named by size.
func ResolveBySize(rows []SizedRow, key1, key2, size string) (decimal.Decimal, error) {
	column, err := SizeColumn(size)
	if err != nil {
		return decimal.Zero, err
	}

	k1, k2 := NormalizeKey(key1), NormalizeKey(key2)
	for _, row := range rows {
		if NormalizeKey(row.Key1) != k1 || NormalizeKey(row.Key2) != k2 {
			continue
		}
		price, ok := row.Prices[column]
		if !ok {
			break
		}
		return price, nil
	}
	return decimal.Zero, fmt.Errorf("no %s price for %q/%q: %w", column, key1, key2, ErrRateNotFound)
}

// NormalizeKey lower-cases s and collapses runs of whitespace to one space.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

const (
	SmallSize  = "smallSize"
	MediumSize = "mediumSize"
	LargeSize  = "largeSize"
	XLSize     = "xlSize"
)

var sizeAliases = map[string]string{
	"s":           SmallSize,
	"small":       SmallSize,
	"small size":  SmallSize,
	"smallsize":   SmallSize,
	"m":           MediumSize,
	"medium":      MediumSize,
	"medium size": MediumSize,
	"mediumsize":  MediumSize,
	"l":           LargeSize,
	"large":       LargeSize,
	"large size":  LargeSize,
	"largesize":   LargeSize,
	"xl":          XLSize,
	"x-large":     XLSize,
	"extra large": XLSize,
	"extra-large": XLSize,
	"xlsize":      XLSize,
}

// SizeColumn maps a free-text logo size ("m", "Extra  Large") to its price column.
func SizeColumn(size string) (string, error) {
	column, ok := sizeAliases[NormalizeKey(size)]
	if !ok {
		return "", fmt.Errorf("%q: %w", size, ErrUnknownSize)
	}
	return column, nil
}
