package stage

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/rate"
	"github.com/vasiliy-maslov/garment-costing/internal/reference"
)

// fabricQuantityPricer: fabric_kg = kg_per_piece(shirt type, fabric size) x quantity,
// cost = fabric_kg x rate_per_kg(quantity range).
type fabricQuantityPricer struct {
	refs reference.Store
}

func (p *fabricQuantityPricer) applies(Attributes) bool { return true }

func (p *fabricQuantityPricer) drivers(a Attributes) Drivers {
	return Drivers{ShirtType: a.ShirtType, FabricSize: a.FabricSize, Quantity: a.Quantity}
}

func (p *fabricQuantityPricer) price(ctx context.Context, q db.Querier, d *Drivers) (decimal.Decimal, error) {
	consumption, err := p.refs.FabricConsumption(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	kgPerPiece, err := rate.ResolveByKey(consumption, d.ShirtType, d.FabricSize)
	if err != nil {
		return decimal.Zero, err
	}

	rates, err := p.refs.FabricQuantityRates(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	ratePerKg, err := rate.ResolveRate(rates, d.Quantity)
	if err != nil {
		return decimal.Zero, err
	}

	d.KgPerPiece = kgPerPiece
	d.FabricKg = kgPerPiece.Mul(decimal.NewFromInt(int64(d.Quantity))).Round(4)
	d.Rate = ratePerKg
	return d.FabricKg.Mul(ratePerKg), nil
}

func (p *fabricQuantityPricer) same(stored, next Drivers) bool {
	return sameKey(stored.ShirtType, next.ShirtType) &&
		sameKey(stored.FabricSize, next.FabricSize) &&
		stored.Quantity == next.Quantity
}

// fabricPricingPricer: cost = price_per_kg(category, sub-category) x fabric_kg.
type fabricPricingPricer struct {
	refs reference.Store
}

func (p *fabricPricingPricer) applies(Attributes) bool { return true }

func (p *fabricPricingPricer) drivers(a Attributes) Drivers {
	return Drivers{FabricCategory: a.FabricCategory, FabricSubCategory: a.FabricSubCategory, FabricKg: a.FabricKg}
}

func (p *fabricPricingPricer) price(ctx context.Context, q db.Querier, d *Drivers) (decimal.Decimal, error) {
	prices, err := p.refs.FabricPrices(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	pricePerKg, err := rate.ResolveByKey(prices, d.FabricCategory, d.FabricSubCategory)
	if err != nil {
		return decimal.Zero, err
	}

	d.Rate = pricePerKg
	return pricePerKg.Mul(d.FabricKg), nil
}

func (p *fabricPricingPricer) same(stored, next Drivers) bool {
	return sameKey(stored.FabricCategory, next.FabricCategory) &&
		sameKey(stored.FabricSubCategory, next.FabricSubCategory) &&
		stored.FabricKg.Equal(next.FabricKg)
}

// logoPrintingPricer: cost = price(position, method, size column) x quantity.
// Only runs when all three logo attributes are present.
type logoPrintingPricer struct {
	refs reference.Store
}

func (p *logoPrintingPricer) applies(a Attributes) bool { return a.HasLogo() }

func (p *logoPrintingPricer) drivers(a Attributes) Drivers {
	return Drivers{
		LogoPosition:   a.LogoPosition,
		PrintingMethod: a.PrintingStyle,
		LogoSize:       a.LogoSize,
		Quantity:       a.Quantity,
	}
}

func (p *logoPrintingPricer) price(ctx context.Context, q db.Querier, d *Drivers) (decimal.Decimal, error) {
	prices, err := p.refs.LogoPrices(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	unit, err := rate.ResolveBySize(prices, d.LogoPosition, d.PrintingMethod, d.LogoSize)
	if err != nil {
		return decimal.Zero, err
	}

	d.Rate = unit
	return unit.Mul(decimal.NewFromInt(int64(d.Quantity))), nil
}

func (p *logoPrintingPricer) same(stored, next Drivers) bool {
	return sameKey(stored.LogoPosition, next.LogoPosition) &&
		sameKey(stored.PrintingMethod, next.PrintingMethod) &&
		sameKey(stored.LogoSize, next.LogoSize) &&
		stored.Quantity == next.Quantity
}

// cuttingPricer: cost = rate(style, quantity range) x quantity x pattern unit price.
type cuttingPricer struct {
	refs      reference.Store
	unitPrice decimal.Decimal
}

func (p *cuttingPricer) applies(Attributes) bool { return true }

func (p *cuttingPricer) drivers(a Attributes) Drivers {
	return Drivers{CuttingStyle: a.CuttingStyle, Quantity: a.Quantity}
}

func (p *cuttingPricer) price(ctx context.Context, q db.Querier, d *Drivers) (decimal.Decimal, error) {
	rows, err := p.refs.CuttingRates(ctx, q, d.CuttingStyle)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := rate.ResolveRate(rows, d.Quantity)
	if err != nil {
		return decimal.Zero, err
	}

	d.Rate = r
	return r.Mul(decimal.NewFromInt(int64(d.Quantity))).Mul(p.unitPrice), nil
}

func (p *cuttingPricer) same(stored, next Drivers) bool {
	return sameKey(stored.CuttingStyle, next.CuttingStyle) && stored.Quantity == next.Quantity
}

// stitchingPricer: cost = rate(shirt type, quantity range) x quantity.
type stitchingPricer struct {
	refs reference.Store
}

func (p *stitchingPricer) applies(Attributes) bool { return true }

func (p *stitchingPricer) drivers(a Attributes) Drivers {
	return Drivers{ShirtType: a.ShirtType, Quantity: a.Quantity}
}

func (p *stitchingPricer) price(ctx context.Context, q db.Querier, d *Drivers) (decimal.Decimal, error) {
	rows, err := p.refs.StitchingRates(ctx, q, d.ShirtType)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := rate.ResolveRate(rows, d.Quantity)
	if err != nil {
		return decimal.Zero, err
	}

	d.Rate = r
	return r.Mul(decimal.NewFromInt(int64(d.Quantity))), nil
}

func (p *stitchingPricer) same(stored, next Drivers) bool {
	return sameKey(stored.ShirtType, next.ShirtType) && stored.Quantity == next.Quantity
}

// packagingPricer: cost = rate(total shirt count range) x quantity.
type packagingPricer struct {
	refs reference.Store
}

func (p *packagingPricer) applies(Attributes) bool { return true }

func (p *packagingPricer) drivers(a Attributes) Drivers {
	return Drivers{Quantity: a.Quantity}
}

func (p *packagingPricer) price(ctx context.Context, q db.Querier, d *Drivers) (decimal.Decimal, error) {
	rows, err := p.refs.PackagingRates(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := rate.ResolveRate(rows, d.Quantity)
	if err != nil {
		return decimal.Zero, err
	}

	d.Rate = r
	return r.Mul(decimal.NewFromInt(int64(d.Quantity))), nil
}

func (p *packagingPricer) same(stored, next Drivers) bool {
	return stored.Quantity == next.Quantity
}
