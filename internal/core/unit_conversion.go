package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UnitConverter translates quantities between a material's units.
type UnitConverter struct {
	logger *zap.Logger
}

func NewUnitConverter(logger *zap.Logger) *UnitConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitConverter{logger: logger}
}

// Factor returns how many to-units make one from-unit. Identical units give 1.
// A stored inverse conversion is used when no direct one exists. With no
// conversion at all the factor is 1 and a warning is logged.
func (c *UnitConverter) Factor(ctx context.Context, tx MaterialRepo, material *Material, from, to string) (decimal.Decimal, error) {
	one := decimal.NewFromInt(1)
	if material == nil || from == to || from == "" || to == "" {
		return one, nil
	}
	conv, err := tx.FindUnitConversion(ctx, material.ID, from, to)
	switch {
	case err == nil && conv.Factor.IsPositive():
		return conv.Factor, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return decimal.Zero, fmt.Errorf("find unit conversion: %w", err)
	}
	inv, err := tx.FindUnitConversion(ctx, material.ID, to, from)
	switch {
	case err == nil && inv.Factor.IsPositive():
		return one.DivRound(inv.Factor, 12), nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return decimal.Zero, fmt.Errorf("find unit conversion: %w", err)
	}
	c.logger.Warn("no unit conversion, assuming 1:1",
		zap.Int("material_id", material.ID), zap.String("from", from), zap.String("to", to))
	return one, nil
}
