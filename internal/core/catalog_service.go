package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CatalogService maintains suppliers, materials, unit conversions and the
// option catalog.
type CatalogService struct {
	store Store
}

func NewCatalogService(store Store) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) CreateSupplier(ctx context.Context, sup Supplier) (*Supplier, error) {
	sup.Code = strings.TrimSpace(sup.Code)
	sup.Name = strings.TrimSpace(sup.Name)
	if sup.Name == "" {
		return nil, invalid("name", "NAME_REQUIRED", "supplier name is required")
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateSupplier(ctx, &sup)
	})
	if err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	return &sup, nil
}

func (s *CatalogService) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListSuppliers(ctx)
		return err
	})
	return out, err
}

func (s *CatalogService) CreateMaterial(ctx context.Context, m Material) (*Material, error) {
	m.SKU = strings.TrimSpace(m.SKU)
	m.Name = strings.TrimSpace(m.Name)
	switch {
	case m.SKU == "":
		return nil, invalid("sku", "SKU_REQUIRED", "sku is required")
	case m.Name == "":
		return nil, invalid("name", "NAME_REQUIRED", "material name is required")
	case m.UnitStock == "":
		return nil, invalid("unit_stock", "UNIT_REQUIRED", "stock unit is required")
	case m.MOQ.IsNegative(), m.PackSize.IsNegative(), m.UnitPrice.IsNegative(), m.ShippingFeePerOrder.IsNegative():
		return nil, invalid("", "NEGATIVE_AMOUNT", "moq, pack size, price and shipping fee must not be negative")
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if m.PreferredSupplierID != nil {
			if _, err := tx.GetSupplier(ctx, *m.PreferredSupplierID); err != nil {
				return fmt.Errorf("preferred supplier: %w", err)
			}
		}
		return tx.CreateMaterial(ctx, &m)
	})
	if err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}
	return &m, nil
}

func (s *CatalogService) GetMaterial(ctx context.Context, id int) (*Material, error) {
	var m *Material
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		m, err = tx.GetMaterial(ctx, id)
		return err
	})
	return m, err
}

func (s *CatalogService) ListMaterials(ctx context.Context) ([]Material, error) {
	var out []Material
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListMaterials(ctx)
		return err
	})
	return out, err
}

// SetUnitConversion stores 1 from = factor to for the material.
func (s *CatalogService) SetUnitConversion(ctx context.Context, c UnitConversion) error {
	if c.FromUnit == "" || c.ToUnit == "" || c.FromUnit == c.ToUnit {
		return invalid("unit", "INVALID_UNITS", "from and to units must be set and differ")
	}
	if !c.Factor.IsPositive() {
		return invalid("factor", "INVALID_FACTOR", "factor must be greater than zero")
	}
	return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetMaterial(ctx, c.MaterialID); err != nil {
			return err
		}
		return tx.UpsertUnitConversion(ctx, c)
	})
}

func (s *CatalogService) CreateOptionGroup(ctx context.Context, g OptionGroup) (*OptionGroup, error) {
	if strings.TrimSpace(g.Name) == "" {
		return nil, invalid("name", "NAME_REQUIRED", "option group name is required")
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateOptionGroup(ctx, &g)
	})
	if err != nil {
		return nil, fmt.Errorf("create option group: %w", err)
	}
	return &g, nil
}

func (s *CatalogService) CreateOption(ctx context.Context, o Option) (*Option, error) {
	if strings.TrimSpace(o.Name) == "" {
		return nil, invalid("name", "NAME_REQUIRED", "option name is required")
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		groups, err := tx.ListOptionGroups(ctx)
		if err != nil {
			return err
		}
		for _, g := range groups {
			if g.ID == o.GroupID {
				return tx.CreateOption(ctx, &o)
			}
		}
		return notFound("option group", o.GroupID)
	})
	if err != nil {
		return nil, fmt.Errorf("create option: %w", err)
	}
	return &o, nil
}

// LotStock sums on-hand lot quantities per material.
func LotStock(lots []MaterialLot) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal)
	for _, l := range lots {
		out[l.MaterialID] = out[l.MaterialID].Add(l.QtyOnHand)
	}
	return out
}
