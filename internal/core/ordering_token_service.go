package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// IssueTokenInput creates an ordering token. An empty Token is generated.
type IssueTokenInput struct {
	Token        string
	MaterialID   int
	UnitPurchase *string
	DefaultQty   decimal.Decimal
	ExpiresAt    *time.Time
}

// OrderingTokenService manages scan-to-order tokens.
type OrderingTokenService struct {
	store Store
	now   func() time.Time
	newID func() string
}

func NewOrderingTokenService(store Store, clock func() time.Time) *OrderingTokenService {
	if clock == nil {
		clock = time.Now
	}
	return &OrderingTokenService{
		store: store,
		now:   clock,
		newID: func() string { return ulid.Make().String() },
	}
}

func (s *OrderingTokenService) Issue(ctx context.Context, in IssueTokenInput) (*OrderingToken, error) {
	if in.DefaultQty.IsNegative() {
		return nil, invalid("default_qty", "INVALID_QUANTITY", "default quantity must not be negative")
	}
	tok := &OrderingToken{
		Token:        strings.TrimSpace(in.Token),
		MaterialID:   in.MaterialID,
		UnitPurchase: in.UnitPurchase,
		DefaultQty:   in.DefaultQty,
		Enabled:      true,
		ExpiresAt:    in.ExpiresAt,
		CreatedAt:    s.now(),
	}
	if tok.Token == "" {
		tok.Token = s.newID()
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetMaterial(ctx, in.MaterialID); err != nil {
			return fmt.Errorf("material: %w", err)
		}
		return tx.CreateOrderingToken(ctx, tok)
	})
	if err != nil {
		return nil, fmt.Errorf("issue ordering token: %w", err)
	}
	return tok, nil
}

func (s *OrderingTokenService) List(ctx context.Context) ([]OrderingToken, error) {
	var out []OrderingToken
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListOrderingTokens(ctx)
		return err
	})
	return out, err
}

func (s *OrderingTokenService) SetEnabled(ctx context.Context, id int, enabled bool) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.SetOrderingTokenEnabled(ctx, id, enabled)
	})
}
