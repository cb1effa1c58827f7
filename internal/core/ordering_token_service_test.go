package core_test

import (
	"testing"
	"time"

	"procurement-flow/internal/core"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderingTokenService_Issue(t *testing.T) {
	f := newFixture(t)
	mat := f.material("TK-1")

	generated, err := f.tokens.Issue(f.ctx, core.IssueTokenInput{MaterialID: mat.ID, DefaultQty: dec("2")})
	require.NoError(t, err)
	_, err = ulid.ParseStrict(generated.Token)
	assert.NoError(t, err, "blank token gets a ULID")
	assert.True(t, generated.Enabled)
	assert.Equal(t, fixedNow, generated.CreatedAt)

	named, err := f.tokens.Issue(f.ctx, core.IssueTokenInput{Token: "  shelf-a1 ", MaterialID: mat.ID})
	require.NoError(t, err)
	assert.Equal(t, "shelf-a1", named.Token)

	_, err = f.tokens.Issue(f.ctx, core.IssueTokenInput{Token: "shelf-a1", MaterialID: mat.ID})
	require.ErrorIs(t, err, core.ErrConflict)

	_, err = f.tokens.Issue(f.ctx, core.IssueTokenInput{MaterialID: 999})
	require.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.tokens.Issue(f.ctx, core.IssueTokenInput{MaterialID: mat.ID, DefaultQty: dec("-1")})
	require.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, "INVALID_QUANTITY", errorCode(err))

	list, err := f.tokens.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestOrderingTokenService_SetEnabled(t *testing.T) {
	f := newFixture(t)
	mat := f.material("TK-2")
	tok, err := f.tokens.Issue(f.ctx, core.IssueTokenInput{Token: "bin-7", MaterialID: mat.ID})
	require.NoError(t, err)

	require.NoError(t, f.tokens.SetEnabled(f.ctx, tok.ID, false))
	list, err := f.tokens.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Enabled)

	assert.ErrorIs(t, f.tokens.SetEnabled(f.ctx, 999, true), core.ErrNotFound)
}

func TestDeliveryLocationResolver(t *testing.T) {
	r := core.NewDeliveryLocationResolver(core.StaticSettings(core.Settings{DeliveryLocation: "Dock 2"}))
	assert.Equal(t, "Gate 5", r.Resolve("Gate 5"))
	assert.Equal(t, "Dock 2", r.Resolve("   "))

	assert.Equal(t, "", core.NewDeliveryLocationResolver(nil).Resolve(""))
}

func TestOrderingToken_Expired(t *testing.T) {
	expiry := fixedNow
	tok := core.OrderingToken{ExpiresAt: &expiry}

	assert.False(t, tok.Expired(fixedNow.Add(-time.Second)))
	assert.False(t, tok.Expired(fixedNow), "usable at the expiry instant")
	assert.True(t, tok.Expired(fixedNow.Add(time.Nanosecond)))
	assert.False(t, (&core.OrderingToken{}).Expired(fixedNow), "no expiry")
}
