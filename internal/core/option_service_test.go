package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"procurement-flow/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type optionCatalog struct {
	groupA, groupB int
	a1, a2, b1     int
	inactive       int
}

// seedOptions creates groups A (a1, a2) and B (b1) plus an inactive option in A.
func (f *fixture) seedOptions() optionCatalog {
	var c optionCatalog
	a, err := f.catalog.CreateOptionGroup(f.ctx, core.OptionGroup{Name: "A", IsActive: true, SortOrder: 1})
	require.NoError(f.t, err)
	b, err := f.catalog.CreateOptionGroup(f.ctx, core.OptionGroup{Name: "B", IsActive: true, SortOrder: 2})
	require.NoError(f.t, err)
	c.groupA, c.groupB = a.ID, b.ID
	add := func(group int, name string, active bool) int {
		o, err := f.catalog.CreateOption(f.ctx, core.Option{GroupID: group, Name: name, IsActive: active})
		require.NoError(f.t, err)
		return o.ID
	}
	c.a1 = add(a.ID, "a1", true)
	c.a2 = add(a.ID, "a2", true)
	c.b1 = add(b.ID, "b1", true)
	c.inactive = add(a.ID, "a3", false)
	return c
}

func TestOptionSelection_RequiresEveryActiveGroup(t *testing.T) {
	f := newFixture(t)
	c := f.seedOptions()
	svc := core.NewOptionSelectionService(f.store)

	_, err := svc.NormalizeAndValidate(f.ctx, map[int]*int{c.groupA: intPtr(c.a1)})
	require.Error(t, err)
	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Message, "B")
	assert.Equal(t, "OPTION_REQUIRED", ve.Code)

	got, err := svc.NormalizeAndValidate(f.ctx, map[int]*int{c.groupA: intPtr(c.a1), c.groupB: intPtr(c.b1)})
	require.NoError(t, err)
	assert.Equal(t, map[int]int{c.groupA: c.a1, c.groupB: c.b1}, got)
}

func TestOptionSelection_RejectsInvalidMembership(t *testing.T) {
	f := newFixture(t)
	c := f.seedOptions()
	svc := core.NewOptionSelectionService(f.store)

	tests := []struct {
		name string
		raw  map[int]*int
	}{
		{"option from other group", map[int]*int{c.groupA: intPtr(c.b1), c.groupB: intPtr(c.b1)}},
		{"inactive option", map[int]*int{c.groupA: intPtr(c.inactive), c.groupB: intPtr(c.b1)}},
		{"unknown option", map[int]*int{c.groupA: intPtr(9999), c.groupB: intPtr(c.b1)}},
		{"nil value", map[int]*int{c.groupA: nil, c.groupB: intPtr(c.b1)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.NormalizeAndValidate(f.ctx, tc.raw)
			require.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestOptionSelection_DropsExtraneousGroups(t *testing.T) {
	f := newFixture(t)
	c := f.seedOptions()
	svc := core.NewOptionSelectionService(f.store)

	got, err := svc.NormalizeAndValidate(f.ctx, map[int]*int{
		c.groupA: intPtr(c.a2), c.groupB: intPtr(c.b1), 777: intPtr(1),
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NotContains(t, got, 777)
}

func TestOptionSelection_PermissiveWithoutGroups(t *testing.T) {
	f := newFixture(t)
	svc := core.NewOptionSelectionService(f.store)

	got, err := svc.NormalizeAndValidate(f.ctx, map[int]*int{3: intPtr(4), 5: nil})
	require.NoError(t, err)
	assert.Equal(t, map[int]int{3: 4}, got)

	rules := core.BuildSelectionRules(nil, nil)
	assert.True(t, rules.Empty())
}

func TestOptionSelection_RulesEvaluateMembershipAtCallTime(t *testing.T) {
	active := true
	rules := core.BuildSelectionRules(
		[]core.OptionGroup{{ID: 1, Name: "Grade"}},
		func(context.Context, int, int) (bool, error) { return active, nil },
	)
	_, err := rules.Validate(context.Background(), map[int]*int{1: intPtr(10)})
	require.NoError(t, err)

	active = false
	_, err = rules.Validate(context.Background(), map[int]*int{1: intPtr(10)})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestOptionCatalog_ActiveOrdering(t *testing.T) {
	f := newFixture(t)
	c := f.seedOptions()
	_, err := f.catalog.CreateOptionGroup(f.ctx, core.OptionGroup{Name: "Hidden", IsActive: false})
	require.NoError(t, err)

	catalog := core.NewOptionCatalogService(f.store)
	groups, err := catalog.ActiveGroups(f.ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].Name)
	assert.Equal(t, "B", groups[1].Name)

	byGroup, err := catalog.ActiveOptionsByGroup(f.ctx)
	require.NoError(t, err)
	require.Len(t, byGroup[c.groupA], 2, "inactive option is hidden")
	assert.Equal(t, "a1", byGroup[c.groupA][0].Name)
}

func TestOptionSync_SkipsStaleSelections(t *testing.T) {
	f := newFixture(t)
	c := f.seedOptions()
	sup := f.supplier()
	po, err := f.factory.Create(f.ctx, core.CreatePurchaseOrderInput{
		SupplierID: sup.ID,
		Items: []core.PurchaseOrderItemInput{{
			Description: "ad-hoc", QtyOrdered: dec("1"), PriceUnit: dec("1"),
			Options: map[int]*int{c.groupA: intPtr(c.a1), c.groupB: intPtr(c.b1)},
		}},
	}, false)
	require.NoError(t, err)
	itemID := po.Items[0].ID

	deleted := time.Now()
	sync := core.NewOptionSyncService()
	err = f.store.WithTx(f.ctx, func(ctx context.Context, tx core.Tx) error {
		// a soft-deleted option is created directly to simulate stale data
		stale := &core.Option{GroupID: c.groupA, Name: "gone", IsActive: true, DeletedAt: &deleted}
		if err := tx.CreateOption(ctx, stale); err != nil {
			return err
		}
		return sync.SyncToItem(ctx, tx, itemID, map[int]int{c.groupA: stale.ID, c.groupB: c.b1})
	})
	require.NoError(t, err)

	got := f.order(po.ID).Items[0].Options
	assert.Equal(t, c.a1, got[c.groupA], "stale pair skipped, previous value kept")
	assert.Equal(t, c.b1, got[c.groupB])
}
