package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// OptionCatalogService exposes the active option catalog.
type OptionCatalogService struct {
	store Store
}

func NewOptionCatalogService(store Store) *OptionCatalogService {
	return &OptionCatalogService{store: store}
}

// ActiveGroups returns active groups ordered by sort order, then name.
func (s *OptionCatalogService) ActiveGroups(ctx context.Context) ([]OptionGroup, error) {
	var out []OptionGroup
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = activeGroups(ctx, tx)
		return err
	})
	return out, err
}

// ActiveOptionsByGroup returns available options of active groups, keyed by
// group id and ordered by sort order, then name.
func (s *OptionCatalogService) ActiveOptionsByGroup(ctx context.Context) (map[int][]Option, error) {
	var out map[int][]Option
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		groups, err := activeGroups(ctx, tx)
		if err != nil {
			return err
		}
		options, err := tx.ListOptions(ctx)
		if err != nil {
			return fmt.Errorf("list options: %w", err)
		}
		out = make(map[int][]Option, len(groups))
		for _, g := range groups {
			out[g.ID] = []Option{}
		}
		for _, o := range options {
			if _, ok := out[o.GroupID]; ok && o.Available() {
				out[o.GroupID] = append(out[o.GroupID], o)
			}
		}
		for id := range out {
			opts := out[id]
			sort.SliceStable(opts, func(i, j int) bool {
				if opts[i].SortOrder != opts[j].SortOrder {
					return opts[i].SortOrder < opts[j].SortOrder
				}
				return opts[i].Name < opts[j].Name
			})
		}
		return nil
	})
	return out, err
}

func activeGroups(ctx context.Context, tx OptionRepo) ([]OptionGroup, error) {
	all, err := tx.ListOptionGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list option groups: %w", err)
	}
	out := make([]OptionGroup, 0, len(all))
	for _, g := range all {
		if g.IsActive {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// MembershipFunc reports whether optionID is an active option of groupID.
type MembershipFunc func(ctx context.Context, groupID, optionID int) (bool, error)

// SelectionRules is the requirement derived from one snapshot of active
// groups: one value per group, each an active member of that group.
// Membership is checked when Validate runs, not when the rules are built.
type SelectionRules struct {
	groups []OptionGroup
	member MembershipFunc
}

// BuildSelectionRules derives the rules for the given active groups.
func BuildSelectionRules(groups []OptionGroup, member MembershipFunc) SelectionRules {
	return SelectionRules{groups: groups, member: member}
}

// Empty reports that no option selection is required.
func (r SelectionRules) Empty() bool { return len(r.groups) == 0 }

// Required lists the groups that must be present in a selection.
func (r SelectionRules) Required() []OptionGroup { return r.groups }

// Validate checks raw against the rules and returns only the required groups'
// values. The first failing group is named in the returned ValidationError.
func (r SelectionRules) Validate(ctx context.Context, raw map[int]*int) (map[int]int, error) {
	out := make(map[int]int, len(r.groups))
	for _, g := range r.groups {
		v, ok := raw[g.ID]
		if !ok || v == nil || *v == 0 {
			return nil, invalid(fmt.Sprintf("options.%d", g.ID), "OPTION_REQUIRED",
				fmt.Sprintf("%s selection is required", g.Name))
		}
		ok, err := r.member(ctx, g.ID, *v)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid(fmt.Sprintf("options.%d", g.ID), "OPTION_INVALID",
				fmt.Sprintf("%s selection is invalid", g.Name))
		}
		out[g.ID] = *v
	}
	return out, nil
}

// OptionSelectionService normalizes raw line option selections.
type OptionSelectionService struct {
	store Store
}

func NewOptionSelectionService(store Store) *OptionSelectionService {
	return &OptionSelectionService{store: store}
}

// NormalizeAndValidate validates raw in its own transaction.
func (s *OptionSelectionService) NormalizeAndValidate(ctx context.Context, raw map[int]*int) (map[int]int, error) {
	var out map[int]int
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = s.NormalizeAndValidateTx(ctx, tx, raw)
		return err
	})
	return out, err
}

// NormalizeAndValidateTx validates raw inside the caller's transaction. With
// no active groups every non-nil pair passes through unchanged.
func (s *OptionSelectionService) NormalizeAndValidateTx(ctx context.Context, tx OptionRepo, raw map[int]*int) (map[int]int, error) {
	groups, err := activeGroups(ctx, tx)
	if err != nil {
		return nil, err
	}
	rules := BuildSelectionRules(groups, activeMembership(tx))
	if rules.Empty() {
		out := make(map[int]int, len(raw))
		for g, v := range raw {
			if v != nil && *v != 0 {
				out[g] = *v
			}
		}
		return out, nil
	}
	return rules.Validate(ctx, raw)
}

func activeMembership(tx OptionRepo) MembershipFunc {
	return func(ctx context.Context, groupID, optionID int) (bool, error) {
		o, err := tx.GetOption(ctx, optionID)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("load option %d: %w", optionID, err)
		}
		return o.GroupID == groupID && o.Available(), nil
	}
}

// OptionSyncService persists validated selections onto order lines.
type OptionSyncService struct{}

func NewOptionSyncService() *OptionSyncService { return &OptionSyncService{} }

// SyncToItem upserts each (item, group) selection. Pairs whose option is no
// longer an active member of the group are skipped.
func (s *OptionSyncService) SyncToItem(ctx context.Context, tx OptionRepo, itemID int, selected map[int]int) error {
	member := activeMembership(tx)
	groupIDs := make([]int, 0, len(selected))
	for g := range selected {
		groupIDs = append(groupIDs, g)
	}
	sort.Ints(groupIDs)
	for _, groupID := range groupIDs {
		optionID := selected[groupID]
		ok, err := member(ctx, groupID, optionID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := tx.UpsertItemOption(ctx, itemID, groupID, optionID); err != nil {
			return fmt.Errorf("save option for item %d group %d: %w", itemID, groupID, err)
		}
	}
	return nil
}
