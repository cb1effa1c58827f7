// Package settings loads the business configuration snapshot from the
// application settings table and republishes it on Refresh.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"procurement-flow/internal/core"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Keys in the application settings store.
const (
	KeyItemTax          = "tax.item"
	KeyShippingTax      = "tax.shipping"
	KeyDeliveryLocation = "pdf.delivery_location"
	KeyApprovalFlowID   = "approval_flow.purchase_order_flow_id"
)

// Keys lists every key the snapshot is built from.
var Keys = []string{KeyItemTax, KeyShippingTax, KeyDeliveryLocation, KeyApprovalFlowID}

type itemTaxDoc struct {
	DefaultRate *decimal.Decimal           `json:"default_rate"`
	Rates       map[string]decimal.Decimal `json:"rates"`
	Schedule    []scheduleDoc              `json:"schedule"`
}

type scheduleDoc struct {
	EffectiveFrom string                     `json:"effective_from"`
	DefaultRate   *decimal.Decimal           `json:"default_rate"`
	Rates         map[string]decimal.Decimal `json:"rates"`
}

type shippingDoc struct {
	Taxable *bool            `json:"taxable"`
	TaxRate *decimal.Decimal `json:"tax_rate"`
}

// Provider is a core.SettingsSource backed by the settings store.
type Provider struct {
	store   core.Store
	logger  *zap.Logger
	current atomic.Pointer[core.Settings]
}

func NewProvider(store core.Store, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{store: store, logger: logger}
	def := core.DefaultSettings()
	p.current.Store(&def)
	return p
}

// Current returns the latest published snapshot.
func (p *Provider) Current() core.Settings {
	return *p.current.Load()
}

// Refresh re-reads every key and publishes a new snapshot. On error the
// previous snapshot stays in effect.
func (p *Provider) Refresh(ctx context.Context) error {
	values := make(map[string]string, len(Keys))
	err := p.store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		for _, k := range Keys {
			v, ok, err := tx.GetSetting(ctx, k)
			if err != nil {
				return fmt.Errorf("read setting %s: %w", k, err)
			}
			if ok {
				values[k] = v
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s, warnings, err := Parse(values)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		p.logger.Warn("settings", zap.String("warning", w))
	}
	p.current.Store(&s)
	p.logger.Info("settings refreshed",
		zap.Int("approval_flow_id", s.ApprovalFlowID),
		zap.Int("tax_schedule_entries", len(s.ItemTax.Schedule)))
	return nil
}

// Parse builds a snapshot from raw setting values. Schedule entries are
// sorted by effective date; a warning is returned when the stored order was
// not chronological.
func Parse(values map[string]string) (core.Settings, []string, error) {
	s := core.DefaultSettings()
	var warnings []string

	if raw := strings.TrimSpace(values[KeyItemTax]); raw != "" {
		var doc itemTaxDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return s, nil, fmt.Errorf("parse %s: %w", KeyItemTax, err)
		}
		s.ItemTax.DefaultRate = doc.DefaultRate
		s.ItemTax.Rates = doc.Rates
		for i, e := range doc.Schedule {
			from, err := time.Parse(time.DateOnly, strings.TrimSpace(e.EffectiveFrom))
			if err != nil {
				return s, nil, fmt.Errorf("parse %s: schedule[%d].effective_from: %w", KeyItemTax, i, err)
			}
			s.ItemTax.Schedule = append(s.ItemTax.Schedule, core.TaxScheduleEntry{
				EffectiveFrom: from,
				DefaultRate:   e.DefaultRate,
				Rates:         e.Rates,
			})
		}
		sched := s.ItemTax.Schedule
		if !sort.SliceIsSorted(sched, func(i, j int) bool { return sched[i].EffectiveFrom.Before(sched[j].EffectiveFrom) }) {
			warnings = append(warnings, KeyItemTax+": schedule entries were not in effective_from order and have been sorted")
			sort.SliceStable(sched, func(i, j int) bool { return sched[i].EffectiveFrom.Before(sched[j].EffectiveFrom) })
		}
	}

	if raw := strings.TrimSpace(values[KeyShippingTax]); raw != "" {
		var doc shippingDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return s, nil, fmt.Errorf("parse %s: %w", KeyShippingTax, err)
		}
		if doc.Taxable != nil {
			s.Shipping.Taxable = *doc.Taxable
		}
		s.Shipping.TaxRate = doc.TaxRate
	}

	s.DeliveryLocation = values[KeyDeliveryLocation]

	if raw := strings.TrimSpace(values[KeyApprovalFlowID]); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			warnings = append(warnings, fmt.Sprintf("%s: %q is not a valid flow id", KeyApprovalFlowID, raw))
		} else {
			s.ApprovalFlowID = id
		}
	}
	return s, warnings, nil
}

// ErrUnknownKey is returned for keys outside Keys.
var ErrUnknownKey = fmt.Errorf("settings: unknown key: %w", core.ErrNotFound)

func known(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the raw stored value of key.
func (p *Provider) Get(ctx context.Context, key string) (string, bool, error) {
	if !known(key) {
		return "", false, ErrUnknownKey
	}
	var (
		v  string
		ok bool
	)
	err := p.store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		var err error
		v, ok, err = tx.GetSetting(ctx, key)
		return err
	})
	return v, ok, err
}

// Put validates value together with the other stored keys, stores it and
// republishes the snapshot. An unparsable value is rejected unsaved.
func (p *Provider) Put(ctx context.Context, key, value string) error {
	if !known(key) {
		return ErrUnknownKey
	}
	err := p.store.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		values := map[string]string{key: value}
		for _, k := range Keys {
			if k == key {
				continue
			}
			v, ok, err := tx.GetSetting(ctx, k)
			if err != nil {
				return fmt.Errorf("read setting %s: %w", k, err)
			}
			if ok {
				values[k] = v
			}
		}
		if _, _, err := Parse(values); err != nil {
			return &core.ValidationError{Field: key, Code: "INVALID_SETTING", Message: err.Error()}
		}
		return tx.PutSetting(ctx, key, value)
	})
	if err != nil {
		return err
	}
	return p.Refresh(ctx)
}

// Run refreshes the snapshot every interval until ctx is done. Refresh
// failures keep the previous snapshot.
func (p *Provider) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.Warn("settings refresh failed", zap.Error(err))
			}
		}
	}
}
