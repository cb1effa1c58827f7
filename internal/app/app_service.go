package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procurement-flow/internal/core"
	"procurement-flow/internal/metrics"
	"procurement-flow/internal/settings"

	"go.uber.org/zap"
)

// Deps are the infrastructure pieces the application service is built on.
// Approvals, Notifier, Cache and Metrics are optional.
type Deps struct {
	Store     core.Store
	Settings  *settings.Provider
	Approvals core.ApprovalEngine
	Notifier  core.Notifier
	Cache     core.DashboardCache
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	LinkBase  string
	Clock     func() time.Time
}

// invalidator is implemented by caches that can drop the dashboard summary.
type invalidator interface {
	Invalidate(ctx context.Context)
}

type appService struct {
	store     core.Store
	settings  *settings.Provider
	catalog   *core.CatalogService
	options   *core.OptionCatalogService
	orders    core.PurchaseOrderService
	receiving core.ReceivingService
	ordering  *core.OrderingService
	tokens    *core.OrderingTokenService
	dashboard *core.DashboardService
	cache     core.DashboardCache
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewAppService wires the core services over deps and returns the facade.
func NewAppService(deps Deps) (ApplicationService, error) {
	if deps.Store == nil || deps.Settings == nil {
		return nil, errors.New("app: store and settings are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	units := core.NewUnitConverter(deps.Logger)
	registrar := core.NewApprovalFlowRegistrar(deps.Approvals, deps.Settings, deps.LinkBase, deps.Logger)

	factory, err := core.NewPurchaseOrderFactory(core.FactoryDeps{
		Store:    deps.Store,
		Tax:      core.NewTaxResolver(deps.Settings),
		Delivery: core.NewDeliveryLocationResolver(deps.Settings),
		Logger:   deps.Logger,
		Clock:    deps.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("purchase order factory: %w", err)
	}
	orders, err := core.NewPurchaseOrderService(core.PurchaseOrderDeps{
		Store:     deps.Store,
		Units:     units,
		Approvals: registrar,
		Notifier:  deps.Notifier,
		Logger:    deps.Logger,
		Clock:     deps.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("purchase order service: %w", err)
	}
	ordering, err := core.NewOrderingService(core.OrderingDeps{
		Store:     deps.Store,
		Factory:   factory,
		Approvals: registrar,
		Logger:    deps.Logger,
		Clock:     deps.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("ordering service: %w", err)
	}

	return &appService{
		store:     deps.Store,
		settings:  deps.Settings,
		catalog:   core.NewCatalogService(deps.Store),
		options:   core.NewOptionCatalogService(deps.Store),
		orders:    orders,
		receiving: core.NewReceivingService(deps.Store, units, deps.Logger, deps.Clock),
		ordering:  ordering,
		tokens:    core.NewOrderingTokenService(deps.Store, deps.Clock),
		dashboard: core.NewDashboardService(deps.Store, deps.Cache, deps.Logger, deps.Clock),
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}, nil
}

func (s *appService) ListSuppliers(ctx context.Context) (*SupplierListResult, error) {
	suppliers, err := s.catalog.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	return &SupplierListResult{Suppliers: suppliers}, nil
}

func (s *appService) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (*core.Supplier, error) {
	return s.catalog.CreateSupplier(ctx, core.Supplier{
		Code:       req.Code,
		Name:       req.Name,
		Email:      req.Email,
		EmailCC:    req.EmailCC,
		AutoSendPO: req.AutoSendPO,
		IsActive:   true,
	})
}

func (s *appService) ListMaterials(ctx context.Context) (*MaterialListResult, error) {
	materials, err := s.catalog.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}
	return &MaterialListResult{Materials: materials}, nil
}

func (s *appService) GetMaterial(ctx context.Context, id int) (*core.Material, error) {
	return s.catalog.GetMaterial(ctx, id)
}

func (s *appService) CreateMaterial(ctx context.Context, req CreateMaterialRequest) (*core.Material, error) {
	m, err := s.catalog.CreateMaterial(ctx, req.material())
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return m, nil
}

func (s *appService) SetUnitConversion(ctx context.Context, req UnitConversionRequest) error {
	return s.catalog.SetUnitConversion(ctx, core.UnitConversion{
		MaterialID: req.MaterialID,
		FromUnit:   req.FromUnit,
		ToUnit:     req.ToUnit,
		Factor:     req.Factor,
	})
}

func (s *appService) GetOptionCatalog(ctx context.Context) (*OptionCatalogResult, error) {
	groups, err := s.options.ActiveGroups(ctx)
	if err != nil {
		return nil, err
	}
	byGroup, err := s.options.ActiveOptionsByGroup(ctx)
	if err != nil {
		return nil, err
	}
	return &OptionCatalogResult{Groups: groups, Options: byGroup}, nil
}

func (s *appService) CreateOptionGroup(ctx context.Context, req CreateOptionGroupRequest) (*core.OptionGroup, error) {
	return s.catalog.CreateOptionGroup(ctx, core.OptionGroup{
		Name:      req.Name,
		SortOrder: req.SortOrder,
		IsActive:  !req.Inactive,
	})
}

func (s *appService) CreateOption(ctx context.Context, req CreateOptionRequest) (*core.Option, error) {
	return s.catalog.CreateOption(ctx, core.Option{
		GroupID:   req.GroupID,
		Code:      req.Code,
		Name:      req.Name,
		SortOrder: req.SortOrder,
		IsActive:  !req.Inactive,
	})
}

func (s *appService) ListPurchaseOrders(ctx context.Context, filter core.PurchaseOrderFilter) (*PurchaseOrderListResult, error) {
	orders, err := s.orders.ListPurchaseOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderListResult{Orders: orders}, nil
}

func (s *appService) GetPurchaseOrder(ctx context.Context, id int) (*core.PurchaseOrderDetail, error) {
	return s.orders.GetPurchaseOrder(ctx, id)
}

func (s *appService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	placed, err := s.ordering.PlaceOrder(ctx, req.Order, req.ActorID)
	if err != nil {
		return nil, err
	}
	for _, p := range placed {
		s.ordersCreated("manual")
		s.reportEffects(p.Order.ID, p.Effects)
	}
	s.invalidateDashboard(ctx)
	return &PlaceOrderResult{Orders: placed}, nil
}

func (s *appService) ScanOrder(ctx context.Context, req ScanOrderRequest) (*PlaceOrderResult, error) {
	placed, err := s.ordering.CreateDraftFromScan(ctx, req.Scan, req.ActorID)
	if err != nil {
		return nil, err
	}
	s.ordersCreated("scan")
	s.reportEffects(placed.Order.ID, placed.Effects)
	s.invalidateDashboard(ctx)
	return &PlaceOrderResult{Orders: []core.PlacedOrder{*placed}}, nil
}

func (s *appService) IssuePurchaseOrder(ctx context.Context, id int) (*core.IssueResult, error) {
	res, err := s.orders.Issue(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Issued {
		s.reportEffects(id, res.Effects)
		s.invalidateDashboard(ctx)
	}
	return res, nil
}

func (s *appService) CancelPurchaseOrder(ctx context.Context, req CancelOrderRequest) (*core.CancelOrderResult, error) {
	res, err := s.orders.CancelPurchaseOrder(ctx, req.PurchaseOrderID, req.ActorID, req.Comment)
	if err != nil {
		return nil, err
	}
	s.reportEffects(req.PurchaseOrderID, res.Effects)
	s.invalidateDashboard(ctx)
	return res, nil
}

func (s *appService) CancelItem(ctx context.Context, req CancelItemRequest) (*core.CancelItemResult, error) {
	res, err := s.orders.CancelItem(ctx, req.ItemID, req.Reason)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ItemCancellations.WithLabelValues(string(res.Outcome)).Inc()
	}
	if res.Outcome == core.CancelApplied {
		s.invalidateDashboard(ctx)
	}
	return res, nil
}

func (s *appService) UpdateItemExpectedDate(ctx context.Context, req UpdateExpectedDateRequest) (*core.PurchaseOrderItem, error) {
	item, err := s.orders.UpdateItemExpectedDate(ctx, req.ItemID, req.Date)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return item, nil
}

func (s *appService) RecomputeTotals(ctx context.Context, id int) (*core.PurchaseOrder, error) {
	po, err := s.orders.RecomputeTotals(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return po, nil
}

func (s *appService) ReceivePurchaseOrder(ctx context.Context, req core.ReceiveInput) (*core.ReceiveResult, error) {
	res, err := s.receiving.Receive(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return res, nil
}

func (s *appService) ListOrderingTokens(ctx context.Context) (*OrderingTokenListResult, error) {
	tokens, err := s.tokens.List(ctx)
	if err != nil {
		return nil, err
	}
	return &OrderingTokenListResult{Tokens: tokens}, nil
}

func (s *appService) IssueOrderingToken(ctx context.Context, req core.IssueTokenInput) (*core.OrderingToken, error) {
	return s.tokens.Issue(ctx, req)
}

func (s *appService) SetOrderingTokenEnabled(ctx context.Context, id int, enabled bool) error {
	return s.tokens.SetEnabled(ctx, id, enabled)
}

func (s *appService) GetSetting(ctx context.Context, key string) (*SettingResult, error) {
	value, found, err := s.settings.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &SettingResult{Key: key, Value: value, Found: found}, nil
}

func (s *appService) PutSetting(ctx context.Context, key, value string) (*SettingResult, error) {
	if err := s.settings.Put(ctx, key, value); err != nil {
		return nil, err
	}
	s.logger.Info("setting updated", zap.String("key", key))
	return &SettingResult{Key: key, Value: value, Found: true}, nil
}

func (s *appService) Dashboard(ctx context.Context) (*core.DashboardSummary, error) {
	return s.dashboard.Summary(ctx)
}

func (s *appService) ordersCreated(source string) {
	if s.metrics != nil {
		s.metrics.OrdersCreated.WithLabelValues(source).Inc()
	}
}

// reportEffects logs and counts failed post-commit effects. The committed
// change stands regardless.
func (s *appService) reportEffects(poID int, effects core.Effects) {
	for _, e := range effects.Failed() {
		s.logger.Warn("post-commit effect failed",
			zap.Int("purchase_order_id", poID),
			zap.String("effect", e.Name),
			zap.Error(e.Err))
		if s.metrics != nil {
			s.metrics.EffectFailures.WithLabelValues(e.Name).Inc()
		}
	}
}

func (s *appService) invalidateDashboard(ctx context.Context) {
	if inv, ok := s.cache.(invalidator); ok {
		inv.Invalidate(ctx)
	}
}
