package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ApprovalSubjectPurchaseOrder is the subject type sent to the approval engine.
const ApprovalSubjectPurchaseOrder = "purchase_order"

// ApprovalTask asks the approval engine to start a flow for a subject.
type ApprovalTask struct {
	FlowID      int    `json:"flow_id"`
	AuthorID    int    `json:"author_id"`
	Link        string `json:"link,omitempty"`
	SubjectType string `json:"subject_type"`
	SubjectID   int    `json:"subject_id"`
}

// ApprovalEngine is the external workflow engine. On completion it calls
// back into PurchaseOrderService.Issue.
type ApprovalEngine interface {
	RegisterTask(ctx context.Context, task ApprovalTask) error
	CancelTask(ctx context.Context, subjectType string, subjectID, userID int, comment string) error
}

// ApprovalFlowRegistrar hands new orders to the approval engine.
type ApprovalFlowRegistrar struct {
	engine   ApprovalEngine
	settings SettingsSource
	linkBase string
	logger   *zap.Logger
}

// NewApprovalFlowRegistrar builds a registrar. linkBase is the public base
// URL used to build the order link; it may be empty.
func NewApprovalFlowRegistrar(engine ApprovalEngine, settings SettingsSource, linkBase string, logger *zap.Logger) *ApprovalFlowRegistrar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalFlowRegistrar{
		engine:   engine,
		settings: settings,
		linkBase: strings.TrimRight(linkBase, "/"),
		logger:   logger,
	}
}

// RequireFlow returns the configured purchase order flow id or a
// PreconditionError when none is configured.
func (r *ApprovalFlowRegistrar) RequireFlow() (int, error) {
	id := 0
	if r.settings != nil {
		id = r.settings.Current().ApprovalFlowID
	}
	if id <= 0 {
		return 0, precondition("APPROVAL_FLOW_NOT_CONFIGURED",
			"purchase order approval flow is not configured")
	}
	return id, nil
}

// Register starts an approval task for po. It only reports failure.
func (r *ApprovalFlowRegistrar) Register(ctx context.Context, po *PurchaseOrder, actorID *int) EffectOutcome {
	flowID, err := r.RequireFlow()
	author := 0
	if actorID != nil {
		author = *actorID
	} else if po.CreatedBy != nil {
		author = *po.CreatedBy
	}
	if err != nil || author <= 0 || r.engine == nil {
		r.logger.Info("approval registration skipped", zap.Int("purchase_order_id", po.ID))
		return effectSkipped(EffectApprovalRegister)
	}
	err = r.engine.RegisterTask(ctx, ApprovalTask{
		FlowID:      flowID,
		AuthorID:    author,
		Link:        r.orderLink(po.ID),
		SubjectType: ApprovalSubjectPurchaseOrder,
		SubjectID:   po.ID,
	})
	if err != nil {
		r.logger.Warn("approval registration failed", zap.Int("purchase_order_id", po.ID), zap.Error(err))
	}
	return effectDone(EffectApprovalRegister, err)
}

// Cancel withdraws any pending approval task for the order.
func (r *ApprovalFlowRegistrar) Cancel(ctx context.Context, poID int, userID *int, comment string) EffectOutcome {
	if r.engine == nil {
		return effectSkipped(EffectApprovalCancel)
	}
	uid := 0
	if userID != nil {
		uid = *userID
	}
	err := r.engine.CancelTask(ctx, ApprovalSubjectPurchaseOrder, poID, uid, comment)
	if err != nil {
		r.logger.Warn("approval cancel failed", zap.Int("purchase_order_id", poID), zap.Error(err))
	}
	return effectDone(EffectApprovalCancel, err)
}

func (r *ApprovalFlowRegistrar) orderLink(poID int) string {
	return fmt.Sprintf("%s/purchase-orders/%d", r.linkBase, poID)
}
