package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/crosscall/pkg/domain"
)

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCallStart: func(ctx context.Context, e *domain.CallEvent) {
			logger.Debug("Call Start", "receipt_id", e.ReceiptID, "target", e.Call.Target, "method", e.Call.Method)
		},
		OnCallResolved: func(ctx context.Context, e *domain.CallEvent) {
			logger.Debug("Call Resolved", "receipt_id", e.ReceiptID, "method", e.Call.Method, "status", e.Status, "gas_burnt", e.GasBurnt)
		},
		OnPlanScheduled: func(ctx context.Context, e *domain.PlanEvent) {
			logger.Debug("Plan Scheduled", "owner", e.Owner, "slots", e.Slots, "continuation", e.Continuation.Method)
		},
		OnContinuation: func(ctx context.Context, e *domain.PlanEvent) {
			logger.Debug("Continuation", "owner", e.Owner, "set_id", e.SetID)
		},
	}
}
