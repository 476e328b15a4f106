package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCallStart     EventType = "call_start"
	EventCallResolved  EventType = "call_resolved"
	EventPlanScheduled EventType = "plan_scheduled"
	EventContinuation  EventType = "continuation"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ReceiptID string    `json:"receipt_id"`
}

// CallEvent represents the start or the resolution of one call.
type CallEvent struct {
	EventBase
	Predecessor AccountID     `json:"predecessor"`
	Call        Call          `json:"call"`
	Status      OutcomeStatus `json:"status,omitempty"`
	GasBurnt    Gas           `json:"gas_burnt,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// PlanEvent represents a plan handed to the host, or its continuation being invoked.
type PlanEvent struct {
	EventBase
	Owner        AccountID `json:"owner"`
	SetID        string    `json:"set_id,omitempty"`
	Slots        int       `json:"slots"`
	Continuation Call      `json:"continuation"`
	Phase        Phase     `json:"phase"`
}

// LifecycleHooks defines callbacks for host observability.
type LifecycleHooks struct {
	OnCallStart     func(context.Context, *CallEvent)
	OnCallResolved  func(context.Context, *CallEvent)
	OnPlanScheduled func(context.Context, *PlanEvent)
	OnContinuation  func(context.Context, *PlanEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnCallStart:     mergeCall(h.OnCallStart, other.OnCallStart),
		OnCallResolved:  mergeCall(h.OnCallResolved, other.OnCallResolved),
		OnPlanScheduled: mergePlan(h.OnPlanScheduled, other.OnPlanScheduled),
		OnContinuation:  mergePlan(h.OnContinuation, other.OnContinuation),
	}
}

func mergeCall(a, b func(context.Context, *CallEvent)) func(context.Context, *CallEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *CallEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func mergePlan(a, b func(context.Context, *PlanEvent)) func(context.Context, *PlanEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *PlanEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
