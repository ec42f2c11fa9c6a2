package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fieldwork/internal/auth"
	"fieldwork/internal/metrics"
	"fieldwork/internal/notify"
)

var (
	ErrForbidden         = errors.New("actor not allowed to modify this order")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoAgentAssigned   = errors.New("order has no assigned agent")
)

type Service interface {
	Create(ctx context.Context, customerID int, req CreateOrderRequest) (*Order, error)
	Get(ctx context.Context, orderID string, actorID int, role string) (*OrderWithTimeline, error)
	Accept(ctx context.Context, orderID string, agentID int) (*Order, error)
	Reject(ctx context.Context, orderID string, actorID int) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, actorID int, to Status, note string) (*Order, error)
	ListForCustomer(ctx context.Context, customerID, limit, offset int) ([]Order, error)
	ListForAgent(ctx context.Context, agentID, limit, offset int) ([]Order, error)
	ListPublic(ctx context.Context, limit, offset int) ([]Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]Order, error)
}

type service struct {
	repo     Store
	notifier notify.Notifier
	// Whether a declined direct request reopens to the public pool
	// instead of terminating.
	rejectedReopen bool
}

func NewService(repo Store, notifier notify.Notifier, rejectedReopen bool) Service {
	return &service{
		repo:           repo,
		notifier:       notifier,
		rejectedReopen: rejectedReopen,
	}
}

func (s *service) Create(ctx context.Context, customerID int, req CreateOrderRequest) (*Order, error) {
	if req.PriceCents <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidTransition)
	}

	o := &Order{
		ID:            uuid.NewString(),
		CustomerID:    customerID,
		Category:      req.Category,
		Description:   req.Description,
		PriceCents:    req.PriceCents,
		Status:        StatusPublic,
		PaymentStatus: PaymentPending,
	}
	if req.AgentID != nil {
		o.Status = StatusPendingAgentResponse
		o.RequestedAgentID = req.AgentID
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	metrics.RecordOrderTransition(string(o.Status))

	if o.RequestedAgentID != nil {
		s.notifier.Notify(ctx, *o.RequestedAgentID, notify.KindOrderUpdate, notify.OrderUpdatePayload{
			OrderID: o.ID,
			Status:  string(o.Status),
			Note:    "new direct order request",
		})
	}

	return o, nil
}

func (s *service) Get(ctx context.Context, orderID string, actorID int, role string) (*OrderWithTimeline, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !s.canView(o, actorID, role) {
		return nil, ErrForbidden
	}

	timeline, err := s.repo.GetTimeline(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &OrderWithTimeline{Order: *o, Timeline: timeline}, nil
}

// Accept assigns the calling agent. First accept wins; losers get
// ErrOrderConflict from the conditional update, never a silent overwrite.
func (s *service) Accept(ctx context.Context, orderID string, agentID int) (*Order, error) {
	o, err := s.repo.Accept(ctx, orderID, agentID, "order accepted")
	if err != nil {
		if errors.Is(err, ErrOrderConflict) {
			metrics.RecordAcceptConflict()
		}
		return nil, err
	}

	metrics.RecordOrderTransition(string(o.Status))

	s.notifier.Notify(ctx, o.CustomerID, notify.KindOrderUpdate, notify.OrderUpdatePayload{
		OrderID: o.ID,
		Status:  string(o.Status),
		Note:    "an agent accepted your order",
	})

	return o, nil
}

// Reject declines an open order. A directly-requested order may only be
// declined by the agent it was sent to; whether it then reopens to the
// public pool or terminates is configuration. A public order can only be
// withdrawn by its owning customer.
func (s *service) Reject(ctx context.Context, orderID string, actorID int) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	target := StatusRejected
	note := "order rejected"

	switch o.Status {
	case StatusPendingAgentResponse:
		if o.RequestedAgentID == nil || *o.RequestedAgentID != actorID {
			return nil, ErrForbidden
		}
		if s.rejectedReopen {
			target = StatusPublic
			note = "agent declined, order reopened to public pool"
		}
	case StatusPublic:
		if o.CustomerID != actorID {
			return nil, ErrForbidden
		}
	default:
		return nil, fmt.Errorf("%w: cannot reject order in status %s", ErrInvalidTransition, o.Status)
	}

	updated, err := s.repo.Transition(ctx, orderID, o.Status, target, note, &actorID)
	if err != nil {
		return nil, err
	}

	metrics.RecordOrderTransition(string(updated.Status))

	s.notifier.Notify(ctx, updated.CustomerID, notify.KindOrderUpdate, notify.OrderUpdatePayload{
		OrderID: updated.ID,
		Status:  string(updated.Status),
		Note:    note,
	})

	return updated, nil
}

// UpdateStatus is the generic guarded transition for in-flight orders.
func (s *service) UpdateStatus(ctx context.Context, orderID string, actorID int, to Status, note string) (*Order, error) {
	if !ValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !s.isParty(o, actorID) {
		return nil, ErrForbidden
	}

	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	if (to == StatusInProgress || to == StatusCompleted) && o.AgentID == nil {
		return nil, ErrNoAgentAssigned
	}

	if note == "" {
		note = fmt.Sprintf("status changed to %s", to)
	}

	updated, err := s.repo.Transition(ctx, orderID, o.Status, to, note, &actorID)
	if err != nil {
		return nil, err
	}

	metrics.RecordOrderTransition(string(updated.Status))

	s.notifyCounterpart(ctx, updated, actorID, note)

	return updated, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID, limit, offset int) ([]Order, error) {
	return s.repo.ListByCustomer(ctx, customerID, limit, offset)
}

func (s *service) ListForAgent(ctx context.Context, agentID, limit, offset int) ([]Order, error) {
	return s.repo.ListByAgent(ctx, agentID, limit, offset)
}

func (s *service) ListPublic(ctx context.Context, limit, offset int) ([]Order, error) {
	return s.repo.ListPublic(ctx, limit, offset)
}

func (s *service) ListAll(ctx context.Context, limit, offset int) ([]Order, error) {
	return s.repo.ListAll(ctx, limit, offset)
}

func (s *service) isParty(o *Order, actorID int) bool {
	if o.CustomerID == actorID {
		return true
	}
	if o.AgentID != nil && *o.AgentID == actorID {
		return true
	}
	return false
}

func (s *service) canView(o *Order, actorID int, role string) bool {
	if role == auth.RoleAdmin {
		return true
	}
	if s.isParty(o, actorID) {
		return true
	}
	if o.RequestedAgentID != nil && *o.RequestedAgentID == actorID {
		return true
	}
	// pool orders are browsable by any agent
	return o.Status == StatusPublic && role == auth.RoleAgent
}

func (s *service) notifyCounterpart(ctx context.Context, o *Order, actorID int, note string) {
	target := o.CustomerID
	if actorID == o.CustomerID && o.AgentID != nil {
		target = *o.AgentID
	}
	if target == actorID {
		return
	}

	s.notifier.Notify(ctx, target, notify.KindOrderUpdate, notify.OrderUpdatePayload{
		OrderID: o.ID,
		Status:  string(o.Status),
		Note:    note,
	})
}
