package order

import "context"

type Store interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetTimeline(ctx context.Context, orderID string) ([]Event, error)
	Accept(ctx context.Context, orderID string, agentID int, note string) (*Order, error)
	Transition(ctx context.Context, orderID string, from, to Status, note string, actorID *int) (*Order, error)
	SetPaymentStatus(ctx context.Context, orderID string, from, to PaymentStatus) (bool, error)
	ListByCustomer(ctx context.Context, customerID, limit, offset int) ([]Order, error)
	ListByAgent(ctx context.Context, agentID, limit, offset int) ([]Order, error)
	ListPublic(ctx context.Context, limit, offset int) ([]Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]Order, error)
}
