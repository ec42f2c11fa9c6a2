package payment

import "context"

type Store interface {
	Create(ctx context.Context, p *Payment) error
	GetByReference(ctx context.Context, reference string) (*Payment, error)
	MarkStatus(ctx context.Context, reference, from, to string) (bool, error)
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
	ListAll(ctx context.Context, limit, offset int) ([]Payment, error)
}
