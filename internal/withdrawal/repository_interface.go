package withdrawal

import "context"

type Store interface {
	Create(ctx context.Context, w *Withdrawal) error
	GetByReference(ctx context.Context, reference string) (*Withdrawal, error)
	MarkProcessing(ctx context.Context, reference, transferCode string) (bool, error)
	MarkTerminal(ctx context.Context, reference, to string) (bool, error)
	ListByAgent(ctx context.Context, agentID, limit, offset int) ([]Withdrawal, error)
	ListAll(ctx context.Context, limit, offset int) ([]Withdrawal, error)
}
