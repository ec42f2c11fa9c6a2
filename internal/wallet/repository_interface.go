package wallet

import "context"

// Ledger is the only surface through which balances change. Credit and
// Debit are atomic per user and idempotent per reference.
type Ledger interface {
	GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error)
	Credit(ctx context.Context, userID int, amountCents int64, reference string) (*Wallet, error)
	Debit(ctx context.Context, userID int, amountCents int64, reference string) (*Wallet, error)
	GetEntries(ctx context.Context, userID int, limit, offset int) ([]Entry, error)
}
