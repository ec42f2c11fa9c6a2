package wallet

import "time"

const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

type Wallet struct {
	ID           int       `db:"id" json:"id"`
	UserID       int       `db:"user_id" json:"user_id"`
	BalanceCents int64     `db:"balance_cents" json:"balance_cents"`
	Currency     string    `db:"currency" json:"currency"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Entry is one applied ledger mutation. The (wallet_id, reference, direction)
// unique key is what makes Credit and Debit replay-safe: a second call with
// the same reference finds the row already present and changes nothing.
type Entry struct {
	ID           int       `db:"id" json:"id"`
	WalletID     int       `db:"wallet_id" json:"wallet_id"`
	Reference    string    `db:"reference" json:"reference"`
	Direction    string    `db:"direction" json:"direction"`
	AmountCents  int64     `db:"amount_cents" json:"amount_cents"`
	BalanceAfter int64     `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
