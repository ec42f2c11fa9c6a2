package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"fieldwork/internal/metrics"
)

var (
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrEmptyReference    = errors.New("ledger reference required")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = wallets.updated_at
		 RETURNING id, user_id, balance_cents, currency, created_at, updated_at`,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// Credit adds amountCents to the user's balance, keyed by reference.
// Replaying the same reference is a no-op that returns the current wallet.
func (r *Repository) Credit(ctx context.Context, userID int, amountCents int64, reference string) (*Wallet, error) {
	return r.apply(ctx, userID, amountCents, DirectionCredit, reference)
}

// Debit removes amountCents from the user's balance, keyed by reference.
// Fails with ErrInsufficientFunds, committing nothing, when the balance
// cannot cover a fresh debit. Replays are no-ops regardless of balance.
func (r *Repository) Debit(ctx context.Context, userID int, amountCents int64, reference string) (*Wallet, error) {
	return r.apply(ctx, userID, amountCents, DirectionDebit, reference)
}

func (r *Repository) apply(ctx context.Context, userID int, amountCents int64, direction, reference string) (*Wallet, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if reference == "" {
		return nil, ErrEmptyReference
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var w Wallet
	err = tx.QueryRowxContext(ctx,
		`SELECT id, user_id, balance_cents, currency, created_at, updated_at
		 FROM wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(&w)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO wallets (user_id)
			 VALUES ($1)
			 RETURNING id, user_id, balance_cents, currency, created_at, updated_at`,
			userID,
		).StructScan(&w)
		if err != nil {
			return nil, err
		}
	}

	newBalance := w.BalanceCents + amountCents
	if direction == DirectionDebit {
		newBalance = w.BalanceCents - amountCents
	}

	// The entry row doubles as the idempotency record. Zero rows inserted
	// means this reference was applied before; commit without touching the
	// balance. The insert runs before the balance check so a replayed debit
	// stays a no-op even when the first application drained the balance.
	res, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_entries (wallet_id, reference, direction, amount_cents, balance_after)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (wallet_id, reference, direction) DO NOTHING`,
		w.ID, reference, direction, amountCents, newBalance,
	)
	if err != nil {
		return nil, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		metrics.RecordWalletEntry(direction, "replayed")
		return &w, nil
	}

	if newBalance < 0 {
		// Fresh debit the balance cannot cover; the rollback discards the
		// entry row along with everything else.
		return nil, ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE wallets
		 SET balance_cents = $1, updated_at = NOW()
		 WHERE id = $2`,
		newBalance, w.ID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordWalletEntry(direction, "applied")
	w.BalanceCents = newBalance
	return &w, nil
}

func (r *Repository) GetEntries(ctx context.Context, userID int, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var walletID int
	err := r.db.GetContext(ctx, &walletID, `SELECT id FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Entry{}, nil
		}
		return nil, err
	}

	var entries []Entry
	err = r.db.SelectContext(ctx, &entries, `
		SELECT id, wallet_id, reference, direction, amount_cents, balance_after, created_at
		FROM wallet_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
