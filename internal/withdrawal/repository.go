package withdrawal

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrWithdrawalNotFound = errors.New("withdrawal not found")

const withdrawalColumns = `id, agent_id, amount_cents, status, reference, transfer_code, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, w *Withdrawal) error {
	return r.db.QueryRowxContext(ctx,
		`INSERT INTO withdrawals (id, agent_id, amount_cents, status, reference)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+withdrawalColumns,
		w.ID, w.AgentID, w.AmountCents, w.Status, w.Reference,
	).StructScan(w)
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (*Withdrawal, error) {
	var w Withdrawal
	err := r.db.GetContext(ctx, &w, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE reference = $1`, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &w, nil
}

// MarkProcessing records the provider transfer handle and moves a pending
// withdrawal to processing.
func (r *Repository) MarkProcessing(ctx context.Context, reference, transferCode string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE withdrawals
		 SET status = $2, transfer_code = $3, updated_at = NOW()
		 WHERE reference = $1 AND status = $4`,
		reference, StatusProcessing, transferCode, StatusPending,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkTerminal moves a live withdrawal to completed or failed. Returns
// false when the withdrawal already reached a terminal state, which makes
// webhook redelivery a no-op.
func (r *Repository) MarkTerminal(ctx context.Context, reference, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE withdrawals
		 SET status = $2, updated_at = NOW()
		 WHERE reference = $1 AND status IN ($3, $4)`,
		reference, to, StatusPending, StatusProcessing,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *Repository) ListByAgent(ctx context.Context, agentID, limit, offset int) ([]Withdrawal, error) {
	if limit <= 0 {
		limit = 50
	}
	var withdrawals []Withdrawal
	err := r.db.SelectContext(ctx, &withdrawals,
		`SELECT `+withdrawalColumns+`
		 FROM withdrawals
		 WHERE agent_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		agentID, limit, offset)
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}

func (r *Repository) ListAll(ctx context.Context, limit, offset int) ([]Withdrawal, error) {
	if limit <= 0 {
		limit = 50
	}
	var withdrawals []Withdrawal
	err := r.db.SelectContext(ctx, &withdrawals,
		`SELECT `+withdrawalColumns+`
		 FROM withdrawals
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}
