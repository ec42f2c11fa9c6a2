package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrPaymentNotFound = errors.New("payment not found")

const paymentColumns = `id, order_id, customer_id, agent_id, amount_cents, method, reference, status, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *Payment) error {
	return r.db.QueryRowxContext(ctx,
		`INSERT INTO payments (id, order_id, customer_id, agent_id, amount_cents, method, reference, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+paymentColumns,
		p.ID, p.OrderID, p.CustomerID, p.AgentID, p.AmountCents, p.Method, p.Reference, p.Status,
	).StructScan(p)
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MarkStatus transitions the payment from exactly `from` to `to`. Returns
// false without error when the payment was not in `from` anymore; terminal
// states are immutable so a replayed confirmation lands here.
func (r *Repository) MarkStatus(ctx context.Context, reference, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments
		 SET status = $3, updated_at = NOW()
		 WHERE reference = $1 AND status = $2`,
		reference, from, to,
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

func (r *Repository) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	var payments []Payment
	err := r.db.SelectContext(ctx, &payments,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *Repository) ListAll(ctx context.Context, limit, offset int) ([]Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	var payments []Payment
	err := r.db.SelectContext(ctx, &payments,
		`SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return payments, nil
}
