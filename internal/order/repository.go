package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderConflict means a conditional transition found the order in a
	// different state than expected: a concurrent actor won the race.
	ErrOrderConflict = errors.New("order state changed concurrently")
)

const orderColumns = `id, customer_id, agent_id, requested_agent_id, category, description, price_cents, status, payment_status, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO orders (id, customer_id, agent_id, requested_agent_id, category, description, price_cents, status, payment_status)
		 VALUES ($1, $2, NULL, $3, $4, $5, $6, $7, $8)
		 RETURNING `+orderColumns,
		o.ID, o.CustomerID, o.RequestedAgentID, o.Category, o.Description, o.PriceCents, o.Status, o.PaymentStatus,
	).StructScan(o)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_events (order_id, status, note, actor_id)
		 VALUES ($1, $2, $3, $4)`,
		o.ID, o.Status, "order created", o.CustomerID,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetTimeline(ctx context.Context, orderID string) ([]Event, error) {
	var events []Event
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, order_id, status, note, actor_id, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Accept assigns the order to agentID. The WHERE clause is the whole
// concurrency story: only the first accept finds an unassigned order in an
// open status, everyone else gets zero rows and an ErrOrderConflict.
func (r *Repository) Accept(ctx context.Context, orderID string, agentID int, note string) (*Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var o Order
	err = tx.QueryRowxContext(ctx,
		`UPDATE orders
		 SET agent_id = $2, status = $3, updated_at = NOW()
		 WHERE id = $1
		   AND agent_id IS NULL
		   AND status IN ($4, $5)
		 RETURNING `+orderColumns,
		orderID, agentID, StatusAccepted, StatusPendingAgentResponse, StatusPublic,
	).StructScan(&o)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		exists, existsErr := r.exists(ctx, orderID)
		if existsErr != nil {
			return nil, existsErr
		}
		if !exists {
			return nil, ErrOrderNotFound
		}
		return nil, ErrOrderConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_events (order_id, status, note, actor_id)
		 VALUES ($1, $2, $3, $4)`,
		o.ID, o.Status, note, agentID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &o, nil
}

// Transition moves the order from exactly `from` to `to` and appends the
// matching timeline entry in the same transaction. A zero-row update means
// the caller's view of the order is stale.
func (r *Repository) Transition(ctx context.Context, orderID string, from, to Status, note string, actorID *int) (*Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var o Order
	err = tx.QueryRowxContext(ctx,
		`UPDATE orders
		 SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+orderColumns,
		orderID, from, to,
	).StructScan(&o)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		exists, existsErr := r.exists(ctx, orderID)
		if existsErr != nil {
			return nil, existsErr
		}
		if !exists {
			return nil, ErrOrderNotFound
		}
		return nil, ErrOrderConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_events (order_id, status, note, actor_id)
		 VALUES ($1, $2, $3, $4)`,
		o.ID, o.Status, note, actorID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &o, nil
}

// SetPaymentStatus flips the payment axis without touching the lifecycle
// status or the timeline. Returns false when the order was not in `from`,
// which callers treat as an idempotent no-op.
func (r *Repository) SetPaymentStatus(ctx context.Context, orderID string, from, to PaymentStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		 SET payment_status = $3, updated_at = NOW()
		 WHERE id = $1 AND payment_status = $2`,
		orderID, from, to,
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

func (r *Repository) ListByCustomer(ctx context.Context, customerID, limit, offset int) ([]Order, error) {
	return r.list(ctx, `WHERE customer_id = $1`, customerID, limit, offset)
}

func (r *Repository) ListByAgent(ctx context.Context, agentID, limit, offset int) ([]Order, error) {
	return r.list(ctx, `WHERE agent_id = $1 OR requested_agent_id = $1`, agentID, limit, offset)
}

// ListPublic is the open pool agents browse for work.
func (r *Repository) ListPublic(ctx context.Context, limit, offset int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, StatusPublic, limit, offset)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Repository) ListAll(ctx context.Context, limit, offset int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Repository) list(ctx context.Context, where string, id, limit, offset int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+`
		FROM orders
		`+where+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, id, limit, offset)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Repository) exists(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID)
	if err != nil {
		return false, err
	}
	return exists, nil
}
