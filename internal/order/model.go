package order

import "time"

type Order struct {
	ID               string        `db:"id" json:"id"`
	CustomerID       int           `db:"customer_id" json:"customer_id"`
	AgentID          *int          `db:"agent_id" json:"agent_id,omitempty"`
	RequestedAgentID *int          `db:"requested_agent_id" json:"requested_agent_id,omitempty"`
	Category         string        `db:"category" json:"category"`
	Description      string        `db:"description" json:"description"`
	PriceCents       int64         `db:"price_cents" json:"price_cents"`
	Status           Status        `db:"status" json:"status"`
	PaymentStatus    PaymentStatus `db:"payment_status" json:"payment_status"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// Event is one timeline entry. The timeline is append-only; its newest entry
// always matches the order's current status because both are written in one
// transaction.
type Event struct {
	ID        int       `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	Status    Status    `db:"status" json:"status"`
	Note      string    `db:"note" json:"note"`
	ActorID   *int      `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreateOrderRequest struct {
	Category    string `json:"category" binding:"required"`
	Description string `json:"description" binding:"required"`
	PriceCents  int64  `json:"price_cents" binding:"required,gt=0"`
	// When set, the order goes straight to that agent instead of the
	// public pool.
	AgentID *int `json:"agent_id,omitempty"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type OrderWithTimeline struct {
	Order
	Timeline []Event `json:"timeline"`
}
