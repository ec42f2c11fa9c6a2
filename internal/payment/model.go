package payment

import "time"

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Payment is one charge attempt. Reference is the correlation key shared
// with the gateway and the wallet ledger; at most one success can ever be
// recorded per reference.
type Payment struct {
	ID          string    `db:"id" json:"id"`
	OrderID     string    `db:"order_id" json:"order_id"`
	CustomerID  int       `db:"customer_id" json:"customer_id"`
	AgentID     int       `db:"agent_id" json:"agent_id"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Method      string    `db:"method" json:"method"`
	Reference   string    `db:"reference" json:"reference"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type InitiateResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

// webhookEnvelope mirrors the provider's event shape. Only the fields the
// reconciler correlates on are decoded; everything else is re-verified
// against the gateway instead of trusted.
type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	} `json:"data"`
}
