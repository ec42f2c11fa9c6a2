package withdrawal

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Withdrawal is one payout attempt. The wallet debit happens before any
// external call (pessimistic reservation); reaching `failed` credits the
// same amount back exactly once.
type Withdrawal struct {
	ID           string    `db:"id" json:"id"`
	AgentID      int       `db:"agent_id" json:"agent_id"`
	AmountCents  int64     `db:"amount_cents" json:"amount_cents"`
	Status       string    `db:"status" json:"status"`
	Reference    string    `db:"reference" json:"reference"`
	TransferCode *string   `db:"transfer_code" json:"transfer_code,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type InitiateRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference    string `json:"reference"`
		TransferCode string `json:"transfer_code"`
		Status       string `json:"status"`
	} `json:"data"`
}

func terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
