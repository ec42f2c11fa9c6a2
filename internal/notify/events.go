package notify

// Kind is a closed set of notification variants. Each kind carries its own
// payload struct; nothing else should be marshaled into Event.Data.
type Kind string

const (
	KindOrderUpdate      Kind = "order_update"
	KindPaymentReceived  Kind = "payment_received"
	KindWithdrawalUpdate Kind = "withdrawal_update"
	KindAdminAlert       Kind = "admin_alert"
)

type OrderUpdatePayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Note    string `json:"note,omitempty"`
}

type PaymentReceivedPayload struct {
	OrderID     string `json:"order_id"`
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
}

type WithdrawalUpdatePayload struct {
	WithdrawalID string `json:"withdrawal_id"`
	Reference    string `json:"reference"`
	AmountCents  int64  `json:"amount_cents"`
	Status       string `json:"status"`
}

type AdminAlertPayload struct {
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
}

func (k Kind) valid() bool {
	switch k {
	case KindOrderUpdate, KindPaymentReceived, KindWithdrawalUpdate, KindAdminAlert:
		return true
	}
	return false
}
