package order

type Status string

const (
	StatusPendingAgentResponse Status = "pending_agent_response"
	StatusPublic               Status = "public"
	StatusAccepted             Status = "accepted"
	StatusRejected             Status = "rejected"
	StatusInProgress           Status = "in_progress"
	StatusCompleted            Status = "completed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// validNext encodes the order lifecycle. A direct request that gets declined
// may reopen to the public pool, so public is a legal successor of
// pending_agent_response.
var validNext = map[Status]map[Status]bool{
	StatusPendingAgentResponse: {StatusPublic: true, StatusAccepted: true, StatusRejected: true},
	StatusPublic:               {StatusAccepted: true, StatusRejected: true},
	StatusAccepted:             {StatusInProgress: true},
	StatusInProgress:           {StatusCompleted: true},
	StatusRejected:             {},
	StatusCompleted:            {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return len(validNext[s]) == 0
}

func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}

var validPaymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:  {PaymentPaid: true, PaymentFailed: true},
	PaymentPaid:     {PaymentRefunded: true},
	PaymentFailed:   {PaymentPaid: true},
	PaymentRefunded: {},
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return validPaymentNext[from][to]
}
