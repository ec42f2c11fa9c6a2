package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fieldwork/internal/logger"
	"fieldwork/internal/metrics"
	"fieldwork/internal/notify"
	"fieldwork/internal/order"
	"fieldwork/internal/paystack"
	"fieldwork/internal/user"
	"fieldwork/internal/wallet"
)

var (
	ErrNotOrderCustomer = errors.New("only the order's customer can pay for it")
	ErrOrderAlreadyPaid = errors.New("order is already paid")
)

// Gateway is the slice of the paystack client the reconciler needs.
type Gateway interface {
	InitializeCharge(ctx context.Context, amountCents int64, email, reference string) (*paystack.InitializeChargeResponse, error)
	VerifyCharge(ctx context.Context, reference string) (*paystack.ChargeStatus, error)
}

type Service interface {
	Initiate(ctx context.Context, orderID string, customerID int) (*InitiateResponse, error)
	// HandleWebhook processes one raw webhook delivery. It must be safe
	// under arbitrary redelivery: every state change is conditional or
	// idempotency-keyed.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) error
}

type service struct {
	repo          Store
	orders        order.Store
	users         user.Store
	ledger        wallet.Ledger
	gateway       Gateway
	notifier      notify.Notifier
	webhookSecret string
}

func NewService(repo Store, orders order.Store, users user.Store, ledger wallet.Ledger, gateway Gateway, notifier notify.Notifier, webhookSecret string) Service {
	return &service{
		repo:          repo,
		orders:        orders,
		users:         users,
		ledger:        ledger,
		gateway:       gateway,
		notifier:      notifier,
		webhookSecret: webhookSecret,
	}
}

func (s *service) Initiate(ctx context.Context, orderID string, customerID int) (*InitiateResponse, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, ErrNotOrderCustomer
	}
	if o.AgentID == nil {
		return nil, order.ErrNoAgentAssigned
	}
	if o.PaymentStatus == order.PaymentPaid {
		return nil, ErrOrderAlreadyPaid
	}

	payer, err := s.users.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	reference := uuid.NewString()

	charge, err := s.gateway.InitializeCharge(ctx, o.PriceCents, payer.Email, reference)
	if err != nil {
		return nil, err
	}

	p := &Payment{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		AgentID:     *o.AgentID,
		AmountCents: o.PriceCents,
		Method:      "paystack",
		Reference:   reference,
		Status:      StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	metrics.RecordPayment(StatusPending)

	return &InitiateResponse{
		AuthorizationURL: charge.AuthorizationURL,
		Reference:        reference,
	}, nil
}

func (s *service) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	// Signature over the raw body, before any parsing.
	if !paystack.ValidSignature(rawBody, signature, s.webhookSecret) {
		metrics.RecordWebhookEvent("payment", "invalid_signature")
		return paystack.ErrInvalidSignature
	}

	var ev webhookEnvelope
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		metrics.RecordWebhookEvent("payment", "malformed")
		logger.Error("payment webhook: malformed body", "error", err.Error())
		return nil
	}

	if ev.Event != "charge.success" {
		metrics.RecordWebhookEvent("payment", "ignored")
		return nil
	}
	if ev.Data.Reference == "" {
		metrics.RecordWebhookEvent("payment", "ignored")
		logger.Error("payment webhook: charge.success without reference")
		return nil
	}

	// Never trust the event payload: re-verify the charge with the
	// gateway before moving any money.
	verified, err := s.gateway.VerifyCharge(ctx, ev.Data.Reference)
	if err != nil {
		metrics.RecordWebhookEvent("payment", "verify_error")
		return fmt.Errorf("verify charge %s: %w", ev.Data.Reference, err)
	}
	if verified.Status != "success" {
		logger.Warn("payment webhook: event claimed success but gateway disagrees",
			"reference", ev.Data.Reference, "gateway_status", verified.Status)
		if !terminalChargeStatus(verified.Status) {
			metrics.RecordWebhookEvent("payment", "not_successful")
			return nil
		}
		return s.markFailed(ctx, ev.Data.Reference)
	}

	p, err := s.repo.GetByReference(ctx, ev.Data.Reference)
	if err != nil {
		// Unknown reference: possibly delivered before our row committed,
		// let the provider retry.
		metrics.RecordWebhookEvent("payment", "unknown_reference")
		return fmt.Errorf("payment lookup %s: %w", ev.Data.Reference, err)
	}

	if verified.AmountCents < p.AmountCents {
		metrics.RecordWebhookEvent("payment", "amount_mismatch")
		logger.Error("payment webhook: verified amount below recorded amount",
			"reference", p.Reference, "verified", verified.AmountCents, "recorded", p.AmountCents)
		s.notifier.Notify(ctx, p.AgentID, notify.KindAdminAlert, notify.AdminAlertPayload{
			Subject: "payment amount mismatch",
			Detail:  fmt.Sprintf("reference %s: verified %d < recorded %d", p.Reference, verified.AmountCents, p.AmountCents),
		})
		return nil
	}

	applied, err := s.repo.MarkStatus(ctx, p.Reference, StatusPending, StatusSuccess)
	if err != nil {
		return err
	}

	// Credit is keyed by the payment reference, so this line is safe to
	// reach any number of times: the ledger applies it exactly once.
	if _, err := s.ledger.Credit(ctx, p.AgentID, p.AmountCents, p.Reference); err != nil {
		return fmt.Errorf("credit agent %d for %s: %w", p.AgentID, p.Reference, err)
	}

	if _, err := s.orders.SetPaymentStatus(ctx, p.OrderID, order.PaymentPending, order.PaymentPaid); err != nil {
		return err
	}

	if applied {
		metrics.RecordPayment(StatusSuccess)
		metrics.RecordWebhookEvent("payment", "processed")
		s.notifier.Notify(ctx, p.AgentID, notify.KindPaymentReceived, notify.PaymentReceivedPayload{
			OrderID:     p.OrderID,
			Reference:   p.Reference,
			AmountCents: p.AmountCents,
		})
	} else {
		metrics.RecordWebhookEvent("payment", "duplicate")
	}

	return nil
}

// terminalChargeStatus reports whether the gateway considers the charge
// dead. Anything else ("pending", "ongoing", ...) may still settle and the
// payment stays pending for a later delivery.
func terminalChargeStatus(status string) bool {
	switch status {
	case "failed", "abandoned", "reversed":
		return true
	}
	return false
}

// markFailed settles a charge the gateway reports as terminally failed.
// The conditional flip keeps redeliveries no-ops, and a payment that
// already succeeded is never demoted.
func (s *service) markFailed(ctx context.Context, reference string) error {
	p, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		metrics.RecordWebhookEvent("payment", "unknown_reference")
		return fmt.Errorf("payment lookup %s: %w", reference, err)
	}

	applied, err := s.repo.MarkStatus(ctx, p.Reference, StatusPending, StatusFailed)
	if err != nil {
		return err
	}
	if !applied {
		metrics.RecordWebhookEvent("payment", "duplicate")
		return nil
	}

	metrics.RecordPayment(StatusFailed)
	metrics.RecordWebhookEvent("payment", "failed")
	if _, err := s.orders.SetPaymentStatus(ctx, p.OrderID, order.PaymentPending, order.PaymentFailed); err != nil {
		return err
	}
	return nil
}
