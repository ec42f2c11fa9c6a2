package withdrawal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fieldwork/internal/logger"
	"fieldwork/internal/metrics"
	"fieldwork/internal/notify"
	"fieldwork/internal/paystack"
	"fieldwork/internal/user"
	"fieldwork/internal/wallet"
)

var (
	ErrNoBankDetails = errors.New("agent has no bank details on file")
	// ErrOutcomeUnknown means the transfer may or may not have been created
	// at the gateway and we could not find out. The wallet reservation is
	// kept; the withdrawal stays pending until the gateway answers.
	ErrOutcomeUnknown = errors.New("transfer outcome unknown, withdrawal left pending")
)

// Gateway is the slice of the paystack client the reconciler needs.
type Gateway interface {
	CreateRecipient(ctx context.Context, name, bankCode, accountNumber string) (string, error)
	InitiateTransfer(ctx context.Context, amountCents int64, recipientCode, reference string) (string, error)
	VerifyTransfer(ctx context.Context, reference string) (*paystack.TransferStatus, error)
}

type Service interface {
	Initiate(ctx context.Context, agentID int, amountCents int64) (*Withdrawal, error)
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) error
}

type service struct {
	repo          Store
	users         user.Store
	ledger        wallet.Ledger
	gateway       Gateway
	notifier      notify.Notifier
	webhookSecret string
}

func NewService(repo Store, users user.Store, ledger wallet.Ledger, gateway Gateway, notifier notify.Notifier, webhookSecret string) Service {
	return &service{
		repo:          repo,
		users:         users,
		ledger:        ledger,
		gateway:       gateway,
		notifier:      notifier,
		webhookSecret: webhookSecret,
	}
}

// Initiate reserves the funds, then talks to the gateway. The debit comes
// first so an agent can never have more in flight than they own; any
// failure after it credits the same reference back before returning.
func (s *service) Initiate(ctx context.Context, agentID int, amountCents int64) (*Withdrawal, error) {
	if amountCents <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	reference := uuid.NewString()

	if _, err := s.ledger.Debit(ctx, agentID, amountCents, reference); err != nil {
		// Insufficient funds fails here, before any record or any
		// external call.
		return nil, err
	}

	recipientCode, err := s.ensureRecipient(ctx, agentID)
	if err != nil {
		s.compensate(ctx, agentID, amountCents, reference, "recipient setup failed")
		return nil, err
	}

	w := &Withdrawal{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		AmountCents: amountCents,
		Status:      StatusPending,
		Reference:   reference,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		s.compensate(ctx, agentID, amountCents, reference, "withdrawal record creation failed")
		return nil, err
	}

	transferCode, err := s.gateway.InitiateTransfer(ctx, amountCents, recipientCode, reference)
	if err != nil {
		// A timed-out initiation may be resolved into a live transfer;
		// resolveInitiationFailure moves w to processing in that case.
		if rerr := s.resolveInitiationFailure(ctx, w, err); rerr != nil {
			return nil, rerr
		}
		return w, nil
	}

	if _, err := s.repo.MarkProcessing(ctx, reference, transferCode); err != nil {
		// The transfer exists; the webhook will still find the
		// withdrawal by reference and settle it.
		logger.Error("withdrawal: failed to record transfer code", "reference", reference, "error", err.Error())
	} else {
		w.Status = StatusProcessing
		w.TransferCode = &transferCode
	}

	metrics.RecordWithdrawal(w.Status)

	return w, nil
}

// resolveInitiationFailure distinguishes "the gateway said no" from "we do
// not know what happened". Rejections are compensated immediately; on a
// timeout the transfer is looked up by our own reference first, so a
// transfer that actually went through is never paid out twice.
func (s *service) resolveInitiationFailure(ctx context.Context, w *Withdrawal, initErr error) error {
	if errors.Is(initErr, paystack.ErrGatewayUnavailable) {
		status, verifyErr := s.gateway.VerifyTransfer(ctx, w.Reference)
		if verifyErr == nil {
			// The transfer was created after all; carry on as if
			// initiation had succeeded.
			if _, err := s.repo.MarkProcessing(ctx, w.Reference, status.TransferCode); err == nil {
				w.Status = StatusProcessing
				w.TransferCode = &status.TransferCode
			}
			metrics.RecordWithdrawal(w.Status)
			return nil
		}
		if !errors.Is(verifyErr, paystack.ErrTransferNotFound) {
			// Cannot prove it does not exist, so the reservation
			// must stand.
			logger.Error("withdrawal: outcome unknown", "reference", w.Reference, "error", verifyErr.Error())
			s.notifier.Notify(ctx, w.AgentID, notify.KindAdminAlert, notify.AdminAlertPayload{
				Subject: "withdrawal outcome unknown",
				Detail:  fmt.Sprintf("reference %s needs manual reconciliation", w.Reference),
			})
			return ErrOutcomeUnknown
		}
	}

	// Rejected, or provably never created.
	if _, err := s.repo.MarkTerminal(ctx, w.Reference, StatusFailed); err != nil {
		logger.Error("withdrawal: failed to mark failed", "reference", w.Reference, "error", err.Error())
	}
	s.compensate(ctx, w.AgentID, w.AmountCents, w.Reference, "transfer initiation failed")
	metrics.RecordWithdrawal(StatusFailed)
	return initErr
}

func (s *service) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !paystack.ValidSignature(rawBody, signature, s.webhookSecret) {
		metrics.RecordWebhookEvent("transfer", "invalid_signature")
		return paystack.ErrInvalidSignature
	}

	var ev webhookEnvelope
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		metrics.RecordWebhookEvent("transfer", "malformed")
		logger.Error("transfer webhook: malformed body", "error", err.Error())
		return nil
	}

	switch ev.Event {
	case "transfer.success", "transfer.failed", "transfer.reversed":
	default:
		metrics.RecordWebhookEvent("transfer", "ignored")
		return nil
	}
	if ev.Data.Reference == "" {
		metrics.RecordWebhookEvent("transfer", "ignored")
		return nil
	}

	w, err := s.repo.GetByReference(ctx, ev.Data.Reference)
	if err != nil {
		if errors.Is(err, ErrWithdrawalNotFound) {
			// Not ours, or delivered before the row committed. Let
			// the provider retry.
			metrics.RecordWebhookEvent("transfer", "unknown_reference")
		}
		return fmt.Errorf("withdrawal lookup %s: %w", ev.Data.Reference, err)
	}

	if terminal(w.Status) {
		// An already-failed withdrawal may still owe its refund when an
		// earlier delivery flipped the status but hit a transient error
		// crediting. The credit is keyed by the withdrawal reference, so
		// retrying it here applies at most once.
		if w.Status == StatusFailed && ev.Event != "transfer.success" {
			if _, err := s.ledger.Credit(ctx, w.AgentID, w.AmountCents, w.Reference); err != nil {
				return fmt.Errorf("refund withdrawal %s: %w", w.Reference, err)
			}
		}
		metrics.RecordWebhookEvent("transfer", "duplicate")
		return nil
	}

	if ev.Event == "transfer.success" {
		applied, err := s.repo.MarkTerminal(ctx, w.Reference, StatusCompleted)
		if err != nil {
			return err
		}
		if applied {
			metrics.RecordWithdrawal(StatusCompleted)
			metrics.RecordWebhookEvent("transfer", "processed")
			s.notifier.Notify(ctx, w.AgentID, notify.KindWithdrawalUpdate, notify.WithdrawalUpdatePayload{
				WithdrawalID: w.ID,
				Reference:    w.Reference,
				AmountCents:  w.AmountCents,
				Status:       StatusCompleted,
			})
		}
		return nil
	}

	// transfer.failed / transfer.reversed
	applied, err := s.repo.MarkTerminal(ctx, w.Reference, StatusFailed)
	if err != nil {
		return err
	}

	// Refund the reservation. Keyed by the withdrawal reference, so a
	// redelivered failure event cannot credit twice.
	if _, err := s.ledger.Credit(ctx, w.AgentID, w.AmountCents, w.Reference); err != nil {
		return fmt.Errorf("refund withdrawal %s: %w", w.Reference, err)
	}

	if applied {
		metrics.RecordWithdrawal(StatusFailed)
		metrics.RecordWebhookEvent("transfer", "processed")
		s.notifier.Notify(ctx, w.AgentID, notify.KindWithdrawalUpdate, notify.WithdrawalUpdatePayload{
			WithdrawalID: w.ID,
			Reference:    w.Reference,
			AmountCents:  w.AmountCents,
			Status:       StatusFailed,
		})
	} else {
		metrics.RecordWebhookEvent("transfer", "duplicate")
	}

	return nil
}

func (s *service) ensureRecipient(ctx context.Context, agentID int) (string, error) {
	agent, err := s.users.FindByID(ctx, agentID)
	if err != nil {
		return "", err
	}

	if agent.RecipientCode != nil && *agent.RecipientCode != "" {
		return *agent.RecipientCode, nil
	}

	if agent.BankCode == nil || agent.AccountNumber == nil || agent.AccountName == nil {
		return "", ErrNoBankDetails
	}

	code, err := s.gateway.CreateRecipient(ctx, *agent.AccountName, *agent.BankCode, *agent.AccountNumber)
	if err != nil {
		return "", err
	}

	if err := s.users.SetRecipientCode(ctx, agentID, code); err != nil {
		// The recipient exists at the gateway; losing the handle only
		// costs recreating it next time.
		logger.Error("withdrawal: failed to persist recipient code", "agent_id", agentID, "error", err.Error())
	}

	return code, nil
}

// compensate returns reserved funds to the wallet. Credit shares the
// withdrawal's reference, so it can race with a webhook refund and still
// apply at most once.
func (s *service) compensate(ctx context.Context, agentID int, amountCents int64, reference, reason string) {
	if _, err := s.ledger.Credit(ctx, agentID, amountCents, reference); err != nil {
		// Never swallow a failed refund silently.
		logger.Error("withdrawal: compensating credit failed",
			"agent_id", agentID, "reference", reference, "reason", reason, "error", err.Error())
		s.notifier.Notify(ctx, agentID, notify.KindAdminAlert, notify.AdminAlertPayload{
			Subject: "compensating credit failed",
			Detail:  fmt.Sprintf("reference %s (%s): %d cents owed to agent %d", reference, reason, amountCents, agentID),
		})
	}
}
