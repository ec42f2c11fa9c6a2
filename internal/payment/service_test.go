package payment

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fieldwork/internal/notify"
	"fieldwork/internal/order"
	"fieldwork/internal/paystack"
	"fieldwork/internal/user"
	"fieldwork/internal/wallet"
)

const testWebhookSecret = "whsec_test"

type MockPaymentStore struct{ mock.Mock }

func (m *MockPaymentStore) Create(ctx context.Context, p *Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentStore) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockPaymentStore) MarkStatus(ctx context.Context, reference, from, to string) (bool, error) {
	args := m.Called(ctx, reference, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentStore) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Payment), args.Error(1)
}

func (m *MockPaymentStore) ListAll(ctx context.Context, limit, offset int) ([]Payment, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Payment), args.Error(1)
}

type MockOrders struct{ mock.Mock }

func (m *MockOrders) Create(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrders) GetByID(ctx context.Context, id string) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) GetTimeline(ctx context.Context, orderID string) ([]order.Event, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Event), args.Error(1)
}

func (m *MockOrders) Accept(ctx context.Context, orderID string, agentID int, note string) (*order.Order, error) {
	args := m.Called(ctx, orderID, agentID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) Transition(ctx context.Context, orderID string, from, to order.Status, note string, actorID *int) (*order.Order, error) {
	args := m.Called(ctx, orderID, from, to, note, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) SetPaymentStatus(ctx context.Context, orderID string, from, to order.PaymentStatus) (bool, error) {
	args := m.Called(ctx, orderID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrders) ListByCustomer(ctx context.Context, customerID, limit, offset int) ([]order.Order, error) {
	args := m.Called(ctx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrders) ListByAgent(ctx context.Context, agentID, limit, offset int) ([]order.Order, error) {
	args := m.Called(ctx, agentID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrders) ListPublic(ctx context.Context, limit, offset int) ([]order.Order, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrders) ListAll(ctx context.Context, limit, offset int) ([]order.Order, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

type MockUsers struct{ mock.Mock }

func (m *MockUsers) Create(ctx context.Context, name, email, passwordHash, role string) (*user.User, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsers) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsers) FindByID(ctx context.Context, id int) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) UpdateBankDetails(ctx context.Context, id int, bankCode, accountNumber, accountName string) error {
	return m.Called(ctx, id, bankCode, accountNumber, accountName).Error(0)
}

func (m *MockUsers) SetRecipientCode(ctx context.Context, id int, recipientCode string) error {
	return m.Called(ctx, id, recipientCode).Error(0)
}

type MockLedger struct{ mock.Mock }

func (m *MockLedger) GetOrCreateWallet(ctx context.Context, userID int) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockLedger) Credit(ctx context.Context, userID int, amountCents int64, reference string) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID, amountCents, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockLedger) Debit(ctx context.Context, userID int, amountCents int64, reference string) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID, amountCents, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockLedger) GetEntries(ctx context.Context, userID int, limit, offset int) ([]wallet.Entry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.Entry), args.Error(1)
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) InitializeCharge(ctx context.Context, amountCents int64, email, reference string) (*paystack.InitializeChargeResponse, error) {
	args := m.Called(ctx, amountCents, email, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paystack.InitializeChargeResponse), args.Error(1)
}

func (m *MockGateway) VerifyCharge(ctx context.Context, reference string) (*paystack.ChargeStatus, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paystack.ChargeStatus), args.Error(1)
}

type recordingNotifier struct {
	calls []notify.Kind
}

func (n *recordingNotifier) Notify(_ context.Context, _ int, kind notify.Kind, _ interface{}) {
	n.calls = append(n.calls, kind)
}

type paymentFixture struct {
	repo     *MockPaymentStore
	orders   *MockOrders
	users    *MockUsers
	ledger   *MockLedger
	gateway  *MockGateway
	notifier *recordingNotifier
	svc      Service
}

func newFixture() *paymentFixture {
	f := &paymentFixture{
		repo:     new(MockPaymentStore),
		orders:   new(MockOrders),
		users:    new(MockUsers),
		ledger:   new(MockLedger),
		gateway:  new(MockGateway),
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(f.repo, f.orders, f.users, f.ledger, f.gateway, f.notifier, testWebhookSecret)
	return f
}

func successBody(reference string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"amount":%d,"status":"success"}}`, reference, amount))
}

func TestInitiate_CreatesPendingPayment(t *testing.T) {
	f := newFixture()
	agentID := 9

	f.orders.On("GetByID", mock.Anything, "ord-1").Return(&order.Order{
		ID: "ord-1", CustomerID: 1, AgentID: &agentID,
		PriceCents: 150000, Status: order.StatusAccepted, PaymentStatus: order.PaymentPending,
	}, nil)
	f.users.On("FindByID", mock.Anything, 1).Return(&user.User{ID: 1, Email: "c@example.com"}, nil)
	f.gateway.On("InitializeCharge", mock.Anything, int64(150000), "c@example.com", mock.Anything).
		Return(&paystack.InitializeChargeResponse{AuthorizationURL: "https://checkout.example/abc", Reference: "ref"}, nil)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *Payment) bool {
		return p.OrderID == "ord-1" && p.AgentID == 9 && p.AmountCents == 150000 && p.Status == StatusPending
	})).Return(nil)

	resp, err := f.svc.Initiate(context.Background(), "ord-1", 1)

	assert.NoError(t, err)
	assert.Equal(t, "https://checkout.example/abc", resp.AuthorizationURL)
	assert.NotEmpty(t, resp.Reference)
	f.repo.AssertExpectations(t)
}

func TestInitiate_OnlyCustomerCanPay(t *testing.T) {
	f := newFixture()
	agentID := 9

	f.orders.On("GetByID", mock.Anything, "ord-1").Return(&order.Order{
		ID: "ord-1", CustomerID: 1, AgentID: &agentID, PriceCents: 150000,
	}, nil)

	_, err := f.svc.Initiate(context.Background(), "ord-1", 42)
	assert.ErrorIs(t, err, ErrNotOrderCustomer)
	f.gateway.AssertNotCalled(t, "InitializeCharge")
}

func TestInitiate_NoAgentNoCharge(t *testing.T) {
	f := newFixture()

	f.orders.On("GetByID", mock.Anything, "ord-1").Return(&order.Order{
		ID: "ord-1", CustomerID: 1, PriceCents: 150000,
	}, nil)

	_, err := f.svc.Initiate(context.Background(), "ord-1", 1)
	assert.ErrorIs(t, err, order.ErrNoAgentAssigned)
}

func TestInitiate_AlreadyPaid(t *testing.T) {
	f := newFixture()
	agentID := 9

	f.orders.On("GetByID", mock.Anything, "ord-1").Return(&order.Order{
		ID: "ord-1", CustomerID: 1, AgentID: &agentID,
		PriceCents: 150000, PaymentStatus: order.PaymentPaid,
	}, nil)

	_, err := f.svc.Initiate(context.Background(), "ord-1", 1)
	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)
}

func TestHandleWebhook_BadSignatureRejected(t *testing.T) {
	f := newFixture()

	body := successBody("ref-1", 150000)
	err := f.svc.HandleWebhook(context.Background(), body, "forged")

	assert.ErrorIs(t, err, paystack.ErrInvalidSignature)
	f.gateway.AssertNotCalled(t, "VerifyCharge")
	f.ledger.AssertNotCalled(t, "Credit")
}

func TestHandleWebhook_CreditsAgentOnce(t *testing.T) {
	f := newFixture()

	body := successBody("ref-1", 150000)
	sig := paystack.Sign(body, testWebhookSecret)

	f.gateway.On("VerifyCharge", mock.Anything, "ref-1").
		Return(&paystack.ChargeStatus{Status: "success", AmountCents: 150000, Reference: "ref-1"}, nil)
	f.repo.On("GetByReference", mock.Anything, "ref-1").Return(&Payment{
		ID: "pay-1", OrderID: "ord-1", CustomerID: 1, AgentID: 9,
		AmountCents: 150000, Reference: "ref-1", Status: StatusPending,
	}, nil)
	// First delivery flips the row, the second finds it already flipped.
	f.repo.On("MarkStatus", mock.Anything, "ref-1", StatusPending, StatusSuccess).Return(true, nil).Once()
	f.repo.On("MarkStatus", mock.Anything, "ref-1", StatusPending, StatusSuccess).Return(false, nil).Once()
	f.ledger.On("Credit", mock.Anything, 9, int64(150000), "ref-1").
		Return(&wallet.Wallet{ID: 3, UserID: 9, BalanceCents: 150000}, nil)
	f.orders.On("SetPaymentStatus", mock.Anything, "ord-1", order.PaymentPending, order.PaymentPaid).
		Return(true, nil).Once()
	f.orders.On("SetPaymentStatus", mock.Anything, "ord-1", order.PaymentPending, order.PaymentPaid).
		Return(false, nil).Once()

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))

	// The ledger saw the reference twice but it is idempotency-keyed; the
	// payment-received notification only fires for the applied delivery.
	assert.Equal(t, []notify.Kind{notify.KindPaymentReceived}, f.notifier.calls)
	f.repo.AssertExpectations(t)
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	f := newFixture()

	body := []byte(`{"event":"charge.dispute.create","data":{"reference":"ref-1"}}`)
	sig := paystack.Sign(body, testWebhookSecret)

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))
	f.gateway.AssertNotCalled(t, "VerifyCharge")
}

func TestHandleWebhook_GatewayDisagrees(t *testing.T) {
	f := newFixture()

	body := successBody("ref-1", 150000)
	sig := paystack.Sign(body, testWebhookSecret)

	// The gateway still reports the charge in flight. Nothing settles; a
	// later delivery decides the outcome.
	f.gateway.On("VerifyCharge", mock.Anything, "ref-1").
		Return(&paystack.ChargeStatus{Status: "pending", Reference: "ref-1"}, nil)

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))
	f.ledger.AssertNotCalled(t, "Credit")
	f.repo.AssertNotCalled(t, "MarkStatus")
}

func TestHandleWebhook_VerifiedFailureSettlesPayment(t *testing.T) {
	f := newFixture()

	body := successBody("ref-1", 150000)
	sig := paystack.Sign(body, testWebhookSecret)

	f.gateway.On("VerifyCharge", mock.Anything, "ref-1").
		Return(&paystack.ChargeStatus{Status: "abandoned", Reference: "ref-1"}, nil)
	f.repo.On("GetByReference", mock.Anything, "ref-1").Return(&Payment{
		ID: "pay-1", OrderID: "ord-1", CustomerID: 1, AgentID: 9,
		AmountCents: 150000, Reference: "ref-1", Status: StatusPending,
	}, nil)
	f.repo.On("MarkStatus", mock.Anything, "ref-1", StatusPending, StatusFailed).Return(true, nil).Once()
	f.orders.On("SetPaymentStatus", mock.Anything, "ord-1", order.PaymentPending, order.PaymentFailed).
		Return(true, nil).Once()

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))

	// Redelivery finds the payment already settled.
	f.repo.On("MarkStatus", mock.Anything, "ref-1", StatusPending, StatusFailed).Return(false, nil).Once()
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))

	f.ledger.AssertNotCalled(t, "Credit")
	f.repo.AssertExpectations(t)
	f.orders.AssertNumberOfCalls(t, "SetPaymentStatus", 1)
}

func TestHandleWebhook_VerifyErrorRetriable(t *testing.T) {
	f := newFixture()

	body := successBody("ref-1", 150000)
	sig := paystack.Sign(body, testWebhookSecret)

	f.gateway.On("VerifyCharge", mock.Anything, "ref-1").
		Return(nil, paystack.ErrGatewayUnavailable)

	err := f.svc.HandleWebhook(context.Background(), body, sig)
	assert.ErrorIs(t, err, paystack.ErrGatewayUnavailable)
	f.ledger.AssertNotCalled(t, "Credit")
}

func TestHandleWebhook_UnknownReferenceRetriable(t *testing.T) {
	f := newFixture()

	body := successBody("ref-x", 150000)
	sig := paystack.Sign(body, testWebhookSecret)

	f.gateway.On("VerifyCharge", mock.Anything, "ref-x").
		Return(&paystack.ChargeStatus{Status: "success", AmountCents: 150000, Reference: "ref-x"}, nil)
	f.repo.On("GetByReference", mock.Anything, "ref-x").Return(nil, ErrPaymentNotFound)

	err := f.svc.HandleWebhook(context.Background(), body, sig)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestHandleWebhook_AmountMismatchAlertsAndDiscards(t *testing.T) {
	f := newFixture()

	body := successBody("ref-1", 100)
	sig := paystack.Sign(body, testWebhookSecret)

	f.gateway.On("VerifyCharge", mock.Anything, "ref-1").
		Return(&paystack.ChargeStatus{Status: "success", AmountCents: 100, Reference: "ref-1"}, nil)
	f.repo.On("GetByReference", mock.Anything, "ref-1").Return(&Payment{
		ID: "pay-1", OrderID: "ord-1", AgentID: 9,
		AmountCents: 150000, Reference: "ref-1", Status: StatusPending,
	}, nil)

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))
	assert.Equal(t, []notify.Kind{notify.KindAdminAlert}, f.notifier.calls)
	f.ledger.AssertNotCalled(t, "Credit")
}
