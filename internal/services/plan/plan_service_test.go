package plan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/domain/ports"
	"github.com/kevin07696/paylater-service/internal/services/plan"
	"github.com/kevin07696/paylater-service/internal/services/retry"
	"github.com/kevin07696/paylater-service/pkg/resilience"
	"github.com/kevin07696/paylater-service/pkg/timeutil"
	"github.com/kevin07696/paylater-service/test/mocks"
)

// MockDBPort mocks the database port
type MockDBPort struct {
	mock.Mock
}

func (m *MockDBPort) GetDB() *pgxpool.Pool {
	return nil
}

func (m *MockDBPort) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	// Execute the function with a nil transaction for testing
	return fn(ctx, nil)
}

func (m *MockDBPort) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// MockPlanRepository mocks the plan repository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Create(ctx context.Context, tx ports.DBTX, p *domain.Plan) error {
	args := m.Called(ctx, tx, p)
	return args.Error(0)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Plan, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *MockPlanRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id string) (*domain.Plan, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *MockPlanRepository) Update(ctx context.Context, tx ports.DBTX, p *domain.Plan) error {
	args := m.Called(ctx, tx, p)
	return args.Error(0)
}

func (m *MockPlanRepository) ListByUser(ctx context.Context, db ports.DBTX, userID int64) ([]*domain.Plan, error) {
	args := m.Called(ctx, db, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Plan), args.Error(1)
}

func (m *MockPlanRepository) ListActiveByUser(ctx context.Context, db ports.DBTX, userID int64) ([]*domain.Plan, error) {
	args := m.Called(ctx, db, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Plan), args.Error(1)
}

// MockInstallmentRepository mocks the installment repository
type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) CreateBatch(ctx context.Context, tx ports.DBTX, installments []*domain.Installment) error {
	args := m.Called(ctx, tx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Installment, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ListByPlan(ctx context.Context, db ports.DBTX, planID string) ([]*domain.Installment, error) {
	args := m.Called(ctx, db, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ListDueForCharge(ctx context.Context, db ports.DBTX, asOf time.Time, limit int32) ([]*domain.Installment, error) {
	args := m.Called(ctx, db, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

// MockTransactionRepository mocks the transaction repository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateAttempt(ctx context.Context, tx ports.DBTX, txn *domain.Transaction) error {
	args := m.Called(ctx, tx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Transaction, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id string) (*domain.Transaction, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByProviderRef(ctx context.Context, db ports.DBTX, provider, paymentRef string) (*domain.Transaction, error) {
	args := m.Called(ctx, db, provider, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx ports.DBTX, txn *domain.Transaction) error {
	args := m.Called(ctx, tx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByInstallment(ctx context.Context, db ports.DBTX, installmentID string) ([]*domain.Transaction, error) {
	args := m.Called(ctx, db, installmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListSuccessfulByPlan(ctx context.Context, db ports.DBTX, planID string) ([]*domain.Transaction, error) {
	args := m.Called(ctx, db, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListRetryCandidates(ctx context.Context, db ports.DBTX, asOf time.Time, maxAttempts int, limit int32) ([]*domain.Transaction, error) {
	args := m.Called(ctx, db, asOf, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListStuckPending(ctx context.Context, db ports.DBTX, olderThan time.Time, limit int32) ([]*domain.Transaction, error) {
	args := m.Called(ctx, db, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ClearRetrySchedules(ctx context.Context, tx ports.DBTX, planID string) error {
	args := m.Called(ctx, tx, planID)
	return args.Error(0)
}

type serviceFixture struct {
	service *plan.Service
	db      *MockDBPort
	plans   *MockPlanRepository
	insts   *MockInstallmentRepository
	txns    *MockTransactionRepository
	gateway *mocks.MockPaymentGateway
	clock   *mocks.MockClock
	now     time.Time
}

func newServiceFixture() *serviceFixture {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := &serviceFixture{
		db:      new(MockDBPort),
		plans:   new(MockPlanRepository),
		insts:   new(MockInstallmentRepository),
		txns:    new(MockTransactionRepository),
		gateway: new(mocks.MockPaymentGateway),
		clock:   mocks.NewMockClock(now),
		now:     now,
	}
	opts := plan.DefaultOptions()
	opts.Timeouts = resilience.TestTimeoutConfig()
	f.service = plan.NewService(
		f.db, f.plans, f.insts, f.txns, f.gateway,
		retry.DefaultPolicy(), f.clock, mocks.NewMockLogger(), opts,
	)
	return f
}

func checkoutRequest() ports.CheckoutRequest {
	return ports.CheckoutRequest{
		OrderID:         "order-42",
		UserID:          7,
		Amount:          decimal.RequireFromString("300.00"),
		Currency:        "USD",
		PaymentMethodID: "pm_abc",
	}
}

func pendingPlan() *domain.Plan {
	return &domain.Plan{
		ID:                "plan-1",
		OrderID:           "order-42",
		UserID:            7,
		PrincipalAmount:   decimal.RequireFromString("300.00"),
		Currency:          domain.CurrencyUSD,
		InstallmentsTotal: 3,
		Status:            domain.PlanStatusPending,
		PaymentMethodID:   "pm_abc",
	}
}

func pendingAttempt(attempt int) *domain.Transaction {
	return &domain.Transaction{
		ID:              "txn-1",
		InstallmentID:   "inst-1",
		AttemptNumber:   attempt,
		Status:          domain.TransactionStatusPending,
		Amount:          decimal.RequireFromString("100.00"),
		LateFee:         decimal.Zero,
		PaymentMethodID: "pm_abc",
		GatewayProvider: "stripe",
	}
}

func TestCheckout_FirstChargeApproved(t *testing.T) {
	f := newServiceFixture()

	var createdPlan *domain.Plan
	var createdInstallments []*domain.Installment
	var firstAttempt *domain.Transaction

	f.plans.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { createdPlan = args.Get(2).(*domain.Plan) }).
		Return(nil)
	f.insts.On("CreateBatch", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { createdInstallments = args.Get(2).([]*domain.Installment) }).
		Return(nil)
	f.txns.On("CreateAttempt", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { firstAttempt = args.Get(2).(*domain.Transaction) }).
		Return(nil)

	f.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(&ports.ChargeResult{Approved: true, PaymentRef: "ch_123", Message: "approved"}, nil)

	// Outcome application re-reads the attempt under lock and advances the plan.
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything).Return(pendingAttempt(1), nil)

	var updatedTxn *domain.Transaction
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updatedTxn = args.Get(2).(*domain.Transaction) }).
		Return(nil)

	f.insts.On("GetByID", mock.Anything, mock.Anything, "inst-1").
		Return(&domain.Installment{ID: "inst-1", PlanID: "plan-1", PlannedAmount: decimal.RequireFromString("100.00")}, nil)
	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(pendingPlan(), nil)
	f.txns.On("ListSuccessfulByPlan", mock.Anything, mock.Anything, "plan-1").
		Return([]*domain.Transaction{{InstallmentID: "inst-1", Status: domain.TransactionStatusSuccess}}, nil)

	var advancedPlan *domain.Plan
	f.plans.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { advancedPlan = args.Get(2).(*domain.Plan) }).
		Return(nil)

	activated := pendingPlan()
	activated.Status = domain.PlanStatusActive
	f.plans.On("GetByID", mock.Anything, mock.Anything, mock.Anything).Return(activated, nil)

	view, err := f.service.Checkout(context.Background(), checkoutRequest())

	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "active", view.Status)
	assert.False(t, view.FirstChargeDeclined)

	// Schedule: three equal parts due one, two and three months out.
	require.NotNil(t, createdPlan)
	assert.Equal(t, domain.PlanStatusPending, createdPlan.Status)
	require.Len(t, createdInstallments, 3)
	for i, inst := range createdInstallments {
		assert.True(t, inst.PlannedAmount.Equal(decimal.RequireFromString("100.00")))
		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, timeutil.AddMonths(f.now, i+1), inst.DueDate)
	}

	require.NotNil(t, firstAttempt)
	assert.Equal(t, 1, firstAttempt.AttemptNumber)
	assert.Equal(t, domain.TransactionStatusPending, firstAttempt.Status)
	assert.True(t, firstAttempt.Amount.Equal(decimal.RequireFromString("100.00")))

	require.NotNil(t, updatedTxn)
	assert.Equal(t, domain.TransactionStatusSuccess, updatedTxn.Status)
	assert.Equal(t, "ch_123", updatedTxn.PaymentRef)
	require.NotNil(t, updatedTxn.ChargedAt)
	assert.Nil(t, updatedTxn.NextRetryAt)

	require.NotNil(t, advancedPlan)
	assert.Equal(t, domain.PlanStatusActive, advancedPlan.Status)
	require.NotNil(t, advancedPlan.ApprovedAt)
	require.NotNil(t, advancedPlan.FirstChargeRef)
	assert.Equal(t, "ch_123", *advancedPlan.FirstChargeRef)
}

func TestCheckout_FirstChargeDeclined(t *testing.T) {
	f := newServiceFixture()

	f.plans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.insts.On("CreateBatch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.txns.On("CreateAttempt", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(&ports.ChargeResult{Approved: false, ResponseCode: "05", Message: "card declined"}, nil)

	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything).Return(pendingAttempt(1), nil)

	var updatedTxn *domain.Transaction
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updatedTxn = args.Get(2).(*domain.Transaction) }).
		Return(nil)

	f.plans.On("GetByID", mock.Anything, mock.Anything, mock.Anything).Return(pendingPlan(), nil)

	view, err := f.service.Checkout(context.Background(), checkoutRequest())

	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "pending", view.Status)
	assert.True(t, view.FirstChargeDeclined)
	assert.Equal(t, "card declined", view.FirstChargeMessage)

	// The declined attempt enters the retry path one backoff step out.
	require.NotNil(t, updatedTxn)
	assert.Equal(t, domain.TransactionStatusFailed, updatedTxn.Status)
	assert.Equal(t, "[05] card declined", updatedTxn.Message)
	require.NotNil(t, updatedTxn.NextRetryAt)
	assert.Equal(t, f.now.Add(time.Hour), *updatedTxn.NextRetryAt)

	// The plan itself did not advance.
	f.plans.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckout_GatewayTimeoutTreatedAsDecline(t *testing.T) {
	f := newServiceFixture()

	f.plans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.insts.On("CreateBatch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.txns.On("CreateAttempt", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrorCodeGatewayTimeout, "gateway charge timed out"))

	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything).Return(pendingAttempt(1), nil)

	var updatedTxn *domain.Transaction
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updatedTxn = args.Get(2).(*domain.Transaction) }).
		Return(nil)

	f.plans.On("GetByID", mock.Anything, mock.Anything, mock.Anything).Return(pendingPlan(), nil)

	view, err := f.service.Checkout(context.Background(), checkoutRequest())

	require.NoError(t, err)
	assert.True(t, view.FirstChargeDeclined)

	require.NotNil(t, updatedTxn)
	assert.Equal(t, domain.TransactionStatusFailed, updatedTxn.Status)
	require.NotNil(t, updatedTxn.NextRetryAt)
}

func TestCheckout_Validation(t *testing.T) {
	f := newServiceFixture()

	tests := []struct {
		name   string
		mutate func(*ports.CheckoutRequest)
		code   domain.ErrorCode
	}{
		{"missing order", func(r *ports.CheckoutRequest) { r.OrderID = "" }, domain.ErrorCodeValidationFailed},
		{"missing payment method", func(r *ports.CheckoutRequest) { r.PaymentMethodID = "" }, domain.ErrorCodeValidationFailed},
		{"missing user", func(r *ports.CheckoutRequest) { r.UserID = 0 }, domain.ErrorCodeValidationFailed},
		{"zero amount", func(r *ports.CheckoutRequest) { r.Amount = decimal.Zero }, domain.ErrorCodeValidationAmountInvalid},
		{"negative amount", func(r *ports.CheckoutRequest) { r.Amount = decimal.RequireFromString("-1") }, domain.ErrorCodeValidationAmountInvalid},
		{"unsupported currency", func(r *ports.CheckoutRequest) { r.Currency = "AUD" }, domain.ErrorCodeValidationCurrency},
		{"too many installments", func(r *ports.CheckoutRequest) { r.Installments = 13 }, domain.ErrorCodeValidationFailed},
		{"negative installments", func(r *ports.CheckoutRequest) { r.Installments = -1 }, domain.ErrorCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := checkoutRequest()
			tt.mutate(&req)

			view, err := f.service.Checkout(context.Background(), req)

			require.Error(t, err)
			assert.Nil(t, view)
			assert.True(t, domain.IsDomainError(err, tt.code), "got %v", err)
		})
	}

	f.plans.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestRecordChargeOutcome_DuplicateSuccessIsNoOp(t *testing.T) {
	f := newServiceFixture()

	settled := pendingAttempt(1)
	settled.Status = domain.TransactionStatusSuccess
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-1").Return(settled, nil)

	err := f.service.RecordChargeOutcome(context.Background(), "txn-1", ports.ChargeOutcome{Approved: true, PaymentRef: "ch_123"})

	require.NoError(t, err)
	f.txns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	f.plans.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordChargeOutcome_FailureAfterSuccessIsMismatch(t *testing.T) {
	f := newServiceFixture()

	settled := pendingAttempt(1)
	settled.Status = domain.TransactionStatusSuccess
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-1").Return(settled, nil)

	err := f.service.RecordChargeOutcome(context.Background(), "txn-1", ports.ChargeOutcome{Approved: false, Message: "declined"})

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeReconciliationMismatch))
	f.txns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordChargeOutcome_DuplicateFailureIsNoOp(t *testing.T) {
	f := newServiceFixture()

	failed := pendingAttempt(1)
	failed.Status = domain.TransactionStatusFailed
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-1").Return(failed, nil)

	err := f.service.RecordChargeOutcome(context.Background(), "txn-1", ports.ChargeOutcome{Approved: false})

	require.NoError(t, err)
	f.txns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordChargeOutcome_LateSuccessAfterFailureApplies(t *testing.T) {
	f := newServiceFixture()

	failed := pendingAttempt(1)
	failed.Status = domain.TransactionStatusFailed
	next := f.now.Add(time.Hour)
	failed.NextRetryAt = &next
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-1").Return(failed, nil)

	var updatedTxn *domain.Transaction
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updatedTxn = args.Get(2).(*domain.Transaction) }).
		Return(nil)

	f.insts.On("GetByID", mock.Anything, mock.Anything, "inst-1").
		Return(&domain.Installment{ID: "inst-1", PlanID: "plan-1"}, nil)
	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(pendingPlan(), nil)
	f.txns.On("ListSuccessfulByPlan", mock.Anything, mock.Anything, "plan-1").
		Return([]*domain.Transaction{{InstallmentID: "inst-1", Status: domain.TransactionStatusSuccess}}, nil)
	f.plans.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := f.service.RecordChargeOutcome(context.Background(), "txn-1", ports.ChargeOutcome{Approved: true, PaymentRef: "ch_late"})

	require.NoError(t, err)
	require.NotNil(t, updatedTxn)
	assert.Equal(t, domain.TransactionStatusSuccess, updatedTxn.Status)
	assert.Nil(t, updatedTxn.NextRetryAt)
}

func TestRecordChargeOutcome_LastInstallmentCompletesPlan(t *testing.T) {
	f := newServiceFixture()

	attempt := pendingAttempt(1)
	attempt.InstallmentID = "inst-3"
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-1").Return(attempt, nil)
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.insts.On("GetByID", mock.Anything, mock.Anything, "inst-3").
		Return(&domain.Installment{ID: "inst-3", PlanID: "plan-1"}, nil)

	partiallyPaid := pendingPlan()
	partiallyPaid.Status = domain.PlanStatusPartiallyPaid
	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(partiallyPaid, nil)

	f.txns.On("ListSuccessfulByPlan", mock.Anything, mock.Anything, "plan-1").
		Return([]*domain.Transaction{
			{InstallmentID: "inst-1", Status: domain.TransactionStatusSuccess},
			{InstallmentID: "inst-2", Status: domain.TransactionStatusRefunded},
			{InstallmentID: "inst-3", Status: domain.TransactionStatusSuccess},
		}, nil)

	var advancedPlan *domain.Plan
	f.plans.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { advancedPlan = args.Get(2).(*domain.Plan) }).
		Return(nil)

	err := f.service.RecordChargeOutcome(context.Background(), "txn-1", ports.ChargeOutcome{Approved: true, PaymentRef: "ch_final"})

	require.NoError(t, err)
	require.NotNil(t, advancedPlan)
	assert.Equal(t, domain.PlanStatusCompleted, advancedPlan.Status)
	require.NotNil(t, advancedPlan.CompletedAt)
	assert.Equal(t, f.now, *advancedPlan.CompletedAt)
}

func TestRecordChargeOutcome_SuccessOnTerminalPlanKeepsPlanUnchanged(t *testing.T) {
	f := newServiceFixture()

	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-1").Return(pendingAttempt(1), nil)
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.insts.On("GetByID", mock.Anything, mock.Anything, "inst-1").
		Return(&domain.Installment{ID: "inst-1", PlanID: "plan-1"}, nil)

	cancelled := pendingPlan()
	cancelled.Status = domain.PlanStatusCancelled
	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(cancelled, nil)

	err := f.service.RecordChargeOutcome(context.Background(), "txn-1", ports.ChargeOutcome{Approved: true, PaymentRef: "ch_123"})

	require.NoError(t, err)
	f.plans.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	f.txns.AssertCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordChargeOutcome_ExhaustedAttemptsClearRetrySchedule(t *testing.T) {
	f := newServiceFixture()

	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-1").Return(pendingAttempt(3), nil)

	var updatedTxn *domain.Transaction
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updatedTxn = args.Get(2).(*domain.Transaction) }).
		Return(nil)

	err := f.service.RecordChargeOutcome(context.Background(), "txn-1", ports.ChargeOutcome{Approved: false, Message: "declined"})

	require.NoError(t, err)
	require.NotNil(t, updatedTxn)
	assert.Equal(t, domain.TransactionStatusFailed, updatedTxn.Status)
	assert.Nil(t, updatedTxn.NextRetryAt)
}

func TestCancel_ClearsRetrySchedules(t *testing.T) {
	f := newServiceFixture()

	active := pendingPlan()
	active.Status = domain.PlanStatusActive
	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(active, nil)

	var updatedPlan *domain.Plan
	f.plans.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updatedPlan = args.Get(2).(*domain.Plan) }).
		Return(nil)
	f.txns.On("ClearRetrySchedules", mock.Anything, mock.Anything, "plan-1").Return(nil)

	err := f.service.Cancel(context.Background(), "plan-1", "user requested")

	require.NoError(t, err)
	require.NotNil(t, updatedPlan)
	assert.Equal(t, domain.PlanStatusCancelled, updatedPlan.Status)
	require.NotNil(t, updatedPlan.CanceledAt)
	f.txns.AssertCalled(t, "ClearRetrySchedules", mock.Anything, mock.Anything, "plan-1")
}

func TestCancel_TerminalPlanRejected(t *testing.T) {
	f := newServiceFixture()

	completed := pendingPlan()
	completed.Status = domain.PlanStatusCompleted
	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(completed, nil)

	err := f.service.Cancel(context.Background(), "plan-1", "too late")

	require.Error(t, err)
	assert.True(t, domain.IsInvalidTransition(err))
	f.plans.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	f.txns.AssertNotCalled(t, "ClearRetrySchedules", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePlanStatus_IllegalTransitionRejected(t *testing.T) {
	f := newServiceFixture()

	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(pendingPlan(), nil)

	err := f.service.UpdatePlanStatus(context.Background(), "plan-1", domain.PlanStatusCompleted)

	require.Error(t, err)
	assert.True(t, domain.IsInvalidTransition(err))
}

func TestPause_OnlyActivePlans(t *testing.T) {
	f := newServiceFixture()

	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(pendingPlan(), nil)

	err := f.service.Pause(context.Background(), "plan-1", "vacation")

	require.Error(t, err)
	assert.True(t, domain.IsInvalidTransition(err))
}

func TestPauseAndResume(t *testing.T) {
	f := newServiceFixture()

	active := pendingPlan()
	active.Status = domain.PlanStatusActive
	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(active, nil)

	var updatedPlan *domain.Plan
	f.plans.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updatedPlan = args.Get(2).(*domain.Plan) }).
		Return(nil)

	require.NoError(t, f.service.Pause(context.Background(), "plan-1", "vacation"))
	require.NotNil(t, updatedPlan)
	assert.True(t, updatedPlan.Paused)
	assert.Equal(t, domain.PlanStatusActive, updatedPlan.Status)

	require.NoError(t, f.service.Resume(context.Background(), "plan-1"))
	assert.False(t, updatedPlan.Paused)
}

func TestResume_NotPausedRejected(t *testing.T) {
	f := newServiceFixture()

	active := pendingPlan()
	active.Status = domain.PlanStatusActive
	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(active, nil)

	err := f.service.Resume(context.Background(), "plan-1")

	require.Error(t, err)
	assert.True(t, domain.IsInvalidTransition(err))
}

func TestUpdatePaymentMethod(t *testing.T) {
	f := newServiceFixture()

	active := pendingPlan()
	active.Status = domain.PlanStatusActive
	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(active, nil)

	var updatedPlan *domain.Plan
	f.plans.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updatedPlan = args.Get(2).(*domain.Plan) }).
		Return(nil)

	require.NoError(t, f.service.UpdatePaymentMethod(context.Background(), "plan-1", "pm_new"))
	require.NotNil(t, updatedPlan)
	assert.Equal(t, "pm_new", updatedPlan.PaymentMethodID)
}

func TestUpdatePaymentMethod_Guards(t *testing.T) {
	f := newServiceFixture()

	err := f.service.UpdatePaymentMethod(context.Background(), "plan-1", "")
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))

	completed := pendingPlan()
	completed.Status = domain.PlanStatusCompleted
	f.plans.On("GetByIDForUpdate", mock.Anything, mock.Anything, "plan-1").Return(completed, nil)

	err = f.service.UpdatePaymentMethod(context.Background(), "plan-1", "pm_new")
	require.Error(t, err)
	assert.True(t, domain.IsInvalidTransition(err))
}

func TestSummary(t *testing.T) {
	f := newServiceFixture()

	p := pendingPlan()
	p.Status = domain.PlanStatusActive
	f.plans.On("GetByID", mock.Anything, mock.Anything, "plan-1").Return(p, nil)

	due2 := f.now.AddDate(0, 2, 0)
	f.insts.On("ListByPlan", mock.Anything, mock.Anything, "plan-1").
		Return([]*domain.Installment{
			{ID: "inst-1", PlanID: "plan-1", Number: 1, PlannedAmount: decimal.RequireFromString("100.00"), DueDate: f.now.AddDate(0, 1, 0)},
			{ID: "inst-2", PlanID: "plan-1", Number: 2, PlannedAmount: decimal.RequireFromString("100.00"), DueDate: due2},
			{ID: "inst-3", PlanID: "plan-1", Number: 3, PlannedAmount: decimal.RequireFromString("100.00"), DueDate: f.now.AddDate(0, 3, 0)},
		}, nil)
	f.txns.On("ListSuccessfulByPlan", mock.Anything, mock.Anything, "plan-1").
		Return([]*domain.Transaction{{InstallmentID: "inst-1", Status: domain.TransactionStatusSuccess}}, nil)

	summary, err := f.service.Summary(context.Background(), "plan-1")

	require.NoError(t, err)
	assert.True(t, summary.PaidAmount.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, summary.RemainingAmount.Equal(decimal.RequireFromString("200.00")))
	assert.Equal(t, 1, summary.PaidInstallments)
	assert.Equal(t, 2, summary.RemainingInstallments)
	require.NotNil(t, summary.NextDueDate)
	assert.Equal(t, due2, *summary.NextDueDate)
	require.NotNil(t, summary.NextDueAmount)
	assert.True(t, summary.NextDueAmount.Equal(decimal.RequireFromString("100.00")))
}

func TestSummary_TerminalPlanHasNoNextDue(t *testing.T) {
	f := newServiceFixture()

	cancelled := pendingPlan()
	cancelled.Status = domain.PlanStatusCancelled
	f.plans.On("GetByID", mock.Anything, mock.Anything, "plan-1").Return(cancelled, nil)
	f.insts.On("ListByPlan", mock.Anything, mock.Anything, "plan-1").
		Return([]*domain.Installment{
			{ID: "inst-1", PlanID: "plan-1", Number: 1, PlannedAmount: decimal.RequireFromString("100.00")},
			{ID: "inst-2", PlanID: "plan-1", Number: 2, PlannedAmount: decimal.RequireFromString("100.00")},
			{ID: "inst-3", PlanID: "plan-1", Number: 3, PlannedAmount: decimal.RequireFromString("100.00")},
		}, nil)
	f.txns.On("ListSuccessfulByPlan", mock.Anything, mock.Anything, "plan-1").
		Return([]*domain.Transaction{{InstallmentID: "inst-1", Status: domain.TransactionStatusSuccess}}, nil)

	summary, err := f.service.Summary(context.Background(), "plan-1")

	require.NoError(t, err)
	assert.Nil(t, summary.NextDueDate)
	assert.Nil(t, summary.NextDueAmount)
	assert.Equal(t, "cancelled", summary.Status)
}

func TestGetPlan_NotFound(t *testing.T) {
	f := newServiceFixture()

	f.plans.On("GetByID", mock.Anything, mock.Anything, "missing").Return(nil, domain.ErrPlanNotFound)

	view, err := f.service.GetPlan(context.Background(), "missing")

	require.Error(t, err)
	assert.Nil(t, view)
	assert.True(t, domain.IsNotFoundError(err))
}

func TestCheckout_CreateFailureRollsUp(t *testing.T) {
	f := newServiceFixture()

	f.plans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	view, err := f.service.Checkout(context.Background(), checkoutRequest())

	require.Error(t, err)
	assert.Nil(t, view)
	f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func settledAttempt() *domain.Transaction {
	return &domain.Transaction{
		ID:              "txn-1",
		InstallmentID:   "inst-1",
		AttemptNumber:   1,
		Status:          domain.TransactionStatusSuccess,
		Amount:          decimal.RequireFromString("100.00"),
		LateFee:         decimal.RequireFromString("2.50"),
		RefundAmount:    decimal.Zero,
		PaymentMethodID: "pm_abc",
		GatewayProvider: "stripe",
		PaymentRef:      "ch_123",
	}
}

func TestRefund_SettledChargeRefunded(t *testing.T) {
	f := newServiceFixture()

	txn := settledAttempt()
	f.txns.On("GetByID", mock.Anything, mock.Anything, "txn-1").Return(txn, nil)
	f.insts.On("GetByID", mock.Anything, mock.Anything, "inst-1").
		Return(&domain.Installment{ID: "inst-1", PlanID: "plan-1", Number: 1, Currency: domain.CurrencyUSD}, nil)

	var sent *ports.RefundRequest
	f.gateway.On("Refund", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*ports.RefundRequest) }).
		Return(&ports.ChargeResult{Approved: true, PaymentRef: "re_1"}, nil)

	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-1").Return(txn, nil)

	var updated *domain.Transaction
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updated = args.Get(2).(*domain.Transaction) }).
		Return(nil)

	err := f.service.Refund(context.Background(), "txn-1", decimal.RequireFromString("50.00"), "customer complaint")

	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, "ch_123", sent.PaymentRef)
	assert.Equal(t, "USD", sent.Currency)
	assert.True(t, sent.Amount.Equal(decimal.RequireFromString("50.00")))

	require.NotNil(t, updated)
	assert.Equal(t, domain.TransactionStatusRefunded, updated.Status)
	assert.True(t, updated.RefundAmount.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, "customer complaint", updated.Message)
	assert.Equal(t, f.now, updated.UpdatedAt)
}

func TestRefund_UpToChargedIncludingLateFee(t *testing.T) {
	f := newServiceFixture()

	txn := settledAttempt()
	f.txns.On("GetByID", mock.Anything, mock.Anything, "txn-1").Return(txn, nil)
	f.insts.On("GetByID", mock.Anything, mock.Anything, "inst-1").
		Return(&domain.Installment{ID: "inst-1", PlanID: "plan-1", Number: 1, Currency: domain.CurrencyUSD}, nil)
	f.gateway.On("Refund", mock.Anything, mock.Anything).
		Return(&ports.ChargeResult{Approved: true}, nil)
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-1").Return(txn, nil)
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// 100.00 charged plus the 2.50 late fee.
	err := f.service.Refund(context.Background(), "txn-1", decimal.RequireFromString("102.50"), "")

	require.NoError(t, err)
}

func TestRefund_RejectsMoreThanCharged(t *testing.T) {
	f := newServiceFixture()

	f.txns.On("GetByID", mock.Anything, mock.Anything, "txn-1").Return(settledAttempt(), nil)

	err := f.service.Refund(context.Background(), "txn-1", decimal.RequireFromString("102.51"), "")

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationAmountInvalid))
	f.gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
	f.txns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefund_RejectsUnsettledTransaction(t *testing.T) {
	f := newServiceFixture()

	f.txns.On("GetByID", mock.Anything, mock.Anything, "txn-1").Return(pendingAttempt(1), nil)

	err := f.service.Refund(context.Background(), "txn-1", decimal.RequireFromString("50.00"), "")

	require.Error(t, err)
	assert.True(t, domain.IsInvalidTransition(err))
	f.gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
}

func TestRefund_GatewayDeclineLeavesTransactionUntouched(t *testing.T) {
	f := newServiceFixture()

	f.txns.On("GetByID", mock.Anything, mock.Anything, "txn-1").Return(settledAttempt(), nil)
	f.insts.On("GetByID", mock.Anything, mock.Anything, "inst-1").
		Return(&domain.Installment{ID: "inst-1", PlanID: "plan-1", Number: 1, Currency: domain.CurrencyUSD}, nil)
	f.gateway.On("Refund", mock.Anything, mock.Anything).
		Return(&ports.ChargeResult{Approved: false, Message: "charge already disputed"}, nil)

	err := f.service.Refund(context.Background(), "txn-1", decimal.RequireFromString("50.00"), "")

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeGatewayDeclined))
	f.txns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}
