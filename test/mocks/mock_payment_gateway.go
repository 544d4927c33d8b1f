package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kevin07696/paylater-service/internal/domain/ports"
)

// MockPaymentGateway is a mock implementation of PaymentGateway for testing
type MockPaymentGateway struct {
	mock.Mock
}

// Charge mocks a gateway charge
func (m *MockPaymentGateway) Charge(ctx context.Context, req *ports.ChargeRequest) (*ports.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ChargeResult), args.Error(1)
}

// Refund mocks a gateway refund
func (m *MockPaymentGateway) Refund(ctx context.Context, req *ports.RefundRequest) (*ports.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ChargeResult), args.Error(1)
}
