package services_test

import (
	"context"

	"github.com/codecom/codecom-api/pkg/mailer"
	"github.com/stretchr/testify/mock"
)

// MockSender is a mock implementation of mailer.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg *mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockSender) Verify(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRelayStatus is a mock implementation of services.RelayStatusInvalidator
type MockRelayStatus struct {
	mock.Mock
}

func (m *MockRelayStatus) Invalidate() {
	m.Called()
}
