package services

import (
	"context"
	"errors"
	"testing"

	"checkout-service/internal/domain"
	"checkout-service/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPaymentSessionCorrelator_Open(t *testing.T) {
	tests := []struct {
		name          string
		order         *domain.Order
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockPaymentGateway)
		expectedError error
		wantSession   string
		wantExpire    bool
	}{
		{
			name:  "binds a new session",
			order: CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusPending, ""),
			setupMocks: func(r *mocks.MockOrderRepository, g *mocks.MockPaymentGateway) {
				g.On("CreateSession", mock.Anything, mock.Anything).Return(CreateMockSession(TestSessionID, domain.PaymentUnpaid), nil)
				r.On("SetCorrelationID", mock.Anything, TestOrderID, TestSessionID).Return(nil)
			},
			wantSession: TestSessionID,
		},
		{
			name:          "order already correlated",
			order:         CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusPending, "cs_old"),
			setupMocks:    func(r *mocks.MockOrderRepository, g *mocks.MockPaymentGateway) {},
			expectedError: domain.ErrInvalidOrderState,
		},
		{
			name:          "order no longer pending",
			order:         CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusCancelled, ""),
			setupMocks:    func(r *mocks.MockOrderRepository, g *mocks.MockPaymentGateway) {},
			expectedError: domain.ErrInvalidOrderState,
		},
		{
			name:  "gateway unavailable",
			order: CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusPending, ""),
			setupMocks: func(r *mocks.MockOrderRepository, g *mocks.MockPaymentGateway) {
				g.On("CreateSession", mock.Anything, mock.Anything).Return(nil, domain.ErrGatewayUnavailable)
			},
			expectedError: domain.ErrGatewayUnavailable,
		},
		{
			name:  "lost race to a different session expires ours",
			order: CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusPending, ""),
			setupMocks: func(r *mocks.MockOrderRepository, g *mocks.MockPaymentGateway) {
				g.On("CreateSession", mock.Anything, mock.Anything).Return(CreateMockSession("cs_late", domain.PaymentUnpaid), nil)
				r.On("SetCorrelationID", mock.Anything, TestOrderID, "cs_late").Return(domain.ErrInvalidOrderState)
				r.On("FindByID", mock.Anything, TestOrderID).Return(CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusPending, "cs_winner"), nil)
				g.On("ExpireSession", mock.Anything, "cs_late").Return(nil)
			},
			expectedError: domain.ErrInvalidOrderState,
			wantExpire:    true,
		},
		{
			name:  "lost race to the same session succeeds",
			order: CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusPending, ""),
			setupMocks: func(r *mocks.MockOrderRepository, g *mocks.MockPaymentGateway) {
				g.On("CreateSession", mock.Anything, mock.Anything).Return(CreateMockSession(TestSessionID, domain.PaymentUnpaid), nil)
				r.On("SetCorrelationID", mock.Anything, TestOrderID, TestSessionID).Return(domain.ErrInvalidOrderState)
				r.On("FindByID", mock.Anything, TestOrderID).Return(CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusPending, TestSessionID), nil)
			},
			wantSession: TestSessionID,
		},
		{
			name:  "reload failure after a lost race keeps the session",
			order: CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusPending, ""),
			setupMocks: func(r *mocks.MockOrderRepository, g *mocks.MockPaymentGateway) {
				g.On("CreateSession", mock.Anything, mock.Anything).Return(CreateMockSession(TestSessionID, domain.PaymentUnpaid), nil)
				r.On("SetCorrelationID", mock.Anything, TestOrderID, TestSessionID).Return(domain.ErrInvalidOrderState)
				r.On("FindByID", mock.Anything, TestOrderID).Return(nil, errors.New("db blip"))
			},
			expectedError: domain.ErrInvalidOrderState,
		},
		{
			name:  "order gone after a lost race keeps the session",
			order: CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusPending, ""),
			setupMocks: func(r *mocks.MockOrderRepository, g *mocks.MockPaymentGateway) {
				g.On("CreateSession", mock.Anything, mock.Anything).Return(CreateMockSession(TestSessionID, domain.PaymentUnpaid), nil)
				r.On("SetCorrelationID", mock.Anything, TestOrderID, TestSessionID).Return(domain.ErrInvalidOrderState)
				r.On("FindByID", mock.Anything, TestOrderID).Return(nil, nil)
			},
			expectedError: domain.ErrInvalidOrderState,
		},
		{
			name:  "storage failure keeps the session for a retry",
			order: CreateMockOrder(TestOrderID, TestOwnerID, domain.StatusPending, ""),
			setupMocks: func(r *mocks.MockOrderRepository, g *mocks.MockPaymentGateway) {
				g.On("CreateSession", mock.Anything, mock.Anything).Return(CreateMockSession(TestSessionID, domain.PaymentUnpaid), nil)
				r.On("SetCorrelationID", mock.Anything, TestOrderID, TestSessionID).Return(domain.ErrStorageUnavailable)
			},
			expectedError: domain.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockOrderRepository)
			gateway := new(mocks.MockPaymentGateway)
			tt.setupMocks(repo, gateway)

			sess, err := NewPaymentSessionCorrelator(repo, gateway, testURLs()).Open(context.Background(), tt.order)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, sess)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantSession, sess.SessionID)
				require.NotNil(t, tt.order.CorrelationID)
				assert.Equal(t, tt.wantSession, *tt.order.CorrelationID)
			}
			repo.AssertExpectations(t)
			gateway.AssertExpectations(t)
			if !tt.wantExpire {
				gateway.AssertNotCalled(t, "ExpireSession", mock.Anything, mock.Anything)
			}
		})
	}
}
