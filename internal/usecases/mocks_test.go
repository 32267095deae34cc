package usecases

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"merchant-sim/internal/domain/entities"
	"merchant-sim/internal/infrastructure/gateway"
	"merchant-sim/pkg/redis"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) GetToken(ctx context.Context, clientID, clientSecret string) (*entities.Credential, error) {
	args := m.Called(ctx, clientID, clientSecret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Credential), args.Error(1)
}

type MockTransactionGateway struct {
	mock.Mock
}

func (m *MockTransactionGateway) SendLogon(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, transactionNumber int) (*gateway.LogonResult, error) {
	args := m.Called(ctx, cfg, cred, transactionNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.LogonResult), args.Error(1)
}

func (m *MockTransactionGateway) SendSale(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, product entities.Product, value float64, transactionNumber int) (*gateway.SaleResult, error) {
	args := m.Called(ctx, cfg, cred, product, value, transactionNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.SaleResult), args.Error(1)
}

func (m *MockTransactionGateway) SendDeposit(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, amount float64) (*gateway.DepositResult, error) {
	args := m.Called(ctx, cfg, cred, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.DepositResult), args.Error(1)
}

func (m *MockTransactionGateway) SendReconciliation(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, totals []entities.OperatorTotal) (*gateway.ReconciliationResult, error) {
	args := m.Called(ctx, cfg, cred, totals)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ReconciliationResult), args.Error(1)
}

func (m *MockTransactionGateway) GetBalance(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential) (float64, error) {
	args := m.Called(ctx, cfg, cred)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockTransactionGateway) GetProductCatalog(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential) ([]entities.Product, error) {
	args := m.Called(ctx, cfg, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Product), args.Error(1)
}

type MockMerchantStateRepository struct {
	mock.Mock
}

func (m *MockMerchantStateRepository) GetMerchant(ctx context.Context, merchantID string) (*entities.MerchantState, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MerchantState), args.Error(1)
}

func (m *MockMerchantStateRepository) UpdateBalance(ctx context.Context, merchantID string, balance float64) error {
	args := m.Called(ctx, merchantID, balance)
	return args.Error(0)
}

func (m *MockMerchantStateRepository) UpdateLastLogon(ctx context.Context, merchantID string, at time.Time) error {
	args := m.Called(ctx, merchantID, at)
	return args.Error(0)
}

func (m *MockMerchantStateRepository) UpdateLastEndOfDay(ctx context.Context, merchantID string, at time.Time) error {
	args := m.Called(ctx, merchantID, at)
	return args.Error(0)
}

func (m *MockMerchantStateRepository) IncrementTransactionNumber(ctx context.Context, merchantID string) (int, error) {
	args := m.Called(ctx, merchantID)
	return args.Int(0), args.Error(1)
}

func (m *MockMerchantStateRepository) UpdateTotals(ctx context.Context, merchantID, operatorID, contractID string, amount float64) error {
	args := m.Called(ctx, merchantID, operatorID, contractID, amount)
	return args.Error(0)
}

func (m *MockMerchantStateRepository) GetTotals(ctx context.Context, merchantID string) ([]entities.OperatorTotal, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.OperatorTotal), args.Error(1)
}

func (m *MockMerchantStateRepository) ClearTotals(ctx context.Context, merchantID string) error {
	args := m.Called(ctx, merchantID)
	return args.Error(0)
}

type MockSharedTokenStore struct {
	mock.Mock
}

func (m *MockSharedTokenStore) GetToken(ctx context.Context, clientID string) (*redis.TokenData, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*redis.TokenData), args.Error(1)
}

func (m *MockSharedTokenStore) PutToken(ctx context.Context, clientID string, data *redis.TokenData) error {
	args := m.Called(ctx, clientID, data)
	return args.Error(0)
}

// countingSink is a plain counting MetricsRecorder; the runtimes call it
// from their own goroutines so the fields are atomic
type countingSink struct {
	sales           atomic.Int64
	salesAmount     atomic.Int64
	failedSales     atomic.Int64
	deposits        atomic.Int64
	logons          atomic.Int64
	reconciliations atomic.Int64
	restarts        atomic.Int64
}

func (c *countingSink) RecordSale(merchantID string, amount float64) {
	c.sales.Add(1)
	c.salesAmount.Add(int64(amount))
}

func (c *countingSink) RecordFailedSale(merchantID string) { c.failedSales.Add(1) }

func (c *countingSink) RecordDeposit(merchantID string, amount float64) { c.deposits.Add(1) }

func (c *countingSink) RecordLogon(merchantID string) { c.logons.Add(1) }

func (c *countingSink) RecordReconciliation(merchantID string) { c.reconciliations.Add(1) }

func (c *countingSink) RecordRestart(merchantID string) { c.restarts.Add(1) }
