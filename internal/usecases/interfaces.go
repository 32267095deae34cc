package usecases

import (
	"context"

	"merchant-sim/internal/domain/entities"
	"merchant-sim/internal/infrastructure/gateway"
	"merchant-sim/pkg/redis"
)

// AuthService issues bearer tokens for a client identity
type AuthService interface {
	GetToken(ctx context.Context, clientID, clientSecret string) (*entities.Credential, error)
}

// TransactionGateway is the stateless facade over the transaction backend
type TransactionGateway interface {
	SendLogon(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, transactionNumber int) (*gateway.LogonResult, error)
	SendSale(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, product entities.Product, value float64, transactionNumber int) (*gateway.SaleResult, error)
	SendDeposit(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, amount float64) (*gateway.DepositResult, error)
	SendReconciliation(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, totals []entities.OperatorTotal) (*gateway.ReconciliationResult, error)
	GetBalance(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential) (float64, error)
	GetProductCatalog(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential) ([]entities.Product, error)
}

// MetricsRecorder receives per-merchant simulation counters
type MetricsRecorder interface {
	RecordSale(merchantID string, amount float64)
	RecordFailedSale(merchantID string)
	RecordDeposit(merchantID string, amount float64)
	RecordLogon(merchantID string)
	RecordReconciliation(merchantID string)
	RecordRestart(merchantID string)
}

// SharedTokenStore shares service-level tokens between simulator processes
type SharedTokenStore interface {
	GetToken(ctx context.Context, clientID string) (*redis.TokenData, error)
	PutToken(ctx context.Context, clientID string, data *redis.TokenData) error
}
