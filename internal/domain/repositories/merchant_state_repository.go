package repositories

import (
	"context"
	"time"

	"merchant-sim/internal/domain/entities"
)

// MerchantStateRepository defines the persisted merchant state operations.
// Every operation is keyed by merchant identifier and auto-provisions a
// zeroed row on first reference.
type MerchantStateRepository interface {
	GetMerchant(ctx context.Context, merchantID string) (*entities.MerchantState, error)
	UpdateBalance(ctx context.Context, merchantID string, balance float64) error
	UpdateLastLogon(ctx context.Context, merchantID string, at time.Time) error
	UpdateLastEndOfDay(ctx context.Context, merchantID string, at time.Time) error
	IncrementTransactionNumber(ctx context.Context, merchantID string) (int, error)
	UpdateTotals(ctx context.Context, merchantID, operatorID, contractID string, amount float64) error
	GetTotals(ctx context.Context, merchantID string) ([]entities.OperatorTotal, error)
	ClearTotals(ctx context.Context, merchantID string) error
}
