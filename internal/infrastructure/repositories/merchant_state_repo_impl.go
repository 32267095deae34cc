package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"merchant-sim/internal/domain/entities"
	"merchant-sim/internal/infrastructure/models"
	"merchant-sim/pkg/logger"

	"github.com/volatiletech/null/v8"
)

// MerchantStateRepository implements the merchant state store on gorm
type MerchantStateRepository struct {
	db *gorm.DB

	// merchant ids already warned about; auto-provisioning masks roster
	// typos, so the first silent create per id gets one warning
	provisioned sync.Map
}

// NewMerchantStateRepository creates a new merchant state repository
func NewMerchantStateRepository(db *gorm.DB) *MerchantStateRepository {
	return &MerchantStateRepository{db: db}
}

// Migrate creates the backing tables
func (r *MerchantStateRepository) Migrate() error {
	return r.db.AutoMigrate(&models.MerchantState{}, &models.OperatorTotal{})
}

// GetMerchant returns the merchant's state, creating a zeroed row on first
// reference
func (r *MerchantStateRepository) GetMerchant(ctx context.Context, merchantID string) (*entities.MerchantState, error) {
	row, err := r.getOrProvision(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	return toEntity(row), nil
}

// UpdateBalance sets the merchant's balance
func (r *MerchantStateRepository) UpdateBalance(ctx context.Context, merchantID string, balance float64) error {
	if _, err := r.getOrProvision(ctx, merchantID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.MerchantState{}).
		Where("merchant_id = ?", merchantID).
		Update("balance", balance).Error
}

// UpdateLastLogon sets the merchant's last successful logon timestamp
func (r *MerchantStateRepository) UpdateLastLogon(ctx context.Context, merchantID string, at time.Time) error {
	if _, err := r.getOrProvision(ctx, merchantID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.MerchantState{}).
		Where("merchant_id = ?", merchantID).
		Update("last_logon_at", at).Error
}

// UpdateLastEndOfDay sets the merchant's last reconciliation timestamp
func (r *MerchantStateRepository) UpdateLastEndOfDay(ctx context.Context, merchantID string, at time.Time) error {
	if _, err := r.getOrProvision(ctx, merchantID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.MerchantState{}).
		Where("merchant_id = ?", merchantID).
		Update("last_end_of_day_at", at).Error
}

// IncrementTransactionNumber advances the cyclic transaction sequence and
// returns the new value; stored values stay within [1, 9998]
func (r *MerchantStateRepository) IncrementTransactionNumber(ctx context.Context, merchantID string) (int, error) {
	row, err := r.getOrProvision(ctx, merchantID)
	if err != nil {
		return 0, err
	}

	next := entities.NextTransactionNumber(row.TransactionNumber)
	err = r.db.WithContext(ctx).Model(&models.MerchantState{}).
		Where("merchant_id = ?", merchantID).
		Update("transaction_number", next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// UpdateTotals adds one sale of the given amount to the (merchant, operator,
// contract) running total, creating the row on first sale
func (r *MerchantStateRepository) UpdateTotals(ctx context.Context, merchantID, operatorID, contractID string, amount float64) error {
	var row models.OperatorTotal
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND operator_id = ? AND contract_id = ?", merchantID, operatorID, contractID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.OperatorTotal{
			MerchantID: merchantID,
			OperatorID: operatorID,
			ContractID: contractID,
			Value:      amount,
			Count:      1,
		}
		return r.db.WithContext(ctx).Create(&row).Error
	}
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Model(&models.OperatorTotal{}).
		Where("merchant_id = ? AND operator_id = ? AND contract_id = ?", merchantID, operatorID, contractID).
		Updates(map[string]interface{}{
			"value": row.Value + amount,
			"count": row.Count + 1,
		}).Error
}

// GetTotals returns all running totals for the merchant
func (r *MerchantStateRepository) GetTotals(ctx context.Context, merchantID string) ([]entities.OperatorTotal, error) {
	var rows []models.OperatorTotal
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("operator_id, contract_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]entities.OperatorTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, entities.OperatorTotal{
			MerchantID: row.MerchantID,
			OperatorID: row.OperatorID,
			ContractID: row.ContractID,
			Value:      row.Value,
			Count:      row.Count,
		})
	}
	return totals, nil
}

// ClearTotals deletes every running total row for the merchant
func (r *MerchantStateRepository) ClearTotals(ctx context.Context, merchantID string) error {
	return r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Delete(&models.OperatorTotal{}).Error
}

func (r *MerchantStateRepository) getOrProvision(ctx context.Context, merchantID string) (*models.MerchantState, error) {
	var row models.MerchantState
	err := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.MerchantState{MerchantID: merchantID}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, err
		}
		if _, seen := r.provisioned.LoadOrStore(merchantID, true); !seen {
			logger.Warn(ctx, "auto-provisioned merchant state row",
				zap.String("merchant_id", merchantID))
		}
		return &row, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func toEntity(row *models.MerchantState) *entities.MerchantState {
	state := &entities.MerchantState{
		MerchantID:        row.MerchantID,
		Balance:           row.Balance,
		TransactionNumber: row.TransactionNumber,
	}
	if row.LastLogonAt != nil {
		state.LastLogonAt = null.TimeFrom(*row.LastLogonAt)
	}
	if row.LastEndOfDayAt != nil {
		state.LastEndOfDayAt = null.TimeFrom(*row.LastEndOfDayAt)
	}
	return state
}
