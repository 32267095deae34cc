package models

import "time"

// MerchantState is the persisted per-merchant row
type MerchantState struct {
	MerchantID        string  `gorm:"type:varchar(64);primaryKey"`
	Balance           float64 `gorm:"not null;default:0"`
	TransactionNumber int     `gorm:"not null;default:0"`
	LastLogonAt       *time.Time
	LastEndOfDayAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName overrides the gorm table name
func (MerchantState) TableName() string {
	return "merchant_states"
}

// OperatorTotal is the running per-(merchant, operator, contract) total row
type OperatorTotal struct {
	MerchantID string  `gorm:"type:varchar(64);primaryKey"`
	OperatorID string  `gorm:"type:varchar(64);primaryKey"`
	ContractID string  `gorm:"type:varchar(64);primaryKey"`
	Value      float64 `gorm:"not null;default:0"`
	Count      int     `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

// TableName overrides the gorm table name
func (OperatorTotal) TableName() string {
	return "operator_totals"
}
