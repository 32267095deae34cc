package entities

import (
	"time"

	"github.com/volatiletech/null/v8"
)

const (
	// MinTransactionNumber is the lowest cyclic transaction sequence value
	MinTransactionNumber = 1
	// MaxTransactionNumber is the highest stored sequence value; the next
	// increment wraps back to MinTransactionNumber
	MaxTransactionNumber = 9998
)

// NextTransactionNumber advances the cyclic transaction sequence, wrapping
// so that a stored value never exceeds MaxTransactionNumber
func NextTransactionNumber(current int) int {
	if current >= MaxTransactionNumber {
		return MinTransactionNumber
	}
	return current + 1
}

// MerchantState is the persisted, mutable state of one merchant
type MerchantState struct {
	MerchantID        string    `json:"merchantId"`
	Balance           float64   `json:"balance"`
	TransactionNumber int       `json:"transactionNumber"`
	LastLogonAt       null.Time `json:"lastLogonAt,omitempty"`
	LastEndOfDayAt    null.Time `json:"lastEndOfDayAt,omitempty"`
}

// LoggedOnToday reports whether the last successful logon happened on the
// calendar day of now
func (s *MerchantState) LoggedOnToday(now time.Time) bool {
	return s.LastLogonAt.Valid && sameDay(s.LastLogonAt.Time, now)
}

// EndOfDayDoneToday reports whether reconciliation already ran on the
// calendar day of now
func (s *MerchantState) EndOfDayDoneToday(now time.Time) bool {
	return s.LastEndOfDayAt.Valid && sameDay(s.LastEndOfDayAt.Time, now)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// OperatorTotal accumulates sale value and count per (merchant, operator,
// contract) since the last reconciliation
type OperatorTotal struct {
	MerchantID string  `json:"merchantId"`
	OperatorID string  `json:"operatorId"`
	ContractID string  `json:"contractId"`
	Value      float64 `json:"value"`
	Count      int     `json:"count"`
}

// SumTotals returns the overall transaction count and value across rows
func SumTotals(totals []OperatorTotal) (count int, value float64) {
	for _, t := range totals {
		count += t.Count
		value += t.Value
	}
	return count, value
}
