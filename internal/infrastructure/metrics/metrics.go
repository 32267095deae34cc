package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters is the per-merchant dashboard counter set; the merchant's single
// runtime goroutine writes, readers snapshot concurrently
type Counters struct {
	Sales           atomic.Int64
	FailedSales     atomic.Int64
	Deposits        atomic.Int64
	Logons          atomic.Int64
	Reconciliations atomic.Int64
	Restarts        atomic.Int64
}

// Snapshot is a point-in-time copy of one merchant's counters
type Snapshot struct {
	Sales           int64 `json:"sales"`
	FailedSales     int64 `json:"failedSales"`
	Deposits        int64 `json:"deposits"`
	Logons          int64 `json:"logons"`
	Reconciliations int64 `json:"reconciliations"`
	Restarts        int64 `json:"restarts"`
}

// Sink collects per-merchant simulation counters and mirrors them into
// Prometheus collectors
type Sink struct {
	counters sync.Map // merchant id -> *Counters

	salesTotal           *prometheus.CounterVec
	salesAmountTotal     *prometheus.CounterVec
	failedSalesTotal     *prometheus.CounterVec
	depositsTotal        *prometheus.CounterVec
	depositAmountTotal   *prometheus.CounterVec
	logonsTotal          *prometheus.CounterVec
	reconciliationsTotal *prometheus.CounterVec
	restartsTotal        *prometheus.CounterVec
}

// NewSink creates a new metrics sink registered against reg
func NewSink(reg prometheus.Registerer) *Sink {
	factory := promauto.With(reg)
	return &Sink{
		salesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchant_sales_total",
				Help: "Total number of authorised sales per merchant",
			},
			[]string{"merchant_id"},
		),
		salesAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchant_sales_amount_total",
				Help: "Total value of authorised sales per merchant",
			},
			[]string{"merchant_id"},
		),
		failedSalesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchant_sales_failed_total",
				Help: "Total number of declined or failed sales per merchant",
			},
			[]string{"merchant_id"},
		),
		depositsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchant_deposits_total",
				Help: "Total number of automatic deposits per merchant",
			},
			[]string{"merchant_id"},
		),
		depositAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchant_deposit_amount_total",
				Help: "Total value of automatic deposits per merchant",
			},
			[]string{"merchant_id"},
		),
		logonsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchant_logons_total",
				Help: "Total number of successful daily logons per merchant",
			},
			[]string{"merchant_id"},
		),
		reconciliationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchant_reconciliations_total",
				Help: "Total number of successful end-of-day reconciliations per merchant",
			},
			[]string{"merchant_id"},
		),
		restartsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchant_runtime_restarts_total",
				Help: "Total number of crash-isolated runtime restarts per merchant",
			},
			[]string{"merchant_id"},
		),
	}
}

func (s *Sink) forMerchant(merchantID string) *Counters {
	if c, ok := s.counters.Load(merchantID); ok {
		return c.(*Counters)
	}
	c, _ := s.counters.LoadOrStore(merchantID, &Counters{})
	return c.(*Counters)
}

// RecordSale counts one authorised sale of the given value
func (s *Sink) RecordSale(merchantID string, amount float64) {
	s.forMerchant(merchantID).Sales.Add(1)
	s.salesTotal.WithLabelValues(merchantID).Inc()
	s.salesAmountTotal.WithLabelValues(merchantID).Add(amount)
}

// RecordFailedSale counts one declined or failed sale
func (s *Sink) RecordFailedSale(merchantID string) {
	s.forMerchant(merchantID).FailedSales.Add(1)
	s.failedSalesTotal.WithLabelValues(merchantID).Inc()
}

// RecordDeposit counts one automatic deposit of the given amount
func (s *Sink) RecordDeposit(merchantID string, amount float64) {
	s.forMerchant(merchantID).Deposits.Add(1)
	s.depositsTotal.WithLabelValues(merchantID).Inc()
	s.depositAmountTotal.WithLabelValues(merchantID).Add(amount)
}

// RecordLogon counts one successful daily logon
func (s *Sink) RecordLogon(merchantID string) {
	s.forMerchant(merchantID).Logons.Add(1)
	s.logonsTotal.WithLabelValues(merchantID).Inc()
}

// RecordReconciliation counts one successful end-of-day reconciliation
func (s *Sink) RecordReconciliation(merchantID string) {
	s.forMerchant(merchantID).Reconciliations.Add(1)
	s.reconciliationsTotal.WithLabelValues(merchantID).Inc()
}

// RecordRestart counts one crash-isolated runtime restart
func (s *Sink) RecordRestart(merchantID string) {
	s.forMerchant(merchantID).Restarts.Add(1)
	s.restartsTotal.WithLabelValues(merchantID).Inc()
}

// Get returns a snapshot of one merchant's counters
func (s *Sink) Get(merchantID string) Snapshot {
	return s.forMerchant(merchantID).snapshot()
}

// Snapshot returns a copy of every merchant's counters
func (s *Sink) Snapshot() map[string]Snapshot {
	out := make(map[string]Snapshot)
	s.counters.Range(func(key, value interface{}) bool {
		out[key.(string)] = value.(*Counters).snapshot()
		return true
	})
	return out
}

func (c *Counters) snapshot() Snapshot {
	return Snapshot{
		Sales:           c.Sales.Load(),
		FailedSales:     c.FailedSales.Load(),
		Deposits:        c.Deposits.Load(),
		Logons:          c.Logons.Load(),
		Reconciliations: c.Reconciliations.Load(),
		Restarts:        c.Restarts.Load(),
	}
}
