package usecases

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"merchant-sim/internal/domain/entities"
	domainerrors "merchant-sim/internal/domain/errors"
	"merchant-sim/internal/domain/repositories"
	"merchant-sim/pkg/logger"
)

const (
	// restartBackoff is the fixed delay before a crashed runtime restarts.
	// Deliberately flat, no growth or jitter.
	restartBackoff = 5 * time.Second

	// disabledSleep paces the idle loop of a disabled merchant
	disabledSleep = 30 * time.Second

	// Variable-priced sales draw a value in [minSaleValue, maxSaleValue)
	minSaleValue = 9
	maxSaleValue = 250
)

// MerchantRuntime drives one merchant through its daily business cycle:
// logon, sales, auto-replenishment and end-of-day reconciliation
type MerchantRuntime struct {
	cfg          entities.MerchantConfig
	gateway      TransactionGateway
	store        repositories.MerchantStateRepository
	deviceCreds  *CredentialCache
	serviceCreds *CredentialCache
	sink         MetricsRecorder
	rng          *rand.Rand

	catalog []entities.Product
}

// NewMerchantRuntime creates a runtime for one merchant. deviceCreds holds
// the merchant's device-level identity; serviceCreds the shared service
// identity used for deposits and balance queries.
func NewMerchantRuntime(
	cfg entities.MerchantConfig,
	gw TransactionGateway,
	store repositories.MerchantStateRepository,
	deviceCreds *CredentialCache,
	serviceCreds *CredentialCache,
	sink MetricsRecorder,
) *MerchantRuntime {
	return &MerchantRuntime{
		cfg:          cfg,
		gateway:      gw,
		store:        store,
		deviceCreds:  deviceCreds,
		serviceCreds: serviceCreds,
		sink:         sink,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes the merchant lifecycle until ctx is cancelled. Any failure
// escaping the main loop is logged and the whole lifecycle restarts after a
// fixed backoff; no failure here ever affects another merchant's runtime.
func (r *MerchantRuntime) Run(ctx context.Context) {
	ctx = logger.WithMerchant(ctx, r.cfg.MerchantID)

	for {
		err := r.runLifecycle(ctx)
		if ctx.Err() != nil {
			logger.Info(ctx, "merchant runtime stopped")
			return
		}
		logger.Error(ctx, "merchant runtime crashed, restarting", zap.Error(err))
		r.sink.RecordRestart(r.cfg.MerchantID)
		if !sleepCtx(ctx, restartBackoff) {
			return
		}
	}
}

func (r *MerchantRuntime) runLifecycle(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("runtime panic: %v", rec)
		}
	}()

	if err := r.startup(ctx); err != nil {
		return err
	}

	for ctx.Err() == nil {
		wait, err := r.iterate(ctx)
		if err != nil {
			return err
		}
		if !sleepCtx(ctx, wait) {
			return nil
		}
	}
	return nil
}

// startup acquires the device token, caches the product catalog and
// reconciles the backend balance into the state store
func (r *MerchantRuntime) startup(ctx context.Context) error {
	deviceCred, err := r.deviceCreds.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("device token: %w", err)
	}

	catalog, err := r.gateway.GetProductCatalog(ctx, r.cfg, deviceCred)
	if err != nil {
		return fmt.Errorf("product catalog: %w", err)
	}
	r.catalog = catalog

	serviceCred, err := r.serviceCreds.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("service token: %w", err)
	}
	balance, err := r.gateway.GetBalance(ctx, r.cfg, serviceCred)
	if err != nil {
		return fmt.Errorf("backend balance: %w", err)
	}
	if err := r.store.UpdateBalance(ctx, r.cfg.MerchantID, balance); err != nil {
		return fmt.Errorf("store balance: %w", err)
	}

	logger.Info(ctx, "merchant runtime started",
		zap.Int("products", len(catalog)),
		zap.Float64("balance", balance))
	return nil
}

// iterate runs one pass of the main loop and returns how long to sleep
// before the next pass. Store failures escape; gateway and auth failures
// within a single business action are contained to that action.
func (r *MerchantRuntime) iterate(ctx context.Context) (time.Duration, error) {
	state, err := r.store.GetMerchant(ctx, r.cfg.MerchantID)
	if err != nil {
		return 0, err
	}

	now := timeNow()

	if r.cfg.BeforeOpening(now) {
		wait := r.cfg.UntilOpening(now)
		logger.Debug(ctx, "before opening time, sleeping", zap.Duration("wait", wait))
		return wait, nil
	}

	if r.cfg.AfterClosing(now) {
		if r.cfg.RequiresEndOfDay && !state.EndOfDayDoneToday(now) {
			if err := r.reconcile(ctx); err != nil {
				// totals and timestamp stay untouched; retried on the
				// next closing-time pass
				logger.Error(ctx, "end-of-day reconciliation failed", zap.Error(err))
			}
		}
		wait := r.cfg.UntilNextOpening(now)
		logger.Debug(ctx, "after closing time, sleeping until opening", zap.Duration("wait", wait))
		return wait, nil
	}

	if !r.cfg.Enabled {
		return disabledSleep, nil
	}

	// one iteration performs the daily logon or a sale cycle, never both
	if !state.LoggedOnToday(now) {
		if err := r.logon(ctx, state); err != nil {
			return 0, err
		}
	} else {
		if err := r.saleCycle(ctx, state); err != nil {
			return 0, err
		}
	}

	if _, err := r.store.IncrementTransactionNumber(ctx, r.cfg.MerchantID); err != nil {
		return 0, err
	}

	return r.cfg.SaleInterval, nil
}

// logon sends the daily logon transaction; a failure is logged and the
// iteration falls through without selling
func (r *MerchantRuntime) logon(ctx context.Context, state *entities.MerchantState) error {
	cred, err := r.deviceCreds.GetToken(ctx)
	if err != nil {
		logger.Warn(ctx, "logon skipped, no device token", zap.Error(err))
		return nil
	}

	result, err := r.gateway.SendLogon(ctx, r.cfg, cred, state.TransactionNumber)
	if err != nil {
		logger.Warn(ctx, "logon failed", zap.Error(err))
		return nil
	}
	if !result.Authorised {
		logger.Warn(ctx, "logon declined", zap.String("response_code", result.ResponseCode))
		return nil
	}

	if err := r.store.UpdateLastLogon(ctx, r.cfg.MerchantID, timeNow()); err != nil {
		return err
	}
	r.sink.RecordLogon(r.cfg.MerchantID)
	logger.Info(ctx, "daily logon complete")
	return nil
}

// saleCycle attempts one sale of a randomly chosen product and applies its
// financial effect, then tops the balance up when it falls below the
// configured threshold
func (r *MerchantRuntime) saleCycle(ctx context.Context, state *entities.MerchantState) error {
	if len(r.catalog) == 0 {
		return domainerrors.ErrEmptyCatalog
	}

	product := r.catalog[r.rng.Intn(len(r.catalog))]
	value := r.saleValue(product)

	if r.rng.Float64() < r.cfg.FailureRate {
		// force a decline: the backend never authorises a sale
		// exceeding the balance
		value = state.Balance + 10
	}

	authorised, err := r.submitSale(ctx, state, product, value)
	if err != nil {
		return err
	}

	if authorised {
		r.sink.RecordSale(r.cfg.MerchantID, value)
		if err := r.store.UpdateTotals(ctx, r.cfg.MerchantID, product.OperatorID, product.ContractID, value); err != nil {
			return err
		}
		if err := r.store.UpdateBalance(ctx, r.cfg.MerchantID, state.Balance-value); err != nil {
			return err
		}
	} else {
		r.sink.RecordFailedSale(r.cfg.MerchantID)
	}

	return r.checkDeposit(ctx)
}

func (r *MerchantRuntime) saleValue(product entities.Product) float64 {
	if product.HasFixedPrice() {
		return product.FixedPrice.Float64
	}
	return float64(minSaleValue + r.rng.Intn(maxSaleValue-minSaleValue))
}

// submitSale sends the sale and reports whether it was authorised; gateway
// and auth failures are contained and count as an unauthorised outcome
func (r *MerchantRuntime) submitSale(ctx context.Context, state *entities.MerchantState, product entities.Product, value float64) (bool, error) {
	cred, err := r.deviceCreds.GetToken(ctx)
	if err != nil {
		logger.Warn(ctx, "sale skipped, no device token", zap.Error(err))
		return false, nil
	}

	result, err := r.gateway.SendSale(ctx, r.cfg, cred, product, value, state.TransactionNumber)
	if err != nil {
		logger.Warn(ctx, "sale failed",
			zap.String("product_id", product.ProductID),
			zap.Float64("value", value),
			zap.Error(err))
		return false, nil
	}
	if !result.Authorised {
		logger.Info(ctx, "sale declined",
			zap.String("product_id", product.ProductID),
			zap.Float64("value", value),
			zap.String("response_code", result.ResponseCode))
		return false, nil
	}

	logger.Info(ctx, "sale authorised",
		zap.String("product_id", product.ProductID),
		zap.Float64("value", value))
	return true, nil
}

// checkDeposit re-reads the balance and submits an automatic top-up through
// the service identity when it sits below the configured threshold
func (r *MerchantRuntime) checkDeposit(ctx context.Context) error {
	state, err := r.store.GetMerchant(ctx, r.cfg.MerchantID)
	if err != nil {
		return err
	}
	if state.Balance >= r.cfg.DepositThreshold {
		return nil
	}

	cred, err := r.serviceCreds.GetToken(ctx)
	if err != nil {
		logger.Warn(ctx, "deposit skipped, no service token", zap.Error(err))
		return nil
	}

	result, err := r.gateway.SendDeposit(ctx, r.cfg, cred, r.cfg.DepositAmount)
	if err != nil {
		logger.Warn(ctx, "deposit failed", zap.Error(err))
		return nil
	}
	if !result.Authorised {
		logger.Warn(ctx, "deposit declined", zap.String("response_code", result.ResponseCode))
		return nil
	}

	if err := r.store.UpdateBalance(ctx, r.cfg.MerchantID, state.Balance+r.cfg.DepositAmount); err != nil {
		return err
	}
	r.sink.RecordDeposit(r.cfg.MerchantID, r.cfg.DepositAmount)
	logger.Info(ctx, "automatic deposit applied",
		zap.Float64("amount", r.cfg.DepositAmount),
		zap.Float64("balance", state.Balance+r.cfg.DepositAmount))
	return nil
}

// reconcile settles the accumulated operator totals with the backend, then
// stamps the end-of-day and clears the totals
func (r *MerchantRuntime) reconcile(ctx context.Context) error {
	cred, err := r.deviceCreds.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("device token: %w", err)
	}

	totals, err := r.store.GetTotals(ctx, r.cfg.MerchantID)
	if err != nil {
		return err
	}

	result, err := r.gateway.SendReconciliation(ctx, r.cfg, cred, totals)
	if err != nil {
		return err
	}
	if !result.Authorised {
		return domainerrors.NewGatewayError(result.ResponseCode, "reconciliation declined")
	}

	if err := r.store.UpdateLastEndOfDay(ctx, r.cfg.MerchantID, timeNow()); err != nil {
		return err
	}
	if err := r.store.ClearTotals(ctx, r.cfg.MerchantID); err != nil {
		return err
	}

	count, value := entities.SumTotals(totals)
	r.sink.RecordReconciliation(r.cfg.MerchantID)
	logger.Info(ctx, "end-of-day reconciliation complete",
		zap.Int("transactions", count),
		zap.Float64("value", value))
	return nil
}

// sleepCtx waits for d or until ctx is cancelled; it reports false once the
// cancellation signal has been observed
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
