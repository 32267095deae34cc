package usecases

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"merchant-sim/internal/domain/entities"
	"merchant-sim/internal/domain/repositories"
	"merchant-sim/pkg/logger"
)

// HostDeps bundles the collaborators shared by every merchant runtime
type HostDeps struct {
	Gateway TransactionGateway
	Auth    AuthService
	Store   repositories.MerchantStateRepository
	Sink    MetricsRecorder

	// Service identity: cross-cutting operations (deposits, balance)
	ServiceClientID     string
	ServiceClientSecret string

	// POS identity: default device-level identity for merchants whose
	// roster entry carries no credentials of its own
	POSClientID     string
	POSClientSecret string

	// Optional shared token store for the service identity
	TokenStore SharedTokenStore
}

// RuntimeHost runs one merchant runtime per roster entry until cancelled
type RuntimeHost struct {
	runtimes []*MerchantRuntime
	wg       sync.WaitGroup
}

// NewRuntimeHost constructs a runtime per merchant configuration. The
// service credential cache is shared across all runtimes; each merchant
// gets its own device-level cache.
func NewRuntimeHost(configs []entities.MerchantConfig, deps HostDeps) *RuntimeHost {
	serviceCreds := NewCredentialCache(deps.Auth, deps.ServiceClientID, deps.ServiceClientSecret, deps.TokenStore)

	host := &RuntimeHost{}
	for _, cfg := range configs {
		clientID, clientSecret := cfg.ClientID, cfg.ClientSecret
		if clientID == "" {
			clientID, clientSecret = deps.POSClientID, deps.POSClientSecret
		}
		deviceCreds := NewCredentialCache(deps.Auth, clientID, clientSecret, nil)

		host.runtimes = append(host.runtimes, NewMerchantRuntime(
			cfg, deps.Gateway, deps.Store, deviceCreds, serviceCreds, deps.Sink,
		))
	}
	return host
}

// Start launches every runtime on its own goroutine and returns immediately;
// readiness does not wait on any individual runtime's startup
func (h *RuntimeHost) Start(ctx context.Context) {
	logger.Info(ctx, "starting merchant runtimes", zap.Int("merchants", len(h.runtimes)))
	for _, runtime := range h.runtimes {
		h.wg.Add(1)
		go func(r *MerchantRuntime) {
			defer h.wg.Done()
			r.Run(ctx)
		}(runtime)
	}
}

// Wait blocks until every runtime has observed cancellation and returned
func (h *RuntimeHost) Wait() {
	h.wg.Wait()
}

// Size returns the number of hosted runtimes
func (h *RuntimeHost) Size() int {
	return len(h.runtimes)
}
