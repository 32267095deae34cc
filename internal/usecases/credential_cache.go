package usecases

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"merchant-sim/internal/domain/entities"
	"merchant-sim/pkg/logger"
	"merchant-sim/pkg/redis"
)

// tokenRefreshMargin is the minimum remaining lifetime below which a cached
// token is refreshed before use
const tokenRefreshMargin = 2 * time.Minute

var timeNow = time.Now

// CredentialCache caches one client identity's bearer token and refreshes it
// when absent or close to expiry. An instance may be shared across merchant
// runtimes; refreshes serialize on the mutex, so an occasional duplicate
// refresh under a race is the worst case.
type CredentialCache struct {
	auth         AuthService
	clientID     string
	clientSecret string
	store        SharedTokenStore

	mu   sync.Mutex
	cred *entities.Credential
}

// NewCredentialCache creates a new credential cache; store is optional
func NewCredentialCache(auth AuthService, clientID, clientSecret string, store SharedTokenStore) *CredentialCache {
	return &CredentialCache{
		auth:         auth,
		clientID:     clientID,
		clientSecret: clientSecret,
		store:        store,
	}
}

// GetToken returns a token with at least two minutes of lifetime left,
// refreshing through the auth service when needed
func (c *CredentialCache) GetToken(ctx context.Context) (*entities.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := timeNow()
	if c.cred.Valid(now, tokenRefreshMargin) {
		return c.cred, nil
	}

	if shared := c.fromStore(ctx, now); shared != nil {
		c.cred = shared
		return shared, nil
	}

	cred, err := c.auth.GetToken(ctx, c.clientID, c.clientSecret)
	if err != nil {
		return nil, err
	}
	c.cred = cred
	c.toStore(ctx, cred)
	return cred, nil
}

func (c *CredentialCache) fromStore(ctx context.Context, now time.Time) *entities.Credential {
	if c.store == nil {
		return nil
	}
	data, err := c.store.GetToken(ctx, c.clientID)
	if err != nil || data == nil {
		return nil
	}
	cred := &entities.Credential{AccessToken: data.AccessToken, ExpiresAt: data.ExpiresAt}
	if !cred.Valid(now, tokenRefreshMargin) {
		return nil
	}
	return cred
}

func (c *CredentialCache) toStore(ctx context.Context, cred *entities.Credential) {
	if c.store == nil {
		return
	}
	err := c.store.PutToken(ctx, c.clientID, &redis.TokenData{
		AccessToken: cred.AccessToken,
		ExpiresAt:   cred.ExpiresAt,
	})
	if err != nil {
		logger.Warn(ctx, "failed to share token via store", zap.Error(err))
	}
}
