// Package tokens manages provider auth credentials: a fast TTL cache in front
// of each provider's token endpoint, plus a durable Postgres audit trail.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// ErrCacheMiss is returned by Cache implementations when a key is absent.
var ErrCacheMiss = errors.New("tokens: cache miss")

// Cache is the fast token store. The Redis implementation lives in
// internal/tokencache; tests inject fakes.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Store persists issued tokens as an audit trail. The cache remains the
// source read on the hot path; rows here are insert-only.
type Store interface {
	Insert(ctx context.Context, providerID, accessToken, refreshToken string) error
}

// Token is one issued credential pair. RefreshToken is empty for providers
// without a refresh flow (ForeUp, ClubProphet, QuickEighteen).
type Token struct {
	AccessToken  string
	RefreshToken string
	TTL          time.Duration
}

// FetchFunc obtains a fresh credential from the provider. currentRefresh is
// the cached refresh token, empty when none is cached; OAuth providers use it,
// the rest ignore it.
type FetchFunc func(ctx context.Context, currentRefresh string) (*Token, error)

// Manager implements get-or-fetch-and-set over the cache. The miss path is
// deliberately unlocked: concurrent misses may fetch twice, and provider token
// endpoints tolerate redundant issuance.
type Manager struct {
	providerID string
	cache      Cache
	store      Store
	fetch      FetchFunc
	logger     *logging.Logger
}

func NewManager(providerID string, cache Cache, store Store, fetch FetchFunc, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		providerID: providerID,
		cache:      cache,
		store:      store,
		fetch:      fetch,
		logger:     logger,
	}
}

func (m *Manager) tokenKey() string {
	return fmt.Sprintf("provider-%s-token", m.providerID)
}

func (m *Manager) refreshKey() string {
	return fmt.Sprintf("provider-%s-refresh-token", m.providerID)
}

// Token returns a valid access token, fetching and caching a fresh one on a
// cache miss.
func (m *Manager) Token(ctx context.Context) (string, error) {
	cached, err := m.cache.Get(ctx, m.tokenKey())
	if err == nil && cached != "" {
		return cached, nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		m.logger.Warn("token cache read failed, fetching fresh", "provider", m.providerID, "error", err)
	}
	return m.refresh(ctx)
}

// Invalidate drops the cached access token. Called reactively on 401/403; the
// refresh token is kept so OAuth providers can still rotate.
func (m *Manager) Invalidate(ctx context.Context) error {
	if err := m.cache.Delete(ctx, m.tokenKey()); err != nil && !errors.Is(err, ErrCacheMiss) {
		return fmt.Errorf("tokens: invalidate %s: %w", m.providerID, err)
	}
	return nil
}

// RecoverAuth is the 401/403 reaction: invalidate the cached token and fetch a
// fresh one. The failed request is not retried here; callers decide whether to
// retry with the new token.
func (m *Manager) RecoverAuth(ctx context.Context) error {
	if err := m.Invalidate(ctx); err != nil {
		return err
	}
	_, err := m.refresh(ctx)
	return err
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	currentRefresh, err := m.cache.Get(ctx, m.refreshKey())
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		m.logger.Warn("refresh token cache read failed", "provider", m.providerID, "error", err)
		currentRefresh = ""
	}

	tok, err := m.fetch(ctx, currentRefresh)
	if err != nil {
		return "", fmt.Errorf("tokens: fetch %s: %w", m.providerID, err)
	}

	ttl := tok.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if err := m.cache.Set(ctx, m.tokenKey(), tok.AccessToken, ttl); err != nil {
		m.logger.Warn("token cache write failed", "provider", m.providerID, "error", err)
	}
	if tok.RefreshToken != "" {
		// Refresh tokens rotate on some providers; always store the latest.
		if err := m.cache.Set(ctx, m.refreshKey(), tok.RefreshToken, 0); err != nil {
			m.logger.Warn("refresh token cache write failed", "provider", m.providerID, "error", err)
		}
	}

	if m.store != nil {
		if err := m.store.Insert(ctx, m.providerID, tok.AccessToken, tok.RefreshToken); err != nil {
			// Audit failure must not block the caller holding a valid token.
			m.logger.Error("token audit insert failed", "provider", m.providerID, "error", err)
		}
	}

	return tok.AccessToken, nil
}
