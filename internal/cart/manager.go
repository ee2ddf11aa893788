package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardenoak/storefront/internal/catalog"
	pkgerrors "github.com/ardenoak/storefront/pkg/errors"
	"github.com/ardenoak/storefront/pkg/logger"
	"github.com/ardenoak/storefront/pkg/metrics"
)

// Manager hands out one Store per cart token. Stores are created lazily,
// seeded from the persisted guest snapshot, and kept in memory so background
// syncs and generation counters survive across requests.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store

	resolver    *catalog.Resolver
	guest       GuestStore
	backend     BackendAPI
	logg        *logger.Logger
	syncMetrics *metrics.CartSyncMetrics
	syncCfg     SyncConfig
}

// ManagerParams wires the shared dependencies for all cart stores.
type ManagerParams struct {
	Resolver *catalog.Resolver
	Guest    GuestStore
	Backend  BackendAPI
	Logger   *logger.Logger
	Metrics  *metrics.CartSyncMetrics
	Sync     SyncConfig
}

// NewManager builds a cart manager backed by the provided stack.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Resolver == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	if params.Guest == nil {
		return nil, fmt.Errorf("guest store required")
	}
	return &Manager{
		stores:      make(map[string]*Store),
		resolver:    params.Resolver,
		guest:       params.Guest,
		backend:     params.Backend,
		logg:        params.Logger,
		syncMetrics: params.Metrics,
		syncCfg:     params.Sync,
	}, nil
}

// Get returns the store for the given cart token, creating it from the
// persisted guest snapshot on first use.
func (m *Manager) Get(ctx context.Context, token string) (*Store, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart token is required")
	}

	m.mu.Lock()
	if store, ok := m.stores[token]; ok {
		m.mu.Unlock()
		return store, nil
	}
	m.mu.Unlock()

	initial, err := m.guest.Load(ctx, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}

	store, err := NewStore(StoreParams{
		Token:        token,
		Resolver:     m.resolver,
		Guest:        m.guest,
		Backend:      m.backend,
		Logger:       m.logg,
		Metrics:      m.syncMetrics,
		Sync:         m.syncCfg,
		InitialGuest: initial,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart store")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.stores[token]; ok {
		// Another request created it while we were loading the snapshot.
		return existing, nil
	}
	m.stores[token] = store
	return store, nil
}

// Flush waits for in-flight backend syncs across all stores.
func (m *Manager) Flush() {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for _, store := range m.stores {
		stores = append(stores, store)
	}
	m.mu.Unlock()

	for _, store := range stores {
		store.Flush()
	}
}
