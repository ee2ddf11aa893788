package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardenoak/storefront/internal/catalog"
	pkgerrors "github.com/ardenoak/storefront/pkg/errors"
	"github.com/ardenoak/storefront/pkg/logger"
	"github.com/ardenoak/storefront/pkg/metrics"
)

const persistOperation = "persist"

// Store is the single source of truth for one shopper's cart. It holds two
// collections: locally persisted guest lines, and an optimistic copy of the
// backend cart once the shopper authenticates. Exactly one collection is
// active at a time. Mutations apply to local state immediately; backend
// mirroring happens asynchronously with a generation guard so a stale
// in-flight persist can never clobber a newer local mutation.
type Store struct {
	mu sync.Mutex

	token      string
	customerID string

	resolver *catalog.Resolver
	guest    GuestStore
	backend  BackendAPI

	logg        *logger.Logger
	syncMetrics *metrics.CartSyncMetrics
	syncCfg     SyncConfig

	state         SyncState
	authenticated bool
	guestItems    Lines
	backendItems  Lines
	hasBackend    bool

	// generation counts local mutations; persist results tagged with an older
	// generation are discarded (last local write wins).
	generation uint64
	inflight   sync.WaitGroup
}

// StoreParams wires a cart store for one session token.
type StoreParams struct {
	Token        string
	Resolver     *catalog.Resolver
	Guest        GuestStore
	Backend      BackendAPI
	Logger       *logger.Logger
	Metrics      *metrics.CartSyncMetrics
	Sync         SyncConfig
	InitialGuest Lines
}

// NewStore builds a cart store. Backend may be nil for guest-only use;
// authentication transitions then fail cleanly.
func NewStore(params StoreParams) (*Store, error) {
	if params.Token == "" {
		return nil, fmt.Errorf("cart token required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	if params.Guest == nil {
		return nil, fmt.Errorf("guest store required")
	}
	return &Store{
		token:       params.Token,
		resolver:    params.Resolver,
		guest:       params.Guest,
		backend:     params.Backend,
		logg:        params.Logger,
		syncMetrics: params.Metrics,
		syncCfg:     params.Sync.withDefaults(),
		state:       StateGuest,
		guestItems:  params.InitialGuest.Clone(),
	}, nil
}

// View is a synchronous, always-valid snapshot for the UI. It reflects the
// active collection under the current auth state.
type View struct {
	State      SyncState
	Lines      Lines
	ItemCount  int
	TotalCents int64
}

// Snapshot returns the current view of the active collection.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.activeLocked()
	return View{
		State:      s.state,
		Lines:      active.Clone(),
		ItemCount:  active.ItemCount(),
		TotalCents: active.Total(s.resolver),
	}
}

// ItemCount reflects the active collection, for the header badge.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked().ItemCount()
}

// TotalCents sums line subtotals of the active collection.
func (s *Store) TotalCents() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked().Total(s.resolver)
}

// State reports the sync protocol state.
func (s *Store) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Resolver exposes the pricing resolver for presentation layers.
func (s *Store) Resolver() *catalog.Resolver {
	return s.resolver
}

// AddItem adds quantity of a product with the given selection to the active
// collection, accumulating onto an equivalent existing line.
func (s *Store) AddItem(ctx context.Context, product *catalog.Product, quantity int, sel Selection) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}
	s.mu.Lock()
	if s.authenticated {
		s.backendItems = s.backendItems.Add(product, quantity, sel)
	} else {
		s.guestItems = s.guestItems.Add(product, quantity, sel)
	}
	s.generation++
	s.mu.Unlock()

	s.afterMutation(ctx)
	return nil
}

// UpdateQuantity sets a line's quantity (clamped to 1) on the active
// collection. Absent keys are a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, key string, quantity int) error {
	s.mu.Lock()
	if s.authenticated {
		s.backendItems = s.backendItems.UpdateQuantity(key, quantity)
	} else {
		s.guestItems = s.guestItems.UpdateQuantity(key, quantity)
	}
	s.generation++
	s.mu.Unlock()

	s.afterMutation(ctx)
	return nil
}

// RemoveLine removes a line from the active collection. Absent keys are a
// no-op.
func (s *Store) RemoveLine(ctx context.Context, key string) error {
	s.mu.Lock()
	if s.authenticated {
		s.backendItems = s.backendItems.Remove(key)
	} else {
		s.guestItems = s.guestItems.Remove(key)
	}
	s.generation++
	s.mu.Unlock()

	s.afterMutation(ctx)
	return nil
}

// SetAuthenticated transitions guest -> syncing on login: the freshly fetched
// backend cart absorbs the guest lines additively, the merged optimistic copy
// becomes active immediately, and persistence runs in the background.
func (s *Store) SetAuthenticated(ctx context.Context, customerID string) error {
	if customerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if s.backend == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "backend cart api unavailable")
	}

	s.mu.Lock()
	if s.authenticated {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	backendLines, err := s.backend.FetchCart(ctx, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch backend cart")
	}

	s.mu.Lock()
	if s.authenticated {
		// A concurrent login finished first; its merged cart stands.
		s.mu.Unlock()
		return nil
	}
	merged := Merge(backendLines, s.guestItems)
	s.backendItems = merged
	s.hasBackend = true
	s.authenticated = true
	s.customerID = customerID
	s.state = StateSyncing
	s.guestItems = Lines{}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	if err := s.guest.Clear(ctx, s.token); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithCartToken(ctx, s.token), "cart.guest.clear_failed")
	}

	s.scheduleSync(gen)
	return nil
}

// SetGuest transitions back to guest mode on logout. The backend cart
// reference is dropped, not deleted remotely, and the guest collection starts
// fresh.
func (s *Store) SetGuest(ctx context.Context) {
	s.mu.Lock()
	s.authenticated = false
	s.hasBackend = false
	s.backendItems = nil
	s.customerID = ""
	s.guestItems = Lines{}
	s.state = StateGuest
	s.generation++
	s.mu.Unlock()

	if err := s.guest.Clear(ctx, s.token); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithCartToken(ctx, s.token), "cart.guest.clear_failed")
	}
}

// Flush waits for in-flight backend syncs. Used at shutdown and in tests.
func (s *Store) Flush() {
	s.inflight.Wait()
}

func (s *Store) activeLocked() Lines {
	if s.authenticated && s.hasBackend {
		return s.backendItems
	}
	return s.guestItems
}

// afterMutation mirrors the optimistic local state outward: guest carts save
// their snapshot, authenticated carts schedule a backend persist.
func (s *Store) afterMutation(ctx context.Context) {
	s.mu.Lock()
	authenticated := s.authenticated
	gen := s.generation
	snapshot := s.guestItems.Clone()
	s.mu.Unlock()

	if authenticated {
		s.scheduleSync(gen)
		return
	}

	if err := s.guest.Save(ctx, s.token, snapshot); err != nil && s.logg != nil {
		// Optimistic in-memory state stands; the next mutation retries the save.
		s.logg.Warn(s.logg.WithCartToken(ctx, s.token), "cart.guest.save_failed")
	}
}

func (s *Store) scheduleSync(gen uint64) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.runSync(gen)
	}()
}

// runSync pushes the latest local backend lines upstream, retrying with
// backoff. A generation mismatch means a newer mutation owns its own sync
// pass, so this one abandons silently.
func (s *Store) runSync(gen uint64) {
	ctx := context.Background()
	for attempt := 1; attempt <= s.syncCfg.MaxAttempts; attempt++ {
		s.mu.Lock()
		stale := gen != s.generation
		customerID := s.customerID
		lines := s.backendItems.Clone()
		s.mu.Unlock()

		if stale || customerID == "" {
			return
		}

		start := time.Now()
		confirmed, err := s.backend.PersistCart(ctx, customerID, lines)
		s.syncMetrics.ObserveDuration(persistOperation, time.Since(start))

		if err == nil {
			s.syncMetrics.IncSuccess(persistOperation)
			s.mu.Lock()
			if gen == s.generation {
				if confirmed != nil {
					s.backendItems = confirmed
				}
				if s.state == StateSyncing {
					s.state = StateAuthenticated
				}
			}
			s.mu.Unlock()
			return
		}

		s.syncMetrics.IncFailure(persistOperation)
		if s.logg != nil {
			s.logg.Error(s.logg.WithCartToken(ctx, s.token), "cart.sync.persist_failed", err)
		}

		if attempt < s.syncCfg.MaxAttempts {
			s.syncMetrics.IncRetry(persistOperation)
			time.Sleep(backoffDelay(s.syncCfg, attempt))
		}
	}

	// Retries exhausted: the optimistic local state stands and the shopper is
	// never blocked; the next mutation schedules a fresh persist.
	if s.logg != nil {
		s.logg.Warn(s.logg.WithCartToken(context.Background(), s.token), "cart.sync.retries_exhausted")
	}
}

func backoffDelay(cfg SyncConfig, attempt int) time.Duration {
	delay := cfg.BaseBackoff << (attempt - 1)
	if delay > cfg.MaxBackoff || delay <= 0 {
		return cfg.MaxBackoff
	}
	return delay
}
