package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardenoak/storefront/internal/catalog"
)

type memGuestStore struct {
	mu        sync.Mutex
	snapshots map[string]Lines
	saveErr   error
}

func newMemGuestStore() *memGuestStore {
	return &memGuestStore{snapshots: make(map[string]Lines)}
}

func (m *memGuestStore) Load(ctx context.Context, token string) (Lines, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[token].Clone(), nil
}

func (m *memGuestStore) Save(ctx context.Context, token string, lines Lines) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[token] = lines.Clone()
	return nil
}

func (m *memGuestStore) Clear(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, token)
	return nil
}

type stubBackend struct {
	mu           sync.Mutex
	fetchLines   Lines
	fetchErr     error
	persistErr   error
	persistCalls []Lines
	persistFn    func(customerID string, lines Lines) (Lines, error)
	fetchFn      func(customerID string) (Lines, error)
}

func (s *stubBackend) FetchCart(ctx context.Context, customerID string) (Lines, error) {
	if s.fetchFn != nil {
		return s.fetchFn(customerID)
	}
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.fetchLines.Clone(), nil
}

func (s *stubBackend) PersistCart(ctx context.Context, customerID string, lines Lines) (Lines, error) {
	s.mu.Lock()
	s.persistCalls = append(s.persistCalls, lines.Clone())
	fn := s.persistFn
	err := s.persistErr
	s.mu.Unlock()

	if fn != nil {
		return fn(customerID, lines)
	}
	if err != nil {
		return nil, err
	}
	return lines.Clone(), nil
}

func (s *stubBackend) calls() []Lines {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Lines, len(s.persistCalls))
	copy(out, s.persistCalls)
	return out
}

func newTestStore(t *testing.T, backend BackendAPI, guest GuestStore) *Store {
	t.Helper()
	if guest == nil {
		guest = newMemGuestStore()
	}
	store, err := NewStore(StoreParams{
		Token:    "tok-test",
		Resolver: catalog.NewResolver("", ""),
		Guest:    guest,
		Backend:  backend,
		Sync:     SyncConfig{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	})
	require.NoError(t, err)
	return store
}

func TestGuestCheckoutFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guest := newMemGuestStore()
	store := newTestStore(t, nil, guest)

	productX := testProduct("x", 12500)
	black := Selection{Color: catalog.Named("Black")}

	require.NoError(t, store.AddItem(ctx, productX, 2, black))
	assert.Equal(t, 2, store.ItemCount())

	require.NoError(t, store.AddItem(ctx, productX, 1, black))

	view := store.Snapshot()
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, int64(37500), view.TotalCents)
	assert.Equal(t, StateGuest, view.State)

	// Every mutation mirrors the snapshot into the guest store.
	saved, err := guest.Load(ctx, "tok-test")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 3, saved[0].Quantity)
}

func TestLoginMergeFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	productX := testProduct("x", 10000)
	productY := testProduct("y", 5000)

	var backendLines Lines
	backendLines = backendLines.Add(productX, 1, Selection{})
	backendLines = backendLines.Add(productY, 1, Selection{})
	backend := &stubBackend{fetchLines: backendLines}

	guest := newMemGuestStore()
	store := newTestStore(t, backend, guest)

	require.NoError(t, store.AddItem(ctx, productX, 2, Selection{}))

	require.NoError(t, store.SetAuthenticated(ctx, "cust-1"))
	store.Flush()

	view := store.Snapshot()
	assert.Equal(t, StateAuthenticated, view.State)
	require.Len(t, view.Lines, 2)

	byProduct := map[string]int{}
	for _, line := range view.Lines {
		byProduct[line.ProductID] = line.Quantity
	}
	assert.Equal(t, 3, byProduct["x"])
	assert.Equal(t, 1, byProduct["y"])
	assert.Equal(t, 4, view.ItemCount)

	// Guest snapshot is cleared once the backend cart takes over.
	saved, err := guest.Load(ctx, "tok-test")
	require.NoError(t, err)
	assert.Empty(t, saved)

	calls := backend.calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, 4, calls[len(calls)-1].ItemCount())
}

func TestAuthenticatedMutationsScheduleSync(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &stubBackend{}
	store := newTestStore(t, backend, nil)

	require.NoError(t, store.SetAuthenticated(ctx, "cust-1"))
	store.Flush()

	require.NoError(t, store.AddItem(ctx, testProduct("x", 10000), 2, Selection{}))
	store.Flush()

	calls := backend.calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, 2, calls[len(calls)-1].ItemCount())
}

func TestPersistFailureKeepsOptimisticStateAndRetries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &stubBackend{persistErr: errors.New("upstream down")}
	store := newTestStore(t, backend, nil)

	require.NoError(t, store.SetAuthenticated(ctx, "cust-1"))
	require.NoError(t, store.AddItem(ctx, testProduct("x", 10000), 2, Selection{}))
	store.Flush()

	// All attempts failed, but the merged optimistic state stands.
	view := store.Snapshot()
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, StateSyncing, view.State)

	assert.GreaterOrEqual(t, len(backend.calls()), 3)
}

func TestStalePersistResultIsDiscarded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate := make(chan struct{})

	backend := &stubBackend{}
	backend.persistFn = func(customerID string, lines Lines) (Lines, error) {
		backend.mu.Lock()
		first := len(backend.persistCalls) == 1
		backend.mu.Unlock()
		if first {
			<-gate
			// A stale confirmation echoing the old single-unit line.
			return lines.Clone(), nil
		}
		return lines.Clone(), nil
	}

	store := newTestStore(t, backend, nil)
	require.NoError(t, store.SetAuthenticated(ctx, "cust-1"))

	productX := testProduct("x", 10000)
	require.NoError(t, store.AddItem(ctx, productX, 1, Selection{}))

	// A newer mutation lands while the first persist is still in flight.
	require.NoError(t, store.UpdateQuantity(ctx, Key("x", Selection{}), 5))
	close(gate)
	store.Flush()

	view := store.Snapshot()
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 5, view.Lines[0].Quantity, "stale in-flight result must not clobber newer local state")
}

func TestConcurrentLoginsKeepMergedCart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	productX := testProduct("x", 10000)

	var backendLines Lines
	backendLines = backendLines.Add(productX, 1, Selection{})

	gate := make(chan struct{})
	started := make(chan struct{})
	backend := &stubBackend{}

	var fetchMu sync.Mutex
	fetches := 0
	backend.fetchFn = func(customerID string) (Lines, error) {
		fetchMu.Lock()
		fetches++
		first := fetches == 1
		fetchMu.Unlock()
		if first {
			close(started)
			<-gate
		}
		return backendLines.Clone(), nil
	}

	store := newTestStore(t, backend, nil)
	require.NoError(t, store.AddItem(ctx, productX, 2, Selection{}))

	// First login stalls inside the backend fetch.
	done := make(chan error, 1)
	go func() { done <- store.SetAuthenticated(ctx, "cust-1") }()
	<-started

	// A second login (another tab) runs to completion meanwhile.
	require.NoError(t, store.SetAuthenticated(ctx, "cust-1"))
	assert.Equal(t, 3, store.ItemCount())

	close(gate)
	require.NoError(t, <-done)
	store.Flush()

	view := store.Snapshot()
	assert.Equal(t, 3, view.ItemCount, "duplicate login must not discard the merged guest quantity")
	assert.Equal(t, StateAuthenticated, view.State)
}

func TestLogoutDropsBackendAndResetsGuest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &stubBackend{}
	store := newTestStore(t, backend, nil)

	require.NoError(t, store.SetAuthenticated(ctx, "cust-1"))
	require.NoError(t, store.AddItem(ctx, testProduct("x", 10000), 2, Selection{}))
	store.Flush()

	store.SetGuest(ctx)

	view := store.Snapshot()
	assert.Equal(t, StateGuest, view.State)
	assert.Empty(t, view.Lines)
	assert.Zero(t, view.ItemCount)
}

func TestSetAuthenticatedFetchFailureLeavesGuestActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &stubBackend{fetchErr: errors.New("upstream down")}
	store := newTestStore(t, backend, nil)

	require.NoError(t, store.AddItem(ctx, testProduct("x", 10000), 2, Selection{}))

	err := store.SetAuthenticated(ctx, "cust-1")
	require.Error(t, err)

	view := store.Snapshot()
	assert.Equal(t, StateGuest, view.State)
	assert.Equal(t, 2, view.ItemCount)
}

func TestSetAuthenticatedValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, &stubBackend{}, nil)
	require.Error(t, store.SetAuthenticated(context.Background(), ""))

	guestOnly := newTestStore(t, nil, nil)
	require.Error(t, guestOnly.SetAuthenticated(context.Background(), "cust-1"))
}
