package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardenoak/storefront/internal/catalog"
)

func newTestManager(t *testing.T, guest GuestStore) *Manager {
	t.Helper()
	if guest == nil {
		guest = newMemGuestStore()
	}
	mgr, err := NewManager(ManagerParams{
		Resolver: catalog.NewResolver("", ""),
		Guest:    guest,
		Backend:  &stubBackend{},
	})
	require.NoError(t, err)
	return mgr
}

func TestManagerGetReturnsSameStorePerToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mgr := newTestManager(t, nil)

	first, err := mgr.Get(ctx, "tok-1")
	require.NoError(t, err)
	second, err := mgr.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := mgr.Get(ctx, "tok-2")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestManagerSeedsStoreFromGuestSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guest := newMemGuestStore()

	var lines Lines
	lines = lines.Add(testProduct("p1", 12500), 2, Selection{})
	require.NoError(t, guest.Save(ctx, "tok-1", lines))

	mgr := newTestManager(t, guest)
	store, err := mgr.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.ItemCount())
}

func TestManagerRejectsEmptyToken(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t, nil)
	_, err := mgr.Get(context.Background(), "")
	require.Error(t, err)
}

func TestNewManagerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewManager(ManagerParams{Guest: newMemGuestStore()})
	require.Error(t, err)

	_, err = NewManager(ManagerParams{Resolver: catalog.NewResolver("", "")})
	require.Error(t, err)
}
